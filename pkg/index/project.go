package index

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/l3aro/pyresolve/pkg/module"
)

// topLevelNonExports are root-level scripts that never make up a project's
// public surface.
var topLevelNonExports = map[string]bool{
	"__init__": true,
	"setup":    true,
	"tests":    true,
	"test":     true,
}

// IndexProject assigns qualified names to a flat list of project paths and
// stores the resulting modules in reg. A path's name accumulates the names of
// its enclosing folders only while those folders are packages, stopping at
// the first plain folder or at root.
//
// It returns the packages the project exports: its top-level packages, or
// its top-level modules when it has no packages at all.
func (ix *Indexer) IndexProject(paths []string, root string, reg *module.Registry) []string {
	root = filepath.Clean(root)

	packageDirs := make(map[string]bool)
	topLevelModules := make(map[string]struct{})
	for _, p := range paths {
		dir, filename := filepath.Split(p)
		dir = filepath.Clean(dir)
		if filename == module.MarkerFile {
			packageDirs[dir] = true
		}
		base, ext := module.SplitExt(filename)
		if dir == root && module.IsSourceExt(ext) && !topLevelNonExports[base] {
			topLevelModules[base] = struct{}{}
		}
	}

	exports := make(map[string]struct{})
	for dir := range packageDirs {
		if dir != root && filepath.Dir(dir) == root {
			exports[filepath.Base(dir)] = struct{}{}
		}
	}
	if len(exports) == 0 {
		exports = topLevelModules
	}

	for _, p := range paths {
		dir, filename := filepath.Split(p)
		dir = filepath.Clean(dir)
		base, ext := module.SplitExt(filename)
		if !module.IsSourceExt(ext) {
			continue
		}

		var parent, this string
		isPackage := filename == module.MarkerFile
		if isPackage {
			parent, this = filepath.Dir(dir), filepath.Base(dir)
			if this == string(filepath.Separator) || this == "." {
				continue
			}
		} else {
			if module.IsDunder(base) || base == module.MarkerName {
				continue
			}
			parent, this = dir, base
		}

		components := []string{this}
		for parent != root && packageDirs[parent] && isBelow(parent, root) {
			components = append(components, filepath.Base(parent))
			parent = filepath.Dir(parent)
		}
		reverse(components)

		m := &module.Module{
			Name:          this,
			QualifiedName: strings.Join(components, "."),
			Path:          p,
			IsPackage:     isPackage,
		}
		reg.Put(m)
		ix.paths.Put(m.Path, m)
	}

	out := make([]string, 0, len(exports))
	for name := range exports {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func isBelow(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
