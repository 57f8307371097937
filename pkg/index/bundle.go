package index

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/l3aro/pyresolve/pkg/module"
)

// indexBundle indexes the members of a zipped bundle as if the archive were
// an unpacked directory sitting at breadcrumb. Member paths are recorded as
// <bundle>/<member>.
func (ix *Indexer) indexBundle(w *treeWalk, bundle, breadcrumb string) error {
	zr, err := zip.OpenReader(bundle)
	if err != nil {
		return fmt.Errorf("opening bundle: %w", err)
	}
	defer zr.Close()

	var members []string
	packageDirs := make(map[string]bool)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Clean(f.Name)
		if strings.HasPrefix(name, "../") || path.IsAbs(name) {
			continue
		}
		members = append(members, name)
		if path.Base(name) == module.MarkerFile {
			packageDirs[path.Dir(name)] = true
		}
	}
	sort.Strings(members)

	for _, member := range members {
		dir := path.Dir(member)
		qualifiedName := breadcrumb
		if dir != "." {
			for _, ancestor := range ancestors(dir) {
				if packageDirs[ancestor] {
					qualifiedName = module.Join(qualifiedName, path.Base(ancestor))
				}
			}
		} else if packageDirs["."] {
			// a marker at the archive root makes the bundle itself the package
			qualifiedName = module.Join(breadcrumb, bundleName(bundle))
		}
		ix.indexFile(w, filepath.Join(bundle, filepath.FromSlash(member)), qualifiedName)
	}
	return nil
}

// ancestors lists "a", "a/b", "a/b/c" for "a/b/c".
func ancestors(dir string) []string {
	parts := strings.Split(dir, "/")
	out := make([]string, len(parts))
	for i := range parts {
		out[i] = strings.Join(parts[:i+1], "/")
	}
	return out
}

// bundleName strips the distribution suffix from "six-1.10.0-py3.6.egg".
func bundleName(bundle string) string {
	name := strings.TrimSuffix(filepath.Base(bundle), filepath.Ext(bundle))
	if i := strings.IndexByte(name, '-'); i >= 0 {
		name = name[:i]
	}
	return name
}
