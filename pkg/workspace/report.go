package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/l3aro/pyresolve/pkg/imports"
	"github.com/l3aro/pyresolve/pkg/module"
)

// stdlibPackage names the standard library in dependency reports.
const stdlibPackage = "cpython"

// GetModuleByPath returns the module whose source file is path.
func (w *Workspace) GetModuleByPath(path string) (*module.Module, bool) {
	return w.paths.Get(filepath.Clean(path))
}

// GetModules returns every module named qualifiedName: the project one, the
// dependency one (fetched if needed) and the standard library one, in that
// order. Namespaces that lack the name are skipped.
func (w *Workspace) GetModules(ctx context.Context, qualifiedName string) []*module.Module {
	var out []*module.Module
	if m, ok := w.project.Get(qualifiedName); ok {
		out = append(out, m)
	}
	if m, err := w.ResolveExternal(ctx, qualifiedName); err == nil {
		out = append(out, m)
	}
	if m, ok := w.stdlib.Get(qualifiedName); ok {
		out = append(out, m)
	}
	return out
}

// OpenModule returns the source of m. Project modules are read through the
// project filesystem, everything else from local disk.
func (w *Workspace) OpenModule(ctx context.Context, m *module.Module) ([]byte, error) {
	if m.IsNative || m.IsNamespacePackage() || m.Path == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnanalyzable, m.QualifiedName)
	}
	if m.IsExternal || m.IsStdlib {
		return w.local.Open(ctx, m.Path)
	}
	return w.files.Open(ctx, m.Path)
}

// Dependency is one package the project imports.
type Dependency struct {
	Name    string `json:"name"`
	RepoURL string `json:"repoURL,omitempty"`
}

// Dependencies lists the top-level packages the project imports that are
// neither standard library nor provided by the project. A single entry for
// the standard library is appended when any of it is imported.
func (w *Workspace) Dependencies(ctx context.Context) ([]Dependency, error) {
	files, err := imports.NewExtractor(w.files, imports.WithLogger(w.logger)).Extract(ctx, w.sortedSource)
	if err != nil {
		return nil, err
	}

	stdlib := w.stdlib.TopLevelNames()
	local := w.project.TopLevelNames()
	for _, name := range w.exports {
		local[name] = struct{}{}
	}

	var deps []Dependency
	usesStdlib := false
	for _, name := range imports.TopLevelNames(files) {
		if _, ok := stdlib[name]; ok {
			usesStdlib = true
			continue
		}
		if _, ok := local[name]; ok {
			continue
		}
		deps = append(deps, Dependency{Name: name})
	}
	if usesStdlib {
		deps = append(deps, Dependency{Name: stdlibPackage, RepoURL: w.cfg.StdlibRepoURL})
	}
	return deps, nil
}

// PackageInfo describes one package the workspace provides.
type PackageInfo struct {
	Package      Package      `json:"package"`
	Dependencies []Dependency `json:"dependencies"`
}

// Package names a provided package.
type Package struct {
	Name string `json:"name"`
}

// PackageInformation reports the packages the project exports, each with
// the project's dependencies. The standard library workspace reports itself
// as a single package without dependencies.
func (w *Workspace) PackageInformation(ctx context.Context) ([]PackageInfo, error) {
	if w.isStdlibWorkspace {
		return []PackageInfo{{Package: Package{Name: stdlibPackage}, Dependencies: []Dependency{}}}, nil
	}
	if len(w.exports) == 0 {
		return nil, nil
	}

	deps, err := w.Dependencies(ctx)
	if err != nil {
		return nil, err
	}
	if deps == nil {
		deps = []Dependency{}
	}
	out := make([]PackageInfo, 0, len(w.exports))
	for _, name := range w.exports {
		out = append(out, PackageInfo{Package: Package{Name: name}, Dependencies: deps})
	}
	return out, nil
}

// ImportGraph builds the graph of absolute imports between project modules
// and the top-level packages they use.
func (w *Workspace) ImportGraph(ctx context.Context) (*imports.Graph, error) {
	files, err := imports.NewExtractor(w.files, imports.WithLogger(w.logger)).Extract(ctx, w.sortedSource)
	if err != nil {
		return nil, err
	}
	return imports.BuildGraph(files, func(path string) (string, bool) {
		m, ok := w.paths.Get(path)
		if !ok || m.Kind() != module.KindProject {
			return "", false
		}
		return m.QualifiedName, true
	})
}

// PathInfo locates a file relative to the tree that provides it.
type PathInfo struct {
	Kind module.Kind `json:"kind"`
	// Rel is relative to the project root, the standard library or the
	// dependency cache. It is the cleaned input path for KindUnknown.
	Rel string `json:"rel"`
}

// ClassifyPath reports which tree an absolute path belongs to.
func (w *Workspace) ClassifyPath(path string) PathInfo {
	path = filepath.Clean(path)
	roots := []struct {
		dir  string
		kind module.Kind
	}{
		{w.root, module.KindProject},
		{filepath.Clean(w.cfg.PythonPath), module.KindStdlib},
		{w.cacheDir, module.KindExternal},
	}
	// The longest root wins so a cache nested in the project is not
	// reported as project code.
	sort.SliceStable(roots, func(i, j int) bool {
		return len(roots[i].dir) > len(roots[j].dir)
	})
	for _, r := range roots {
		if r.dir == "" || r.dir == "." || !isBelow(path, r.dir) {
			continue
		}
		rel, err := filepath.Rel(r.dir, path)
		if err != nil {
			continue
		}
		return PathInfo{Kind: r.kind, Rel: rel}
	}
	return PathInfo{Kind: module.KindUnknown, Rel: path}
}

func isBelow(path, dir string) bool {
	if dir == string(filepath.Separator) {
		return path != dir
	}
	return len(path) > len(dir) && path[:len(dir)] == dir && path[len(dir)] == filepath.Separator
}
