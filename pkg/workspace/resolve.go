package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/l3aro/pyresolve/pkg/fetch"
	"github.com/l3aro/pyresolve/pkg/module"
)

// ResolveImport resolves an import of name (the last component of
// qualifiedName) from a file whose search directories are dirs. The standard
// library wins over the project, which wins over external dependencies. A
// native standard library module yields ErrUnanalyzable.
func (w *Workspace) ResolveImport(ctx context.Context, name, qualifiedName string, dirs []string) (*module.Module, error) {
	if !w.skipsStdlib(qualifiedName) {
		if m, ok := w.stdlib.Get(qualifiedName); ok {
			if m.IsNative {
				return nil, fmt.Errorf("%w: %s", ErrUnanalyzable, qualifiedName)
			}
			return m, nil
		}
	}

	if m, ok := w.findProjectModule(name, qualifiedName, dirs); ok {
		return m, nil
	}
	if m, err := w.ResolveNamespace(name, qualifiedName, dirs); err == nil {
		return m, nil
	}

	m, err := w.ResolveExternal(ctx, qualifiedName)
	if err == nil {
		return m, nil
	}
	if errors.Is(err, ErrUnanalyzable) || ctx.Err() != nil {
		return nil, err
	}

	notFound := &NotFoundError{Name: qualifiedName, Dirs: dirs}
	var external *NotFoundError
	if errors.As(err, &external) {
		notFound.Cause = external.Cause
	}
	return nil, notFound
}

func (w *Workspace) skipsStdlib(qualifiedName string) bool {
	return w.isStdlibWorkspace || w.skipSelf[module.TopLevel(qualifiedName)]
}

// findProjectModule looks for name as a package or module directly inside
// one of dirs, then falls back to the project registry.
func (w *Workspace) findProjectModule(name, qualifiedName string, dirs []string) (*module.Module, bool) {
	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		if marker := filepath.Join(dir, name, module.MarkerFile); w.hasSource(marker) {
			return w.projectModuleAt(marker, name, qualifiedName, true), true
		}
		if marker := filepath.Join(dir, module.MarkerFile); filepath.Base(dir) == name && w.hasSource(marker) {
			return w.projectModuleAt(marker, name, qualifiedName, true), true
		}
		if file := filepath.Join(dir, name+".py"); w.hasSource(file) {
			return w.projectModuleAt(file, name, qualifiedName, false), true
		}
	}
	if m, ok := w.project.Get(qualifiedName); ok {
		return m, true
	}
	return nil, false
}

// projectModuleAt returns the indexed module stored for path, or describes
// the file directly when indexing named it differently.
func (w *Workspace) projectModuleAt(path, name, qualifiedName string, isPackage bool) *module.Module {
	if m, ok := w.paths.Get(path); ok && m.QualifiedName == qualifiedName {
		return m
	}
	return &module.Module{
		Name:          name,
		QualifiedName: qualifiedName,
		Path:          path,
		IsPackage:     isPackage,
	}
}

// ResolveNamespace synthesizes an implicit namespace package from every
// candidate directory that contains a subdirectory called name, or that is
// itself called name.
func (w *Workspace) ResolveNamespace(name, qualifiedName string, dirs []string) (*module.Module, error) {
	var found []string
	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		if candidate := filepath.Join(dir, name); w.folderExists(candidate) {
			found = append(found, candidate)
		} else if filepath.Base(dir) == name {
			found = append(found, dir)
		}
	}
	if len(found) == 0 {
		return nil, &NotFoundError{Name: qualifiedName, Dirs: dirs}
	}
	return module.NewNamespace(name, qualifiedName, found), nil
}

func (w *Workspace) hasSource(path string) bool {
	_, ok := w.sourcePaths[path]
	return ok
}

// folderExists reports whether any project source lives below dir.
func (w *Workspace) folderExists(dir string) bool {
	prefix := dir + string(filepath.Separator)
	i := sort.SearchStrings(w.sortedSource, prefix)
	return i < len(w.sortedSource) && strings.HasPrefix(w.sortedSource[i], prefix)
}

// ResolveExternal looks qualifiedName up among the dependencies, fetching
// its top-level package first when no earlier call has tried. Each
// top-level name is fetched at most once per workspace, failures included.
// The fetch runs on the workspace's own context, so a caller giving up only
// stops waiting for it.
func (w *Workspace) ResolveExternal(ctx context.Context, qualifiedName string) (*module.Module, error) {
	top := module.TopLevel(qualifiedName)

	done := w.fetches.DoChan(top, func() (any, error) {
		if !w.claim(top) {
			return nil, nil
		}
		return nil, w.fetchAndIndex(w.ctx, top)
	})
	var fetchErr error
	select {
	case res := <-done:
		fetchErr = res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if fetchErr != nil {
		w.logger.Warn("dependency fetch failed", "package", top, "error", fetchErr)
	}

	m, ok := w.deps.Get(qualifiedName)
	if !ok {
		return nil, &NotFoundError{Name: qualifiedName, Cause: fetchErr}
	}
	if m.IsNative {
		return nil, fmt.Errorf("%w: %s", ErrUnanalyzable, qualifiedName)
	}
	return m, nil
}

// fetchAndIndex downloads pkg into a scratch directory under the cache root
// and unpacks it there. Only complete top-level entries are moved into the
// cache, so indexing never sees a half-extracted folder.
func (w *Workspace) fetchAndIndex(ctx context.Context, pkg string) error {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.FetchTimeout)
	defer cancel()

	scratch, err := os.MkdirTemp(filepath.Dir(w.cacheDir), ".download-"+w.identity.Key+"-")
	if err != nil {
		return &FetchError{Package: pkg, Err: err}
	}
	defer os.RemoveAll(scratch)
	downloadDir := filepath.Join(scratch, "dist")
	stagingDir := filepath.Join(scratch, "staged")
	if err := os.Mkdir(downloadDir, 0755); err != nil {
		return &FetchError{Package: pkg, Err: err}
	}

	specifier, indexURL := w.requirements.Lookup(pkg)
	if indexURL == "" {
		indexURL = w.cfg.IndexURL
	}
	req := fetch.Request{
		Package:   pkg,
		Specifier: specifier,
		DestDir:   downloadDir,
		IndexURL:  indexURL,
	}
	if err := w.fetcher.Fetch(ctx, req); err != nil {
		return &FetchError{Package: pkg, Err: err}
	}

	unpackErr := fetch.UnpackAll(downloadDir, stagingDir, w.logger)
	if err := w.install(ctx, stagingDir); err != nil {
		return &FetchError{Package: pkg, Err: err}
	}
	if unpackErr != nil {
		return &FetchError{Package: pkg, Err: unpackErr}
	}
	return nil
}
