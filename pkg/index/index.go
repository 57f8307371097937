// Package index computes fully-qualified Python module names and fills the
// module registries of a workspace.
//
// Two walks are provided. IndexTree descends a real directory tree (the
// standard library or the dependency cache) and treats directories without a
// marker file as transparent. IndexProject works from a flat list of paths, as
// supplied by a filesystem that has no directory semantics.
package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/l3aro/pyresolve/internal/log"
	"github.com/l3aro/pyresolve/pkg/module"
)

// TreeOptions describes the namespace a tree walk populates.
type TreeOptions struct {
	// Stdlib marks the produced modules as standard library; otherwise they
	// come from the dependency cache.
	Stdlib bool
}

// Indexer populates registries and the shared path index.
type Indexer struct {
	paths  *module.PathIndex
	logger log.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger used to report skipped entries.
func WithLogger(l log.Logger) Option {
	return func(ix *Indexer) {
		ix.logger = l
	}
}

// New creates an Indexer that records every module with a path in paths.
func New(paths *module.PathIndex, opts ...Option) *Indexer {
	ix := &Indexer{
		paths:  paths,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// treeWalk carries the state of one IndexTree call.
type treeWalk struct {
	reg      *module.Registry
	opts     TreeOptions
	topLevel map[string]struct{}
}

// IndexTree walks root depth-first and stores every module found in reg. It
// returns the sorted top-level names that were indexed. Unreadable entries
// below root are logged and skipped; only a failure to read root itself is
// returned.
func (ix *Indexer) IndexTree(ctx context.Context, root string, reg *module.Registry, opts TreeOptions) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", root, err)
	}

	w := &treeWalk{reg: reg, opts: opts, topLevel: make(map[string]struct{})}
	if info.IsDir() {
		if err := ix.walkDir(ctx, w, root, ""); err != nil {
			return nil, err
		}
	} else {
		ix.indexFile(w, root, "")
	}

	names := make([]string, 0, len(w.topLevel))
	for name := range w.topLevel {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (ix *Indexer) walkDir(ctx context.Context, w *treeWalk, dir, breadcrumb string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		ix.logger.Warn("skipping unreadable directory", "path", dir, "error", err)
		return nil
	}

	qualifiedName := breadcrumb
	if hasMarker(entries) {
		qualifiedName = module.Join(breadcrumb, filepath.Base(dir))
	}

	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		switch {
		case e.IsDir():
			if e.Name() == "__pycache__" {
				continue
			}
			if err := ix.walkDir(ctx, w, path, qualifiedName); err != nil {
				return err
			}
		case e.Type().IsRegular():
			ix.indexFile(w, path, qualifiedName)
		}
	}
	return nil
}

// indexFile records a single file found at breadcrumb. The marker file stands
// for the package whose name is already the breadcrumb.
func (ix *Indexer) indexFile(w *treeWalk, path, breadcrumb string) {
	filename := filepath.Base(path)
	base, ext := module.SplitExt(filename)

	switch {
	case filename == module.MarkerFile:
		if breadcrumb == "" {
			return
		}
		ix.record(w, &module.Module{
			Name:          breadcrumb[strings.LastIndexByte(breadcrumb, '.')+1:],
			QualifiedName: breadcrumb,
			Path:          path,
			IsPackage:     true,
		})
	case module.IsSourceExt(ext):
		if base == module.MarkerName || module.IsDunder(base) {
			return
		}
		ix.record(w, &module.Module{
			Name:          base,
			QualifiedName: module.Join(breadcrumb, base),
			Path:          path,
		})
	case module.IsNativeExt(ext):
		ix.record(w, &module.Module{
			Name:          base,
			QualifiedName: module.Join(breadcrumb, base),
			IsNative:      true,
		})
	case module.IsBundleExt(ext):
		if err := ix.indexBundle(w, path, breadcrumb); err != nil {
			ix.logger.Warn("skipping unreadable bundle", "path", path, "error", err)
		}
	}
}

func (ix *Indexer) record(w *treeWalk, m *module.Module) {
	m.IsStdlib = w.opts.Stdlib
	m.IsExternal = !w.opts.Stdlib
	w.reg.Put(m)
	ix.paths.Put(m.Path, m)
	w.topLevel[m.TopLevel()] = struct{}{}
}

func hasMarker(entries []os.DirEntry) bool {
	for _, e := range entries {
		if !e.IsDir() && e.Name() == module.MarkerFile {
			return true
		}
	}
	return false
}
