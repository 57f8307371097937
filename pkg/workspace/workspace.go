// Package workspace owns the module index of one editor session: the
// project, standard library and dependency registries, the on-disk
// dependency cache and the policy that resolves imports against them.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/l3aro/pyresolve/internal/config"
	"github.com/l3aro/pyresolve/internal/log"
	"github.com/l3aro/pyresolve/internal/scanner"
	"github.com/l3aro/pyresolve/pkg/cache"
	"github.com/l3aro/pyresolve/pkg/fetch"
	"github.com/l3aro/pyresolve/pkg/index"
	"github.com/l3aro/pyresolve/pkg/module"
	"github.com/l3aro/pyresolve/pkg/vfs"
)

// Workspace is created once per session and torn down with Cleanup.
type Workspace struct {
	cfg     *config.Config
	logger  log.Logger
	fetcher fetch.Fetcher
	indexer *index.Indexer

	files *vfs.Cached // project sources
	local *vfs.Cached // standard library and dependency sources

	root              string
	identity          Identity
	cacheDir          string
	isStdlibWorkspace bool
	skipSelf          map[string]bool
	snapshotPath      string

	// sourcePaths is fixed after construction.
	sourcePaths  map[string]struct{}
	sortedSource []string
	exports      []string
	requirements *fetch.Requirements

	project *module.Registry
	stdlib  *module.Registry
	deps    *module.Registry
	paths   *module.PathIndex

	fetches  singleflight.Group
	ledgerMu sync.Mutex
	fetched  map[string]struct{}

	indexMu        sync.Mutex
	indexedFolders map[string]struct{}

	stopWatch context.CancelFunc
	watchMu   sync.Mutex

	// ctx bounds dependency fetches and ends with Cleanup.
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the workspace logger.
func WithLogger(l log.Logger) Option {
	return func(w *Workspace) {
		w.logger = l
	}
}

// WithFetcher replaces the pip-based fetcher.
func WithFetcher(f fetch.Fetcher) Option {
	return func(w *Workspace) {
		w.fetcher = f
	}
}

// WithLocalFS replaces the filesystem used to read standard library and
// dependency sources.
func WithLocalFS(fs vfs.FileSystem) Option {
	return func(w *Workspace) {
		w.local = vfs.NewCached(fs, cache.Options{MaxEntries: w.cfg.FileCacheEntries, MaxBytes: w.cfg.FileCacheBytes})
	}
}

// WithStdlibSnapshot makes the workspace load the standard library index
// from path when it matches, and write it there after a fresh walk.
func WithStdlibSnapshot(path string) Option {
	return func(w *Workspace) {
		w.snapshotPath = path
	}
}

// New indexes the project found in fs under root and the standard library,
// then indexes or creates the dependency cache for originalRoot.
func New(ctx context.Context, cfg *config.Config, fs vfs.FileSystem, root, originalRoot string, opts ...Option) (*Workspace, error) {
	if originalRoot == "" {
		originalRoot = root
	}
	cacheOpts := cache.Options{MaxEntries: cfg.FileCacheEntries, MaxBytes: cfg.FileCacheBytes}

	w := &Workspace{
		cfg:            cfg,
		logger:         log.Default(),
		files:          vfs.NewCached(fs, cacheOpts),
		local:          vfs.NewCached(vfs.NewLocal(scanner.DefaultOptions()), cacheOpts),
		root:           filepath.Clean(root),
		identity:       DeriveIdentity(originalRoot),
		skipSelf:       make(map[string]bool, len(cfg.SkipSelfNamespace)),
		sourcePaths:    make(map[string]struct{}),
		requirements:   fetch.NewRequirements(),
		project:        module.NewRegistry(module.KindProject),
		stdlib:         module.NewRegistry(module.KindStdlib),
		deps:           module.NewRegistry(module.KindExternal),
		paths:          module.NewPathIndex(),
		fetched:        make(map[string]struct{}),
		indexedFolders: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.logger = w.logger.With("workspace")
	if w.fetcher == nil {
		w.fetcher = fetch.NewPipFetcher(cfg.FetchTool, fetch.WithLogger(w.logger))
	}
	w.indexer = index.New(w.paths, index.WithLogger(w.logger))
	w.cacheDir = filepath.Join(cfg.CacheRoot, w.identity.Key)
	w.isStdlibWorkspace = cfg.IsStdlibRepo(w.identity.Root)
	for _, name := range cfg.SkipSelfNamespace {
		w.skipSelf[name] = true
	}

	w.logger.Debug("creating workspace", "root", w.root, "key", w.identity.Key, "cache", w.cacheDir)

	if err := w.indexProject(ctx); err != nil {
		return nil, err
	}
	w.loadRequirements(ctx)
	if err := w.indexStdlib(ctx); err != nil {
		return nil, err
	}

	if _, err := os.Stat(w.cacheDir); err == nil {
		if err := w.indexExternal(ctx); err != nil {
			return nil, err
		}
	} else if err := os.MkdirAll(w.cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("creating dependency cache: %w", err)
	}

	if cfg.Watch {
		w.startWatcher()
	}

	w.logger.Info("workspace ready",
		"project", w.project.Len(),
		"stdlib", w.stdlib.Len(),
		"dependencies", w.deps.Len())
	return w, nil
}

func (w *Workspace) indexProject(ctx context.Context) error {
	all, err := w.files.Walk(ctx, w.root)
	if err != nil {
		return fmt.Errorf("listing project files: %w", err)
	}

	var sources []string
	for _, p := range all {
		if strings.HasSuffix(p, ".py") {
			w.sourcePaths[p] = struct{}{}
			sources = append(sources, p)
		}
	}
	sort.Strings(sources)
	w.sortedSource = sources
	w.exports = w.indexer.IndexProject(all, w.root, w.project)
	return nil
}

func (w *Workspace) loadRequirements(ctx context.Context) {
	reqs, err := fetch.LoadProject(ctx, w.files, w.root)
	if err != nil {
		w.logger.Warn("ignoring project requirements", "error", err)
		return
	}
	w.requirements = reqs
}

func (w *Workspace) indexStdlib(ctx context.Context) error {
	for _, name := range w.cfg.NativeModules {
		w.stdlib.Put(&module.Module{
			Name:          name,
			QualifiedName: name,
			IsStdlib:      true,
			IsNative:      true,
		})
		w.markFetched(name)
	}

	if w.restoreSnapshot() {
		return nil
	}

	if _, err := os.Stat(w.cfg.PythonPath); err != nil {
		w.logger.Warn("standard library not found", "path", w.cfg.PythonPath)
		return nil
	}

	w.logger.Debug("indexing standard library", "path", w.cfg.PythonPath)
	top, err := w.indexer.IndexTree(ctx, w.cfg.PythonPath, w.stdlib, index.TreeOptions{Stdlib: true})
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		w.logger.Warn("indexing standard library failed", "error", err)
		return nil
	}
	w.markFetched(top...)

	if w.snapshotPath != "" {
		if err := index.NewSnapshot(w.cfg.PythonPath, w.stdlib, top).Save(w.snapshotPath); err != nil {
			w.logger.Warn("saving standard library snapshot failed", "error", err)
		}
	}
	return nil
}

func (w *Workspace) restoreSnapshot() bool {
	if w.snapshotPath == "" {
		return false
	}
	snap, err := index.LoadSnapshot(w.snapshotPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("ignoring standard library snapshot", "error", err)
		}
		return false
	}
	if !snap.Matches(w.cfg.PythonPath) {
		return false
	}
	snap.Restore(w.stdlib, w.paths)
	w.markFetched(snap.TopLevel...)
	w.logger.Debug("restored standard library snapshot", "modules", len(snap.Modules))
	return true
}

// indexExternal walks every top-level entry of the dependency cache that
// has not been walked yet.
func (w *Workspace) indexExternal(ctx context.Context) error {
	w.indexMu.Lock()
	defer w.indexMu.Unlock()
	return w.indexCacheLocked(ctx)
}

// install moves every top-level entry of stagingDir into the dependency
// cache and indexes it. An entry replacing an existing folder is walked
// again.
func (w *Workspace) install(ctx context.Context, stagingDir string) error {
	w.indexMu.Lock()
	defer w.indexMu.Unlock()

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		return fmt.Errorf("reading staged dependency: %w", err)
	}
	for _, e := range entries {
		target := filepath.Join(w.cacheDir, e.Name())
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("replacing %s: %w", e.Name(), err)
		}
		if err := os.Rename(filepath.Join(stagingDir, e.Name()), target); err != nil {
			return fmt.Errorf("installing %s: %w", e.Name(), err)
		}
		delete(w.indexedFolders, e.Name())
	}
	return w.indexCacheLocked(ctx)
}

func (w *Workspace) indexCacheLocked(ctx context.Context) error {
	entries, err := os.ReadDir(w.cacheDir)
	if err != nil {
		return fmt.Errorf("reading dependency cache: %w", err)
	}
	for _, e := range entries {
		if _, done := w.indexedFolders[e.Name()]; done {
			continue
		}
		top, err := w.indexer.IndexTree(ctx, filepath.Join(w.cacheDir, e.Name()), w.deps, index.TreeOptions{})
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			w.logger.Warn("skipping dependency folder", "folder", e.Name(), "error", err)
		}
		w.markFetched(top...)
		w.indexedFolders[e.Name()] = struct{}{}
	}
	return nil
}

func (w *Workspace) startWatcher() {
	watcher, err := vfs.NewWatcher(w.root, w.files, w.logger)
	if err != nil {
		w.logger.Warn("file watching disabled", "error", err)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.watchMu.Lock()
	w.stopWatch = func() {
		cancel()
		watcher.Close()
	}
	w.watchMu.Unlock()
	go watcher.Run(ctx)
}

// Cleanup deletes the workspace's dependency cache. It is safe to call more
// than once.
func (w *Workspace) Cleanup() {
	w.watchMu.Lock()
	if w.stopWatch != nil {
		w.stopWatch()
		w.stopWatch = nil
	}
	w.watchMu.Unlock()

	w.cancel()

	w.logger.Info("removing package cache", "path", w.cacheDir)
	if err := os.RemoveAll(w.cacheDir); err != nil {
		w.logger.Warn("removing package cache failed", "path", w.cacheDir, "error", err)
	}
}

// Root returns the project root.
func (w *Workspace) Root() string {
	return w.root
}

// Key returns the cache key derived from the original root identifier.
func (w *Workspace) Key() string {
	return w.identity.Key
}

// CacheDir returns the workspace's dependency cache directory.
func (w *Workspace) CacheDir() string {
	return w.cacheDir
}

// IsStdlib reports whether this workspace is the standard library
// repository itself.
func (w *Workspace) IsStdlib() bool {
	return w.isStdlibWorkspace
}

// ProjectPackages returns the packages the project exports.
func (w *Workspace) ProjectPackages() []string {
	return append([]string(nil), w.exports...)
}

// Modules returns every indexed module of kind, sorted by qualified name.
func (w *Workspace) Modules(kind module.Kind) []*module.Module {
	switch kind {
	case module.KindProject:
		return w.project.Modules()
	case module.KindStdlib:
		return w.stdlib.Modules()
	case module.KindExternal:
		return w.deps.Modules()
	default:
		return nil
	}
}

// Stats summarizes the workspace for status reports.
type Stats struct {
	Key          string `json:"key"`
	Root         string `json:"root"`
	CacheDir     string `json:"cache_dir"`
	Project      int    `json:"project_modules"`
	Stdlib       int    `json:"stdlib_modules"`
	Dependencies int    `json:"dependency_modules"`
	Fetched      int    `json:"fetched"`
	CachedFiles  int    `json:"cached_files"`
}

// Stats returns current counters.
func (w *Workspace) Stats() Stats {
	w.ledgerMu.Lock()
	fetched := len(w.fetched)
	w.ledgerMu.Unlock()
	return Stats{
		Key:          w.identity.Key,
		Root:         w.root,
		CacheDir:     w.cacheDir,
		Project:      w.project.Len(),
		Stdlib:       w.stdlib.Len(),
		Dependencies: w.deps.Len(),
		Fetched:      fetched,
		CachedFiles:  w.files.Stats().Length + w.local.Stats().Length,
	}
}

// InvalidateSource drops the cached contents of a project file.
func (w *Workspace) InvalidateSource(path string) {
	w.files.Invalidate(path)
}

func (w *Workspace) markFetched(names ...string) {
	w.ledgerMu.Lock()
	defer w.ledgerMu.Unlock()
	for _, name := range names {
		w.fetched[name] = struct{}{}
	}
}

// claim adds name to the fetch ledger and reports whether it was absent.
func (w *Workspace) claim(name string) bool {
	w.ledgerMu.Lock()
	defer w.ledgerMu.Unlock()
	if _, ok := w.fetched[name]; ok {
		return false
	}
	w.fetched[name] = struct{}{}
	return true
}
