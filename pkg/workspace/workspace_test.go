package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/pyresolve/internal/config"
	"github.com/l3aro/pyresolve/internal/log"
	"github.com/l3aro/pyresolve/pkg/fetch"
	"github.com/l3aro/pyresolve/pkg/module"
	"github.com/l3aro/pyresolve/pkg/vfs"
)

// fakeFetcher writes a fixed set of files per package into the download
// directory and counts calls.
type fakeFetcher struct {
	mu       sync.Mutex
	calls    map[string]int
	total    atomic.Int32
	packages map[string]map[string]string
	requests []fetch.Request
	release  chan struct{}
}

func newFakeFetcher(packages map[string]map[string]string) *fakeFetcher {
	return &fakeFetcher{calls: make(map[string]int), packages: packages}
}

func (f *fakeFetcher) Fetch(ctx context.Context, req fetch.Request) error {
	f.total.Add(1)
	f.mu.Lock()
	f.calls[req.Package]++
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}

	files, ok := f.packages[req.Package]
	if !ok {
		return errors.New("no matching distribution found")
	}
	for path, content := range files {
		full := filepath.Join(req.DestDir, path)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeFetcher) count(pkg string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[pkg]
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	stdlib := t.TempDir()
	writeTree(t, stdlib, map[string]string{
		"os.py":                                   "",
		"json/__init__.py":                        "",
		"json/decoder.py":                         "",
		"lib-dynload/_json.cpython-36m-x86_64.so": "",
	})

	cfg := config.DefaultConfig()
	cfg.PythonPath = stdlib
	cfg.CacheRoot = t.TempDir()
	cfg.NativeModules = []string{"sys", "builtins"}
	return cfg
}

var defaultPackages = map[string]map[string]string{
	"requests": {
		"requests/__init__.py":                               "",
		"requests/api.py":                                    "",
		"requests/packages/__init__.py":                      "",
		"requests/packages/six.py":                           "",
		"requests/_speedups.cpython-36m-x86_64-linux-gnu.so": "",
	},
}

func newTestWorkspace(t *testing.T, cfg *config.Config, files map[string]string, root, originalRoot string, fetcher fetch.Fetcher) *Workspace {
	t.Helper()
	w, err := New(context.Background(), cfg, vfs.NewMemory(files), root, originalRoot,
		WithFetcher(fetcher),
		WithLogger(log.Discard()))
	require.NoError(t, err)
	t.Cleanup(w.Cleanup)
	return w
}

var projectFiles = map[string]string{
	"/proj/pkg/__init__.py":     "",
	"/proj/pkg/sub/__init__.py": "",
	"/proj/pkg/sub/mod.py":      "import os\nimport requests\nfrom pkg import sub\n",
	"/proj/scripts/util.py":     "import json.decoder\nimport sys\nimport flask\n",
	"/proj/setup.py":            "from setuptools import setup\n",
	"/proj/os.py":               "",
	"/proj/requirements.txt":    "requests==2.18.4\n",
}

func TestNew_IndexesProjectAndStdlib(t *testing.T) {
	cfg := testConfig(t)
	w := newTestWorkspace(t, cfg, projectFiles, "/proj", "", newFakeFetcher(nil))

	for _, qn := range []string{"pkg", "pkg.sub", "pkg.sub.mod"} {
		m, ok := w.project.Get(qn)
		require.True(t, ok, qn)
		assert.Equal(t, module.KindProject, m.Kind())
	}

	util, ok := w.project.Get("util")
	require.True(t, ok)
	assert.Equal(t, "/proj/scripts/util.py", util.Path)
	_, ok = w.project.Get("scripts.util")
	assert.False(t, ok)

	assert.Equal(t, []string{"pkg"}, w.ProjectPackages())

	m, ok := w.stdlib.Get("json.decoder")
	require.True(t, ok)
	assert.True(t, m.IsStdlib)

	native, ok := w.stdlib.Get("_json")
	require.True(t, ok)
	assert.True(t, native.IsNative)
	assert.Empty(t, native.Path)

	stats := w.Stats()
	assert.Equal(t, ".proj", stats.Key)
	assert.DirExists(t, w.CacheDir())
	assert.Equal(t, filepath.Join(cfg.CacheRoot, ".proj"), w.CacheDir())
}

func TestResolveImport_ProjectPackages(t *testing.T) {
	w := newTestWorkspace(t, testConfig(t), projectFiles, "/proj", "", newFakeFetcher(nil))
	ctx := context.Background()

	tests := []struct {
		name          string
		qualifiedName string
		dirs          []string
		wantPath      string
		wantPackage   bool
	}{
		{"pkg", "pkg", []string{"/proj"}, "/proj/pkg/__init__.py", true},
		{"sub", "pkg.sub", []string{"/proj/pkg"}, "/proj/pkg/sub/__init__.py", true},
		{"mod", "pkg.sub.mod", []string{"/proj/pkg/sub"}, "/proj/pkg/sub/mod.py", false},
		{"sub", "pkg.sub", []string{"/proj/pkg/sub"}, "/proj/pkg/sub/__init__.py", true},
		{"util", "util", []string{"/elsewhere"}, "/proj/scripts/util.py", false},
	}
	for _, tt := range tests {
		t.Run(tt.qualifiedName, func(t *testing.T) {
			m, err := w.ResolveImport(ctx, tt.name, tt.qualifiedName, tt.dirs)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, m.Path)
			assert.Equal(t, tt.wantPackage, m.IsPackage)
			assert.Equal(t, tt.qualifiedName, m.QualifiedName)
		})
	}
}

func TestResolveImport_StdlibPrecedence(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	w := newTestWorkspace(t, cfg, projectFiles, "/proj", "", newFakeFetcher(nil))
	m, err := w.ResolveImport(ctx, "os", "os", []string{"/proj"})
	require.NoError(t, err)
	assert.True(t, m.IsStdlib)
	assert.Equal(t, filepath.Join(cfg.PythonPath, "os.py"), m.Path)

	_, err = w.ResolveImport(ctx, "sys", "sys", []string{"/proj"})
	assert.ErrorIs(t, err, ErrUnanalyzable)

	t.Run("stdlib workspace", func(t *testing.T) {
		cpython := newTestWorkspace(t, cfg, projectFiles, "/proj", "git://github.com/python/cpython?v3.6.4", newFakeFetcher(nil))
		assert.True(t, cpython.IsStdlib())
		assert.Equal(t, "github.com.python.cpython.v3.6.4", cpython.Key())

		m, err := cpython.ResolveImport(ctx, "os", "os", []string{"/proj"})
		require.NoError(t, err)
		assert.False(t, m.IsStdlib)
		assert.Equal(t, "/proj/os.py", m.Path)
	})

	t.Run("skip self namespace", func(t *testing.T) {
		skipping := *cfg
		skipping.SkipSelfNamespace = []string{"os"}
		w := newTestWorkspace(t, &skipping, projectFiles, "/proj", "git://github.com/acme/tools", newFakeFetcher(nil))

		m, err := w.ResolveImport(ctx, "os", "os", []string{"/proj"})
		require.NoError(t, err)
		assert.Equal(t, "/proj/os.py", m.Path)

		m, err = w.ResolveImport(ctx, "json", "json", []string{"/proj"})
		require.NoError(t, err)
		assert.True(t, m.IsStdlib)
	})
}

func TestResolveNamespace(t *testing.T) {
	files := map[string]string{
		"/a/plugins/alpha.py": "",
		"/b/plugins/beta.py":  "",
		"/c/other/gamma.py":   "",
	}
	w := newTestWorkspace(t, testConfig(t), files, "/", "", newFakeFetcher(nil))

	m, err := w.ResolveNamespace("plugins", "plugins", []string{"/a", "/b", "/c"})
	require.NoError(t, err)
	require.True(t, m.IsNamespacePackage())
	assert.Equal(t, module.KindNamespace, m.Kind())
	assert.Equal(t, []string{"/a/plugins", "/b/plugins"}, m.Namespace.Directories)

	m, err = w.ResolveNamespace("plugins", "plugins", []string{"/a/plugins"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/plugins"}, m.Namespace.Directories)

	_, err = w.ResolveNamespace("plugins", "plugins", []string{"/c"})
	assert.ErrorIs(t, err, ErrNotFound)

	resolved, err := w.ResolveImport(context.Background(), "plugins", "plugins", []string{"/a", "/b"})
	require.NoError(t, err)
	assert.True(t, resolved.IsNamespacePackage())

	_, err = w.OpenModule(context.Background(), resolved)
	assert.ErrorIs(t, err, ErrUnanalyzable)
}

func TestResolveExternal_FetchesOnce(t *testing.T) {
	fetcher := newFakeFetcher(defaultPackages)
	w := newTestWorkspace(t, testConfig(t), projectFiles, "/proj", "", fetcher)
	ctx := context.Background()

	m, err := w.ResolveImport(ctx, "requests", "requests", []string{"/proj"})
	require.NoError(t, err)
	assert.True(t, m.IsExternal)
	assert.Equal(t, filepath.Join(w.CacheDir(), "requests", "__init__.py"), m.Path)

	sub, err := w.ResolveExternal(ctx, "requests.packages.six")
	require.NoError(t, err)
	assert.Equal(t, "six", sub.Name)

	_, err = w.ResolveExternal(ctx, "requests._speedups")
	assert.ErrorIs(t, err, ErrUnanalyzable)

	_, err = w.ResolveExternal(ctx, "requests.missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1, fetcher.count("requests"))
	require.Len(t, fetcher.requests, 1)
	assert.Equal(t, "==2.18.4", fetcher.requests[0].Specifier)
	_, err = os.Stat(fetcher.requests[0].DestDir)
	assert.True(t, os.IsNotExist(err), "scratch directory is removed")
}

func TestResolveExternal_FailedFetchIsNotRetried(t *testing.T) {
	fetcher := newFakeFetcher(nil)
	w := newTestWorkspace(t, testConfig(t), projectFiles, "/proj", "", fetcher)
	ctx := context.Background()

	_, err := w.ResolveImport(ctx, "flask", "flask", []string{"/proj"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrFetchFailed)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "flask", notFound.Name)
	assert.Equal(t, []string{"/proj"}, notFound.Dirs)

	_, err = w.ResolveImport(ctx, "flask", "flask", []string{"/proj"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, 1, fetcher.count("flask"))
}

func TestResolveExternal_ConcurrentCallersShareFetch(t *testing.T) {
	fetcher := newFakeFetcher(defaultPackages)
	fetcher.release = make(chan struct{})
	w := newTestWorkspace(t, testConfig(t), projectFiles, "/proj", "", fetcher)
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.ResolveExternal(ctx, "requests.api")
			errs <- err
		}()
	}
	close(fetcher.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), fetcher.total.Load())
}

// fetcherFunc adapts a function to fetch.Fetcher.
type fetcherFunc func(ctx context.Context, req fetch.Request) error

func (f fetcherFunc) Fetch(ctx context.Context, req fetch.Request) error {
	return f(ctx, req)
}

func buildWheel(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := zw.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestResolveExternal_ConcurrentPackagesIndexCompletely(t *testing.T) {
	const modules = 2000
	alpha := map[string]string{"alpha/__init__.py": ""}
	for i := range modules {
		alpha[fmt.Sprintf("alpha/m%d.py", i)] = ""
	}
	wheel := buildWheel(t, alpha)

	// beta finishes while alpha's wheel is being extracted.
	alphaFetched := make(chan struct{})
	fetcher := fetcherFunc(func(ctx context.Context, req fetch.Request) error {
		switch req.Package {
		case "alpha":
			defer close(alphaFetched)
			return os.WriteFile(filepath.Join(req.DestDir, "alpha-1.0-py3-none-any.whl"), wheel, 0644)
		case "beta":
			<-alphaFetched
			if err := os.MkdirAll(filepath.Join(req.DestDir, "beta"), 0755); err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(req.DestDir, "beta", "__init__.py"), nil, 0644)
		default:
			return errors.New("no matching distribution found")
		}
	})
	w := newTestWorkspace(t, testConfig(t), projectFiles, "/proj", "", fetcher)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, name := range []string{"alpha", "beta"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.ResolveExternal(ctx, name)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for i := range modules {
		qn := fmt.Sprintf("alpha.m%d", i)
		if _, err := w.ResolveExternal(ctx, qn); err != nil {
			t.Fatalf("%s: %v", qn, err)
		}
	}
	_, err := w.ResolveExternal(ctx, "beta")
	assert.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(w.CacheDir()))
	require.NoError(t, err)
	require.Len(t, entries, 1, "scratch directories are removed")
}

func TestResolveExternal_CancelledCallerKeepsSharedFetch(t *testing.T) {
	fetcher := newFakeFetcher(defaultPackages)
	fetcher.release = make(chan struct{})
	w := newTestWorkspace(t, testConfig(t), projectFiles, "/proj", "", fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := w.ResolveExternal(ctx, "requests.api")
		errs <- err
	}()
	require.Eventually(t, func() bool { return fetcher.total.Load() == 1 }, 5*time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errs, context.Canceled)
	close(fetcher.release)

	m, err := w.ResolveExternal(context.Background(), "requests.api")
	require.NoError(t, err)
	assert.Equal(t, "requests.api", m.QualifiedName)
	assert.Equal(t, 1, fetcher.count("requests"))
}

func TestResolveExternal_NeverFetchesKnownNames(t *testing.T) {
	fetcher := newFakeFetcher(defaultPackages)
	w := newTestWorkspace(t, testConfig(t), projectFiles, "/proj", "", fetcher)

	_, err := w.ResolveExternal(context.Background(), "sys")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = w.ResolveExternal(context.Background(), "json.missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(0), fetcher.total.Load())
}

func TestNew_ReusesExistingCache(t *testing.T) {
	cfg := testConfig(t)
	writeTree(t, filepath.Join(cfg.CacheRoot, ".proj"), map[string]string{
		"six/__init__.py": "",
	})

	fetcher := newFakeFetcher(nil)
	w, err := New(context.Background(), cfg, vfs.NewMemory(projectFiles), "/proj", "", WithFetcher(fetcher), WithLogger(log.Discard()))
	require.NoError(t, err)
	defer w.Cleanup()

	m, err := w.ResolveExternal(context.Background(), "six")
	require.NoError(t, err)
	assert.True(t, m.IsExternal)
	assert.Equal(t, int32(0), fetcher.total.Load())
}

func TestGetModuleByPath(t *testing.T) {
	cfg := testConfig(t)
	w := newTestWorkspace(t, cfg, projectFiles, "/proj", "", newFakeFetcher(defaultPackages))
	ctx := context.Background()

	ext, err := w.ResolveExternal(ctx, "requests.api")
	require.NoError(t, err)

	for _, qn := range []string{"pkg.sub.mod", "util"} {
		m, ok := w.project.Get(qn)
		require.True(t, ok)
		got, ok := w.GetModuleByPath(m.Path)
		require.True(t, ok)
		assert.Same(t, m, got)
	}

	got, ok := w.GetModuleByPath(ext.Path)
	require.True(t, ok)
	assert.Equal(t, "requests.api", got.QualifiedName)

	got, ok = w.GetModuleByPath(filepath.Join(cfg.PythonPath, "json", "decoder.py"))
	require.True(t, ok)
	assert.Equal(t, "json.decoder", got.QualifiedName)

	_, ok = w.GetModuleByPath("/proj/nope.py")
	assert.False(t, ok)
}

func TestCleanup_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	w, err := New(context.Background(), cfg, vfs.NewMemory(projectFiles), "/proj", "", WithFetcher(newFakeFetcher(nil)), WithLogger(log.Discard()))
	require.NoError(t, err)
	require.DirExists(t, w.CacheDir())

	w.Cleanup()
	assert.NoDirExists(t, w.CacheDir())
	assert.NotPanics(t, w.Cleanup)
}

func TestCleanup_LogsRemovalFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.LoggerConfig{Level: log.WarnLevel, Output: &buf})
	w, err := New(context.Background(), testConfig(t), vfs.NewMemory(projectFiles), "/proj", "", WithFetcher(newFakeFetcher(nil)), WithLogger(logger))
	require.NoError(t, err)
	cacheDir := w.CacheDir()
	defer os.RemoveAll(cacheDir)

	// A path below a regular file cannot be removed.
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	w.cacheDir = filepath.Join(file, "cache")

	w.Cleanup()
	assert.Contains(t, buf.String(), "removing package cache failed")
	assert.Contains(t, buf.String(), w.cacheDir)
}

func TestOpenModule(t *testing.T) {
	cfg := testConfig(t)
	w := newTestWorkspace(t, cfg, projectFiles, "/proj", "", newFakeFetcher(nil))
	ctx := context.Background()

	m, ok := w.project.Get("pkg.sub.mod")
	require.True(t, ok)
	src, err := w.OpenModule(ctx, m)
	require.NoError(t, err)
	assert.Contains(t, string(src), "import requests")

	stdlibMod, ok := w.stdlib.Get("os")
	require.True(t, ok)
	_, err = w.OpenModule(ctx, stdlibMod)
	require.NoError(t, err)

	native, ok := w.stdlib.Get("sys")
	require.True(t, ok)
	_, err = w.OpenModule(ctx, native)
	assert.ErrorIs(t, err, ErrUnanalyzable)
}

func TestGetModules(t *testing.T) {
	files := map[string]string{
		"/proj/json/__init__.py": "",
	}
	w := newTestWorkspace(t, testConfig(t), files, "/proj", "", newFakeFetcher(nil))

	mods := w.GetModules(context.Background(), "json")
	require.Len(t, mods, 2)
	assert.Equal(t, module.KindProject, mods[0].Kind())
	assert.Equal(t, module.KindStdlib, mods[1].Kind())
}

func TestDependencies(t *testing.T) {
	cfg := testConfig(t)
	w := newTestWorkspace(t, cfg, projectFiles, "/proj", "", newFakeFetcher(nil))

	deps, err := w.Dependencies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Dependency{
		{Name: "flask"},
		{Name: "requests"},
		{Name: "setuptools"},
		{Name: "cpython", RepoURL: cfg.StdlibRepoURL},
	}, deps)

	info, err := w.PackageInformation(context.Background())
	require.NoError(t, err)
	require.Len(t, info, 1)
	assert.Equal(t, "pkg", info[0].Package.Name)
	assert.Equal(t, deps, info[0].Dependencies)

	t.Run("stdlib workspace", func(t *testing.T) {
		cpython := newTestWorkspace(t, cfg, projectFiles, "/proj", "git://github.com/python/cpython", newFakeFetcher(nil))
		info, err := cpython.PackageInformation(context.Background())
		require.NoError(t, err)
		require.Len(t, info, 1)
		assert.Equal(t, "cpython", info[0].Package.Name)
		assert.Empty(t, info[0].Dependencies)
	})
}

func TestImportGraph(t *testing.T) {
	w := newTestWorkspace(t, testConfig(t), projectFiles, "/proj", "", newFakeFetcher(nil))

	g, err := w.ImportGraph(context.Background())
	require.NoError(t, err)

	imports, err := g.Imports("pkg.sub.mod")
	require.NoError(t, err)
	assert.Equal(t, []string{"os", "pkg", "requests"}, imports)
}

func TestClassifyPath(t *testing.T) {
	cfg := testConfig(t)
	w := newTestWorkspace(t, cfg, projectFiles, "/proj", "", newFakeFetcher(nil))

	tests := []struct {
		path string
		want PathInfo
	}{
		{"/proj/pkg/sub/mod.py", PathInfo{Kind: module.KindProject, Rel: filepath.Join("pkg", "sub", "mod.py")}},
		{filepath.Join(cfg.PythonPath, "json", "decoder.py"), PathInfo{Kind: module.KindStdlib, Rel: filepath.Join("json", "decoder.py")}},
		{filepath.Join(w.CacheDir(), "six", "__init__.py"), PathInfo{Kind: module.KindExternal, Rel: filepath.Join("six", "__init__.py")}},
		{"/usr/share/thing.py", PathInfo{Kind: module.KindUnknown, Rel: "/usr/share/thing.py"}},
		{"/proj", PathInfo{Kind: module.KindUnknown, Rel: "/proj"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, w.ClassifyPath(tt.path))
		})
	}
}

func TestDeriveIdentity(t *testing.T) {
	tests := []struct {
		root string
		want Identity
	}{
		{
			root: "git://github.com/python/cpython?v3.6.4",
			want: Identity{Key: "github.com.python.cpython.v3.6.4", Root: "git://github.com/python/cpython", Revision: "v3.6.4"},
		},
		{
			root: "git://github.com/acme/tools",
			want: Identity{Key: "github.com.acme.tools", Root: "git://github.com/acme/tools"},
		},
		{
			root: "/home/dev/project",
			want: Identity{Key: ".home.dev.project", Root: "/home/dev/project"},
		},
		{
			root: `C:\src\project`,
			want: Identity{Key: "C:.src.project", Root: `C:\src\project`},
		},
		{
			root: "/",
			want: Identity{Key: "default", Root: "/"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.root, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveIdentity(tt.root))
		})
	}
}

func TestErrors(t *testing.T) {
	cause := &FetchError{Package: "flask", Err: errors.New("exit status 1")}
	err := &NotFoundError{Name: "flask.app", Dirs: []string{"/proj"}, Cause: cause}

	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, `module "flask.app" not found in /proj: fetching flask: exit status 1`, err.Error())
	assert.Equal(t, `module "os" not found`, (&NotFoundError{Name: "os"}).Error())
}
