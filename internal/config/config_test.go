package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"PythonPath", cfg.PythonPath, "/usr/local/lib/python3.6"},
		{"CacheRoot", cfg.CacheRoot, "python-langserver-cache"},
		{"StdlibRepoURL", cfg.StdlibRepoURL, "git://github.com/python/cpython"},
		{"FetchTool", cfg.FetchTool, "pip3"},
		{"FetchTimeout", cfg.FetchTimeout, 5 * time.Minute},
		{"FileCacheEntries", cfg.FileCacheEntries, 4096},
		{"SocketPath", cfg.SocketPath, "/tmp/pyresolve.sock"},
		{"Watch", cfg.Watch, false},
		{"Verbose", cfg.Verbose, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("DefaultConfig().%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	assert.Contains(t, cfg.NativeModules, "sys")
	assert.Contains(t, cfg.NativeModules, "nt")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "missing python path", mutate: func(c *Config) { c.PythonPath = "" }, errContains: "python_path"},
		{name: "missing cache root", mutate: func(c *Config) { c.CacheRoot = "" }, errContains: "cache_root"},
		{name: "missing fetch tool", mutate: func(c *Config) { c.FetchTool = "" }, errContains: "fetch_tool"},
		{name: "zero timeout", mutate: func(c *Config) { c.FetchTimeout = 0 }, errContains: "fetch_timeout"},
		{name: "negative cache bytes", mutate: func(c *Config) { c.FileCacheBytes = -1 }, errContains: "file_cache_bytes"},
		{name: "bad index url", mutate: func(c *Config) { c.IndexURL = "ftp://mirror" }, errContains: "index_url"},
		{name: "https index url", mutate: func(c *Config) { c.IndexURL = "https://pypi.org/simple" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.PythonPath = "/opt/python/lib/python3.11"
	cfg.FetchTimeout = 90 * time.Second
	cfg.SkipSelfNamespace = []string{"django"}
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/python/lib/python3.11", loaded.PythonPath)
	assert.Equal(t, 90*time.Second, loaded.FetchTimeout)
	assert.Equal(t, []string{"django"}, loaded.SkipSelfNamespace)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadFromFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("python_path: [unterminated"), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PYRESOLVE_PYTHON_PATH", "/env/python")
	t.Setenv("PYRESOLVE_FETCH_TIMEOUT", "30s")
	t.Setenv("PYRESOLVE_FILE_CACHE_ENTRIES", "12")
	t.Setenv("PYRESOLVE_WATCH", "yes")
	t.Setenv("PYRESOLVE_FETCH_TOOL", "pip")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "/env/python", cfg.PythonPath)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 12, cfg.FileCacheEntries)
	assert.True(t, cfg.Watch)
	assert.Equal(t, "pip", cfg.FetchTool)
}

func TestEnvOverrides_IgnoresGarbage(t *testing.T) {
	t.Setenv("PYRESOLVE_FETCH_TIMEOUT", "soon")
	t.Setenv("PYRESOLVE_FILE_CACHE_ENTRIES", "many")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, 5*time.Minute, cfg.FetchTimeout)
	assert.Equal(t, 4096, cfg.FileCacheEntries)
}

func TestIsStdlibRepo(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.IsStdlibRepo("git://github.com/python/cpython"))
	assert.False(t, cfg.IsStdlibRepo("git://github.com/pallets/flask"))
	assert.False(t, cfg.IsStdlibRepo(""))
}
