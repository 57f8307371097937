package healthcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/pyresolve/internal/config"
)

func TestCheckWithNilConfig(t *testing.T) {
	_, err := Check(context.Background(), nil, "")
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	stdlib := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(stdlib, "os.py"), nil, 0644))
	index := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer index.Close()

	cfg := config.DefaultConfig()
	cfg.PythonPath = stdlib
	cfg.CacheRoot = filepath.Join(t.TempDir(), "cache")
	cfg.FetchTool = "sh"
	cfg.IndexURL = index.URL

	result, err := Check(context.Background(), cfg, ".pyresolve/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "project", result.SavedScope)
	assert.Equal(t, StatusReady, result.Stdlib.Status)
	assert.Equal(t, StatusReady, result.FetchTool.Status)
	assert.Equal(t, StatusReady, result.CacheRoot.Status)
	assert.Equal(t, StatusReady, result.Index.Status)
	assert.DirExists(t, cfg.CacheRoot)
	assert.True(t, result.OK())

	entries, err := os.ReadDir(cfg.CacheRoot)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file is removed")
}

func TestCheckFailures(t *testing.T) {
	index := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer index.Close()

	cfg := config.DefaultConfig()
	cfg.PythonPath = t.TempDir()
	cfg.CacheRoot = t.TempDir()
	cfg.FetchTool = "definitely-not-a-real-tool"
	cfg.IndexURL = index.URL

	result, err := Check(context.Background(), cfg, "")
	require.NoError(t, err)
	assert.Empty(t, result.SavedScope)
	assert.Equal(t, StatusError, result.Stdlib.Status)
	assert.Contains(t, result.Stdlib.Error, "no os.py")
	assert.Equal(t, StatusError, result.FetchTool.Status)
	assert.Contains(t, result.FetchTool.Error, "not found in PATH")
	assert.Equal(t, StatusError, result.Index.Status)
	assert.Contains(t, result.Index.Error, "404")
	assert.False(t, result.OK())
}

func TestCheckSkipsDefaultIndex(t *testing.T) {
	status := checkIndex(context.Background(), "")
	assert.Equal(t, StatusSkipped, status.Status)
}

func TestScopeFromPath(t *testing.T) {
	assert.Equal(t, "global", scopeFromPath(config.GlobalConfigFilePath()))
	assert.Equal(t, "project", scopeFromPath(config.ProjectConfigFilePath()))
	assert.Empty(t, scopeFromPath(""))
}
