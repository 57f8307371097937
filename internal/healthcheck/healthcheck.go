// Package healthcheck verifies that a configuration can index the standard
// library and download dependencies.
package healthcheck

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/l3aro/pyresolve/internal/config"
)

const (
	StatusReady   = "ready"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// ComponentStatus is the outcome of one check.
type ComponentStatus struct {
	Name   string `json:"name"`
	Detail string `json:"detail,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthCheckResult contains the full health check output for display.
type HealthCheckResult struct {
	SavedPath  string `json:"saved_path,omitempty"`
	SavedScope string `json:"saved_scope,omitempty"` // "global" or "project"

	Stdlib    ComponentStatus `json:"stdlib"`
	FetchTool ComponentStatus `json:"fetch_tool"`
	CacheRoot ComponentStatus `json:"cache_root"`
	Index     ComponentStatus `json:"index"`
}

// OK reports whether no check failed.
func (r *HealthCheckResult) OK() bool {
	for _, c := range r.Components() {
		if c.Status == StatusError {
			return false
		}
	}
	return true
}

// Components lists the checks in display order.
func (r *HealthCheckResult) Components() []ComponentStatus {
	return []ComponentStatus{r.Stdlib, r.FetchTool, r.CacheRoot, r.Index}
}

// Check performs a health check against the given config. savedPath is where
// the config was saved and may be empty.
func Check(ctx context.Context, cfg *config.Config, savedPath string) (*HealthCheckResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	return &HealthCheckResult{
		SavedPath:  savedPath,
		SavedScope: scopeFromPath(savedPath),
		Stdlib:     checkStdlib(cfg.PythonPath),
		FetchTool:  checkFetchTool(cfg.FetchTool),
		CacheRoot:  checkCacheRoot(cfg.CacheRoot),
		Index:      checkIndex(ctx, cfg.IndexURL),
	}, nil
}

// scopeFromPath determines "global" or "project" scope from a config file path.
// Returns empty string if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil && abs == mustAbs(config.GlobalConfigFilePath()) {
		return "global"
	}
	return "project"
}

func mustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// checkStdlib looks for os.py, which every CPython stdlib ships.
func checkStdlib(pythonPath string) ComponentStatus {
	status := ComponentStatus{Name: "stdlib", Detail: pythonPath}
	if pythonPath == "" {
		status.Status = StatusError
		status.Error = "python_path is not configured"
		return status
	}
	if _, err := os.Stat(filepath.Join(pythonPath, "os.py")); err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("no os.py under %s", pythonPath)
		return status
	}
	status.Status = StatusReady
	return status
}

func checkFetchTool(tool string) ComponentStatus {
	status := ComponentStatus{Name: "fetch tool", Detail: tool}
	path, err := exec.LookPath(tool)
	if err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("%s not found in PATH", tool)
		return status
	}
	status.Detail = path
	status.Status = StatusReady
	return status
}

// checkCacheRoot creates the cache root if needed and verifies it is writable.
func checkCacheRoot(root string) ComponentStatus {
	status := ComponentStatus{Name: "cache root", Detail: root}
	if err := os.MkdirAll(root, 0755); err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("cannot create %s: %v", root, err)
		return status
	}
	f, err := os.CreateTemp(root, ".healthcheck-")
	if err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("%s is not writable: %v", root, err)
		return status
	}
	f.Close()
	os.Remove(f.Name())
	status.Status = StatusReady
	return status
}

// checkIndex pings a custom package index. It does not download anything.
func checkIndex(ctx context.Context, indexURL string) ComponentStatus {
	status := ComponentStatus{Name: "package index", Detail: indexURL}
	if indexURL == "" {
		status.Status = StatusSkipped
		status.Detail = "default"
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(indexURL, "/")+"/", nil)
	if err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("invalid URL: %v", err)
		return status
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("cannot reach %s: %v", indexURL, err)
		return status
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		status.Status = StatusError
		status.Error = fmt.Sprintf("index returned status %d", resp.StatusCode)
		return status
	}
	status.Status = StatusReady
	return status
}
