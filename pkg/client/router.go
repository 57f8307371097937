package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/l3aro/pyresolve/internal/daemon"
)

const defaultDaemonCacheTTL = 5 * time.Second

// ErrDaemonNotAvailable is returned when the daemon is required but down.
var ErrDaemonNotAvailable = errors.New("daemon not available")

// Router sends commands to the daemon when one is running and to a
// fallback Caller otherwise.
type Router struct {
	client     Caller
	fallback   Caller
	useDaemon  bool
	autoDetect bool
	detect     func() bool

	mu           sync.Mutex
	cachedResult *bool
	cacheTime    time.Time
	cacheTTL     time.Duration
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithDaemon forces using the daemon
func WithDaemon() RouterOption {
	return func(r *Router) {
		r.useDaemon = true
		r.autoDetect = false
	}
}

// WithoutDaemon forces the fallback
func WithoutDaemon() RouterOption {
	return func(r *Router) {
		r.useDaemon = false
		r.autoDetect = false
	}
}

// WithClient replaces the daemon client.
func WithClient(c Caller) RouterOption {
	return func(r *Router) {
		r.client = c
	}
}

// WithFallback sets the Caller used when the daemon is not in use.
func WithFallback(c Caller) RouterOption {
	return func(r *Router) {
		r.fallback = c
	}
}

// WithDetector replaces daemon detection.
func WithDetector(detect func() bool) RouterOption {
	return func(r *Router) {
		r.detect = detect
	}
}

// NewRouter creates a router that detects the daemon automatically.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		client:     New(),
		autoDetect: true,
		detect:     daemon.IsRunning,
		cacheTTL:   defaultDaemonCacheTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ShouldUseDaemon reports whether commands go to the daemon. Detection
// results are cached briefly.
func (r *Router) ShouldUseDaemon() bool {
	if !r.autoDetect {
		return r.useDaemon
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cachedResult != nil && time.Since(r.cacheTime) < r.cacheTTL {
		return *r.cachedResult
	}
	result := r.detect()
	r.cachedResult = &result
	r.cacheTime = time.Now()
	return result
}

func (r *Router) call(ctx context.Context, typ string, params, out any) error {
	if r.ShouldUseDaemon() {
		return r.client.Call(ctx, typ, params, out)
	}
	if r.fallback == nil {
		return ErrDaemonNotAvailable
	}
	return r.fallback.Call(ctx, typ, params, out)
}

// Initialize opens, or reuses, the workspace for a project root.
func (r *Router) Initialize(ctx context.Context, params daemon.InitializeParams) (*daemon.InitializeResult, error) {
	var out daemon.InitializeResult
	if err := r.call(ctx, daemon.CmdInitialize, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Resolve resolves one import.
func (r *Router) Resolve(ctx context.Context, params daemon.ResolveParams) (*daemon.ModuleResult, error) {
	var out daemon.ModuleResult
	if err := r.call(ctx, daemon.CmdResolve, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ModuleByPath finds the module stored for a source path.
func (r *Router) ModuleByPath(ctx context.Context, params daemon.ModuleByPathParams) (*daemon.ModuleResult, error) {
	var out daemon.ModuleResult
	if err := r.call(ctx, daemon.CmdModuleByPath, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dependencies lists the project's dependencies and exported packages.
func (r *Router) Dependencies(ctx context.Context, params daemon.WorkspaceParams) (*daemon.DependenciesResult, error) {
	var out daemon.DependenciesResult
	if err := r.call(ctx, daemon.CmdDependencies, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Shutdown closes a workspace and removes its dependency cache.
func (r *Router) Shutdown(ctx context.Context, params daemon.WorkspaceParams) error {
	return r.call(ctx, daemon.CmdShutdown, params, nil)
}

// Status asks the daemon for its status. It never uses the fallback.
func (r *Router) Status(ctx context.Context) (*daemon.StatusResult, error) {
	if !r.ShouldUseDaemon() {
		return nil, ErrDaemonNotAvailable
	}
	var out daemon.StatusResult
	if err := r.client.Call(ctx, daemon.CmdStatus, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
