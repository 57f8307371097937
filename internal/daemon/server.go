package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/l3aro/pyresolve/internal/config"
	"github.com/l3aro/pyresolve/internal/log"
	"github.com/l3aro/pyresolve/internal/scanner"
	"github.com/l3aro/pyresolve/pkg/vfs"
	"github.com/l3aro/pyresolve/pkg/workspace"
)

// idleTimeout closes connections that send nothing for this long.
const idleTimeout = 30 * time.Second

// Server holds the open workspaces and answers Commands for them.
type Server struct {
	cfg       *config.Config
	logger    log.Logger
	version   string
	newFS     func(root string) vfs.FileSystem
	wsOpts    []workspace.Option
	startedAt time.Time

	mu         sync.RWMutex
	workspaces map[string]*workspace.Workspace
	// opening builds at most one workspace per key, outside mu.
	opening singleflight.Group

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server logger.
func WithServerLogger(l log.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithVersion sets the version reported by CmdStatus.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// WithFileSystem sets how project files are read for a root.
func WithFileSystem(newFS func(root string) vfs.FileSystem) ServerOption {
	return func(s *Server) {
		s.newFS = newFS
	}
}

// WithWorkspaceOptions adds options applied to every workspace.
func WithWorkspaceOptions(opts ...workspace.Option) ServerOption {
	return func(s *Server) {
		s.wsOpts = append(s.wsOpts, opts...)
	}
}

// NewServer creates a server with no open workspaces.
func NewServer(cfg *config.Config, opts ...ServerOption) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:        cfg,
		logger:     log.Default(),
		version:    "dev",
		startedAt:  time.Now(),
		workspaces: make(map[string]*workspace.Workspace),
		ctx:        ctx,
		cancel:     cancel,
	}
	s.newFS = func(string) vfs.FileSystem {
		return vfs.NewLocal(scanner.DefaultOptions())
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("daemon")
	return s
}

// Listen opens the configured Unix socket, or a localhost TCP port where
// Unix sockets are unavailable.
func (s *Server) Listen() (net.Listener, error) {
	socketPath := s.cfg.SocketPath
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}

	if UseTCP(socketPath) {
		port := GetTCPPort()
		l, err := net.Listen("tcp", "localhost:"+port)
		if err != nil {
			return nil, fmt.Errorf("listening on port %s: %w", port, err)
		}
		s.logger.Info("listening", "addr", l.Addr().String())
		return l, nil
	}

	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing existing socket: %w", err)
	}
	l, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listening on socket: %w", err)
	}
	if err := os.Chmod(socketPath, 0777); err != nil {
		l.Close()
		return nil, fmt.Errorf("setting socket permissions: %w", err)
	}
	s.logger.Info("listening", "socket", socketPath)
	return l, nil
}

// Serve accepts connections until the server is closed. It closes l.
func (s *Server) Serve(l net.Listener) error {
	go func() {
		<-s.ctx.Done()
		l.Close()
	}()

	var tempDelay time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			if tempDelay == 0 {
				tempDelay = time.Millisecond
			} else {
				tempDelay *= 2
			}
			if tempDelay > time.Second {
				tempDelay = time.Second
			}
			s.logger.Warn("accept failed", "error", err, "retry", tempDelay)
			select {
			case <-time.After(tempDelay):
				continue
			case <-s.ctx.Done():
				return nil
			}
		}
		tempDelay = 0
		go s.handleConnection(conn)
	}
}

// Done is closed once the server has been asked to stop.
func (s *Server) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Close stops serving and cleans up every open workspace.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.cancel()

		s.mu.Lock()
		defer s.mu.Unlock()
		for key, ws := range s.workspaces {
			ws.Cleanup()
			delete(s.workspaces, key)
		}
	})
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)
	for {
		if s.ctx.Err() != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(idleTimeout))

		var cmd Command
		if err := decoder.Decode(&cmd); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrDeadlineExceeded) {
				encoder.Encode(Response{Error: fmt.Sprintf("decode error: %v", err)})
			}
			return
		}
		conn.SetReadDeadline(time.Time{})

		if err := encoder.Encode(s.Handle(cmd)); err != nil {
			s.logger.Warn("writing response failed", "error", err)
			return
		}
	}
}

// Handle executes one command.
func (s *Server) Handle(cmd Command) Response {
	s.logger.Debug("command", "type", cmd.Type, "id", cmd.ID)
	switch cmd.Type {
	case CmdStatus:
		return s.handleStatus(cmd)
	case CmdInitialize:
		return s.handleInitialize(cmd)
	case CmdResolve:
		return s.handleResolve(cmd)
	case CmdModuleByPath:
		return s.handleModuleByPath(cmd)
	case CmdDependencies:
		return s.handleDependencies(cmd)
	case CmdShutdown:
		return s.handleShutdown(cmd)
	case CmdStop:
		go s.Close()
		return respond(cmd, map[string]string{"status": "stopped"})
	default:
		return Response{ID: cmd.ID, Error: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func (s *Server) handleStatus(cmd Command) Response {
	s.mu.RLock()
	stats := make([]workspace.Stats, 0, len(s.workspaces))
	for _, ws := range s.workspaces {
		stats = append(stats, ws.Stats())
	}
	s.mu.RUnlock()
	sort.Slice(stats, func(i, j int) bool { return stats[i].Key < stats[j].Key })

	return respond(cmd, StatusResult{
		Status:     "running",
		Version:    s.version,
		StartedAt:  s.startedAt,
		Workspaces: len(stats),
		Stats:      stats,
	})
}

func (s *Server) handleInitialize(cmd Command) Response {
	var params InitializeParams
	if err := decodeParams(cmd, &params); err != nil {
		return failure(cmd, err)
	}
	if params.Root == "" {
		return Response{ID: cmd.ID, Error: "root is required"}
	}
	if s.ctx.Err() != nil {
		return Response{ID: cmd.ID, Error: "server is shutting down"}
	}
	originalRoot := params.OriginalRoot
	if originalRoot == "" {
		originalRoot = params.Root
	}
	key := workspace.DeriveIdentity(originalRoot).Key

	ws, err := s.openWorkspace(key, params.Root, originalRoot)
	if err != nil {
		return failure(cmd, err)
	}

	return respond(cmd, InitializeResult{
		Workspace: key,
		Stats:     ws.Stats(),
		Packages:  ws.ProjectPackages(),
	})
}

// openWorkspace returns the workspace for key, creating it when needed.
// Indexing happens without holding mu, so other workspaces stay usable.
func (s *Server) openWorkspace(key, root, originalRoot string) (*workspace.Workspace, error) {
	s.mu.RLock()
	ws, ok := s.workspaces[key]
	s.mu.RUnlock()
	if ok {
		return ws, nil
	}

	v, err, _ := s.opening.Do(key, func() (any, error) {
		s.mu.RLock()
		ws, ok := s.workspaces[key]
		s.mu.RUnlock()
		if ok {
			return ws, nil
		}

		opts := append([]workspace.Option{workspace.WithLogger(s.logger)}, s.wsOpts...)
		ws, err := workspace.New(s.ctx, s.cfg, s.newFS(root), root, originalRoot, opts...)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.ctx.Err() != nil {
			ws.Cleanup()
			return nil, errors.New("server is shutting down")
		}
		s.workspaces[key] = ws
		return ws, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*workspace.Workspace), nil
}

func (s *Server) handleResolve(cmd Command) Response {
	var params ResolveParams
	if err := decodeParams(cmd, &params); err != nil {
		return failure(cmd, err)
	}
	ws, err := s.workspace(params.Workspace)
	if err != nil {
		return failure(cmd, err)
	}
	if params.QualifiedName == "" {
		return Response{ID: cmd.ID, Error: "qualified_name is required"}
	}
	name := params.Name
	if name == "" {
		name = lastComponent(params.QualifiedName)
	}

	m, err := ws.ResolveImport(s.ctx, name, params.QualifiedName, params.Dirs)
	if err != nil {
		return failure(cmd, err)
	}
	return respond(cmd, ModuleResult{Module: m, Kind: m.Kind()})
}

func (s *Server) handleModuleByPath(cmd Command) Response {
	var params ModuleByPathParams
	if err := decodeParams(cmd, &params); err != nil {
		return failure(cmd, err)
	}
	ws, err := s.workspace(params.Workspace)
	if err != nil {
		return failure(cmd, err)
	}
	m, ok := ws.GetModuleByPath(params.Path)
	if !ok {
		return failure(cmd, &workspace.NotFoundError{Name: params.Path})
	}
	return respond(cmd, ModuleResult{Module: m, Kind: m.Kind()})
}

func (s *Server) handleDependencies(cmd Command) Response {
	var params WorkspaceParams
	if err := decodeParams(cmd, &params); err != nil {
		return failure(cmd, err)
	}
	ws, err := s.workspace(params.Workspace)
	if err != nil {
		return failure(cmd, err)
	}
	deps, err := ws.Dependencies(s.ctx)
	if err != nil {
		return failure(cmd, err)
	}
	packages, err := ws.PackageInformation(s.ctx)
	if err != nil {
		return failure(cmd, err)
	}
	return respond(cmd, DependenciesResult{Dependencies: deps, Packages: packages})
}

func (s *Server) handleShutdown(cmd Command) Response {
	var params WorkspaceParams
	if err := decodeParams(cmd, &params); err != nil {
		return failure(cmd, err)
	}

	s.mu.Lock()
	ws, ok := s.workspaces[params.Workspace]
	delete(s.workspaces, params.Workspace)
	s.mu.Unlock()

	if ok {
		ws.Cleanup()
	}
	return respond(cmd, map[string]any{"workspace": params.Workspace, "removed": ok})
}

func (s *Server) workspace(key string) (*workspace.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[key]
	if !ok {
		return nil, fmt.Errorf("workspace %q is not initialized", key)
	}
	return ws, nil
}

func decodeParams(cmd Command, out any) error {
	if len(cmd.Params) == 0 {
		return nil
	}
	if err := json.Unmarshal(cmd.Params, out); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

func respond(cmd Command, result any) Response {
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{ID: cmd.ID, Error: fmt.Sprintf("marshal error: %v", err)}
	}
	return Response{ID: cmd.ID, Type: cmd.Type, Result: raw}
}

func failure(cmd Command, err error) Response {
	return Response{ID: cmd.ID, Type: cmd.Type, Error: err.Error(), Code: errorCode(err)}
}

func lastComponent(qualifiedName string) string {
	return qualifiedName[strings.LastIndexByte(qualifiedName, '.')+1:]
}
