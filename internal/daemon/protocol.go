package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"runtime"
	"strings"
	"time"

	"github.com/l3aro/pyresolve/pkg/module"
	"github.com/l3aro/pyresolve/pkg/workspace"
)

// Command types understood by the daemon.
const (
	CmdStatus       = "status"
	CmdInitialize   = "initialize"
	CmdResolve      = "resolve"
	CmdModuleByPath = "module_by_path"
	CmdDependencies = "dependencies"
	CmdShutdown     = "shutdown"
	CmdStop         = "stop"
)

// Command is one newline-delimited JSON request.
type Command struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
	ID     string          `json:"id,omitempty"`
}

// Response answers the Command with the same ID.
type Response struct {
	ID     string          `json:"id,omitempty"`
	Type   string          `json:"type,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	// Code classifies Error: "not_found", "unanalyzable", "fetch_failed"
	// or empty.
	Code string `json:"code,omitempty"`
}

// Error codes carried by Response.Code.
const (
	CodeNotFound     = "not_found"
	CodeUnanalyzable = "unanalyzable"
	CodeFetchFailed  = "fetch_failed"
)

// StatusResult answers CmdStatus.
type StatusResult struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	Workspaces int               `json:"workspaces"`
	Stats      []workspace.Stats `json:"stats,omitempty"`
}

// InitializeParams opens a workspace for a project root.
type InitializeParams struct {
	Root string `json:"root"`
	// OriginalRoot identifies the project for cache naming, for example
	// "git://github.com/python/cpython?v3.6.4". Defaults to Root.
	OriginalRoot string `json:"original_root,omitempty"`
}

// InitializeResult answers CmdInitialize.
type InitializeResult struct {
	Workspace string          `json:"workspace"`
	Stats     workspace.Stats `json:"stats"`
	Packages  []string        `json:"packages"`
}

// ResolveParams resolves one import inside a workspace.
type ResolveParams struct {
	Workspace     string   `json:"workspace"`
	Name          string   `json:"name"`
	QualifiedName string   `json:"qualified_name"`
	Dirs          []string `json:"dirs,omitempty"`
}

// ModuleByPathParams looks a module up by source path.
type ModuleByPathParams struct {
	Workspace string `json:"workspace"`
	Path      string `json:"path"`
}

// ModuleResult carries a resolved module.
type ModuleResult struct {
	Module *module.Module `json:"module"`
	Kind   module.Kind    `json:"kind"`
}

// WorkspaceParams names an open workspace.
type WorkspaceParams struct {
	Workspace string `json:"workspace"`
}

// DependenciesResult answers CmdDependencies.
type DependenciesResult struct {
	Dependencies []workspace.Dependency  `json:"dependencies"`
	Packages     []workspace.PackageInfo `json:"packages"`
}

// CallError is a daemon-side failure returned through Call.
type CallError struct {
	Code    string
	Message string
}

func (e *CallError) Error() string {
	return "daemon error: " + e.Message
}

// Is lets callers match daemon failures against the workspace sentinels.
func (e *CallError) Is(target error) bool {
	switch e.Code {
	case CodeNotFound:
		return target == workspace.ErrNotFound
	case CodeUnanalyzable:
		return target == workspace.ErrUnanalyzable
	case CodeFetchFailed:
		return target == workspace.ErrFetchFailed
	}
	return false
}

// errorCode maps a workspace error to its wire code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, workspace.ErrUnanalyzable):
		return CodeUnanalyzable
	case errors.Is(err, workspace.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, workspace.ErrFetchFailed):
		return CodeFetchFailed
	}
	return ""
}

// UseTCP reports whether the daemon listens on TCP instead of a Unix socket.
func UseTCP(socketPath string) bool {
	return runtime.GOOS == "windows" || !strings.HasPrefix(socketPath, "/")
}

// Dial connects to the daemon and applies timeout as the connection deadline.
func Dial(socketPath, tcpPort string, timeout time.Duration) (net.Conn, error) {
	var (
		conn net.Conn
		err  error
	)
	if UseTCP(socketPath) {
		conn, err = net.DialTimeout("tcp", "localhost:"+tcpPort, timeout)
	} else {
		conn, err = net.DialTimeout("unix", socketPath, timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to daemon: %w", err)
	}
	conn.SetDeadline(time.Now().Add(timeout))
	return conn, nil
}

// Call sends cmd over conn and decodes the result into out, which may be nil.
func Call(conn net.Conn, cmd Command, out any) error {
	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return fmt.Errorf("sending command: %w", err)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	return resp.Decode(out)
}

// Decode returns the response error as a *CallError, or decodes the result
// into out, which may be nil.
func (r Response) Decode(out any) error {
	if r.Error != "" {
		return &CallError{Code: r.Code, Message: r.Error}
	}
	if out == nil || len(r.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}
	return nil
}

// NewCommand encodes params into a Command.
func NewCommand(typ, id string, params any) (Command, error) {
	cmd := Command{Type: typ, ID: id}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return Command{}, fmt.Errorf("marshaling params: %w", err)
		}
		cmd.Params = raw
	}
	return cmd, nil
}
