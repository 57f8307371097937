// Package daemon runs pyresolved and manages its lifecycle: PID and status
// files, start, stop and status checks, and the socket protocol spoken
// between the CLI and the daemon.
package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	// DefaultDir holds the daemon's PID and status files.
	DefaultDir = ".pyresolve"
	// PIDFileName is the name of the PID file
	PIDFileName = "daemon.pid"
	// StatusFileName is the name of the status file
	StatusFileName = "status"
	// DefaultSocketPath is the default Unix socket path
	DefaultSocketPath = "/tmp/pyresolve.sock"
	// DefaultTCPPort is used instead of a socket on Windows
	DefaultTCPPort = "9848"
	// ReadyTimeout bounds the wait for a starting daemon
	ReadyTimeout = 10 * time.Second
	// ShutdownTimeout bounds the wait for a graceful stop
	ShutdownTimeout = 5 * time.Second
)

// DaemonDir returns the directory holding the PID and status files.
func DaemonDir() string {
	if dir := os.Getenv("PYRESOLVE_DAEMON_DIR"); dir != "" {
		return dir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return DefaultDir
	}
	return filepath.Join(cwd, DefaultDir)
}

// PIDFile returns the path to the PID file
func PIDFile() string {
	return filepath.Join(DaemonDir(), PIDFileName)
}

// StatusFile returns the path to the status file
func StatusFile() string {
	return filepath.Join(DaemonDir(), StatusFileName)
}

func ensureDaemonDir() error {
	if err := os.MkdirAll(DaemonDir(), 0755); err != nil {
		return fmt.Errorf("creating daemon directory: %w", err)
	}
	return nil
}

// WritePID records the daemon's process ID.
func WritePID(pid int) error {
	if err := ensureDaemonDir(); err != nil {
		return err
	}
	if err := os.WriteFile(PIDFile(), []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	return nil
}

// ReadPID reads the recorded process ID.
func ReadPID() (int, error) {
	data, err := os.ReadFile(PIDFile())
	if err != nil {
		return 0, fmt.Errorf("reading PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing PID: %w", err)
	}
	return pid, nil
}

// RemovePID removes the PID file. A missing file is not an error.
func RemovePID() error {
	if err := os.Remove(PIDFile()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing PID file: %w", err)
	}
	return nil
}

// PIDExists reports whether a PID file is present.
func PIDExists() bool {
	_, err := os.Stat(PIDFile())
	return err == nil
}

// DaemonStatus is what the status file and status checks report.
type DaemonStatus struct {
	Running    bool      `json:"running"`
	PID        int       `json:"pid,omitempty"`
	Ready      bool      `json:"ready"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	Error      string    `json:"error,omitempty"`
	Version    string    `json:"version,omitempty"`
	Workspaces int       `json:"workspaces"`
}

// WriteStatus writes status to the status file.
func WriteStatus(status *DaemonStatus) error {
	if err := ensureDaemonDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling status: %w", err)
	}
	if err := os.WriteFile(StatusFile(), data, 0644); err != nil {
		return fmt.Errorf("writing status file: %w", err)
	}
	return nil
}

// ReadStatus reads the status file.
func ReadStatus() (*DaemonStatus, error) {
	data, err := os.ReadFile(StatusFile())
	if err != nil {
		return nil, fmt.Errorf("reading status file: %w", err)
	}
	var status DaemonStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("parsing status: %w", err)
	}
	return &status, nil
}

// RemoveStatus removes the status file. A missing file is not an error.
func RemoveStatus() error {
	if err := os.Remove(StatusFile()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing status file: %w", err)
	}
	return nil
}

// IsProcessRunning reports whether pid names a live process.
func IsProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// FindProcess always succeeds on Unix; signal 0 probes for existence.
	return process.Signal(syscall.Signal(0)) == nil
}

// GetSocketPath returns the socket path from the environment or the default.
func GetSocketPath() string {
	if p := os.Getenv("PYRESOLVE_SOCKET_PATH"); p != "" {
		return p
	}
	return DefaultSocketPath
}

// GetTCPPort returns the TCP port used where Unix sockets are unavailable.
func GetTCPPort() string {
	if p := os.Getenv("PYRESOLVE_TCP_PORT"); p != "" {
		return p
	}
	return DefaultTCPPort
}

// pingDaemon asks a running daemon for its status.
func pingDaemon() (*DaemonStatus, error) {
	conn, err := Dial(GetSocketPath(), GetTCPPort(), 5*time.Second)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var result StatusResult
	if err := Call(conn, Command{Type: CmdStatus, ID: "ping"}, &result); err != nil {
		return nil, err
	}
	return &DaemonStatus{
		Running:    true,
		Ready:      result.Status == "running",
		StartedAt:  result.StartedAt,
		Version:    result.Version,
		Workspaces: result.Workspaces,
	}, nil
}

// CheckStatus combines the PID file, the process table and a ping.
func CheckStatus() (*DaemonStatus, error) {
	if !PIDExists() {
		return &DaemonStatus{}, nil
	}

	pid, err := ReadPID()
	if err != nil {
		return &DaemonStatus{Error: fmt.Sprintf("failed to read PID: %v", err)}, nil
	}

	if !IsProcessRunning(pid) {
		// stale files from a crashed daemon
		RemovePID()
		RemoveStatus()
		return &DaemonStatus{}, nil
	}

	status, err := pingDaemon()
	if err != nil {
		return &DaemonStatus{
			Running: true,
			PID:     pid,
			Error:   fmt.Sprintf("daemon not responding: %v", err),
		}, nil
	}
	status.PID = pid
	return status, nil
}

// IsRunning reports whether a daemon is up and answering.
func IsRunning() bool {
	status, err := CheckStatus()
	return err == nil && status.Running && status.Ready
}
