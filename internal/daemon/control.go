package daemon

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// StartOptions controls how Start launches pyresolved.
type StartOptions struct {
	// DaemonPath is the daemon executable; found next to the CLI when empty.
	DaemonPath string
	SocketPath string
	ConfigPath string
	Verbose    bool
	// WaitForReady blocks until the daemon answers a status ping.
	WaitForReady bool
	ReadyTimeout time.Duration
	// Background detaches the daemon from the CLI's session.
	Background bool
}

// StartResult reports a start attempt.
type StartResult struct {
	Success   bool      `json:"success"`
	PID       int       `json:"pid,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Ready     bool      `json:"ready"`
}

// StopResult reports a stop attempt.
type StopResult struct {
	Success   bool      `json:"success"`
	PID       int       `json:"pid,omitempty"`
	StoppedAt time.Time `json:"stopped_at"`
	Error     string    `json:"error,omitempty"`
}

// StatusReport is the CLI view of CheckStatus.
type StatusReport struct {
	Status     string    `json:"status"`
	Running    bool      `json:"running"`
	Ready      bool      `json:"ready"`
	PID        int       `json:"pid,omitempty"`
	Version    string    `json:"version,omitempty"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	Workspaces int       `json:"workspaces"`
	Error      string    `json:"error,omitempty"`
}

// Start launches the daemon unless one is already answering.
func Start(opts *StartOptions) (*StartResult, error) {
	if status, err := CheckStatus(); err == nil && status.Running && status.Ready {
		return &StartResult{PID: status.PID, Error: "daemon already running"}, nil
	}

	daemonPath := opts.DaemonPath
	if daemonPath == "" {
		daemonPath = findDaemonBinary()
	}

	env := os.Environ()
	if opts.SocketPath != "" {
		env = append(env, "PYRESOLVE_SOCKET_PATH="+opts.SocketPath)
	}
	if opts.ConfigPath != "" {
		env = append(env, "PYRESOLVE_CONFIG_PATH="+opts.ConfigPath)
	}
	if opts.Verbose {
		env = append(env, "PYRESOLVE_VERBOSE=true")
	}

	cmd := exec.Command(daemonPath)
	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if opts.Background {
		detach(cmd)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting daemon: %w", err)
	}

	pid := cmd.Process.Pid
	startedAt := time.Now()
	if err := WritePID(pid); err != nil {
		cmd.Process.Kill()
		return nil, fmt.Errorf("writing PID file: %w", err)
	}
	if err := WriteStatus(&DaemonStatus{Running: true, PID: pid, StartedAt: startedAt}); err != nil {
		cmd.Process.Kill()
		RemovePID()
		return nil, fmt.Errorf("writing status: %w", err)
	}

	result := &StartResult{Success: true, PID: pid, StartedAt: startedAt}
	if !opts.WaitForReady {
		return result, nil
	}

	timeout := opts.ReadyTimeout
	if timeout <= 0 {
		timeout = ReadyTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := waitForReady(ctx); err != nil {
		cmd.Process.Kill()
		RemovePID()
		RemoveStatus()
		return &StartResult{PID: pid, StartedAt: startedAt, Error: fmt.Sprintf("daemon not ready: %v", err)}, nil
	}

	result.Ready = true
	WriteStatus(&DaemonStatus{Running: true, Ready: true, PID: pid, StartedAt: startedAt})
	return result, nil
}

// findDaemonBinary looks for pyresolved next to the running executable, in
// ./bin, then in PYRESOLVE_DAEMON_PATH, and finally falls back to PATH.
func findDaemonBinary() string {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "pyresolved")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if candidate := filepath.Join(".", "bin", "pyresolved"); fileExists(candidate) {
		return candidate
	}
	if p := os.Getenv("PYRESOLVE_DAEMON_PATH"); p != "" && fileExists(p) {
		return p
	}
	return "pyresolved"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// waitForReady polls CheckStatus until the daemon answers or ctx ends.
func waitForReady(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if status, err := CheckStatus(); err == nil && status.Running && status.Ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for daemon to be ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Stop asks the daemon to stop and kills it if it does not exit in time.
// Stopping cleans up every workspace the daemon had open.
func Stop() (*StopResult, error) {
	if !PIDExists() {
		return &StopResult{Error: "daemon not running (no PID file)"}, nil
	}
	pid, err := ReadPID()
	if err != nil {
		return &StopResult{Error: fmt.Sprintf("failed to read PID: %v", err)}, nil
	}
	if !IsProcessRunning(pid) {
		RemovePID()
		RemoveStatus()
		return &StopResult{Error: "daemon not running (process not found)"}, nil
	}

	if err := sendStop(); err == nil && waitForShutdown(pid, ShutdownTimeout) {
		RemovePID()
		RemoveStatus()
		return &StopResult{Success: true, PID: pid, StoppedAt: time.Now()}, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		RemovePID()
		RemoveStatus()
		return &StopResult{Success: true, PID: pid, StoppedAt: time.Now(), Error: "process already terminated"}, nil
	}
	if err := process.Kill(); err != nil {
		return &StopResult{PID: pid, Error: fmt.Sprintf("failed to kill process: %v", err)}, nil
	}
	waitForShutdown(pid, 2*time.Second)
	RemovePID()
	RemoveStatus()
	return &StopResult{Success: true, PID: pid, StoppedAt: time.Now()}, nil
}

func sendStop() error {
	conn, err := Dial(GetSocketPath(), GetTCPPort(), 5*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()
	return Call(conn, Command{Type: CmdStop, ID: "stop-cmd"}, nil)
}

// waitForShutdown reports whether pid exited within timeout.
func waitForShutdown(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !IsProcessRunning(pid) {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

// GetStatus summarizes CheckStatus for display.
func GetStatus() *StatusReport {
	status, err := CheckStatus()
	if err != nil {
		return &StatusReport{Status: "unknown", Error: err.Error()}
	}

	report := &StatusReport{
		Running:    status.Running,
		Ready:      status.Ready,
		PID:        status.PID,
		Version:    status.Version,
		StartedAt:  status.StartedAt,
		Workspaces: status.Workspaces,
		Error:      status.Error,
	}
	switch {
	case !status.Running:
		report.Status = "stopped"
	case !status.Ready:
		report.Status = "starting"
	default:
		report.Status = "running"
	}
	return report
}
