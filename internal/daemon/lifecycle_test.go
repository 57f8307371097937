package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useDaemonDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), DefaultDir)
	t.Setenv("PYRESOLVE_DAEMON_DIR", dir)
	return dir
}

func TestDaemonDir(t *testing.T) {
	t.Setenv("PYRESOLVE_DAEMON_DIR", "")
	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, DefaultDir), DaemonDir())

	dir := useDaemonDir(t)
	assert.Equal(t, dir, DaemonDir())
	assert.Equal(t, filepath.Join(dir, PIDFileName), PIDFile())
	assert.Equal(t, filepath.Join(dir, StatusFileName), StatusFile())
}

func TestPIDRoundTrip(t *testing.T) {
	useDaemonDir(t)

	assert.False(t, PIDExists())
	_, err := ReadPID()
	assert.Error(t, err)

	require.NoError(t, WritePID(4242))
	assert.True(t, PIDExists())
	pid, err := ReadPID()
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	require.NoError(t, RemovePID())
	assert.False(t, PIDExists())
	assert.NoError(t, RemovePID())
}

func TestReadPID_InvalidContent(t *testing.T) {
	dir := useDaemonDir(t)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(PIDFile(), []byte("not-a-pid"), 0644))

	_, err := ReadPID()
	assert.ErrorContains(t, err, "parsing PID")
}

func TestStatusRoundTrip(t *testing.T) {
	useDaemonDir(t)

	started := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, WriteStatus(&DaemonStatus{Running: true, PID: 7, Ready: true, StartedAt: started, Workspaces: 2}))

	status, err := ReadStatus()
	require.NoError(t, err)
	assert.Equal(t, &DaemonStatus{Running: true, PID: 7, Ready: true, StartedAt: started, Workspaces: 2}, status)

	require.NoError(t, RemoveStatus())
	_, err = ReadStatus()
	assert.Error(t, err)
	assert.NoError(t, RemoveStatus())
}

func TestReadStatus_InvalidJSON(t *testing.T) {
	dir := useDaemonDir(t)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(StatusFile(), []byte("{"), 0644))

	_, err := ReadStatus()
	assert.ErrorContains(t, err, "parsing status")
}

func TestIsProcessRunning(t *testing.T) {
	assert.True(t, IsProcessRunning(os.Getpid()))
}

func TestGetSocketPath(t *testing.T) {
	t.Setenv("PYRESOLVE_SOCKET_PATH", "")
	assert.Equal(t, DefaultSocketPath, GetSocketPath())

	t.Setenv("PYRESOLVE_SOCKET_PATH", "/run/pyresolve/test.sock")
	assert.Equal(t, "/run/pyresolve/test.sock", GetSocketPath())

	t.Setenv("PYRESOLVE_TCP_PORT", "")
	assert.Equal(t, DefaultTCPPort, GetTCPPort())
}

func TestCheckStatus(t *testing.T) {
	t.Run("no PID file", func(t *testing.T) {
		useDaemonDir(t)
		status, err := CheckStatus()
		require.NoError(t, err)
		assert.False(t, status.Running)
		assert.False(t, IsRunning())
		assert.Equal(t, "stopped", GetStatus().Status)
	})

	t.Run("stale PID file", func(t *testing.T) {
		useDaemonDir(t)
		require.NoError(t, WritePID(99999999))
		require.NoError(t, WriteStatus(&DaemonStatus{Running: true, PID: 99999999}))

		status, err := CheckStatus()
		require.NoError(t, err)
		assert.False(t, status.Running)
		assert.False(t, PIDExists())
		_, err = os.Stat(StatusFile())
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("live process without socket", func(t *testing.T) {
		useDaemonDir(t)
		t.Setenv("PYRESOLVE_SOCKET_PATH", filepath.Join(t.TempDir(), "missing.sock"))
		require.NoError(t, WritePID(os.Getpid()))

		status, err := CheckStatus()
		require.NoError(t, err)
		assert.True(t, status.Running)
		assert.False(t, status.Ready)
		assert.Equal(t, os.Getpid(), status.PID)
		assert.Contains(t, status.Error, "daemon not responding")
		assert.Equal(t, "starting", GetStatus().Status)
	})
}

func TestStop_NotRunning(t *testing.T) {
	useDaemonDir(t)
	result, err := Stop()
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no PID file")

	require.NoError(t, WritePID(99999999))
	result, err = Stop()
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "process not found")
	assert.False(t, PIDExists())
}

func TestWaitForShutdown(t *testing.T) {
	assert.True(t, waitForShutdown(99999999, 100*time.Millisecond))
	assert.False(t, waitForShutdown(os.Getpid(), 100*time.Millisecond))
}

func TestFindDaemonBinary(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "pyresolved-"+strconv.Itoa(os.Getpid()))
	require.NoError(t, os.WriteFile(bin, nil, 0755))
	t.Setenv("PYRESOLVE_DAEMON_PATH", bin)

	got := findDaemonBinary()
	// a pyresolved next to the test binary or in ./bin wins over the env var
	if got != bin {
		assert.Equal(t, "pyresolved", filepath.Base(got))
	}
}
