// Package main implements the pyresolve daemon (pyresolved). It keeps
// workspaces indexed between requests and serves them over a Unix domain
// socket, or TCP on Windows.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/l3aro/pyresolve/internal/config"
	"github.com/l3aro/pyresolve/internal/daemon"
	"github.com/l3aro/pyresolve/internal/log"
	"github.com/l3aro/pyresolve/pkg/workspace"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "pyresolved",
		Short:        "pyresolve daemon",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			socketPath, _ := cmd.Flags().GetString("socket")
			configPath, _ := cmd.Flags().GetString("config")
			verbose, _ := cmd.Flags().GetBool("verbose")
			return run(socketPath, configPath, verbose)
		},
	}
	rootCmd.Flags().String("socket", "", "Unix socket path (default: /tmp/pyresolve.sock)")
	rootCmd.Flags().String("config", os.Getenv("PYRESOLVE_CONFIG_PATH"), "Config file path")
	rootCmd.Flags().BoolP("verbose", "v", false, "Verbose logging")
	rootCmd.SetVersionTemplate("pyresolved version {{.Version}}\n")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(socketPath, configPath string, verbose bool) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if socketPath != "" {
		cfg.SocketPath = socketPath
	}

	level := log.InfoLevel
	if verbose || cfg.Verbose {
		level = log.DebugLevel
	}
	logger := log.New(log.LoggerConfig{Level: level, JSONOutput: cfg.JSONLogs, Output: os.Stderr, Prefix: "pyresolved"})

	server := daemon.NewServer(cfg,
		daemon.WithServerLogger(logger),
		daemon.WithVersion(version),
		daemon.WithWorkspaceOptions(workspace.WithStdlibSnapshot(filepath.Join(cfg.CacheRoot, "stdlib.idx"))))

	l, err := server.Listen()
	if err != nil {
		return fmt.Errorf("listening: %w", err)
	}

	pid := os.Getpid()
	startedAt := time.Now()
	if err := daemon.WritePID(pid); err != nil {
		logger.Warn("writing PID file failed", "error", err)
	}
	if err := daemon.WriteStatus(&daemon.DaemonStatus{Running: true, Ready: true, PID: pid, StartedAt: startedAt, Version: version}); err != nil {
		logger.Warn("writing status file failed", "error", err)
	}
	defer func() {
		daemon.RemovePID()
		daemon.RemoveStatus()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
			server.Close()
		case <-server.Done():
		}
	}()

	logger.Info("starting", "version", version, "socket", cfg.SocketPath)
	err = server.Serve(l)
	// waits for a stop command's cleanup to finish
	server.Close()
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("stopped")
	return nil
}
