package client

import (
	"context"

	"github.com/l3aro/pyresolve/internal/config"
	"github.com/l3aro/pyresolve/internal/daemon"
)

// Executor answers commands in-process with its own server, for one-shot
// CLI runs without a daemon. Close removes every dependency cache it made.
type Executor struct {
	server *daemon.Server
}

// NewExecutor creates an in-process executor.
func NewExecutor(cfg *config.Config, opts ...daemon.ServerOption) *Executor {
	return &Executor{server: daemon.NewServer(cfg, opts...)}
}

// Call runs the command against the in-process server.
func (e *Executor) Call(ctx context.Context, typ string, params, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd, err := daemon.NewCommand(typ, generateID(), params)
	if err != nil {
		return err
	}
	return e.server.Handle(cmd).Decode(out)
}

// Close cleans up every workspace the executor opened.
func (e *Executor) Close() {
	e.server.Close()
}
