// Package client talks to a running pyresolved, or resolves in-process when
// no daemon is available.
package client

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/l3aro/pyresolve/internal/daemon"
)

// DefaultTimeout bounds a single daemon round trip.
const DefaultTimeout = 5 * time.Second

// Caller sends one command and decodes its result into out.
type Caller interface {
	Call(ctx context.Context, typ string, params, out any) error
}

// Client sends commands to the daemon over its socket.
type Client struct {
	socketPath string
	tcpPort    string
	timeout    time.Duration
	connected  atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithSocketPath sets the socket path
func WithSocketPath(path string) Option {
	return func(c *Client) {
		c.socketPath = path
	}
}

// WithTCPPort sets the TCP port used on Windows
func WithTCPPort(port string) Option {
	return func(c *Client) {
		c.tcpPort = port
	}
}

// WithTimeout sets the per-call timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// New creates a client for the socket named by the environment.
func New(opts ...Option) *Client {
	c := &Client{
		socketPath: daemon.GetSocketPath(),
		tcpPort:    daemon.GetTCPPort(),
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call opens a connection, sends the command and decodes the response. A
// context deadline overrides the client timeout.
func (c *Client) Call(ctx context.Context, typ string, params, out any) error {
	cmd, err := daemon.NewCommand(typ, generateID(), params)
	if err != nil {
		return err
	}
	conn, err := daemon.Dial(c.socketPath, c.tcpPort, c.timeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := daemon.Call(conn, cmd, out); err != nil {
		return err
	}
	c.connected.Store(true)
	return nil
}

// IsConnected reports whether a call has succeeded.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

var idCounter atomic.Uint64

func generateID() string {
	return fmt.Sprintf("cmd-%d-%d", os.Getpid(), idCounter.Add(1))
}
