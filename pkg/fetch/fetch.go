// Package fetch downloads external Python packages and unpacks the resulting
// artifacts into a dependency cache.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/l3aro/pyresolve/internal/log"
)

// Request describes one download.
type Request struct {
	// Package is the distribution name to download.
	Package string
	// Specifier is an optional version constraint such as ">=1.0,<2".
	Specifier string
	// DestDir receives the downloaded artifacts.
	DestDir string
	// IndexURL overrides the package index when set.
	IndexURL string
}

// Requirement renders the package and its specifier as a single argument.
func (r Request) Requirement() string {
	return r.Package + strings.ReplaceAll(r.Specifier, " ", "")
}

// Fetcher downloads a package into Request.DestDir without installing it
// and without its transitive dependencies.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) error
}

// PipFetcher runs "pip download".
type PipFetcher struct {
	tool   string
	logger log.Logger
}

// PipOption configures a PipFetcher.
type PipOption func(*PipFetcher)

// WithLogger sets the logger that receives the tool's output.
func WithLogger(l log.Logger) PipOption {
	return func(p *PipFetcher) {
		p.logger = l
	}
}

// NewPipFetcher creates a fetcher invoking tool, typically "pip3".
func NewPipFetcher(tool string, opts ...PipOption) *PipFetcher {
	p := &PipFetcher{tool: tool, logger: log.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Args returns the command-line arguments for req.
func (p *PipFetcher) Args(req Request) []string {
	args := []string{"download", "--no-deps", "--disable-pip-version-check", "-d", req.DestDir}
	if req.IndexURL != "" {
		args = append(args, "-i", req.IndexURL)
	}
	return append(args, req.Requirement())
}

// Fetch runs the download and reports a non-zero exit as an error.
func (p *PipFetcher) Fetch(ctx context.Context, req Request) error {
	cmd := exec.CommandContext(ctx, p.tool, p.Args(req)...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.logger.Info("downloading package", "package", req.Requirement(), "dest", req.DestDir)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s download %s: %w", p.tool, req.Package, ctx.Err())
		}
		if stderr.Len() > 0 {
			return fmt.Errorf("%s download %s failed: %s", p.tool, req.Package, strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("%s download %s: %w", p.tool, req.Package, err)
	}
	p.logger.Debug("download finished", "package", req.Package, "output", strings.TrimSpace(stdout.String()))
	return nil
}
