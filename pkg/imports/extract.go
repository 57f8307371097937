package imports

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/l3aro/pyresolve/internal/log"
	"github.com/l3aro/pyresolve/pkg/vfs"
)

// FileImports holds the imports of one source file.
type FileImports struct {
	Path    string
	Imports []Import
}

// Extractor parses many files in parallel.
type Extractor struct {
	fs      vfs.FileSystem
	workers int
	logger  log.Logger
	parsers sync.Pool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWorkers bounds the number of files parsed at once.
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger that reports skipped files.
func WithLogger(l log.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// NewExtractor creates an Extractor reading sources from fs.
func NewExtractor(fs vfs.FileSystem, opts ...Option) *Extractor {
	e := &Extractor{
		fs:      fs,
		workers: runtime.NumCPU(),
		logger:  log.Discard(),
	}
	e.parsers.New = func() any { return NewParser() }
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses every path and returns the results in path order. Files
// that cannot be read or parsed are logged and left out.
func (e *Extractor) Extract(ctx context.Context, paths []string) ([]FileImports, error) {
	results := make([]*FileImports, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := e.fs.Open(gctx, path)
			if err != nil {
				e.logger.Warn("skipping unreadable source", "path", path, "error", err)
				return nil
			}

			parser := e.parsers.Get().(*Parser)
			imports, err := parser.Parse(gctx, content)
			e.parsers.Put(parser)
			if err != nil {
				e.logger.Warn("skipping unparsable source", "path", path, "error", err)
				return nil
			}
			results[i] = &FileImports{Path: path, Imports: imports}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]FileImports, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// TopLevelNames returns the distinct top-level packages imported by
// absolute imports across files.
func TopLevelNames(files []FileImports) []string {
	seen := make(map[string]struct{})
	for _, f := range files {
		for _, imp := range f.Imports {
			if imp.IsRelative() || imp.Module == "" {
				continue
			}
			seen[imp.TopLevel()] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
