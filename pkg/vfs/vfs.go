// Package vfs defines the filesystem collaborator used by the indexer and
// provides local, in-memory and cached implementations.
package vfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/l3aro/pyresolve/internal/scanner"
)

// ErrNotExist is returned when a path is unknown to the filesystem.
var ErrNotExist = errors.New("file does not exist")

// FileSystem is the read-only view of a source tree.
type FileSystem interface {
	// Open returns the contents of the file at path.
	Open(ctx context.Context, path string) ([]byte, error)
	// ListDir returns the entry names directly under path.
	ListDir(ctx context.Context, path string) ([]string, error)
	// Walk returns every file path below root as a flat list.
	Walk(ctx context.Context, root string) ([]string, error)
}

// Local serves files from the host filesystem.
type Local struct {
	scanner *scanner.Scanner
}

// NewLocal creates a local filesystem whose Walk honors the scanner options.
func NewLocal(opts scanner.Options) *Local {
	return &Local{scanner: scanner.New(opts)}
}

// Open reads path. Paths that point inside a zipped bundle
// ("/site/pkg.egg/pkg/mod.py") are read from the bundle.
func (l *Local) Open(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if bundle, member, ok := SplitBundlePath(path); ok {
		return readBundleMember(bundle, member)
	}
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	return nil, fmt.Errorf("reading %s: %w", path, err)
}

// ListDir lists the entries of a directory.
func (l *Local) ListDir(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// Walk returns absolute paths of the files below root.
func (l *Local) Walk(ctx context.Context, root string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := l.scanner.Scan(root)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.FullPath)
	}
	return paths, nil
}

// SplitBundlePath splits a path that crosses a ".egg" bundle into the bundle
// file and the member path inside it.
func SplitBundlePath(path string) (bundle, member string, ok bool) {
	slashed := filepath.ToSlash(path)
	idx := strings.Index(slashed, ".egg/")
	if idx < 0 {
		return "", "", false
	}
	return filepath.FromSlash(slashed[:idx+len(".egg")]), slashed[idx+len(".egg/"):], true
}

func readBundleMember(bundle, member string) ([]byte, error) {
	zr, err := zip.OpenReader(bundle)
	if err != nil {
		return nil, fmt.Errorf("opening bundle %s: %w", bundle, err)
	}
	defer zr.Close()

	f, err := zr.Open(member)
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotExist, member, bundle)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Memory is an in-memory filesystem keyed by slash-separated absolute paths.
type Memory struct {
	files map[string][]byte
}

// NewMemory creates an in-memory filesystem from path → content.
func NewMemory(files map[string]string) *Memory {
	m := &Memory{files: make(map[string][]byte, len(files))}
	for path, content := range files {
		m.files[cleanSlash(path)] = []byte(content)
	}
	return m
}

// Open returns the contents of path.
func (m *Memory) Open(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := m.files[cleanSlash(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	return data, nil
}

// ListDir returns the direct children of path.
func (m *Memory) ListDir(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(cleanSlash(path), "/") + "/"
	seen := make(map[string]struct{})
	for p := range m.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		seen[rest] = struct{}{}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Walk returns every file below root in sorted order.
func (m *Memory) Walk(ctx context.Context, root string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(cleanSlash(root), "/") + "/"
	var paths []string
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func cleanSlash(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}
