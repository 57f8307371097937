// Package scanner walks a project tree and lists its Python sources. It
// respects .gitignore and .pyresolveignore files at any level.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// FileInfo represents information about a discovered file.
type FileInfo struct {
	Path     string // Relative path from root, slash separated
	FullPath string // Absolute path
	Size     int64  // File size in bytes
}

// Options configures the scanner behavior.
type Options struct {
	SkipHidden      bool     // Skip hidden files and directories (starting with .)
	DefaultExcludes []string // Directory names never descended into
	IgnoreFileNames []string // gitignore-style files honored in every directory
	Extensions      []string // Keep only these extensions; empty keeps everything
}

// DefaultOptions returns scanner options suited to Python projects.
func DefaultOptions() Options {
	return Options{
		SkipHidden:      true,
		IgnoreFileNames: []string{".gitignore", ".pyresolveignore"},
		Extensions:      []string{".py"},
		DefaultExcludes: []string{
			"node_modules",
			".git",
			"__pycache__",
			".venv",
			"venv",
			".tox",
			".nox",
			".hg",
			".svn",
			".mypy_cache",
			".pytest_cache",
			".eggs",
		},
	}
}

// matcher is a compiled ignore file anchored at the directory holding it.
type matcher struct {
	dir string // slash-separated, relative to the scan root ("" for root)
	gi  *ignore.GitIgnore
}

// Scanner provides file tree scanning capabilities.
type Scanner struct {
	opts Options
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// Scan recursively scans the directory at root and returns the files found,
// sorted by relative path.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	var matchers []matcher
	var files []FileInfo

	err = filepath.WalkDir(absRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// unreadable entries are skipped, the rest of the tree is still scanned
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel := filepath.ToSlash(relPath)

		if d.IsDir() {
			if rel != "." {
				if s.opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				if s.isDefaultExcluded(d.Name()) || ignored(matchers, rel+"/") {
					return filepath.SkipDir
				}
			} else {
				rel = ""
			}
			matchers = append(matchers, s.loadMatchers(path, rel)...)
			return nil
		}

		if s.opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if !s.keepExtension(filepath.Ext(path)) {
			return nil
		}
		if ignored(matchers, rel) {
			return nil
		}

		var size int64
		if info, err := d.Info(); err == nil {
			size = info.Size()
		}
		files = append(files, FileInfo{Path: rel, FullPath: path, Size: size})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (s *Scanner) isDefaultExcluded(name string) bool {
	for _, exclude := range s.opts.DefaultExcludes {
		if strings.EqualFold(name, exclude) {
			return true
		}
	}
	return false
}

func (s *Scanner) keepExtension(ext string) bool {
	if len(s.opts.Extensions) == 0 {
		return true
	}
	for _, e := range s.opts.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func (s *Scanner) loadMatchers(dir, rel string) []matcher {
	var out []matcher
	for _, name := range s.opts.IgnoreFileNames {
		gi, err := ignore.CompileIgnoreFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		out = append(out, matcher{dir: rel, gi: gi})
	}
	return out
}

// ignored checks rel against every matcher anchored at one of its ancestors.
func ignored(matchers []matcher, rel string) bool {
	for _, m := range matchers {
		target := rel
		if m.dir != "" {
			if !strings.HasPrefix(rel, m.dir+"/") {
				continue
			}
			target = strings.TrimPrefix(rel, m.dir+"/")
		}
		if m.gi.MatchesPath(target) {
			return true
		}
	}
	return false
}

// Scan is a convenience function that scans a directory with default options.
func Scan(root string) ([]FileInfo, error) {
	return New(DefaultOptions()).Scan(root)
}
