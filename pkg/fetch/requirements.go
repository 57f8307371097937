package fetch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/l3aro/pyresolve/pkg/vfs"
)

// DefaultIndexURL is used for Pipfile packages naming an undeclared source.
const DefaultIndexURL = "https://pypi.python.org/simple"

const defaultSourceName = "pypi"

// Requirements holds the version specifiers and package indexes a project
// declares for its dependencies.
type Requirements struct {
	specifiers map[string]string
	indexes    map[string]string
	// IndexURL applies to packages without their own index.
	IndexURL string
}

// NewRequirements returns an empty set.
func NewRequirements() *Requirements {
	return &Requirements{
		specifiers: make(map[string]string),
		indexes:    make(map[string]string),
	}
}

// Lookup returns the specifier and index URL declared for pkg, if any.
func (r *Requirements) Lookup(pkg string) (specifier, indexURL string) {
	key := NormalizeName(pkg)
	indexURL = r.indexes[key]
	if indexURL == "" {
		indexURL = r.IndexURL
	}
	return r.specifiers[key], indexURL
}

// Len returns the number of packages with a declared specifier.
func (r *Requirements) Len() int {
	return len(r.specifiers)
}

// Merge copies entries of other that r does not declare yet.
func (r *Requirements) Merge(other *Requirements) {
	for name, specifier := range other.specifiers {
		if _, ok := r.specifiers[name]; !ok {
			r.specifiers[name] = specifier
		}
	}
	for name, url := range other.indexes {
		if _, ok := r.indexes[name]; !ok {
			r.indexes[name] = url
		}
	}
	if r.IndexURL == "" {
		r.IndexURL = other.IndexURL
	}
}

func (r *Requirements) set(name, specifier string) {
	r.specifiers[NormalizeName(name)] = strings.ReplaceAll(specifier, " ", "")
}

var nameSeparators = regexp.MustCompile(`[-_.]+`)

// NormalizeName folds a distribution name the way package indexes compare them.
func NormalizeName(name string) string {
	return nameSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// ParseRequirementsTxt reads a pip requirements file. Lines that reference
// other files, editable installs or direct URLs are ignored.
func ParseRequirementsTxt(data []byte) *Requirements {
	reqs := NewRequirements()
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "-") {
			if url, ok := indexOption(line); ok {
				reqs.IndexURL = url
			}
			continue
		}
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if strings.Contains(line, "@") || strings.Contains(line, "://") {
			continue
		}

		name, specifier := splitRequirement(line)
		if name != "" {
			reqs.set(name, specifier)
		}
	}
	return reqs
}

func indexOption(line string) (string, bool) {
	for _, flag := range []string{"--index-url", "-i"} {
		if !strings.HasPrefix(line, flag) {
			continue
		}
		rest := strings.TrimPrefix(line, flag)
		if rest != "" && rest[0] != '=' && rest[0] != ' ' && rest[0] != '\t' {
			continue
		}
		return strings.TrimSpace(strings.TrimPrefix(rest, "=")), true
	}
	return "", false
}

// splitRequirement separates "requests[security] >= 2.0" into its name and
// specifier, dropping extras.
func splitRequirement(line string) (string, string) {
	i := strings.IndexAny(line, "<>=!~")
	if i < 0 {
		i = len(line)
	}
	name, specifier := line[:i], line[i:]
	if j := strings.IndexByte(name, '['); j >= 0 {
		name = name[:j]
	}
	return strings.TrimSpace(name), strings.TrimSpace(specifier)
}

type pipfileSource struct {
	Name      string `toml:"name"`
	URL       string `toml:"url"`
	VerifySSL bool   `toml:"verify_ssl"`
}

type pipfile struct {
	Source      []pipfileSource `toml:"source"`
	Packages    map[string]any  `toml:"packages"`
	DevPackages map[string]any  `toml:"dev-packages"`
}

// ParsePipfile reads a Pipfile. Package entries are either a version string
// or a table with "version" and "index" keys naming a [[source]].
func ParsePipfile(data []byte) (*Requirements, error) {
	var pf pipfile
	if err := toml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing Pipfile: %w", err)
	}

	reqs := NewRequirements()
	sources := make(map[string]string)
	for _, s := range pf.Source {
		if s.Name != "" && s.URL != "" {
			sources[s.Name] = s.URL
		}
	}
	reqs.IndexURL = sources[defaultSourceName]
	for _, group := range []map[string]any{pf.Packages, pf.DevPackages} {
		for name, info := range group {
			version, index := pipfileEntry(info)
			if version == "*" {
				version = ""
			}
			reqs.set(name, version)
			if index == "" || index == defaultSourceName {
				continue
			}
			url, ok := sources[index]
			if !ok {
				url = DefaultIndexURL
			}
			reqs.indexes[NormalizeName(name)] = url
		}
	}
	return reqs, nil
}

func pipfileEntry(info any) (version, index string) {
	switch v := info.(type) {
	case string:
		return v, ""
	case map[string]any:
		version, _ = v["version"].(string)
		index, _ = v["index"].(string)
		return version, index
	default:
		return "", ""
	}
}

// LoadProject reads requirements.txt and Pipfile from the project root.
// Requirements files take precedence over the Pipfile. Missing files are not
// an error.
func LoadProject(ctx context.Context, fs vfs.FileSystem, root string) (*Requirements, error) {
	reqs := NewRequirements()

	data, err := fs.Open(ctx, filepath.Join(root, "requirements.txt"))
	switch {
	case err == nil:
		reqs.Merge(ParseRequirementsTxt(data))
	case !errors.Is(err, vfs.ErrNotExist):
		return nil, err
	}

	data, err = fs.Open(ctx, filepath.Join(root, "Pipfile"))
	switch {
	case err == nil:
		pf, err := ParsePipfile(data)
		if err != nil {
			return nil, err
		}
		reqs.Merge(pf)
	case !errors.Is(err, vfs.ErrNotExist):
		return nil, err
	}
	return reqs, nil
}
