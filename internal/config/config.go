package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for pyresolve
type Config struct {
	// PythonPath is the root of the standard library installation to index
	PythonPath string `yaml:"python_path" env:"PYRESOLVE_PYTHON_PATH"`

	// CacheRoot is the parent directory of every per-workspace dependency cache
	CacheRoot string `yaml:"cache_root" env:"PYRESOLVE_CACHE_ROOT"`

	// StdlibRepoURL identifies the workspace that is the standard library itself
	StdlibRepoURL string `yaml:"stdlib_repo_url" env:"PYRESOLVE_STDLIB_REPO_URL"`

	// Fetch settings
	FetchTool    string        `yaml:"fetch_tool" env:"PYRESOLVE_FETCH_TOOL"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" env:"PYRESOLVE_FETCH_TIMEOUT"`
	IndexURL     string        `yaml:"index_url" env:"PYRESOLVE_INDEX_URL"`

	// Source content cache bounds
	FileCacheEntries int   `yaml:"file_cache_entries" env:"PYRESOLVE_FILE_CACHE_ENTRIES"`
	FileCacheBytes   int64 `yaml:"file_cache_bytes" env:"PYRESOLVE_FILE_CACHE_BYTES"`

	// NativeModules are compiled into the interpreter and have no source
	NativeModules []string `yaml:"native_modules"`

	// SkipSelfNamespace lists top-level names whose stdlib check is skipped
	// when the workspace itself provides them.
	SkipSelfNamespace []string `yaml:"skip_self_namespace"`

	// Socket path for IPC communication
	SocketPath string `yaml:"socket_path" env:"PYRESOLVE_SOCKET_PATH"`

	// Watch invalidates cached project sources on change
	Watch bool `yaml:"watch" env:"PYRESOLVE_WATCH"`

	// Logging
	Verbose  bool `yaml:"verbose" env:"PYRESOLVE_VERBOSE"`
	JSONLogs bool `yaml:"json_logs" env:"PYRESOLVE_JSON_LOGS"`
}

// DefaultNativeModules mirrors sys.builtin_module_names of a CPython 3.6 build,
// plus "nt" which is absent on non-Windows hosts.
var DefaultNativeModules = []string{
	"_ast", "_bisect", "_blake2", "_codecs", "_collections", "_datetime",
	"_elementtree", "_functools", "_heapq", "_imp", "_io", "_locale",
	"_md5", "_operator", "_pickle", "_posixsubprocess", "_random",
	"_sha1", "_sha256", "_sha3", "_sha512", "_signal", "_socket", "_sre",
	"_stat", "_string", "_struct", "_symtable", "_thread", "_tracemalloc",
	"_warnings", "_weakref", "array", "atexit", "binascii", "builtins",
	"cmath", "errno", "faulthandler", "fcntl", "gc", "grp", "itertools",
	"marshal", "math", "nt", "posix", "pwd", "pyexpat", "select",
	"spwd", "sys", "syslog", "time", "unicodedata", "xxsubtype", "zipimport",
	"zlib",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PythonPath:       "/usr/local/lib/python3.6",
		CacheRoot:        "python-langserver-cache",
		StdlibRepoURL:    "git://github.com/python/cpython",
		FetchTool:        "pip3",
		FetchTimeout:     5 * time.Minute,
		IndexURL:         "",
		FileCacheEntries: 4096,
		FileCacheBytes:   64 << 20,
		NativeModules:    append([]string(nil), DefaultNativeModules...),
		SocketPath:       "/tmp/pyresolve.sock",
		Watch:            false,
		Verbose:          false,
	}
}

// globalConfigFilePath returns the global config file path (~/.pyresolve/config.yaml)
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pyresolve/config.yaml"
	}
	return filepath.Join(home, ".pyresolve", "config.yaml")
}

// ProjectConfigFilePath returns the project-level config file path (./.pyresolve/config.yaml)
func ProjectConfigFilePath() string {
	return filepath.Join(".pyresolve", "config.yaml")
}

// GlobalConfigFilePath is exported for the init wizard.
func GlobalConfigFilePath() string {
	return globalConfigFilePath()
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.pyresolve/config.yaml)
// 3. Global config (~/.pyresolve/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{globalConfigFilePath(), ProjectConfigFilePath()} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PYRESOLVE_PYTHON_PATH"); v != "" {
		cfg.PythonPath = v
	}
	if v := os.Getenv("PYRESOLVE_CACHE_ROOT"); v != "" {
		cfg.CacheRoot = v
	}
	if v := os.Getenv("PYRESOLVE_STDLIB_REPO_URL"); v != "" {
		cfg.StdlibRepoURL = v
	}
	if v := os.Getenv("PYRESOLVE_FETCH_TOOL"); v != "" {
		cfg.FetchTool = v
	}
	if v := os.Getenv("PYRESOLVE_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.FetchTimeout = d
		}
	}
	if v := os.Getenv("PYRESOLVE_INDEX_URL"); v != "" {
		cfg.IndexURL = v
	}
	if v := os.Getenv("PYRESOLVE_FILE_CACHE_ENTRIES"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.FileCacheEntries = i
		}
	}
	if v := os.Getenv("PYRESOLVE_FILE_CACHE_BYTES"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.FileCacheBytes = int64(i)
		}
	}
	if v := os.Getenv("PYRESOLVE_SOCKET_PATH"); v != "" {
		cfg.SocketPath = v
	}
	if v := os.Getenv("PYRESOLVE_WATCH"); v != "" {
		cfg.Watch = parseBool(v)
	}
	if v := os.Getenv("PYRESOLVE_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
	if v := os.Getenv("PYRESOLVE_JSON_LOGS"); v != "" {
		cfg.JSONLogs = parseBool(v)
	}
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if c.PythonPath == "" {
		return fmt.Errorf("python_path is required")
	}
	if c.CacheRoot == "" {
		return fmt.Errorf("cache_root is required")
	}
	if c.FetchTool == "" {
		return fmt.Errorf("fetch_tool is required")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive")
	}
	if c.FileCacheEntries < 0 {
		return fmt.Errorf("file_cache_entries must be non-negative")
	}
	if c.FileCacheBytes < 0 {
		return fmt.Errorf("file_cache_bytes must be non-negative")
	}
	if c.IndexURL != "" && !strings.HasPrefix(c.IndexURL, "http://") && !strings.HasPrefix(c.IndexURL, "https://") {
		return fmt.Errorf("index_url must be an http(s) URL: %s", c.IndexURL)
	}
	return nil
}

// IsStdlibRepo reports whether repo names the standard library repository.
func (c *Config) IsStdlibRepo(repo string) bool {
	return repo != "" && repo == c.StdlibRepoURL
}

func parseBool(v string) bool {
	return v == "true" || v == "1" || v == "yes"
}

// parseInt attempts to parse a string as int
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}
