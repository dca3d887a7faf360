// Package config loads the per-project configuration from
// <root>/.codeindex/config.jsonc. The file is JSON with comments, validated
// against an embedded JSON Schema before it is decoded.
// Fields left out of the file keep their defaults.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/muhammadmuzzammil1998/jsonc"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/corey/codeindex/internal/ports"
)

// StateDir is the project-local directory holding the index and config.
const StateDir = ".codeindex"

// FileName is the config file name inside StateDir.
const FileName = "config.jsonc"

// Storage backends.
const (
	StorageBbolt = "bbolt"
	StorageJSON  = "json"
)

// ErrInvalidConfig is returned for config files that fail to parse or validate.
var ErrInvalidConfig = errors.New("invalid config")

//go:embed config.schema.json
var schemaJSON []byte

const schemaURL = "mem://schemas/config.schema.json"

var (
	compileOnce sync.Once
	schema      *jsonschema.Schema
	compileErr  error
)

func compiled() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("decode config schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("register config schema: %w", err)
			return
		}
		schema, compileErr = c.Compile(schemaURL)
	})
	return schema, compileErr
}

// Config is the project configuration.
type Config struct {
	Include         []string `json:"include"`
	Exclude         []string `json:"exclude"`
	MaxFileSize     int64    `json:"maxFileSize"`
	Concurrency     int      `json:"concurrency"`
	Storage         string   `json:"storage"`
	GrammarPaths    []string `json:"grammarPaths"`
	WatchDebounceMs int      `json:"watchDebounceMs"`

	// Path is where the config was read from; empty for defaults.
	Path string `json:"-"`
}

// DefaultExclude skips dependency, build and VCS directories.
var DefaultExclude = []string{
	"**/.git/**",
	"**/.hg/**",
	"**/.svn/**",
	"**/" + StateDir + "/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/dist/**",
	"**/build/**",
	"**/target/**",
	"**/__pycache__/**",
	"**/.venv/**",
	"**/.next/**",
	"**/.idea/**",
	"**/.vscode/**",
	"**/*.min.js",
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Include:         []string{"**/*"},
		Exclude:         append([]string(nil), DefaultExclude...),
		MaxFileSize:     1 << 20,
		Concurrency:     0,
		Storage:         StorageBbolt,
		WatchDebounceMs: 100,
	}
}

// PathFor returns the config file path for a project root.
func PathFor(root string) string {
	return filepath.Join(root, StateDir, FileName)
}

// Load reads the project config. A missing file yields Default().
func Load(root string) (*Config, error) {
	path := PathFor(root)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse validates JSONC data and decodes it over the defaults.
func Parse(data []byte) (*Config, error) {
	clean := jsonc.ToJSON(data)

	sch, err := compiled()
	if err != nil {
		return nil, err
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(clean))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := sch.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := Default()
	if err := json.Unmarshal(clean, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, g := range append(append([]string(nil), cfg.Include...), cfg.Exclude...) {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("%w: bad glob %q", ErrInvalidConfig, g)
		}
	}
	return cfg, nil
}

// Workers resolves Concurrency, where 0 means one worker per CPU.
func (c *Config) Workers() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return runtime.NumCPU()
}

// WatchDebounce returns the watcher quiet period.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.WatchDebounceMs) * time.Millisecond
}

// IndexConfig is the part of the config stored with the index.
func (c *Config) IndexConfig() ports.IndexConfig {
	return ports.IndexConfig{
		Include:     append([]string(nil), c.Include...),
		Exclude:     append([]string(nil), c.Exclude...),
		MaxFileSize: c.MaxFileSize,
		Concurrency: c.Concurrency,
	}
}

const template = `// codeindex project configuration (JSON with comments).
{
  // Globs are matched against slash-separated paths relative to the project root.
  "include": ["**/*"],
  // Replaces the default list; keep the entries you still want skipped.
  "exclude": [
%s
  ],
  // Files larger than this many bytes are skipped.
  "maxFileSize": %d,
  // Parse workers; 0 means one per CPU.
  "concurrency": 0,
  // bbolt (index.db) or json (index.json).
  "storage": "bbolt",
  // Extra directories searched for <lang>.so grammar libraries.
  "grammarPaths": [],
  "watchDebounceMs": %d
}
`

// WriteDefault writes a commented default config unless one exists.
// It returns the path and whether a file was written.
func WriteDefault(root string) (string, bool, error) {
	path := PathFor(root)
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", false, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}

	def := Default()
	var excl bytes.Buffer
	for i, g := range def.Exclude {
		if i > 0 {
			excl.WriteString(",\n")
		}
		fmt.Fprintf(&excl, "    %q", g)
	}
	body := fmt.Sprintf(template, excl.String(), def.MaxFileSize, def.WatchDebounceMs)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", false, fmt.Errorf("write %s: %w", path, err)
	}
	return path, true, nil
}
