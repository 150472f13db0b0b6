// Package config loads the server configuration: defaults, then an optional
// TOML file, then command-line overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"

	"github.com/lexandro/sandboxfs-mcp/index"
	"github.com/lexandro/sandboxfs-mcp/pattern"
	"github.com/lexandro/sandboxfs-mcp/vpath"
	"github.com/lexandro/sandboxfs-mcp/workspace"
)

// Duration is a time.Duration written as a string ("30s", "2m") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ByteSize is a size in bytes. It accepts plain integers and human-readable
// strings such as "10MB" or "512 KiB". It doubles as a pflag.Value.
type ByteSize int64

func (b *ByteSize) UnmarshalText(text []byte) error {
	parsed, err := humanize.ParseBytes(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", text, err)
	}
	*b = ByteSize(parsed)
	return nil
}

func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

func (b *ByteSize) Set(value string) error {
	return b.UnmarshalText([]byte(value))
}

func (b *ByteSize) Type() string {
	return "size"
}

// Mount is one [[mount]] table.
type Mount struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// Index is the [index] table.
type Index struct {
	TTL           Duration `toml:"ttl"`
	Capacity      int      `toml:"capacity"`
	MaxDepth      int      `toml:"max_depth"`
	MaxEntries    int      `toml:"max_entries"`
	IncludeHidden bool     `toml:"include_hidden"`
	ExcludeDirs   []string `toml:"exclude_dirs"` // nil keeps the built-in list
	Exclude       []string `toml:"exclude"`
	Watch         bool     `toml:"watch"`
	// RefreshInterval rebuilds expired mount indexes in the background; zero
	// disables it.
	RefreshInterval Duration `toml:"refresh_interval"`
}

// Search is the [search] table.
type Search struct {
	BatchSize      int      `toml:"batch_size"`
	MaxFiles       int      `toml:"max_files"`
	MaxMatches     int      `toml:"max_matches"`
	ClusterLines   int      `toml:"cluster_lines"`
	PatternTimeout Duration `toml:"pattern_timeout"`
}

// Limits is the [limits] table.
type Limits struct {
	MaxFileSize ByteSize `toml:"max_file_size"`
	MaxResults  int      `toml:"max_results"`
	ListLimit   int      `toml:"list_limit"`
}

// Log is the [log] table.
type Log struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Config is the complete server configuration.
type Config struct {
	Mounts []Mount `toml:"mount"`
	Index  Index   `toml:"index"`
	Search Search  `toml:"search"`
	Limits Limits  `toml:"limits"`
	Log    Log     `toml:"log"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Index: Index{
			TTL:        Duration{index.DefaultTTL},
			Capacity:   index.DefaultCapacity,
			MaxDepth:   index.DefaultMaxDepth,
			MaxEntries: index.DefaultMaxEntries,
			Watch:      true,
		},
		Search: Search{
			BatchSize:      workspace.DefaultBatchSize,
			MaxFiles:       workspace.DefaultMaxSearchFiles,
			MaxMatches:     workspace.DefaultMaxSearchMatches,
			ClusterLines:   workspace.DefaultContextLines,
			PatternTimeout: Duration{pattern.DefaultTimeout},
		},
		Limits: Limits{
			MaxFileSize: workspace.DefaultMaxFileSizeBytes,
			MaxResults:  index.DefaultMaxResults,
			ListLimit:   workspace.DefaultListLimit,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads a TOML file over the defaults. Keys absent from the file keep
// their default; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := Decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode decodes TOML data into cfg, keeping the values already set for
// absent keys.
func Decode(data []byte, cfg *Config) error {
	decoder := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown configuration keys:\n%s", strict.String())
		}
		return err
	}
	return nil
}

// ParseMount parses a --mount value: "name=path" or a bare path, which is
// mounted under its base name.
func ParseMount(value string) (Mount, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Mount{}, errors.New("empty mount")
	}
	name, path, found := strings.Cut(value, "=")
	if !found {
		path = value
		name = filepath.Base(filepath.Clean(value))
	}
	name, path = strings.TrimSpace(name), strings.TrimSpace(path)
	if path == "" {
		return Mount{}, fmt.Errorf("mount %q has no path", value)
	}
	return Mount{Name: name, Path: path}, nil
}

// Normalize makes mount paths absolute against cwd and mounts cwd under its
// base name when no mount is configured.
func (c *Config) Normalize(cwd string) {
	if len(c.Mounts) == 0 {
		c.Mounts = []Mount{{Name: filepath.Base(cwd), Path: cwd}}
	}
	for i, m := range c.Mounts {
		if !filepath.IsAbs(m.Path) {
			m.Path = filepath.Join(cwd, m.Path)
		}
		m.Path = filepath.Clean(m.Path)
		if m.Name == "" {
			m.Name = filepath.Base(m.Path)
		}
		c.Mounts[i] = m
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Mounts) == 0 {
		errs = append(errs, errors.New("at least one mount is required"))
	}
	seen := make(map[string]bool, len(c.Mounts))
	for _, m := range c.Mounts {
		switch {
		case m.Name == "" || m.Name == "." || m.Name == ".." || strings.ContainsAny(m.Name, `/\`):
			errs = append(errs, fmt.Errorf("mount name %q must be a single path segment", m.Name))
		case seen[m.Name]:
			errs = append(errs, fmt.Errorf("duplicate mount name %q", m.Name))
		}
		seen[m.Name] = true
		if !filepath.IsAbs(m.Path) || filepath.Clean(m.Path) != m.Path {
			errs = append(errs, fmt.Errorf("mount %q: path %q must be absolute and clean", m.Name, m.Path))
		}
	}

	positive := []struct {
		name  string
		value int64
	}{
		{"index.ttl", int64(c.Index.TTL.Duration)},
		{"index.capacity", int64(c.Index.Capacity)},
		{"index.max_depth", int64(c.Index.MaxDepth)},
		{"index.max_entries", int64(c.Index.MaxEntries)},
		{"search.batch_size", int64(c.Search.BatchSize)},
		{"search.max_files", int64(c.Search.MaxFiles)},
		{"search.max_matches", int64(c.Search.MaxMatches)},
		{"search.pattern_timeout", int64(c.Search.PatternTimeout.Duration)},
		{"limits.max_file_size", int64(c.Limits.MaxFileSize)},
		{"limits.max_results", int64(c.Limits.MaxResults)},
		{"limits.list_limit", int64(c.Limits.ListLimit)},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.name, p.value))
		}
	}
	if c.Index.RefreshInterval.Duration < 0 {
		errs = append(errs, fmt.Errorf("index.refresh_interval must not be negative, got %s", c.Index.RefreshInterval))
	}
	if c.Search.ClusterLines < 0 {
		errs = append(errs, fmt.Errorf("search.cluster_lines must not be negative, got %d", c.Search.ClusterLines))
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	return errors.Join(errs...)
}

// VirtualMounts converts the configured mounts for the resolver.
func (c *Config) VirtualMounts() []vpath.Mount {
	mounts := make([]vpath.Mount, len(c.Mounts))
	for i, m := range c.Mounts {
		mounts[i] = vpath.Mount{Name: m.Name, AbsolutePath: m.Path}
	}
	return mounts
}

// WorkspaceOptions maps the configuration onto workspace options.
func (c *Config) WorkspaceOptions(logger *slog.Logger) workspace.Options {
	return workspace.Options{
		Mounts: c.VirtualMounts(),
		Index: index.BuildOptions{
			MaxDepth:      c.Index.MaxDepth,
			MaxEntries:    c.Index.MaxEntries,
			IncludeHidden: c.Index.IncludeHidden,
			ExcludedDirs:  c.Index.ExcludeDirs,
			ExtraPatterns: c.Index.Exclude,
			Logger:        logger,
		},
		Cache: index.CacheOptions{
			TTL:      c.Index.TTL.Duration,
			Capacity: c.Index.Capacity,
			Logger:   logger,
		},
		Search: workspace.SearchLimits{
			BatchSize:      c.Search.BatchSize,
			MaxFiles:       c.Search.MaxFiles,
			MaxMatches:     c.Search.MaxMatches,
			ContextLines:   c.Search.ClusterLines,
			PatternTimeout: c.Search.PatternTimeout.Duration,
		},
		MaxFileSizeBytes: int64(c.Limits.MaxFileSize),
		MaxResults:       c.Limits.MaxResults,
		ListLimit:        c.Limits.ListLimit,
		Logger:           logger,
	}
}
