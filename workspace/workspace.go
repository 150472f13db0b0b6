// Package workspace carries out the read, search and write requests made
// against the sandboxed mounts. Every request resolves its virtual path and
// validates symlinks before touching the filesystem.
package workspace

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/lexandro/sandboxfs-mcp/fserr"
	"github.com/lexandro/sandboxfs-mcp/index"
	"github.com/lexandro/sandboxfs-mcp/language"
	"github.com/lexandro/sandboxfs-mcp/pattern"
	"github.com/lexandro/sandboxfs-mcp/vpath"
)

// Defaults for Options.
const (
	DefaultMaxFileSizeBytes = 10 * 1024 * 1024
	DefaultListLimit        = 1000
	DefaultBatchSize        = 10
	DefaultMaxSearchFiles   = 2000
	DefaultMaxSearchMatches = 500
	DefaultContextLines     = 2
)

// SearchLimits bound a content search.
type SearchLimits struct {
	BatchSize      int // files read concurrently per batch
	MaxFiles       int
	MaxMatches     int
	ContextLines   int
	PatternTimeout time.Duration
}

// Options configure a Workspace.
type Options struct {
	Mounts           []vpath.Mount
	Index            index.BuildOptions
	Cache            index.CacheOptions
	Search           SearchLimits
	MaxFileSizeBytes int64 // reads and edits refuse larger files
	MaxResults       int   // default cap for find
	ListLimit        int
	Logger           *slog.Logger
}

// Workspace is the entry point for sandboxed file operations. It is safe for
// concurrent use; the index cache is the only shared mutable state.
type Workspace struct {
	resolver *vpath.Resolver
	indexes  *index.Cache
	patterns *pattern.Cache
	options  Options
	logger   *slog.Logger
}

// New validates the mounts and creates a workspace with an empty cache.
func New(options Options) (*Workspace, error) {
	resolver, err := vpath.NewResolver(options.Mounts)
	if err != nil {
		return nil, err
	}
	for _, m := range resolver.Mounts() {
		info, err := os.Stat(m.AbsolutePath)
		if err != nil {
			return nil, fmt.Errorf("mount %q: %w", m.Name, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("mount %q: %s is not a directory", m.Name, m.AbsolutePath)
		}
	}

	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	if options.MaxFileSizeBytes <= 0 {
		options.MaxFileSizeBytes = DefaultMaxFileSizeBytes
	}
	if options.MaxResults <= 0 {
		options.MaxResults = index.DefaultMaxResults
	}
	if options.ListLimit <= 0 {
		options.ListLimit = DefaultListLimit
	}
	if options.Search.BatchSize <= 0 {
		options.Search.BatchSize = DefaultBatchSize
	}
	if options.Search.MaxFiles <= 0 {
		options.Search.MaxFiles = DefaultMaxSearchFiles
	}
	if options.Search.MaxMatches <= 0 {
		options.Search.MaxMatches = DefaultMaxSearchMatches
	}
	if options.Search.ContextLines < 0 {
		options.Search.ContextLines = 0
	}
	if options.Search.PatternTimeout <= 0 {
		options.Search.PatternTimeout = pattern.DefaultTimeout
	}
	if options.Index.Logger == nil {
		options.Index.Logger = options.Logger
	}
	if options.Cache.Logger == nil {
		options.Cache.Logger = options.Logger
	}

	return &Workspace{
		resolver: resolver,
		indexes:  index.NewCache(options.Cache),
		patterns: pattern.NewCache(pattern.DefaultCacheCapacity),
		options:  options,
		logger:   options.Logger,
	}, nil
}

// Mounts returns the configured mounts in configuration order.
func (w *Workspace) Mounts() []vpath.Mount {
	return w.resolver.Mounts()
}

// Indexes exposes the index cache for invalidation by the watcher.
func (w *Workspace) Indexes() *index.Cache {
	return w.indexes
}

// IndexOptions returns the build options applied to every index.
func (w *Workspace) IndexOptions() index.BuildOptions {
	return w.options.Index
}

// indexOptionsFor anchors ignore rules at the mount root, so an index built
// for a directory below it honors the mount's ignore files.
func (w *Workspace) indexOptionsFor(mount vpath.Mount) index.BuildOptions {
	options := w.options.Index
	options.IgnoreRoot = mount.AbsolutePath
	return options
}

// Resolve translates virtualPath and validates every existing symlink on the
// way to it. The root sentinel is returned without validation.
func (w *Workspace) Resolve(virtualPath string) (vpath.ResolvedPath, error) {
	resolved, err := w.resolver.Resolve(virtualPath)
	if err != nil {
		return vpath.ResolvedPath{}, err
	}
	if resolved.IsRoot {
		return resolved, nil
	}
	if err := vpath.ValidateSymlinks(resolved.AbsolutePath, resolved.Mount); err != nil {
		return vpath.ResolvedPath{}, err
	}
	return resolved, nil
}

// ToVirtualPath maps a host path back to its virtual form.
func (w *Workspace) ToVirtualPath(absolutePath string) (string, bool) {
	return w.resolver.ToVirtualPath(absolutePath)
}

func joinVirtual(base string, relative string) string {
	if relative == "" {
		return base
	}
	return path.Join(base, relative)
}

// readTextFile loads a regular file, enforcing the size limit and rejecting
// binary content.
func (w *Workspace) readTextFile(resolved vpath.ResolvedPath) ([]byte, fs.FileInfo, error) {
	info, err := os.Stat(resolved.AbsolutePath)
	if err != nil {
		return nil, nil, fserr.FromOS("stat", resolved.VirtualPath, err)
	}
	if info.IsDir() {
		return nil, nil, fserr.IsDirectory(resolved.VirtualPath)
	}
	if info.Size() > w.options.MaxFileSizeBytes {
		return nil, nil, fserr.FileTooLarge(resolved.VirtualPath, info.Size(), w.options.MaxFileSizeBytes)
	}
	data, err := os.ReadFile(resolved.AbsolutePath)
	if err != nil {
		return nil, nil, fserr.FromOS("read", resolved.VirtualPath, err)
	}
	if language.IsBinaryContent(data) {
		return nil, nil, fserr.NotText(resolved.VirtualPath)
	}
	return data, info, nil
}
