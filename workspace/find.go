package workspace

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/lexandro/sandboxfs-mcp/fserr"
	"github.com/lexandro/sandboxfs-mcp/index"
	"github.com/lexandro/sandboxfs-mcp/vpath"
)

// FindRequest is a ranked file-name search below Path (the root searches
// every mount).
type FindRequest struct {
	Path               string
	Query              string
	Glob               string
	IncludeDirectories bool
	MaxResults         int
}

// FoundFile is one ranked hit.
type FoundFile struct {
	VirtualPath string
	Score       float64
	IsDirectory bool
	SizeBytes   int64
	ModTime     time.Time
}

// FindResult lists hits in descending score.
type FindResult struct {
	Files     []FoundFile
	Total     int // matches before MaxResults
	Truncated bool
}

// scope is one index root taking part in a request.
type scope struct {
	mount        vpath.Mount
	root         string // absolute index root
	virtualBase  string
	relativeBase string
}

// scopesFor expands the root sentinel into one scope per mount.
func (w *Workspace) scopesFor(resolved vpath.ResolvedPath) []scope {
	if resolved.IsRoot {
		var scopes []scope
		for _, m := range w.resolver.Mounts() {
			scopes = append(scopes, scope{mount: m, root: m.AbsolutePath, virtualBase: m.Name})
		}
		return scopes
	}
	return []scope{{
		mount:        resolved.Mount,
		root:         resolved.AbsolutePath,
		virtualBase:  resolved.VirtualPath,
		relativeBase: resolved.RelativePath,
	}}
}

// FindFiles ranks file names against a fuzzy query.
func (w *Workspace) FindFiles(ctx context.Context, req FindRequest) (FindResult, error) {
	resolved, err := w.Resolve(req.Path)
	if err != nil {
		return FindResult{}, err
	}
	if !resolved.IsRoot {
		if err := requireDirectory(resolved); err != nil {
			return FindResult{}, err
		}
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = w.options.MaxResults
	}
	findOptions := index.FindOptions{
		MaxResults:         maxResults,
		Glob:               req.Glob,
		IncludeDirectories: req.IncludeDirectories,
	}

	var result FindResult
	for _, s := range w.scopesFor(resolved) {
		if err := ctx.Err(); err != nil {
			return FindResult{}, fserr.Cancelled(err)
		}
		idx, err := w.indexes.GetOrBuild(ctx, s.root, w.indexOptionsFor(s.mount))
		if err != nil {
			return FindResult{}, indexError(s.virtualBase, err)
		}
		found, err := index.Search(idx, req.Query, findOptions)
		if err != nil {
			return FindResult{}, fserr.InvalidArgument(err.Error(), "use a doublestar glob such as **/*.go")
		}
		result.Total += found.Total
		for _, m := range found.Matches {
			result.Files = append(result.Files, FoundFile{
				VirtualPath: joinVirtual(s.virtualBase, m.File.RelativePath),
				Score:       m.Score,
				IsDirectory: m.File.IsDirectory,
				SizeBytes:   m.File.SizeBytes,
				ModTime:     m.File.ModTime,
			})
		}
	}

	// mounts were searched in configuration order; merge by score keeping it
	sort.SliceStable(result.Files, func(i, j int) bool { return result.Files[i].Score > result.Files[j].Score })
	if len(result.Files) > maxResults {
		result.Files = result.Files[:maxResults]
	}
	result.Truncated = result.Total > len(result.Files)
	return result, nil
}

func requireDirectory(resolved vpath.ResolvedPath) error {
	info, err := os.Stat(resolved.AbsolutePath)
	if err != nil {
		return fserr.FromOS("stat", resolved.VirtualPath, err)
	}
	if !info.IsDir() {
		return fserr.NotDirectory(resolved.VirtualPath)
	}
	return nil
}

// ReindexResult reports the rebuilt index roots.
type ReindexResult struct {
	Roots   []index.EntryInfo
	Elapsed time.Duration
}

// Reindex forces a rebuild of the index under path (every mount for the
// root).
func (w *Workspace) Reindex(ctx context.Context, virtualPath string) (ReindexResult, error) {
	resolved, err := w.Resolve(virtualPath)
	if err != nil {
		return ReindexResult{}, err
	}
	if resolved.IsRoot {
		w.indexes.InvalidateAll()
	} else {
		if err := requireDirectory(resolved); err != nil {
			return ReindexResult{}, err
		}
		// nested roots built for finds below this directory are stale too
		w.indexes.InvalidatePath(resolved.AbsolutePath)
	}

	start := time.Now()
	var result ReindexResult
	for _, s := range w.scopesFor(resolved) {
		idx, err := w.indexes.Rebuild(ctx, s.root, w.indexOptionsFor(s.mount))
		if err != nil {
			return ReindexResult{}, indexError(s.virtualBase, err)
		}
		result.Roots = append(result.Roots, index.EntryInfo{
			Root:      s.virtualBase,
			BuiltAt:   idx.BuiltAt,
			FileCount: idx.FileCount,
			DirCount:  idx.DirCount,
			Truncated: idx.Truncated,
			State:     index.StateFresh,
		})
	}
	result.Elapsed = time.Since(start)
	w.logger.Debug("reindexed", "path", resolved.VirtualPath, "roots", len(result.Roots), "elapsed", result.Elapsed)
	return result, nil
}

// MountStatus describes one mount.
type MountStatus struct {
	Name         string
	AbsolutePath string
	Available    bool
}

// Status is a snapshot of the workspace configuration and cache.
type Status struct {
	Mounts           []MountStatus
	CachedIndexes    []index.EntryInfo // Root rewritten to a virtual path when possible
	CacheTTL         time.Duration
	MaxFileSizeBytes int64
	Search           SearchLimits
}

// Status reports mounts and cached index generations.
func (w *Workspace) Status() Status {
	status := Status{
		CacheTTL:         w.indexes.TTL(),
		MaxFileSizeBytes: w.options.MaxFileSizeBytes,
		Search:           w.options.Search,
	}
	for _, m := range w.resolver.Mounts() {
		info, err := os.Stat(m.AbsolutePath)
		status.Mounts = append(status.Mounts, MountStatus{
			Name:         m.Name,
			AbsolutePath: m.AbsolutePath,
			Available:    err == nil && info.IsDir(),
		})
	}
	for _, entry := range w.indexes.Entries() {
		if virtual, ok := w.resolver.ToVirtualPath(entry.Root); ok {
			entry.Root = virtual
		}
		status.CachedIndexes = append(status.CachedIndexes, entry)
	}
	sort.SliceStable(status.CachedIndexes, func(i, j int) bool {
		return strings.Compare(status.CachedIndexes[i].Root, status.CachedIndexes[j].Root) < 0
	})
	return status
}
