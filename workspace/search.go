package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/lexandro/sandboxfs-mcp/fserr"
	"github.com/lexandro/sandboxfs-mcp/index"
	"github.com/lexandro/sandboxfs-mcp/language"
	"github.com/lexandro/sandboxfs-mcp/pattern"
	"github.com/lexandro/sandboxfs-mcp/vpath"
)

// PatternSpec names a pattern and how to interpret it. Preset, when set,
// takes precedence over Pattern and Mode.
type PatternSpec struct {
	Pattern    string
	Mode       string
	Preset     string
	IgnoreCase bool
}

// SearchRequest is a content search of a file or, with Recursive, of every
// indexed file below a directory.
type SearchRequest struct {
	PatternSpec
	Path         string
	Recursive    bool
	Include      string // doublestar glob on the path relative to Path
	ContextLines int    // -1 selects the configured default
	MaxMatches   int
}

// FileMatches holds the matches found in one file.
type FileMatches struct {
	VirtualPath string
	Matches     []pattern.Match
	Clusters    []pattern.Cluster
}

// SearchResult lists matching files in index walk order.
type SearchResult struct {
	Files        []FileMatches
	TotalMatches int
	FilesScanned int
	FilesSkipped int // binary, oversized or unreadable
	Truncated    bool
}

type searchTarget struct {
	absolutePath string
	virtualPath  string
	mount        vpath.Mount
}

type fileOutcome struct {
	matches []pattern.Match
	content string
	skipped bool
}

// compile builds (or reuses) the matcher for spec.
func (w *Workspace) compile(spec PatternSpec) (*pattern.Matcher, error) {
	options := pattern.Options{
		IgnoreCase: spec.IgnoreCase,
		Timeout:    w.options.Search.PatternTimeout,
	}
	if strings.TrimSpace(spec.Preset) != "" {
		return w.patterns.Compile(spec.Preset, pattern.ModePreset, options)
	}
	mode, err := pattern.ParseMode(spec.Mode)
	if err != nil {
		return nil, fserr.InvalidArgument(err.Error(), "use literal, regex or fuzzy")
	}
	return w.patterns.Compile(spec.Pattern, mode, options)
}

// SearchContent finds pattern matches in file content. Files are read in
// fixed-size concurrent batches; cancellation is checked between batches and
// results come back in index walk order regardless of completion order.
func (w *Workspace) SearchContent(ctx context.Context, req SearchRequest) (SearchResult, error) {
	matcher, err := w.compile(req.PatternSpec)
	if err != nil {
		return SearchResult{}, err
	}
	resolved, err := w.Resolve(req.Path)
	if err != nil {
		return SearchResult{}, err
	}

	contextLines := req.ContextLines
	if contextLines < 0 {
		contextLines = w.options.Search.ContextLines
	}
	maxMatches := req.MaxMatches
	if maxMatches <= 0 {
		maxMatches = w.options.Search.MaxMatches
	}
	include := filepath.ToSlash(strings.TrimSpace(req.Include))
	if include != "" && !doublestar.ValidatePattern(include) {
		return SearchResult{}, fserr.InvalidArgument("invalid include glob "+req.Include, "use a doublestar glob such as **/*.md")
	}

	var targets []searchTarget
	var result SearchResult
	if !resolved.IsRoot {
		info, err := os.Stat(resolved.AbsolutePath)
		if err != nil {
			return SearchResult{}, fserr.FromOS("stat", resolved.VirtualPath, err)
		}
		if !info.IsDir() {
			targets = []searchTarget{{absolutePath: resolved.AbsolutePath, virtualPath: resolved.VirtualPath, mount: resolved.Mount}}
		}
	}
	if targets == nil {
		if !req.Recursive {
			return SearchResult{}, fserr.IsDirectory(resolved.VirtualPath)
		}
		targets, result.Truncated, err = w.collectTargets(ctx, w.scopesFor(resolved), include)
		if err != nil {
			return SearchResult{}, err
		}
	}

	outcomes, err := w.scanTargets(ctx, targets, matcher)
	if err != nil {
		return SearchResult{}, err
	}

	for i, outcome := range outcomes {
		if outcome.skipped {
			result.FilesSkipped++
			continue
		}
		result.FilesScanned++
		if len(outcome.matches) == 0 {
			continue
		}
		matches := outcome.matches
		if remaining := maxMatches - result.TotalMatches; len(matches) > remaining {
			matches = matches[:remaining]
			result.Truncated = true
		}
		if len(matches) == 0 {
			continue
		}
		result.TotalMatches += len(matches)
		result.Files = append(result.Files, FileMatches{
			VirtualPath: targets[i].virtualPath,
			Matches:     matches,
			Clusters:    pattern.ClusterMatches(matches, outcome.content, contextLines),
		})
	}

	w.logger.Debug("content search finished",
		"path", resolved.VirtualPath,
		"pattern", matcher.Source,
		"mode", matcher.Mode.String(),
		"files", result.FilesScanned,
		"skipped", result.FilesSkipped,
		"matches", result.TotalMatches,
	)
	return result, nil
}

// collectTargets lists the files of every scope from the index, filtered by
// the include glob and capped at MaxFiles.
func (w *Workspace) collectTargets(ctx context.Context, scopes []scope, include string) ([]searchTarget, bool, error) {
	var targets []searchTarget
	for _, s := range scopes {
		idx, err := w.indexes.GetOrBuild(ctx, s.root, w.indexOptionsFor(s.mount))
		if err != nil {
			return nil, false, indexError(s.virtualBase, err)
		}
		for _, entry := range idx.Files() {
			if !matchesInclude(include, entry) {
				continue
			}
			if len(targets) >= w.options.Search.MaxFiles {
				return targets, true, nil
			}
			targets = append(targets, searchTarget{
				absolutePath: filepath.Join(s.root, filepath.FromSlash(entry.RelativePath)),
				virtualPath:  joinVirtual(s.virtualBase, entry.RelativePath),
				mount:        s.mount,
			})
		}
	}
	return targets, false, nil
}

func matchesInclude(include string, entry index.IndexedFile) bool {
	if include == "" {
		return true
	}
	if ok, err := doublestar.Match(include, entry.RelativePath); err == nil && ok {
		return true
	}
	// a slash-free glob such as *.md also applies to the base name
	if !strings.Contains(include, "/") {
		ok, err := doublestar.Match(include, entry.FileName)
		return err == nil && ok
	}
	return false
}

// scanTargets matches every target, BatchSize files at a time.
func (w *Workspace) scanTargets(ctx context.Context, targets []searchTarget, matcher *pattern.Matcher) ([]fileOutcome, error) {
	outcomes := make([]fileOutcome, len(targets))
	batchSize := w.options.Search.BatchSize

	for start := 0; start < len(targets); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, fserr.Cancelled(err)
		}
		end := min(start+batchSize, len(targets))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(batchSize)
		for i := start; i < end; i++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				outcome, err := w.scanFile(targets[i], matcher)
				if err != nil {
					return err
				}
				outcomes[i] = outcome
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			if ctx.Err() != nil {
				return nil, fserr.Cancelled(ctx.Err())
			}
			return nil, err
		}
	}
	return outcomes, nil
}

// scanFile reads one file and matches it. Files that cannot be searched are
// reported as skipped; only pattern failures abort the search.
func (w *Workspace) scanFile(target searchTarget, matcher *pattern.Matcher) (fileOutcome, error) {
	// index entries may be symlinks; one leaving the mount is never read
	if err := vpath.ValidateSymlinks(target.absolutePath, target.mount); err != nil {
		w.logger.Debug("skipped file outside its mount", "path", target.virtualPath, "error", err)
		return fileOutcome{skipped: true}, nil
	}
	info, err := os.Stat(target.absolutePath)
	if err != nil || info.IsDir() || info.Size() > w.options.MaxFileSizeBytes {
		return fileOutcome{skipped: true}, nil
	}
	data, err := os.ReadFile(target.absolutePath)
	if err != nil {
		w.logger.Debug("skipped unreadable file", "path", target.virtualPath, "error", err)
		return fileOutcome{skipped: true}, nil
	}
	if language.IsBinaryContent(data) {
		return fileOutcome{skipped: true}, nil
	}

	content := string(data)
	matches, err := pattern.FindMatches(content, matcher)
	if err != nil {
		return fileOutcome{}, err
	}
	return fileOutcome{matches: matches, content: content}, nil
}
