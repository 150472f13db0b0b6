package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lexandro/sandboxfs-mcp/ignore"
)

// BuildOptions bound a single index walk.
type BuildOptions struct {
	MaxDepth      int // directories deeper than this are not descended; default 25
	MaxEntries    int // default 100000
	IncludeHidden bool
	ExcludedDirs  []string // nil means ignore.DefaultExcludedDirs
	ExtraPatterns []string
	IgnoreRoot    string // ignore files are read here and rules anchored here; empty means root
	Logger        *slog.Logger
}

// Defaults for BuildOptions.
const (
	DefaultMaxDepth   = 25
	DefaultMaxEntries = 100000
)

func (o BuildOptions) withDefaults() BuildOptions {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

type pendingDir struct {
	absolute string
	relative string
	depth    int
}

// Build performs one full walk of root using an iterative worklist. Symlinked
// directories are listed but not descended, so a walk never leaves root.
func Build(ctx context.Context, root string, options BuildOptions) (*FileIndex, error) {
	options = options.withDefaults()
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat index root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("index root %s is not a directory", root)
	}

	ignoreRoot := root
	if options.IgnoreRoot != "" {
		ignoreRoot = filepath.Clean(options.IgnoreRoot)
	}
	prefix, err := filepath.Rel(ignoreRoot, root)
	if err != nil || prefix == ".." || strings.HasPrefix(prefix, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("index root %s is outside ignore root %s", root, ignoreRoot)
	}
	prefix = filepath.ToSlash(prefix)
	if prefix == "." {
		prefix = ""
	}

	matcher := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:       ignoreRoot,
		ExcludedDirs:  options.ExcludedDirs,
		ExtraPatterns: options.ExtraPatterns,
		IncludeHidden: options.IncludeHidden,
	})

	idx := &FileIndex{Root: root}
	if excludedPrefix(matcher, prefix) {
		// the root itself is ignored: nothing below it is listed
		idx.BuiltAt = time.Now()
		return idx, nil
	}
	queue := []pendingDir{{absolute: root, depth: 0}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir.absolute)
		if err != nil {
			options.Logger.Debug("skipped unreadable directory", "path", dir.absolute, "error", err)
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, entry := range entries {
			relativePath := entry.Name()
			if dir.relative != "" {
				relativePath = path.Join(dir.relative, entry.Name())
			}
			isDir := entry.IsDir()
			isSymlink := entry.Type()&os.ModeSymlink != 0
			if isSymlink {
				if target, err := os.Stat(filepath.Join(dir.absolute, entry.Name())); err == nil {
					isDir = target.IsDir()
				}
			}
			if matcher.Excluded(path.Join(prefix, relativePath), isDir) {
				continue
			}

			var size int64
			var modTime time.Time
			if fileInfo, err := entry.Info(); err == nil {
				modTime = fileInfo.ModTime()
				if !isDir {
					size = fileInfo.Size()
				}
			}

			if len(idx.Entries) >= options.MaxEntries {
				idx.Truncated = true
				queue = nil
				break
			}
			idx.Entries = append(idx.Entries, newIndexedFile(relativePath, isDir, size, modTime))
			if isDir {
				idx.DirCount++
				if !isSymlink && dir.depth+1 < options.MaxDepth {
					queue = append(queue, pendingDir{
						absolute: filepath.Join(dir.absolute, entry.Name()),
						relative: relativePath,
						depth:    dir.depth + 1,
					})
				}
			} else {
				idx.FileCount++
			}
		}
	}

	idx.BuiltAt = time.Now()
	return idx, nil
}

// excludedPrefix reports whether prefix or any directory above it is ignored.
func excludedPrefix(matcher *ignore.Matcher, prefix string) bool {
	if prefix == "" {
		return false
	}
	parts := strings.Split(prefix, "/")
	for i := range parts {
		if matcher.Excluded(strings.Join(parts[:i+1], "/"), true) {
			return true
		}
	}
	return false
}
