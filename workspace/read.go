package workspace

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"
	"time"

	"github.com/lexandro/sandboxfs-mcp/edit"
	"github.com/lexandro/sandboxfs-mcp/fserr"
)

// ReadRequest selects a file and optionally a line range ("N" or "N-M").
type ReadRequest struct {
	Path  string
	Lines string
}

// ReadResult is the content returned to the caller. Checksum covers exactly
// Content; FileChecksum covers the whole file and is what writes verify.
type ReadResult struct {
	VirtualPath  string
	RequestedAs  string // set when the path was auto-resolved from a bare name
	Content      string
	Checksum     string
	FileChecksum string
	TotalLines   int
	Range        *edit.LineRange // nil for whole-file reads
	SizeBytes    int64
	ModTime      time.Time
}

// Read returns a text file or a line range of it. A bare file name that does
// not exist is looked up across every mount and read when it is unique.
func (w *Workspace) Read(ctx context.Context, req ReadRequest) (ReadResult, error) {
	resolved, err := w.Resolve(req.Path)
	if err == nil && resolved.IsRoot {
		return ReadResult{}, fserr.IsDirectory("/")
	}

	requestedAs := ""
	if isBareName(req.Path) && needsAutoResolve(resolved.AbsolutePath, err) {
		virtualPath, resolveErr := w.autoResolve(ctx, strings.TrimSpace(req.Path))
		if resolveErr != nil {
			return ReadResult{}, resolveErr
		}
		resolved, err = w.Resolve(virtualPath)
		requestedAs = req.Path
	}
	if err != nil {
		return ReadResult{}, err
	}

	data, info, err := w.readTextFile(resolved)
	if err != nil {
		return ReadResult{}, err
	}
	content := string(data)

	result := ReadResult{
		VirtualPath:  resolved.VirtualPath,
		RequestedAs:  requestedAs,
		Content:      content,
		FileChecksum: edit.Checksum(data),
		TotalLines:   edit.LineCount(content),
		SizeBytes:    info.Size(),
		ModTime:      info.ModTime(),
	}
	result.Checksum = result.FileChecksum

	if strings.TrimSpace(req.Lines) != "" {
		r, err := edit.ParseLineRange(req.Lines)
		if err != nil {
			return ReadResult{}, err
		}
		excerpt, err := edit.ExtractLines(content, r)
		if err != nil {
			return ReadResult{}, err
		}
		r.End = min(r.End, result.TotalLines)
		result.Range = &r
		result.Content = excerpt
		result.Checksum = edit.ChecksumString(excerpt)
	}
	return result, nil
}

func isBareName(p string) bool {
	p = strings.TrimSpace(p)
	return p != "" && p != "." && !strings.ContainsAny(p, `/\:`)
}

// needsAutoResolve is true when a bare name either named no mount (multi
// mount) or named a file that does not exist (single mount alias).
func needsAutoResolve(absolutePath string, resolveErr error) bool {
	if resolveErr != nil {
		return fserr.CodeOf(resolveErr) == fserr.CodeOutOfScope
	}
	_, statErr := os.Stat(absolutePath)
	return errors.Is(statErr, os.ErrNotExist)
}

// autoResolve finds the single file called name across all mounts.
func (w *Workspace) autoResolve(ctx context.Context, name string) (string, error) {
	var candidates []string
	var suggestions []string
	for _, m := range w.resolver.Mounts() {
		outcome, err := w.indexes.TryAutoResolve(ctx, m.AbsolutePath, name, w.indexOptionsFor(m))
		if err != nil {
			return "", indexError(m.Name, err)
		}
		for _, match := range outcome.Matches {
			candidates = append(candidates, joinVirtual(m.Name, match.RelativePath))
		}
		for _, s := range outcome.Suggestions {
			suggestions = append(suggestions, joinVirtual(m.Name, s))
		}
	}

	switch len(candidates) {
	case 0:
		if len(suggestions) > 5 {
			suggestions = suggestions[:5]
		}
		return "", fserr.NotFound(name, suggestions)
	case 1:
		w.logger.Debug("auto-resolved file name", "name", name, "path", candidates[0])
		return candidates[0], nil
	default:
		return "", fserr.Ambiguous(name, name+" matches more than one file", candidates)
	}
}

// ListRequest selects a directory to list.
type ListRequest struct {
	Path      string
	Recursive bool
	Limit     int
}

// ListEntry is one listed file, directory or mount.
type ListEntry struct {
	VirtualPath string
	Name        string
	IsDirectory bool
	IsMount     bool
	SizeBytes   int64
	ModTime     time.Time
}

// ListResult holds the listed entries.
type ListResult struct {
	VirtualPath string
	Entries     []ListEntry
	Truncated   bool
}

// List lists a directory from its mount's index, so ignore rules apply. The
// root always lists one entry per mount.
func (w *Workspace) List(ctx context.Context, req ListRequest) (ListResult, error) {
	resolved, err := w.Resolve(req.Path)
	if err != nil {
		return ListResult{}, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = w.options.ListLimit
	}

	if resolved.IsRoot {
		result := ListResult{VirtualPath: "/"}
		for _, m := range w.resolver.Mounts() {
			entry := ListEntry{VirtualPath: m.Name, Name: m.Name, IsDirectory: true, IsMount: true}
			if info, err := os.Stat(m.AbsolutePath); err == nil {
				entry.ModTime = info.ModTime()
			}
			result.Entries = append(result.Entries, entry)
		}
		return result, nil
	}

	info, err := os.Stat(resolved.AbsolutePath)
	if err != nil {
		return ListResult{}, fserr.FromOS("stat", resolved.VirtualPath, err)
	}
	if !info.IsDir() {
		return ListResult{}, fserr.NotDirectory(resolved.VirtualPath)
	}

	idx, err := w.indexes.GetOrBuild(ctx, resolved.Mount.AbsolutePath, w.indexOptionsFor(resolved.Mount))
	if err != nil {
		return ListResult{}, indexError(resolved.VirtualPath, err)
	}

	result := ListResult{VirtualPath: resolved.VirtualPath}
	prefix := ""
	if resolved.RelativePath != "" {
		prefix = resolved.RelativePath + "/"
	}
	for _, entry := range idx.Entries {
		if !strings.HasPrefix(entry.RelativePath, prefix) {
			continue
		}
		if !req.Recursive && path.Dir(entry.RelativePath) != strings.TrimSuffix(prefixDir(prefix), "/") {
			continue
		}
		if len(result.Entries) >= limit {
			result.Truncated = true
			break
		}
		result.Entries = append(result.Entries, ListEntry{
			VirtualPath: joinVirtual(resolved.Mount.Name, entry.RelativePath),
			Name:        entry.FileName,
			IsDirectory: entry.IsDirectory,
			SizeBytes:   entry.SizeBytes,
			ModTime:     entry.ModTime,
		})
	}
	return result, nil
}

// prefixDir maps the listing prefix to what path.Dir reports for a direct
// child: "." at the mount root.
func prefixDir(prefix string) string {
	if prefix == "" {
		return "."
	}
	return prefix
}

func indexError(where string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fserr.Cancelled(err)
	}
	if _, ok := fserr.As(err); ok {
		return err
	}
	return fserr.IO("index", where, err)
}
