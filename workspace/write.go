package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lexandro/sandboxfs-mcp/diff"
	"github.com/lexandro/sandboxfs-mcp/edit"
	"github.com/lexandro/sandboxfs-mcp/fserr"
	"github.com/lexandro/sandboxfs-mcp/pattern"
	"github.com/lexandro/sandboxfs-mcp/vpath"
)

// EditRequest applies one line-range action to a file.
type EditRequest struct {
	Path             string
	Lines            string // "N" or "N-M"
	Action           string // replace, insert_before, insert_after, delete_lines
	Content          string
	ExpectedChecksum string
	DryRun           bool
}

// ReplaceRequest substitutes pattern matches in a file. Without ReplaceAll the
// pattern must occur exactly once.
type ReplaceRequest struct {
	PatternSpec
	Path             string
	Replacement      string
	ReplaceAll       bool
	ExpectedChecksum string
	DryRun           bool
}

// WriteRequest creates a file or replaces its whole content.
type WriteRequest struct {
	Path             string
	Content          string
	ExpectedChecksum string
	Overwrite        bool
	DryRun           bool
}

// EditResult describes a change. NewChecksum is empty for dry runs.
type EditResult struct {
	VirtualPath  string
	Diff         string
	Added        int
	Removed      int
	OldChecksum  string
	NewChecksum  string
	LineCount    int
	Replacements int
	Created      bool
	DryRun       bool
}

// EditLines applies a line edit after verifying the expected checksum.
func (w *Workspace) EditLines(ctx context.Context, req EditRequest) (EditResult, error) {
	r, err := edit.ParseLineRange(req.Lines)
	if err != nil {
		return EditResult{}, err
	}
	action, err := edit.ParseAction(req.Action)
	if err != nil {
		return EditResult{}, err
	}
	resolved, data, info, err := w.loadForWrite(req.Path, req.ExpectedChecksum)
	if err != nil {
		return EditResult{}, err
	}

	updated, err := edit.ApplyLineEdit(string(data), r, action, req.Content)
	if err != nil {
		return EditResult{}, err
	}
	result, err := w.commit(ctx, resolved, data, updated, info.Mode().Perm(), req.DryRun)
	if err != nil {
		return EditResult{}, err
	}
	w.logger.Debug("edited lines",
		"path", resolved.VirtualPath, "range", r.String(), "action", action.String(),
		"added", result.Added, "removed", result.Removed, "dry_run", req.DryRun,
	)
	return result, nil
}

// ReplacePattern substitutes a unique match (or every match, up to the
// matcher's limit, with ReplaceAll).
func (w *Workspace) ReplacePattern(ctx context.Context, req ReplaceRequest) (EditResult, error) {
	matcher, err := w.compile(req.PatternSpec)
	if err != nil {
		return EditResult{}, err
	}
	resolved, data, info, err := w.loadForWrite(req.Path, req.ExpectedChecksum)
	if err != nil {
		return EditResult{}, err
	}
	content := string(data)

	count := 1
	replacements := 1
	if req.ReplaceAll {
		n, err := pattern.CountMatches(content, matcher, matcher.MaxMatches())
		if err != nil {
			return EditResult{}, err
		}
		if n == 0 {
			return EditResult{}, fserr.PatternNotFound(resolved.VirtualPath, matcher.Source)
		}
		count, replacements = n, n
	} else {
		unique, err := pattern.FindUniqueMatch(content, matcher)
		if err != nil {
			return EditResult{}, err
		}
		switch unique.Status {
		case pattern.UniqueNotFound:
			return EditResult{}, fserr.PatternNotFound(resolved.VirtualPath, matcher.Source)
		case pattern.UniqueMultiple:
			candidates := make([]string, 0, len(unique.Lines))
			for _, line := range unique.Lines {
				candidates = append(candidates, fmt.Sprintf("line %d", line))
			}
			return EditResult{}, fserr.Ambiguous(resolved.VirtualPath,
				fmt.Sprintf("pattern %q matches %d times in %s", matcher.Source, len(unique.Matches), resolved.VirtualPath),
				candidates)
		}
	}

	updated, err := matcher.Replace(content, req.Replacement, count)
	if err != nil {
		return EditResult{}, err
	}
	result, err := w.commit(ctx, resolved, data, updated, info.Mode().Perm(), req.DryRun)
	if err != nil {
		return EditResult{}, err
	}
	result.Replacements = replacements
	w.logger.Debug("replaced pattern",
		"path", resolved.VirtualPath, "mode", matcher.Mode.String(),
		"replacements", replacements, "dry_run", req.DryRun,
	)
	return result, nil
}

// WriteFile creates a file, or replaces an existing one when the caller
// proves it saw the current content (ExpectedChecksum) or sets Overwrite.
func (w *Workspace) WriteFile(ctx context.Context, req WriteRequest) (EditResult, error) {
	resolved, err := w.Resolve(req.Path)
	if err != nil {
		return EditResult{}, err
	}
	if resolved.IsRoot || resolved.RelativePath == "" {
		return EditResult{}, fserr.IsDirectory(resolved.VirtualPath)
	}
	if int64(len(req.Content)) > w.options.MaxFileSizeBytes {
		return EditResult{}, fserr.FileTooLarge(resolved.VirtualPath, int64(len(req.Content)), w.options.MaxFileSizeBytes)
	}

	var old []byte
	mode := fs.FileMode(0o644)
	created := false
	if _, statErr := os.Lstat(resolved.AbsolutePath); errors.Is(statErr, fs.ErrNotExist) {
		created = true
	} else {
		data, info, err := w.readTextFile(resolved)
		if err != nil {
			return EditResult{}, err
		}
		if strings.TrimSpace(req.ExpectedChecksum) == "" && !req.Overwrite {
			return EditResult{}, fserr.AlreadyExists(resolved.VirtualPath)
		}
		if err := verifyChecksum(resolved.VirtualPath, data, req.ExpectedChecksum); err != nil {
			return EditResult{}, err
		}
		old, mode = data, info.Mode().Perm()
	}

	if created && !req.DryRun {
		if err := w.makeParents(resolved); err != nil {
			return EditResult{}, err
		}
	}
	result, err := w.commit(ctx, resolved, old, edit.EnsureTrailingNewline(req.Content), mode, req.DryRun)
	if err != nil {
		return EditResult{}, err
	}
	result.Created = created
	w.logger.Debug("wrote file",
		"path", resolved.VirtualPath, "created", created,
		"lines", result.LineCount, "dry_run", req.DryRun,
	)
	return result, nil
}

// loadForWrite resolves an existing text file and checks the caller's
// checksum against its current content.
func (w *Workspace) loadForWrite(virtualPath string, expected string) (vpath.ResolvedPath, []byte, fs.FileInfo, error) {
	resolved, err := w.Resolve(virtualPath)
	if err != nil {
		return vpath.ResolvedPath{}, nil, nil, err
	}
	if resolved.IsRoot {
		return vpath.ResolvedPath{}, nil, nil, fserr.IsDirectory("/")
	}
	data, info, err := w.readTextFile(resolved)
	if err != nil {
		return vpath.ResolvedPath{}, nil, nil, err
	}
	if err := verifyChecksum(resolved.VirtualPath, data, expected); err != nil {
		return vpath.ResolvedPath{}, nil, nil, err
	}
	return resolved, data, info, nil
}

func verifyChecksum(virtualPath string, data []byte, expected string) error {
	if strings.TrimSpace(expected) == "" {
		return nil
	}
	if !edit.VerifyChecksum(data, expected) {
		return fserr.ChecksumMismatch(virtualPath, strings.TrimSpace(expected), edit.Checksum(data))
	}
	return nil
}

// commit diffs old against updated and, unless dryRun, writes updated.
func (w *Workspace) commit(ctx context.Context, resolved vpath.ResolvedPath, old []byte, updated string, mode fs.FileMode, dryRun bool) (EditResult, error) {
	d := diff.Compute(string(old), updated, diff.Options{
		OldName: "a/" + resolved.VirtualPath,
		NewName: "b/" + resolved.VirtualPath,
	})
	result := EditResult{
		VirtualPath: resolved.VirtualPath,
		Diff:        d.Text,
		Added:       d.Added,
		Removed:     d.Removed,
		OldChecksum: edit.Checksum(old),
		LineCount:   edit.LineCount(updated),
		DryRun:      dryRun,
	}
	if dryRun {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return EditResult{}, fserr.Cancelled(err)
	}
	if int64(len(updated)) > w.options.MaxFileSizeBytes {
		return EditResult{}, fserr.FileTooLarge(resolved.VirtualPath, int64(len(updated)), w.options.MaxFileSizeBytes)
	}

	if err := atomicWrite(resolved.AbsolutePath, []byte(updated), mode); err != nil {
		return EditResult{}, fserr.FromOS("write", resolved.VirtualPath, err)
	}
	w.indexes.InvalidatePath(resolved.AbsolutePath)
	result.NewChecksum = edit.ChecksumString(updated)
	return result, nil
}

// makeParents creates the missing parent directories of a new file. The
// deepest existing ancestor was symlink-validated by Resolve, so everything
// created below it stays inside the mount.
func (w *Workspace) makeParents(resolved vpath.ResolvedPath) error {
	parent := filepath.Dir(resolved.AbsolutePath)
	if !vpath.Within(resolved.Mount.AbsolutePath, parent) {
		return fserr.Traversal(resolved.VirtualPath)
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fserr.FromOS("mkdir", resolved.VirtualPath, err)
	}
	return nil
}

// atomicWrite writes data to a temp file next to path and renames it over
// path, so readers see either the old or the new content.
func atomicWrite(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
