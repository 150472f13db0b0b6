package vpath

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lexandro/sandboxfs-mcp/fserr"
)

// ValidateSymlinks walks from the mount root to absolutePath and rejects any
// existing symlink component whose target leaves the mount. Components that
// do not exist yet are accepted so create flows can validate their target.
func ValidateSymlinks(absolutePath string, mount Mount) error {
	target := filepath.Clean(absolutePath)
	if !Within(mount.AbsolutePath, target) {
		return fserr.OutOfScope(absolutePath, "path is outside its mount", []string{mount.Name})
	}

	roots := []string{mount.AbsolutePath}
	if real, err := filepath.EvalSymlinks(mount.AbsolutePath); err == nil && real != mount.AbsolutePath {
		roots = append(roots, real)
	}

	rel, err := filepath.Rel(mount.AbsolutePath, target)
	if err != nil || rel == "." {
		return nil
	}

	current := mount.AbsolutePath
	for _, component := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, component)
		info, err := os.Lstat(current)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fserr.IO("lstat", current, err)
		}
		if info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		resolved, err := resolveLink(current)
		if err != nil {
			return fserr.IO("readlink", current, err)
		}
		if !withinAny(roots, resolved) {
			return fserr.SymlinkEscape(absolutePath, current, resolved)
		}
	}
	return nil
}

// resolveLink returns the fully resolved target of a symlink. Dangling links
// are resolved lexically from their immediate target.
func resolveLink(link string) (string, error) {
	resolved, err := filepath.EvalSymlinks(link)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	dest, err := os.Readlink(link)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(filepath.Dir(link), dest)
	}
	return filepath.Clean(dest), nil
}

func withinAny(roots []string, path string) bool {
	for _, root := range roots {
		if Within(root, path) {
			return true
		}
	}
	return false
}
