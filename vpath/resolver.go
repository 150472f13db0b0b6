package vpath

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lexandro/sandboxfs-mcp/fserr"
)

// Mount is a named host directory exposed through the sandbox.
type Mount struct {
	Name         string
	AbsolutePath string
}

// ResolvedPath is the per-call translation of a virtual path.
type ResolvedPath struct {
	Mount        Mount
	AbsolutePath string
	RelativePath string // forward slashes, empty for the mount root
	VirtualPath  string
	IsRoot       bool // true for "", "." and "/": the mount listing sentinel
}

// Resolver translates virtual paths into host paths under a fixed mount set.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	mounts []Mount
	byName map[string]Mount
}

var drivePrefix = regexp.MustCompile(`^[A-Za-z]:`)

// NewResolver validates the mount set. Names must be unique and free of
// separators; paths must be absolute.
func NewResolver(mounts []Mount) (*Resolver, error) {
	if len(mounts) == 0 {
		return nil, fmt.Errorf("at least one mount is required")
	}
	r := &Resolver{
		mounts: make([]Mount, 0, len(mounts)),
		byName: make(map[string]Mount, len(mounts)),
	}
	for _, m := range mounts {
		if m.Name == "" || m.Name == "." || m.Name == ".." || strings.ContainsAny(m.Name, `/\`) {
			return nil, fmt.Errorf("invalid mount name %q", m.Name)
		}
		if !filepath.IsAbs(m.AbsolutePath) {
			return nil, fmt.Errorf("mount %q: path %q is not absolute", m.Name, m.AbsolutePath)
		}
		if _, dup := r.byName[m.Name]; dup {
			return nil, fmt.Errorf("duplicate mount name %q", m.Name)
		}
		m.AbsolutePath = filepath.Clean(m.AbsolutePath)
		r.mounts = append(r.mounts, m)
		r.byName[m.Name] = m
	}
	return r, nil
}

// Mounts returns the configured mounts in configuration order.
func (r *Resolver) Mounts() []Mount {
	out := make([]Mount, len(r.mounts))
	copy(out, r.mounts)
	return out
}

// MountNames returns the configured mount names in configuration order.
func (r *Resolver) MountNames() []string {
	names := make([]string, len(r.mounts))
	for i, m := range r.mounts {
		names[i] = m.Name
	}
	return names
}

// Resolve maps a virtual path onto its mount. Absolute forms are rejected
// with OUT_OF_SCOPE and any ".." segment with TRAVERSAL.
func (r *Resolver) Resolve(virtualPath string) (ResolvedPath, error) {
	normalized := strings.ReplaceAll(virtualPath, `\`, "/")

	if isRootForm(normalized) {
		first := r.mounts[0]
		return ResolvedPath{
			Mount:        first,
			AbsolutePath: first.AbsolutePath,
			VirtualPath:  "/",
			IsRoot:       true,
		}, nil
	}

	if strings.HasPrefix(normalized, "/") || drivePrefix.MatchString(normalized) {
		return ResolvedPath{}, fserr.OutOfScope(virtualPath, "absolute paths are not accepted", r.MountNames())
	}

	var segments []string
	for _, seg := range strings.Split(normalized, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return ResolvedPath{}, fserr.Traversal(virtualPath)
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return r.Resolve("")
	}

	mount, ok := r.byName[segments[0]]
	var rel []string
	switch {
	case ok:
		rel = segments[1:]
	case len(r.mounts) == 1:
		mount = r.mounts[0]
		rel = segments
	default:
		return ResolvedPath{}, fserr.OutOfScope(virtualPath, fmt.Sprintf("unknown mount %q", segments[0]), r.MountNames())
	}

	relative := strings.Join(rel, "/")
	absolute := filepath.Join(mount.AbsolutePath, filepath.FromSlash(relative))
	if !Within(mount.AbsolutePath, absolute) {
		return ResolvedPath{}, fserr.Traversal(virtualPath)
	}

	virtual := mount.Name
	if relative != "" {
		virtual = mount.Name + "/" + relative
	}
	return ResolvedPath{
		Mount:        mount,
		AbsolutePath: absolute,
		RelativePath: relative,
		VirtualPath:  virtual,
	}, nil
}

// ToVirtualPath is the inverse of Resolve using the longest matching mount.
func (r *Resolver) ToVirtualPath(absolutePath string) (string, bool) {
	mount, ok := r.MountFor(absolutePath)
	if !ok {
		return "", false
	}
	rel, err := filepath.Rel(mount.AbsolutePath, filepath.Clean(absolutePath))
	if err != nil {
		return "", false
	}
	if rel == "." {
		return mount.Name, true
	}
	return mount.Name + "/" + filepath.ToSlash(rel), true
}

// MountFor returns the mount with the longest path containing absolutePath.
func (r *Resolver) MountFor(absolutePath string) (Mount, bool) {
	cleaned := filepath.Clean(absolutePath)
	var best Mount
	found := false
	for _, m := range r.mounts {
		if !Within(m.AbsolutePath, cleaned) {
			continue
		}
		if !found || len(m.AbsolutePath) > len(best.AbsolutePath) {
			best = m
			found = true
		}
	}
	return best, found
}

// Within reports whether path equals root or lies beneath it. Both must be
// cleaned absolute paths.
func Within(root string, path string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

func isRootForm(p string) bool {
	switch p {
	case "", ".", "/", "./":
		return true
	}
	return false
}
