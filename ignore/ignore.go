package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// Matcher decides which entries below a root are excluded from listings.
// It combines the always-excluded directory names, the hidden-file policy,
// .gitignore/.ignore rules found at the root and extra glob patterns.
// Thread-safe: Reload() acquires a write lock, matching methods a read lock.
type Matcher struct {
	mu            sync.RWMutex
	rootDir       string
	excludedDirs  map[string]struct{}
	ignoreFiles   []gitignore.GitIgnore
	extraPatterns []string
	includeHidden bool
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	RootDir       string
	ExcludedDirs  []string // nil means DefaultExcludedDirs
	ExtraPatterns []string // doublestar globs matched against root-relative paths and base names
	IncludeHidden bool
}

// NewMatcher creates a matcher rooted at options.RootDir.
func NewMatcher(options MatcherOptions) *Matcher {
	excluded := options.ExcludedDirs
	if excluded == nil {
		excluded = DefaultExcludedDirs
	}
	matcher := &Matcher{
		rootDir:       filepath.Clean(options.RootDir),
		excludedDirs:  make(map[string]struct{}, len(excluded)),
		extraPatterns: options.ExtraPatterns,
		includeHidden: options.IncludeHidden,
	}
	for _, name := range excluded {
		matcher.excludedDirs[strings.ToLower(name)] = struct{}{}
	}
	matcher.ignoreFiles = loadIgnoreFiles(matcher.rootDir)
	return matcher
}

// Excluded reports whether the root-relative path (forward slashes) is
// filtered out. isDir selects directory semantics for ignore-file rules.
func (m *Matcher) Excluded(relativePath string, isDir bool) bool {
	relativePath = strings.TrimPrefix(filepath.ToSlash(relativePath), "./")
	if relativePath == "" || relativePath == "." {
		return false
	}
	baseName := relativePath
	if i := strings.LastIndexByte(relativePath, '/'); i >= 0 {
		baseName = relativePath[i+1:]
	}

	if isDir {
		if _, ok := m.excludedDirs[strings.ToLower(baseName)]; ok {
			return true
		}
	}
	if !m.includeHidden && strings.HasPrefix(baseName, ".") {
		return true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, gi := range m.ignoreFiles {
		// Relative() doesn't require the file to exist on disk
		match := gi.Relative(relativePath, isDir)
		if match != nil && match.Ignore() {
			return true
		}
	}
	return m.matchesExtraPatterns(relativePath, baseName)
}

// ShouldIgnore stats absolutePath and applies Excluded to it.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	relativePath, ok := m.relative(absolutePath)
	if !ok {
		return true
	}
	isDir := false
	if info, err := os.Stat(absolutePath); err == nil {
		isDir = info.IsDir()
	}
	return m.Excluded(relativePath, isDir)
}

// ShouldIgnoreDir returns true if a directory should be skipped entirely during traversal.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	relativePath, ok := m.relative(absolutePath)
	if !ok {
		return true
	}
	return m.Excluded(relativePath, true)
}

func (m *Matcher) relative(absolutePath string) (string, bool) {
	rel, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (m *Matcher) matchesExtraPatterns(relativePath string, baseName string) bool {
	for _, pattern := range m.extraPatterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.Match(pattern, relativePath); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, baseName); err == nil && matched {
			return true
		}
	}
	return false
}

// Reload re-reads the ignore files from disk.
// Used when the watcher reports a change to one of them.
func (m *Matcher) Reload() {
	fresh := loadIgnoreFiles(m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignoreFiles = fresh
}

func loadIgnoreFiles(rootDir string) []gitignore.GitIgnore {
	var loaded []gitignore.GitIgnore
	for _, name := range IgnoreFileNames {
		if gi := loadIgnoreFile(filepath.Join(rootDir, name), rootDir); gi != nil {
			loaded = append(loaded, gi)
		}
	}
	return loaded
}

// loadIgnoreFile reads an ignore file and creates a GitIgnore matcher from it.
// Uses io.Reader approach to ensure the file handle is properly closed on Windows.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
