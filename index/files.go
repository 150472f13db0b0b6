package index

import (
	"path"
	"strings"
	"time"

	"github.com/lexandro/sandboxfs-mcp/language"
)

// IndexedFile is one entry of an index generation. Entries are created in
// bulk by Build and never mutated afterwards.
type IndexedFile struct {
	RelativePath string // relative to the index root, forward slashes
	FileName     string
	LowerPath    string
	LowerName    string
	Depth        int    // 0 for entries directly under the root
	Extension    string // lower case, without the dot
	IsDirectory  bool
	SizeBytes    int64
	ModTime      time.Time
}

func newIndexedFile(relativePath string, isDir bool, size int64, modTime time.Time) IndexedFile {
	name := path.Base(relativePath)
	lowerName := strings.ToLower(name)
	ext := ""
	if !isDir {
		ext = strings.TrimPrefix(path.Ext(lowerName), ".")
	}
	return IndexedFile{
		RelativePath: relativePath,
		FileName:     name,
		LowerPath:    strings.ToLower(relativePath),
		LowerName:    lowerName,
		Depth:        strings.Count(relativePath, "/"),
		Extension:    ext,
		IsDirectory:  isDir,
		SizeBytes:    size,
		ModTime:      modTime,
	}
}

// FileIndex is an immutable flat listing of a directory tree. The cache
// replaces it wholesale; it is never updated in place.
type FileIndex struct {
	Root      string
	Entries   []IndexedFile // walk order: breadth first, names sorted per directory
	BuiltAt   time.Time
	FileCount int
	DirCount  int
	Truncated bool // the walk stopped at MaxEntries
}

// Files returns the non-directory entries in walk order.
func (fi *FileIndex) Files() []IndexedFile {
	out := make([]IndexedFile, 0, fi.FileCount)
	for _, entry := range fi.Entries {
		if !entry.IsDirectory {
			out = append(out, entry)
		}
	}
	return out
}

// TotalSizeBytes returns the summed size of all files in the generation.
func (fi *FileIndex) TotalSizeBytes() int64 {
	var total int64
	for _, entry := range fi.Entries {
		total += entry.SizeBytes
	}
	return total
}

// LanguageCounts returns the number of files per detected language.
func (fi *FileIndex) LanguageCounts() map[string]int {
	counts := make(map[string]int)
	for _, entry := range fi.Entries {
		if !entry.IsDirectory {
			counts[language.DetectLanguage(entry.FileName)]++
		}
	}
	return counts
}
