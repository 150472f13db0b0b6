package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/lexandro/sandboxfs-mcp/language"
)

// Scoring weights. The depth penalty and affinity bonus only break ties
// between comparable matches and stay well below a single matched character
// run.
const (
	scoreMatchedChar      = 1.0
	scoreConsecutive      = 5.0
	scoreBoundary         = 4.0
	nameWeight            = 2.0
	bonusExactName        = 100.0
	bonusNamePrefix       = 50.0
	bonusNameSubstring    = 25.0
	bonusLastTermInName   = 20.0
	depthPenaltyPerLevel  = 0.5
	extensionAffinityBump = 0.25
)

// DefaultMaxResults caps Search output when FindOptions.MaxResults is unset.
const DefaultMaxResults = 50

// FindOptions filter and bound a ranked search.
type FindOptions struct {
	MaxResults         int
	Glob               string // optional doublestar pattern on the relative path
	IncludeDirectories bool
}

// ScoredFile is one ranked search hit.
type ScoredFile struct {
	File  IndexedFile
	Score float64
}

// SearchResult holds the ranked hits and the number of entries that matched
// before MaxResults was applied.
type SearchResult struct {
	Matches []ScoredFile
	Total   int
}

// Search ranks the entries of idx against a free-text query. Results are in
// strictly descending score; ties keep index walk order.
func Search(idx *FileIndex, query string, options FindOptions) (SearchResult, error) {
	if options.MaxResults <= 0 {
		options.MaxResults = DefaultMaxResults
	}
	glob := strings.ReplaceAll(options.Glob, "\\", "/")
	if glob != "" && !doublestar.ValidatePattern(glob) {
		return SearchResult{}, fmt.Errorf("invalid glob pattern: %s", options.Glob)
	}

	terms := strings.Fields(strings.ToLower(query))

	var scored []ScoredFile
	for _, entry := range idx.Entries {
		if entry.IsDirectory && !options.IncludeDirectories {
			continue
		}
		if glob != "" {
			if matched, err := doublestar.Match(glob, entry.RelativePath); err != nil || !matched {
				continue
			}
		}
		score, ok := ScoreEntry(entry, terms)
		if !ok {
			continue
		}
		scored = append(scored, ScoredFile{File: entry, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	result := SearchResult{Total: len(scored)}
	if len(scored) > options.MaxResults {
		scored = scored[:options.MaxResults]
	}
	result.Matches = scored
	return result, nil
}

// ScoreEntry scores one entry against lower-cased query terms. ok is false
// when the entry does not match and must be dropped.
func ScoreEntry(entry IndexedFile, terms []string) (float64, bool) {
	var score float64
	switch len(terms) {
	case 0:
	case 1:
		s, ok := scoreSingleTerm(entry, terms[0])
		if !ok {
			return 0, false
		}
		score = s
	default:
		s, ok := scoreMultiTerm(entry, terms)
		if !ok {
			return 0, false
		}
		score = s
	}

	score -= depthPenaltyPerLevel * float64(entry.Depth)
	if !entry.IsDirectory && language.HasAffinity(entry.Extension) {
		score += extensionAffinityBump
	}
	return score, true
}

func scoreSingleTerm(entry IndexedFile, term string) (float64, bool) {
	if nameScore, ok := subsequenceScore(term, entry.LowerName); ok {
		score := nameWeight * nameScore
		switch {
		case entry.LowerName == term:
			score += bonusExactName
		case strings.HasPrefix(entry.LowerName, term):
			score += bonusNamePrefix
		case strings.Contains(entry.LowerName, term):
			score += bonusNameSubstring
		}
		return score, true
	}

	if looksLikeFileName(term) {
		return 0, false
	}
	return subsequenceScore(term, entry.LowerPath)
}

func scoreMultiTerm(entry IndexedFile, terms []string) (float64, bool) {
	var score float64
	for _, term := range terms {
		s, ok := subsequenceScore(term, entry.LowerPath)
		if !ok {
			return 0, false
		}
		score += s
	}
	last := terms[len(terms)-1]
	if strings.HasPrefix(entry.LowerName, last) || strings.Contains(entry.LowerName, last) {
		score += bonusLastTermInName
	}
	return score, true
}

// looksLikeFileName is true for a dotted term or one without a separator.
func looksLikeFileName(term string) bool {
	return strings.Contains(term, ".") || !strings.Contains(term, "/")
}

// subsequenceScore greedily matches query as a subsequence of target.
func subsequenceScore(query string, target string) (float64, bool) {
	if query == "" {
		return 0, true
	}
	q := []rune(query)
	t := []rune(target)

	var score float64
	qi := 0
	lastMatch := -2
	for ti := 0; ti < len(t) && qi < len(q); ti++ {
		if t[ti] != q[qi] {
			continue
		}
		score += scoreMatchedChar
		if ti == lastMatch+1 {
			score += scoreConsecutive
		}
		if ti == 0 || isBoundary(t[ti-1]) {
			score += scoreBoundary
		}
		lastMatch = ti
		qi++
	}
	if qi < len(q) {
		return 0, false
	}
	return score, true
}

func isBoundary(r rune) bool {
	switch r {
	case '/', '_', '-', '.', ' ':
		return true
	}
	return false
}
