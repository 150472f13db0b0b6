package index

import (
	"context"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// ResolveStatus is the outcome of an auto-resolve lookup.
type ResolveStatus int

const (
	ResolveNotFound ResolveStatus = iota
	ResolveUnique
	ResolveAmbiguous
)

func (s ResolveStatus) String() string {
	switch s {
	case ResolveUnique:
		return "resolved"
	case ResolveAmbiguous:
		return "ambiguous"
	default:
		return "not_found"
	}
}

const (
	maxSuggestions      = 5
	suggestionThreshold = 0.75
)

// ResolveOutcome reports every file whose name equals the looked-up name.
// Suggestions are only filled when nothing matched.
type ResolveOutcome struct {
	Status      ResolveStatus
	Matches     []IndexedFile
	Suggestions []string
}

// Resolved returns the single match when Status is ResolveUnique.
func (o ResolveOutcome) Resolved() (IndexedFile, bool) {
	if o.Status != ResolveUnique {
		return IndexedFile{}, false
	}
	return o.Matches[0], true
}

// TryAutoResolve looks name up case-insensitively among the files of idx.
// It never picks among several candidates.
func TryAutoResolve(idx *FileIndex, name string) ResolveOutcome {
	lowerName := strings.ToLower(strings.TrimSpace(name))

	var outcome ResolveOutcome
	for _, entry := range idx.Entries {
		if !entry.IsDirectory && entry.LowerName == lowerName {
			outcome.Matches = append(outcome.Matches, entry)
		}
	}

	switch len(outcome.Matches) {
	case 0:
		outcome.Status = ResolveNotFound
		outcome.Suggestions = suggestNames(idx, lowerName)
	case 1:
		outcome.Status = ResolveUnique
	default:
		outcome.Status = ResolveAmbiguous
	}
	return outcome
}

// TryAutoResolve resolves name against the (possibly rebuilt) index of root.
func (c *Cache) TryAutoResolve(ctx context.Context, root string, name string, options BuildOptions) (ResolveOutcome, error) {
	idx, err := c.GetOrBuild(ctx, root, options)
	if err != nil {
		return ResolveOutcome{}, err
	}
	return TryAutoResolve(idx, name), nil
}

type suggestion struct {
	path       string
	similarity float32
}

// suggestNames ranks file names by Jaro-Winkler similarity to lowerName.
func suggestNames(idx *FileIndex, lowerName string) []string {
	if lowerName == "" {
		return nil
	}
	var candidates []suggestion
	for _, entry := range idx.Entries {
		if entry.IsDirectory {
			continue
		}
		similarity, err := edlib.StringsSimilarity(lowerName, entry.LowerName, edlib.JaroWinkler)
		if err != nil || similarity < suggestionThreshold {
			continue
		}
		candidates = append(candidates, suggestion{path: entry.RelativePath, similarity: similarity})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})
	if len(candidates) > maxSuggestions {
		candidates = candidates[:maxSuggestions]
	}

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.path
	}
	return out
}
