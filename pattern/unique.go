package pattern

// UniqueStatus distinguishes the three outcomes of FindUniqueMatch.
type UniqueStatus int

const (
	UniqueFound UniqueStatus = iota
	UniqueNotFound
	UniqueMultiple
)

func (s UniqueStatus) String() string {
	switch s {
	case UniqueFound:
		return "found"
	case UniqueMultiple:
		return "multiple"
	default:
		return "not_found"
	}
}

// UniqueResult carries the single match when Status is UniqueFound and the
// lines of every match when Status is UniqueMultiple.
type UniqueResult struct {
	Status  UniqueStatus
	Match   Match
	Matches []Match
	Lines   []int // distinct matching lines in ascending order
}

// FindUniqueMatch reports whether m occurs exactly once in content. It never
// chooses among several matches.
func FindUniqueMatch(content string, m *Matcher) (UniqueResult, error) {
	matches, err := FindMatches(content, m)
	if err != nil {
		return UniqueResult{}, err
	}

	switch len(matches) {
	case 0:
		return UniqueResult{Status: UniqueNotFound}, nil
	case 1:
		return UniqueResult{Status: UniqueFound, Match: matches[0], Matches: matches, Lines: []int{matches[0].Line}}, nil
	}

	result := UniqueResult{Status: UniqueMultiple, Matches: matches}
	for _, match := range matches {
		if n := len(result.Lines); n == 0 || result.Lines[n-1] != match.Line {
			result.Lines = append(result.Lines, match.Line)
		}
	}
	return result, nil
}
