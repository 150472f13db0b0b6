package pattern

import (
	"strings"
	"unicode/utf8"

	"github.com/lexandro/sandboxfs-mcp/fserr"
)

// Match is one occurrence of a pattern in a piece of content.
type Match struct {
	Offset  int // byte offset into the content
	Length  int // byte length of Text
	Text    string
	Line    int // 1-indexed line of the first byte
	Column  int // 1-indexed, counted in runes
	EndLine int // 1-indexed line holding the last byte
}

// End returns the byte offset just past the match.
func (m Match) End() int {
	return m.Offset + m.Length
}

// cursor walks content forward converting rune indexes (what regexp2
// reports) into byte offsets and line/column positions.
type cursor struct {
	content       string
	runeIndex     int
	byteIndex     int
	line          int // 0-indexed
	lineStartRune int
}

func (c *cursor) advanceTo(runeIndex int) {
	for c.runeIndex < runeIndex && c.byteIndex < len(c.content) {
		r, size := utf8.DecodeRuneInString(c.content[c.byteIndex:])
		c.byteIndex += size
		c.runeIndex++
		if r == '\n' {
			c.line++
			c.lineStartRune = c.runeIndex
		}
	}
}

// FindMatches returns the non-overlapping matches of m in content, in
// offset order, stopping at m.MaxMatches(). A regex that exceeds its match
// timeout yields a PATTERN_TIMEOUT error.
func FindMatches(content string, m *Matcher) ([]Match, error) {
	var matches []Match
	err := scan(content, m, func(match Match) bool {
		matches = append(matches, match)
		return len(matches) < m.maxMatches
	})
	return matches, err
}

// CountMatches counts matches without materializing them, up to limit
// (0 means no limit).
func CountMatches(content string, m *Matcher, limit int) (int, error) {
	count := 0
	err := scan(content, m, func(Match) bool {
		count++
		return limit <= 0 || count < limit
	})
	return count, err
}

func scan(content string, m *Matcher, visit func(Match) bool) error {
	rm, err := m.re.FindStringMatch(content)
	c := &cursor{content: content}
	for ; err == nil && rm != nil; rm, err = m.re.FindNextMatch(rm) {
		c.advanceTo(rm.Index)
		start := c.byteIndex
		line := c.line + 1
		column := c.runeIndex - c.lineStartRune + 1

		c.advanceTo(rm.Index + rm.Length)
		end := c.byteIndex
		endLine := c.line + 1
		if end > start && content[end-1] == '\n' {
			endLine--
		}

		match := Match{
			Offset:  start,
			Length:  end - start,
			Text:    content[start:end],
			Line:    line,
			Column:  column,
			EndLine: endLine,
		}
		if !visit(match) {
			return nil
		}
	}
	return matchError(err)
}

// Replace substitutes the first count matches (all when count < 0). Regex
// replacements expand $1 and ${name}; every other mode inserts replacement
// verbatim.
func (m *Matcher) Replace(content string, replacement string, count int) (string, error) {
	if m.Mode != ModeRegex {
		replacement = strings.ReplaceAll(replacement, "$", "$$")
	}
	out, err := m.re.Replace(content, replacement, -1, count)
	if err != nil {
		return "", matchError(err)
	}
	return out, nil
}

func matchError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "match timeout") {
		return fserr.PatternTimeout(err)
	}
	return fserr.InvalidPattern(err)
}
