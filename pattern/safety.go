package pattern

import (
	"fmt"

	"github.com/lexandro/sandboxfs-mcp/fserr"
)

// Screen limits for regex input.
const (
	MaxPatternLength     = 500
	MaxAlternations      = 20
	MaxAdjacentWildcards = 2
)

type groupFrame struct {
	unbounded bool // the body holds *, + or {n,} at any depth
}

// CheckSafety statically rejects regexes that are likely to backtrack
// catastrophically: nested unbounded quantifiers such as (a+)+, too many
// alternation branches, runs of adjacent .* wildcards and oversized input.
// It is a heuristic; matching is additionally bounded by Options.Timeout.
func CheckSafety(expr string) error {
	if len(expr) > MaxPatternLength {
		return fserr.UnsafePattern(fmt.Sprintf("pattern is %d characters long (limit %d)", len(expr), MaxPatternLength))
	}

	runes := []rune(expr)
	stack := []groupFrame{{}}
	branches := 1
	wildcardRun := 0

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		top := &stack[len(stack)-1]

		switch c {
		case '\\':
			i++
			wildcardRun = 0
		case '[':
			i = skipClass(runes, i)
			wildcardRun = 0
		case '(':
			stack = append(stack, groupFrame{})
			wildcardRun = 0
		case ')':
			if len(stack) == 1 {
				continue
			}
			child := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			quantified, unbounded, next := readQuantifier(runes, i+1)
			if quantified && unbounded && child.unbounded {
				return fserr.UnsafePattern(fmt.Sprintf("nested quantifier at offset %d: a repeated group contains another unbounded repetition", i))
			}
			parent := &stack[len(stack)-1]
			parent.unbounded = parent.unbounded || child.unbounded || (quantified && unbounded)
			i = next - 1
			wildcardRun = 0
		case '*', '+':
			top.unbounded = true
		case '{':
			if quantified, unbounded, next := readQuantifier(runes, i); quantified {
				top.unbounded = top.unbounded || unbounded
				i = next - 1
			}
		case '|':
			branches++
			if branches > MaxAlternations {
				return fserr.UnsafePattern(fmt.Sprintf("more than %d alternation branches", MaxAlternations))
			}
			wildcardRun = 0
		case '.':
			if i+1 < len(runes) && (runes[i+1] == '*' || runes[i+1] == '+') {
				top.unbounded = true
				wildcardRun++
				if wildcardRun > MaxAdjacentWildcards {
					return fserr.UnsafePattern("three or more adjacent unbounded wildcards")
				}
				i++
				if i+1 < len(runes) && runes[i+1] == '?' {
					i++
				}
				continue
			}
			wildcardRun = 0
		default:
			wildcardRun = 0
		}
	}
	return nil
}

// skipClass returns the index of the ']' closing the class opened at start.
func skipClass(runes []rune, start int) int {
	i := start + 1
	if i < len(runes) && runes[i] == '^' {
		i++
	}
	if i < len(runes) && runes[i] == ']' {
		i++
	}
	for ; i < len(runes); i++ {
		switch runes[i] {
		case '\\':
			i++
		case ']':
			return i
		}
	}
	return len(runes) - 1
}

// readQuantifier inspects runes[at:] for *, +, ?, {n}, {n,} or {n,m}.
// next is the index just past the quantifier (and a lazy '?' suffix).
func readQuantifier(runes []rune, at int) (quantified bool, unbounded bool, next int) {
	if at >= len(runes) {
		return false, false, at
	}
	switch runes[at] {
	case '*', '+':
		quantified, unbounded, next = true, true, at+1
	case '?':
		quantified, next = true, at+1
	case '{':
		end := at + 1
		sawComma := false
		sawUpper := false
		for ; end < len(runes) && runes[end] != '}'; end++ {
			r := runes[end]
			switch {
			case r == ',':
				sawComma = true
			case r >= '0' && r <= '9':
				if sawComma {
					sawUpper = true
				}
			default:
				// not a counted repetition, "{" is literal
				return false, false, at
			}
		}
		if end >= len(runes) || end == at+1 {
			return false, false, at
		}
		quantified, unbounded, next = true, sawComma && !sawUpper, end+1
	default:
		return false, false, at
	}
	if next < len(runes) && runes[next] == '?' {
		next++
	}
	return quantified, unbounded, next
}
