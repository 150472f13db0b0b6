package edit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lexandro/sandboxfs-mcp/fserr"
)

// LineRange is a 1-indexed inclusive range of lines.
type LineRange struct {
	Start int
	End   int
}

func (r LineRange) String() string {
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// ParseLineRange parses "N" or "N-M".
func ParseLineRange(s string) (LineRange, error) {
	s = strings.TrimSpace(s)
	startText, endText, isRange := strings.Cut(s, "-")
	if !isRange {
		endText = startText
	}

	start, err := strconv.Atoi(strings.TrimSpace(startText))
	if err != nil {
		return LineRange{}, fserr.InvalidRange(fmt.Sprintf("invalid line range %q: expected N or N-M", s))
	}
	end, err := strconv.Atoi(strings.TrimSpace(endText))
	if err != nil {
		return LineRange{}, fserr.InvalidRange(fmt.Sprintf("invalid line range %q: expected N or N-M", s))
	}
	if start < 1 || end < 1 {
		return LineRange{}, fserr.InvalidRange(fmt.Sprintf("invalid line range %q: lines start at 1", s))
	}
	if start > end {
		return LineRange{}, fserr.InvalidRange(fmt.Sprintf("invalid line range %q: start is after end", s))
	}
	return LineRange{Start: start, End: end}, nil
}

// Action is a line-targeted edit.
type Action int

const (
	ActionReplace Action = iota
	ActionInsertBefore
	ActionInsertAfter
	ActionDeleteLines
)

func (a Action) String() string {
	switch a {
	case ActionInsertBefore:
		return "insert_before"
	case ActionInsertAfter:
		return "insert_after"
	case ActionDeleteLines:
		return "delete_lines"
	default:
		return "replace"
	}
}

// ParseAction maps an action name to an Action. Empty means replace.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "replace":
		return ActionReplace, nil
	case "insert_before":
		return ActionInsertBefore, nil
	case "insert_after":
		return ActionInsertAfter, nil
	case "delete_lines", "delete":
		return ActionDeleteLines, nil
	}
	return ActionReplace, fserr.InvalidArgument(
		fmt.Sprintf("unknown action %q", s),
		"use replace, insert_before, insert_after or delete_lines",
	)
}

// SplitLines splits content on line feeds. A trailing line feed ends the
// last line rather than starting an empty one.
func SplitLines(content string) []string {
	if content == "" {
		return []string{}
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

// LineCount returns the number of lines in content.
func LineCount(content string) int {
	return len(SplitLines(content))
}

// newTextLines splits text to insert. One trailing line feed is dropped so
// "X\n" inserts a single line.
func newTextLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// ApplyLineEdit applies action to content and returns the new content with a
// trailing line feed. Start past the end of the content is an error; End past
// it is clamped to the last line. insert_before additionally accepts Start
// equal to the line count plus one, appending at the end.
func ApplyLineEdit(content string, r LineRange, action Action, newText string) (string, error) {
	lines := SplitLines(content)
	total := len(lines)

	if r.Start < 1 || r.End < r.Start {
		return "", fserr.InvalidRange(fmt.Sprintf("invalid line range %s", r))
	}
	maxStart := total
	if action == ActionInsertBefore || (total == 0 && action == ActionInsertAfter) {
		maxStart = total + 1
	}
	if r.Start > maxStart {
		return "", fserr.InvalidRange(fmt.Sprintf("line %d is beyond the end of the file (%d lines)", r.Start, total))
	}
	end := min(r.End, total)

	var at, remove int
	var insert []string
	switch action {
	case ActionReplace:
		at, remove, insert = r.Start-1, end-r.Start+1, newTextLines(newText)
	case ActionInsertBefore:
		at, insert = r.Start-1, newTextLines(newText)
	case ActionInsertAfter:
		at, insert = end, newTextLines(newText)
	case ActionDeleteLines:
		at, remove = r.Start-1, end-r.Start+1
	default:
		return "", fserr.InvalidArgument("unknown action", "use replace, insert_before, insert_after or delete_lines")
	}

	return EnsureTrailingNewline(strings.Join(splice(lines, at, remove, insert), "\n")), nil
}

// splice removes remove lines at index at and inserts insert in their place.
func splice(lines []string, at int, remove int, insert []string) []string {
	out := make([]string, 0, len(lines)-remove+len(insert))
	out = append(out, lines[:at]...)
	out = append(out, insert...)
	out = append(out, lines[at+remove:]...)
	return out
}

// ExtractLines returns lines Start..End (clamped) joined with line feeds,
// without a trailing line feed.
func ExtractLines(content string, r LineRange) (string, error) {
	lines := SplitLines(content)
	if r.Start < 1 || r.End < r.Start {
		return "", fserr.InvalidRange(fmt.Sprintf("invalid line range %s", r))
	}
	if r.Start > len(lines) {
		return "", fserr.InvalidRange(fmt.Sprintf("line %d is beyond the end of the file (%d lines)", r.Start, len(lines)))
	}
	end := min(r.End, len(lines))
	return strings.Join(lines[r.Start-1:end], "\n"), nil
}

// EnsureTrailingNewline appends a line feed to non-empty content lacking one.
func EnsureTrailingNewline(content string) string {
	if content == "" || strings.HasSuffix(content, "\n") {
		return content
	}
	return content + "\n"
}
