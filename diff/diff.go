// Package diff renders unified diffs between two versions of a text file.
package diff

import (
	"fmt"
	"strings"
)

// NoChanges is returned instead of an empty diff for identical inputs.
const NoChanges = "No changes"

// DefaultContext is the number of unchanged lines shown around each change.
const DefaultContext = 3

// maxLCSCells bounds the dynamic-programming table; larger changed regions
// are rendered as a full delete followed by a full insert.
const maxLCSCells = 4_000_000

type opKind int

const (
	opEqual opKind = iota
	opDelete
	opInsert
)

type op struct {
	kind    opKind
	text    string // line including its line feed, if any
	oldLine int    // 1-indexed; for inserts, the old line it follows
	newLine int    // 1-indexed; for deletes, the new line it follows
}

// Options control rendering.
type Options struct {
	OldName string
	NewName string
	Context int
}

// Result is a rendered diff plus its line statistics.
type Result struct {
	Text    string
	Added   int
	Removed int
	Hunks   int
}

// Compute diffs oldContent against newContent line by line.
func Compute(oldContent string, newContent string, options Options) Result {
	if options.OldName == "" {
		options.OldName = "original"
	}
	if options.NewName == "" {
		options.NewName = "modified"
	}
	if options.Context < 0 {
		options.Context = 0
	} else if options.Context == 0 {
		options.Context = DefaultContext
	}

	if oldContent == newContent {
		return Result{Text: NoChanges}
	}

	ops := diffLines(splitKeepEOL(oldContent), splitKeepEOL(newContent))

	var result Result
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", options.OldName, options.NewName)
	for _, h := range groupHunks(ops, options.Context) {
		result.Hunks++
		writeHunk(&b, ops[h.from:h.to], &result)
	}
	if result.Hunks == 0 {
		return Result{Text: NoChanges}
	}
	result.Text = strings.TrimSuffix(b.String(), "\n")
	return result
}

func splitKeepEOL(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// diffLines trims the common prefix and suffix, then aligns the middle with
// a longest-common-subsequence table.
func diffLines(a []string, b []string) []op {
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	ops := make([]op, 0, len(a)+len(b))
	for i := 0; i < prefix; i++ {
		ops = append(ops, op{kind: opEqual, text: a[i], oldLine: i + 1, newLine: i + 1})
	}

	midA := a[prefix : len(a)-suffix]
	midB := b[prefix : len(b)-suffix]
	ops = append(ops, alignMiddle(midA, midB, prefix)...)

	for i := 0; i < suffix; i++ {
		ai := len(a) - suffix + i
		bi := len(b) - suffix + i
		ops = append(ops, op{kind: opEqual, text: a[ai], oldLine: ai + 1, newLine: bi + 1})
	}
	return ops
}

func alignMiddle(a []string, b []string, offset int) []op {
	n, m := len(a), len(b)
	var ops []op

	if n*m > maxLCSCells {
		for i := range a {
			ops = append(ops, op{kind: opDelete, text: a[i], oldLine: offset + i + 1, newLine: offset})
		}
		for j := range b {
			ops = append(ops, op{kind: opInsert, text: b[j], oldLine: offset + n, newLine: offset + j + 1})
		}
		return ops
	}

	// lcs[i][j] is the LCS length of a[i:] and b[j:]
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			ops = append(ops, op{kind: opEqual, text: a[i], oldLine: offset + i + 1, newLine: offset + j + 1})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			ops = append(ops, op{kind: opDelete, text: a[i], oldLine: offset + i + 1, newLine: offset + j})
			i++
		default:
			ops = append(ops, op{kind: opInsert, text: b[j], oldLine: offset + i, newLine: offset + j + 1})
			j++
		}
	}
	for ; i < n; i++ {
		ops = append(ops, op{kind: opDelete, text: a[i], oldLine: offset + i + 1, newLine: offset + j})
	}
	for ; j < m; j++ {
		ops = append(ops, op{kind: opInsert, text: b[j], oldLine: offset + i, newLine: offset + j + 1})
	}
	return ops
}

type hunkSpan struct {
	from int
	to   int // exclusive
}

// groupHunks returns op index spans covering each change plus context.
// Changes separated by at most 2*context unchanged lines share a hunk.
func groupHunks(ops []op, context int) []hunkSpan {
	var spans []hunkSpan
	for i := 0; i < len(ops); i++ {
		if ops[i].kind == opEqual {
			continue
		}
		from := max(0, i-context)
		lastChange := i
		j := i + 1
		for j < len(ops) {
			if ops[j].kind != opEqual {
				lastChange = j
				j++
				continue
			}
			if j-lastChange > 2*context {
				break
			}
			j++
		}
		to := min(len(ops), lastChange+1+context)
		spans = append(spans, hunkSpan{from: from, to: to})
		i = to - 1
	}
	return spans
}

func writeHunk(b *strings.Builder, ops []op, result *Result) {
	// empty ranges report the line they follow, as GNU diff does
	oldStart, newStart := ops[0].oldLine, ops[0].newLine
	oldCount, newCount := 0, 0
	for k := len(ops) - 1; k >= 0; k-- {
		o := ops[k]
		if o.kind != opInsert {
			oldStart = o.oldLine
			oldCount++
		}
		if o.kind != opDelete {
			newStart = o.newLine
			newCount++
		}
	}

	fmt.Fprintf(b, "@@ -%s +%s @@\n", hunkRange(oldStart, oldCount), hunkRange(newStart, newCount))
	for _, o := range ops {
		prefix := " "
		switch o.kind {
		case opDelete:
			prefix = "-"
			result.Removed++
		case opInsert:
			prefix = "+"
			result.Added++
		}
		b.WriteString(prefix)
		b.WriteString(o.text)
		if !strings.HasSuffix(o.text, "\n") {
			b.WriteString("\n\\ No newline at end of file\n")
		}
	}
}

func hunkRange(start int, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}
