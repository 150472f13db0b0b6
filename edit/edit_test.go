package edit

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexandro/sandboxfs-mcp/fserr"
)

func Test_Checksum_Format(t *testing.T) {
	sum := ChecksumString("hello")
	assert.Len(t, sum, ChecksumLength)
	// sha256("hello") = 2cf24dba5fb0a30e...
	assert.Equal(t, "2cf24dba5fb0", sum)
	assert.Equal(t, Checksum([]byte("hello")), sum)
}

func Test_VerifyChecksum_RoundTrip(t *testing.T) {
	contents := []string{"", "a", "line1\nline2\n", strings.Repeat("xyz", 1000), "naïve\r\n"}
	for _, c := range contents {
		assert.True(t, VerifyChecksum([]byte(c), ChecksumString(c)), "content %q", c)
	}
	assert.True(t, VerifyChecksum([]byte("hello"), "  2CF24DBA5FB0 "))
}

func Test_Checksum_SingleByteMutation(t *testing.T) {
	original := []byte("package main\n\nfunc main() {}\n")
	sum := Checksum(original)

	for i := range original {
		mutated := append([]byte(nil), original...)
		mutated[i] ^= 0x01
		assert.False(t, VerifyChecksum(mutated, sum), "mutation at byte %d went unnoticed", i)
	}
}

func Test_ParseLineRange(t *testing.T) {
	r, err := ParseLineRange("10-15")
	require.NoError(t, err)
	assert.Equal(t, LineRange{Start: 10, End: 15}, r)

	r, err = ParseLineRange(" 7 ")
	require.NoError(t, err)
	assert.Equal(t, LineRange{Start: 7, End: 7}, r)

	for _, bad := range []string{"15-10", "abc", "", "0", "3-", "-4", "1-2-3", "x-5"} {
		_, err := ParseLineRange(bad)
		assert.Equal(t, fserr.CodeInvalidRange, fserr.CodeOf(err), "input %q", bad)
	}
}

func Test_ParseAction(t *testing.T) {
	for input, want := range map[string]Action{
		"":              ActionReplace,
		"replace":       ActionReplace,
		"insert_before": ActionInsertBefore,
		"INSERT_AFTER":  ActionInsertAfter,
		"delete_lines":  ActionDeleteLines,
	} {
		got, err := ParseAction(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseAction("append")
	assert.Equal(t, fserr.CodeInvalidArgument, fserr.CodeOf(err))
}

func Test_ApplyLineEdit_ReplaceNormalizesTrailingNewline(t *testing.T) {
	out, err := ApplyLineEdit("line1\nline2\nline3\nline4\nline5", LineRange{Start: 2, End: 4}, ActionReplace, "NEW")
	require.NoError(t, err)
	assert.Equal(t, "line1\nNEW\nline5\n", out)
}

func Test_ApplyLineEdit_Actions(t *testing.T) {
	content := "a\nb\nc\n"
	tests := []struct {
		name   string
		r      LineRange
		action Action
		text   string
		want   string
	}{
		{"insert before first", LineRange{1, 1}, ActionInsertBefore, "x", "x\na\nb\nc\n"},
		{"insert before end", LineRange{4, 4}, ActionInsertBefore, "x", "a\nb\nc\nx\n"},
		{"insert after range end", LineRange{1, 2}, ActionInsertAfter, "x\ny", "a\nb\nx\ny\nc\n"},
		{"insert after last", LineRange{3, 3}, ActionInsertAfter, "x\n", "a\nb\nc\nx\n"},
		{"delete middle", LineRange{2, 2}, ActionDeleteLines, "", "a\nc\n"},
		{"delete clamps end", LineRange{2, 99}, ActionDeleteLines, "", "a\n"},
		{"replace with multiple lines", LineRange{2, 2}, ActionReplace, "1\n2\n3", "a\n1\n2\n3\nc\n"},
		{"replace with empty line", LineRange{2, 2}, ActionReplace, "", "a\n\nc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyLineEdit(content, tt.r, tt.action, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_ApplyLineEdit_StartBeyondEnd(t *testing.T) {
	_, err := ApplyLineEdit("a\nb\n", LineRange{Start: 3, End: 3}, ActionReplace, "x")
	assert.Equal(t, fserr.CodeInvalidRange, fserr.CodeOf(err))

	_, err = ApplyLineEdit("a\nb\n", LineRange{Start: 4, End: 4}, ActionInsertBefore, "x")
	assert.Equal(t, fserr.CodeInvalidRange, fserr.CodeOf(err))

	_, err = ApplyLineEdit("a\n", LineRange{Start: 2, End: 1}, ActionReplace, "x")
	assert.Equal(t, fserr.CodeInvalidRange, fserr.CodeOf(err))
}

func Test_ApplyLineEdit_EmptyFile(t *testing.T) {
	out, err := ApplyLineEdit("", LineRange{Start: 1, End: 1}, ActionInsertBefore, "first")
	require.NoError(t, err)
	assert.Equal(t, "first\n", out)

	out, err = ApplyLineEdit("", LineRange{Start: 1, End: 1}, ActionInsertAfter, "first")
	require.NoError(t, err)
	assert.Equal(t, "first\n", out)

	_, err = ApplyLineEdit("", LineRange{Start: 1, End: 1}, ActionReplace, "first")
	assert.Equal(t, fserr.CodeInvalidRange, fserr.CodeOf(err))
}

func Test_ApplyLineEdit_DeleteEverything(t *testing.T) {
	out, err := ApplyLineEdit("a\nb\n", LineRange{Start: 1, End: 2}, ActionDeleteLines, "")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func Test_ApplyLineEdit_ReplaceThenExtractRoundTrip(t *testing.T) {
	content := "one\ntwo\nthree\nfour\nfive\nsix\n"
	replacements := []string{"X", "X\nY", "X\n\nZ", "  indented\n\ttabbed"}
	ranges := []LineRange{{1, 1}, {2, 4}, {5, 6}, {6, 100}}

	for _, x := range replacements {
		for _, r := range ranges {
			out, err := ApplyLineEdit(content, r, ActionReplace, x)
			require.NoError(t, err)

			back, err := ExtractLines(out, LineRange{Start: r.Start, End: r.Start + LineCount(x) - 1})
			require.NoError(t, err)
			assert.Equal(t, x, back, "replace %s with %q", r, x)
		}
	}
}

func Test_ApplyLineEdit_DeleteThenInsertRestores(t *testing.T) {
	content := "one\ntwo\nthree\nfour\nfive\n"

	for start := 1; start <= 5; start++ {
		for end := start; end <= 5; end++ {
			r := LineRange{Start: start, End: end}
			removed, err := ExtractLines(content, r)
			require.NoError(t, err)

			deleted, err := ApplyLineEdit(content, r, ActionDeleteLines, "")
			require.NoError(t, err)
			restored, err := ApplyLineEdit(deleted, LineRange{Start: start, End: start}, ActionInsertBefore, removed)
			require.NoError(t, err, fmt.Sprintf("range %s", r))
			assert.Equal(t, content, restored, "range %s", r)
		}
	}
}

func Test_ExtractLines(t *testing.T) {
	got, err := ExtractLines("a\nb\nc\n", LineRange{Start: 2, End: 9})
	require.NoError(t, err)
	assert.Equal(t, "b\nc", got)

	_, err = ExtractLines("a\n", LineRange{Start: 2, End: 2})
	assert.Equal(t, fserr.CodeInvalidRange, fserr.CodeOf(err))
}

func Test_SplitLines(t *testing.T) {
	assert.Equal(t, []string{}, SplitLines(""))
	assert.Equal(t, []string{"a"}, SplitLines("a\n"))
	assert.Equal(t, []string{"a", ""}, SplitLines("a\n\n"))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\nb"))
	assert.Equal(t, 0, LineCount(""))
}

func Test_EnsureTrailingNewline(t *testing.T) {
	assert.Equal(t, "", EnsureTrailingNewline(""))
	assert.Equal(t, "a\n", EnsureTrailingNewline("a"))
	assert.Equal(t, "a\n", EnsureTrailingNewline("a\n"))
}
