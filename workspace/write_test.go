package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexandro/sandboxfs-mcp/diff"
	"github.com/lexandro/sandboxfs-mcp/edit"
	"github.com/lexandro/sandboxfs-mcp/fserr"
)

func Test_EditLines_ReplaceWithChecksum(t *testing.T) {
	w, root := singleMount(t, map[string]string{"f.txt": "a\nb\nc\n"})
	ctx := context.Background()

	read, err := w.Read(ctx, ReadRequest{Path: "proj/f.txt"})
	require.NoError(t, err)

	got, err := w.EditLines(ctx, EditRequest{
		Path:             "proj/f.txt",
		Lines:            "2",
		Content:          "B\n",
		ExpectedChecksum: read.FileChecksum,
	})
	require.NoError(t, err)
	assert.Equal(t, "a\nB\nc\n", readTestFile(t, root, "f.txt"))
	assert.Equal(t, 1, got.Added)
	assert.Equal(t, 1, got.Removed)
	assert.Equal(t, edit.ChecksumString("a\nB\nc\n"), got.NewChecksum)
	assert.Equal(t, read.FileChecksum, got.OldChecksum)
	assert.Contains(t, got.Diff, "-b\n+B")
}

func Test_EditLines_StaleChecksumIsRejected(t *testing.T) {
	w, root := singleMount(t, map[string]string{"f.txt": "a\nb\nc\n"})
	ctx := context.Background()

	read, err := w.Read(ctx, ReadRequest{Path: "proj/f.txt"})
	require.NoError(t, err)

	// someone else changes the file after it was read
	newTestFile(t, root, "f.txt", "a\nb\nc\nd\n")

	_, err = w.EditLines(ctx, EditRequest{
		Path:             "proj/f.txt",
		Lines:            "1",
		Content:          "X",
		ExpectedChecksum: read.FileChecksum,
	})
	requireCode(t, err, fserr.CodeChecksumMismatch)
	assert.Equal(t, "a\nb\nc\nd\n", readTestFile(t, root, "f.txt"))
}

func Test_EditLines_ChecksumIsCaseInsensitive(t *testing.T) {
	w, _ := singleMount(t, map[string]string{"f.txt": "a\n"})
	sum := edit.ChecksumString("a\n")

	_, err := w.EditLines(context.Background(), EditRequest{
		Path:             "proj/f.txt",
		Lines:            "1",
		Action:           "insert_after",
		Content:          "b",
		ExpectedChecksum: " " + strings.ToUpper(sum) + " ",
	})
	require.NoError(t, err)
}

func Test_EditLines_DryRunMatchesRealApply(t *testing.T) {
	w, root := singleMount(t, map[string]string{"f.txt": "one\ntwo\nthree\n"})
	ctx := context.Background()
	req := EditRequest{Path: "proj/f.txt", Lines: "2-3", Action: "delete_lines", DryRun: true}

	dry, err := w.EditLines(ctx, req)
	require.NoError(t, err)
	assert.True(t, dry.DryRun)
	assert.Empty(t, dry.NewChecksum)
	assert.Equal(t, "one\ntwo\nthree\n", readTestFile(t, root, "f.txt"))

	req.DryRun = false
	applied, err := w.EditLines(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, dry.Diff, applied.Diff)
	assert.Equal(t, "one\n", readTestFile(t, root, "f.txt"))
}

func Test_EditLines_DeleteThenReinsertRestoresFile(t *testing.T) {
	original := "l1\nl2\nl3\nl4\n"
	w, root := singleMount(t, map[string]string{"f.txt": original})
	ctx := context.Background()

	_, err := w.EditLines(ctx, EditRequest{Path: "proj/f.txt", Lines: "3-4", Action: "delete_lines"})
	require.NoError(t, err)
	_, err = w.EditLines(ctx, EditRequest{Path: "proj/f.txt", Lines: "3", Action: "insert_before", Content: "l3\nl4\n"})
	require.NoError(t, err)
	assert.Equal(t, original, readTestFile(t, root, "f.txt"))
}

func Test_EditLines_InvalidArguments(t *testing.T) {
	w, _ := singleMount(t, map[string]string{"f.txt": "a\n"})
	ctx := context.Background()

	_, err := w.EditLines(ctx, EditRequest{Path: "proj/f.txt", Lines: "3-1"})
	requireCode(t, err, fserr.CodeInvalidRange)

	_, err = w.EditLines(ctx, EditRequest{Path: "proj/f.txt", Lines: "1", Action: "rotate"})
	requireCode(t, err, fserr.CodeInvalidArgument)

	_, err = w.EditLines(ctx, EditRequest{Path: "proj/f.txt", Lines: "9", Content: "x"})
	requireCode(t, err, fserr.CodeInvalidRange)
}

func Test_EditLines_PreservesFileMode(t *testing.T) {
	w, root := singleMount(t, map[string]string{"run.sh": "#!/bin/sh\necho hi\n"})
	require.NoError(t, os.Chmod(filepath.Join(root, "run.sh"), 0o755))

	_, err := w.EditLines(context.Background(), EditRequest{Path: "proj/run.sh", Lines: "2", Content: "echo bye"})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp file is left behind")
}

func Test_ReplacePattern_Unique(t *testing.T) {
	w, root := singleMount(t, map[string]string{"cfg.ini": "host = a\nport = 1\n"})

	got, err := w.ReplacePattern(context.Background(), ReplaceRequest{
		PatternSpec: PatternSpec{Pattern: "port = 1"},
		Path:        "proj/cfg.ini",
		Replacement: "port = $2",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Replacements)
	assert.Equal(t, "host = a\nport = $2\n", readTestFile(t, root, "cfg.ini"))
}

func Test_ReplacePattern_AmbiguousListsLines(t *testing.T) {
	w, root := singleMount(t, map[string]string{"f.txt": "x\ny\nx\n"})

	_, err := w.ReplacePattern(context.Background(), ReplaceRequest{
		PatternSpec: PatternSpec{Pattern: "x"},
		Path:        "proj/f.txt",
		Replacement: "z",
	})
	requireCode(t, err, fserr.CodeAmbiguous)
	e, _ := fserr.As(err)
	assert.Equal(t, []string{"line 1", "line 3"}, e.Candidates)
	assert.Equal(t, "x\ny\nx\n", readTestFile(t, root, "f.txt"))
}

func Test_ReplacePattern_All(t *testing.T) {
	w, root := singleMount(t, map[string]string{"f.txt": "x\ny\nx\n"})

	got, err := w.ReplacePattern(context.Background(), ReplaceRequest{
		PatternSpec: PatternSpec{Pattern: "x"},
		Path:        "proj/f.txt",
		Replacement: "z",
		ReplaceAll:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Replacements)
	assert.Equal(t, "z\ny\nz\n", readTestFile(t, root, "f.txt"))
}

func Test_ReplacePattern_RegexGroups(t *testing.T) {
	w, root := singleMount(t, map[string]string{"f.go": "func oldName() {}\n"})

	_, err := w.ReplacePattern(context.Background(), ReplaceRequest{
		PatternSpec: PatternSpec{Pattern: `func (\w+)Name`, Mode: "regex"},
		Path:        "proj/f.go",
		Replacement: "func ${1}Func",
	})
	require.NoError(t, err)
	assert.Equal(t, "func oldFunc() {}\n", readTestFile(t, root, "f.go"))
}

func Test_ReplacePattern_FuzzyToleratesWhitespace(t *testing.T) {
	w, root := singleMount(t, map[string]string{"f.txt": "if  x   then\n  y\n"})

	_, err := w.ReplacePattern(context.Background(), ReplaceRequest{
		PatternSpec: PatternSpec{Pattern: "if x then", Mode: "fuzzy"},
		Path:        "proj/f.txt",
		Replacement: "when x",
	})
	require.NoError(t, err)
	assert.Equal(t, "when x\n  y\n", readTestFile(t, root, "f.txt"))
}

func Test_ReplacePattern_NotFoundAndUnsafe(t *testing.T) {
	w, _ := singleMount(t, map[string]string{"f.txt": "abc\n"})
	ctx := context.Background()

	_, err := w.ReplacePattern(ctx, ReplaceRequest{PatternSpec: PatternSpec{Pattern: "zzz"}, Path: "proj/f.txt"})
	requireCode(t, err, fserr.CodePatternNotFound)

	_, err = w.ReplacePattern(ctx, ReplaceRequest{PatternSpec: PatternSpec{Pattern: "(a+)+b", Mode: "regex"}, Path: "proj/f.txt"})
	requireCode(t, err, fserr.CodeUnsafePattern)
}

func Test_WriteFile_CreatesWithParents(t *testing.T) {
	w, root := singleMount(t, nil)

	got, err := w.WriteFile(context.Background(), WriteRequest{Path: "proj/new/dir/file.md", Content: "# Title"})
	require.NoError(t, err)
	assert.True(t, got.Created)
	assert.Equal(t, "# Title\n", readTestFile(t, root, "new/dir/file.md"))
	assert.Equal(t, edit.ChecksumString("# Title\n"), got.NewChecksum)
	assert.Contains(t, got.Diff, "+# Title")

	info, err := os.Stat(filepath.Join(root, "new/dir/file.md"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func Test_WriteFile_ExistingNeedsChecksumOrOverwrite(t *testing.T) {
	w, root := singleMount(t, map[string]string{"f.txt": "old\n"})
	ctx := context.Background()

	_, err := w.WriteFile(ctx, WriteRequest{Path: "proj/f.txt", Content: "new\n"})
	requireCode(t, err, fserr.CodeAlreadyExists)

	_, err = w.WriteFile(ctx, WriteRequest{Path: "proj/f.txt", Content: "new\n", ExpectedChecksum: "000000000000"})
	requireCode(t, err, fserr.CodeChecksumMismatch)
	assert.Equal(t, "old\n", readTestFile(t, root, "f.txt"))

	got, err := w.WriteFile(ctx, WriteRequest{Path: "proj/f.txt", Content: "new\n", ExpectedChecksum: edit.ChecksumString("old\n")})
	require.NoError(t, err)
	assert.False(t, got.Created)
	assert.Equal(t, "new\n", readTestFile(t, root, "f.txt"))

	_, err = w.WriteFile(ctx, WriteRequest{Path: "proj/f.txt", Content: "newer\n", Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, "newer\n", readTestFile(t, root, "f.txt"))
}

func Test_WriteFile_DryRunCreatesNothing(t *testing.T) {
	w, root := singleMount(t, nil)

	got, err := w.WriteFile(context.Background(), WriteRequest{Path: "proj/sub/a.txt", Content: "a\n", DryRun: true})
	require.NoError(t, err)
	assert.True(t, got.DryRun)
	assert.Contains(t, got.Diff, "@@ -0,0 +1 @@\n+a")
	assert.NotEqual(t, diff.NoChanges, got.Diff)
	assert.Empty(t, got.NewChecksum)
	_, err = os.Stat(filepath.Join(root, "sub"))
	assert.True(t, os.IsNotExist(err))
}

func Test_WriteFile_RejectsDirectoryTargets(t *testing.T) {
	w, _ := singleMount(t, map[string]string{"d/a.txt": "a"})
	ctx := context.Background()

	_, err := w.WriteFile(ctx, WriteRequest{Path: "proj/d", Content: "x", Overwrite: true})
	requireCode(t, err, fserr.CodeIsDirectory)

	_, err = w.WriteFile(ctx, WriteRequest{Path: "proj", Content: "x"})
	requireCode(t, err, fserr.CodeIsDirectory)
}

func Test_Write_InvalidatesIndex(t *testing.T) {
	w, _ := singleMount(t, map[string]string{"a.txt": "a\n"})
	ctx := context.Background()

	_, err := w.FindFiles(ctx, FindRequest{Path: "proj", Query: "brand"})
	require.NoError(t, err)

	_, err = w.WriteFile(ctx, WriteRequest{Path: "proj/brand-new.txt", Content: "n"})
	require.NoError(t, err)

	got, err := w.FindFiles(ctx, FindRequest{Path: "proj", Query: "brand"})
	require.NoError(t, err)
	require.Len(t, got.Files, 1)
	assert.Equal(t, "proj/brand-new.txt", got.Files[0].VirtualPath)
}
