package tools

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/lexandro/sandboxfs-mcp/vpath"
	"github.com/lexandro/sandboxfs-mcp/workspace"
)

var checksumLine = regexp.MustCompile(`(?m)^checksum: ([0-9a-f]+)$`)

func readChecksum(t *testing.T, h *ReadHandler, path string) string {
	t.Helper()
	result, _, _ := h.Handle(context.Background(), nil, ReadArgs{Path: path})
	m := checksumLine.FindStringSubmatch(resultText(t, result))
	if m == nil {
		t.Fatalf("no checksum in read output:\n%s", resultText(t, result))
	}
	return m[1]
}

func Test_EditHandler_ReadThenEdit(t *testing.T) {
	ws, root := newTestWorkspace(t, map[string]string{"f.txt": "one\ntwo\nthree\n"})
	reader := &ReadHandler{Workspace: ws, Logger: testLogger()}
	h := &EditHandler{Workspace: ws, Logger: testLogger()}

	sum := readChecksum(t, reader, "proj/f.txt")
	result, _, err := h.Handle(context.Background(), nil, EditArgs{
		Path:             "proj/f.txt",
		Lines:            "2",
		Content:          "TWO",
		ExpectedChecksum: sum,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, result)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	for _, want := range []string{"Edited proj/f.txt", "+1 -1 lines", "new checksum: ", "-two\n+TWO"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, text)
		}
	}

	data, _ := os.ReadFile(filepath.Join(root, "f.txt"))
	if string(data) != "one\nTWO\nthree\n" {
		t.Errorf("unexpected file content %q", data)
	}

	// the old checksum is now stale
	result, _, _ = h.Handle(context.Background(), nil, EditArgs{Path: "proj/f.txt", Lines: "1", Content: "x", ExpectedChecksum: sum})
	if !result.IsError || !strings.HasPrefix(resultText(t, result), "Error [CHECKSUM_MISMATCH]") {
		t.Errorf("expected CHECKSUM_MISMATCH, got: %s", resultText(t, result))
	}
}

func Test_EditHandler_MissingLines(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{"f.txt": "a\n"})
	h := &EditHandler{Workspace: ws, Logger: testLogger()}

	result, _, _ := h.Handle(context.Background(), nil, EditArgs{Path: "proj/f.txt"})
	if !result.IsError || !strings.Contains(resultText(t, result), "lines parameter is required") {
		t.Errorf("expected missing lines error, got: %s", resultText(t, result))
	}
}

func Test_EditHandler_DryRun(t *testing.T) {
	ws, root := newTestWorkspace(t, map[string]string{"f.txt": "a\nb\n"})
	h := &EditHandler{Workspace: ws, Logger: testLogger()}

	result, _, _ := h.Handle(context.Background(), nil, EditArgs{Path: "proj/f.txt", Lines: "1", Action: "delete_lines", DryRun: true})
	text := resultText(t, result)
	if !strings.HasPrefix(text, "Dry run: edited proj/f.txt") || !strings.Contains(text, "current checksum: ") {
		t.Errorf("unexpected dry run output:\n%s", text)
	}
	data, _ := os.ReadFile(filepath.Join(root, "f.txt"))
	if string(data) != "a\nb\n" {
		t.Errorf("dry run modified the file: %q", data)
	}
}

func Test_ReplaceHandler_AmbiguousListsCandidates(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{"f.txt": "foo\nbar\nfoo\n"})
	h := &ReplaceHandler{Workspace: ws, Logger: testLogger()}

	result, _, _ := h.Handle(context.Background(), nil, ReplaceArgs{Path: "proj/f.txt", Pattern: "foo", Replacement: "baz"})
	text := resultText(t, result)
	if !result.IsError || !strings.HasPrefix(text, "Error [AMBIGUOUS]") {
		t.Fatalf("expected AMBIGUOUS, got: %s", text)
	}
	if !strings.Contains(text, "Candidates:\n  line 1\n  line 3") {
		t.Errorf("expected candidate lines, got:\n%s", text)
	}
}

func Test_ReplaceHandler_ReplaceAll(t *testing.T) {
	ws, root := newTestWorkspace(t, map[string]string{"f.txt": "foo\nbar\nfoo\n"})
	h := &ReplaceHandler{Workspace: ws, Logger: testLogger()}

	result, _, _ := h.Handle(context.Background(), nil, ReplaceArgs{Path: "proj/f.txt", Pattern: "foo", Replacement: "baz", ReplaceAll: true})
	text := resultText(t, result)
	if result.IsError || !strings.Contains(text, "replacements: 2") {
		t.Fatalf("unexpected output:\n%s", text)
	}
	data, _ := os.ReadFile(filepath.Join(root, "f.txt"))
	if string(data) != "baz\nbar\nbaz\n" {
		t.Errorf("unexpected file content %q", data)
	}
}

func Test_WriteHandler_CreateThenRefuseOverwrite(t *testing.T) {
	ws, root := newTestWorkspace(t, nil)
	h := &WriteHandler{Workspace: ws, Logger: testLogger()}

	result, _, _ := h.Handle(context.Background(), nil, WriteArgs{Path: "proj/notes/new.md", Content: "# New"})
	text := resultText(t, result)
	if result.IsError || !strings.HasPrefix(text, "Created proj/notes/new.md") {
		t.Fatalf("unexpected output:\n%s", text)
	}
	data, _ := os.ReadFile(filepath.Join(root, "notes", "new.md"))
	if string(data) != "# New\n" {
		t.Errorf("unexpected file content %q", data)
	}

	result, _, _ = h.Handle(context.Background(), nil, WriteArgs{Path: "proj/notes/new.md", Content: "other"})
	if !result.IsError || !strings.HasPrefix(resultText(t, result), "Error [ALREADY_EXISTS]") {
		t.Errorf("expected ALREADY_EXISTS, got: %s", resultText(t, result))
	}
}

func Test_WriteHandler_OutOfScope(t *testing.T) {
	ws, _ := newTestWorkspace(t, nil)
	h := &WriteHandler{Workspace: ws, Logger: testLogger()}

	result, _, _ := h.Handle(context.Background(), nil, WriteArgs{Path: "/etc/passwd", Content: "x"})
	if !result.IsError || !strings.HasPrefix(resultText(t, result), "Error [OUT_OF_SCOPE]") {
		t.Errorf("expected OUT_OF_SCOPE, got: %s", resultText(t, result))
	}
}

func Test_WriteHandlers_LogOneInfoLinePerCall(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("one\ntwo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ws, err := workspace.New(workspace.Options{
		Mounts: []vpath.Mount{{Name: "proj", AbsolutePath: root}},
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("workspace.New failed: %v", err)
	}
	ctx := context.Background()

	edit := &EditHandler{Workspace: ws, Logger: logger}
	if result, _, _ := edit.Handle(ctx, nil, EditArgs{Path: "proj/f.txt", Lines: "1", Content: "ONE"}); result.IsError {
		t.Fatalf("edit failed: %s", resultText(t, result))
	}
	replace := &ReplaceHandler{Workspace: ws, Logger: logger}
	if result, _, _ := replace.Handle(ctx, nil, ReplaceArgs{Path: "proj/f.txt", Pattern: "two", Replacement: "TWO"}); result.IsError {
		t.Fatalf("replace failed: %s", resultText(t, result))
	}
	write := &WriteHandler{Workspace: ws, Logger: logger}
	if result, _, _ := write.Handle(ctx, nil, WriteArgs{Path: "proj/new.txt", Content: "x"}); result.IsError {
		t.Fatalf("write failed: %s", resultText(t, result))
	}

	if got := strings.Count(buf.String(), "level=INFO"); got != 3 {
		t.Errorf("expected 3 info lines for 3 calls, got %d:\n%s", got, buf.String())
	}
}
