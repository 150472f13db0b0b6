package tools

import (
	"context"
	"strings"
	"testing"
)

func Test_SearchHandler_EmptyPattern(t *testing.T) {
	ws, _ := newTestWorkspace(t, nil)
	h := &SearchHandler{Workspace: ws, Logger: testLogger()}

	result, _, err := h.Handle(context.Background(), nil, SearchArgs{Path: "proj"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true for empty pattern")
	}
	if text := resultText(t, result); !strings.Contains(text, "pattern parameter is required") {
		t.Errorf("expected error about empty pattern, got: %s", text)
	}
}

func Test_SearchHandler_RecursiveMatches(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{
		"main.go":     "package main\n\nfunc handleRequest() {}\n",
		"lib/util.go": "package lib\n// handleRequest is called elsewhere\n",
		"notes.md":    "nothing here\n",
	})
	h := &SearchHandler{Workspace: ws, Logger: testLogger()}

	result, _, _ := h.Handle(context.Background(), nil, SearchArgs{Pattern: "handleRequest", Path: "/", Recursive: true})
	text := resultText(t, result)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	for _, want := range []string{"Found 2 matches in 2 files", "── proj/main.go ──", "> 3: func handleRequest() {}", "── proj/lib/util.go ──"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, text)
		}
	}
	if strings.Contains(text, "notes.md") {
		t.Errorf("notes.md should not match, got:\n%s", text)
	}
}

func Test_SearchHandler_DirectoryWithoutRecursive(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{"a.txt": "x"})
	h := &SearchHandler{Workspace: ws, Logger: testLogger()}

	result, _, _ := h.Handle(context.Background(), nil, SearchArgs{Pattern: "x", Path: "proj"})
	text := resultText(t, result)
	if !result.IsError || !strings.HasPrefix(text, "Error [IS_DIRECTORY]") || !strings.Contains(text, "recursive=true") {
		t.Errorf("expected IS_DIRECTORY with recursive hint, got: %s", text)
	}
}

func Test_SearchHandler_Preset(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{"todo.md": "# Tasks\n- [ ] write docs\n- [x] ship\n"})
	h := &SearchHandler{Workspace: ws, Logger: testLogger()}

	zero := 0
	result, _, _ := h.Handle(context.Background(), nil, SearchArgs{Preset: "checklist_done", Path: "proj/todo.md", ContextLines: &zero})
	text := resultText(t, result)
	if !strings.Contains(text, "> 3: - [x] ship") {
		t.Errorf("expected the done item, got:\n%s", text)
	}
	if strings.Contains(text, "write docs") {
		t.Errorf("expected no context lines, got:\n%s", text)
	}
}

func Test_SearchHandler_UnsafeRegex(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{"a.txt": "aaaa"})
	h := &SearchHandler{Workspace: ws, Logger: testLogger()}

	result, _, _ := h.Handle(context.Background(), nil, SearchArgs{Pattern: "(a*)*b", Mode: "regex", Path: "proj/a.txt"})
	if !result.IsError || !strings.HasPrefix(resultText(t, result), "Error [UNSAFE_PATTERN]") {
		t.Errorf("expected UNSAFE_PATTERN, got: %s", resultText(t, result))
	}
}

func Test_SearchHandler_NoMatches(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{"a.txt": "abc"})
	h := &SearchHandler{Workspace: ws, Logger: testLogger()}

	result, _, _ := h.Handle(context.Background(), nil, SearchArgs{Pattern: "zzz", Path: "proj/a.txt"})
	if text := resultText(t, result); text != "No matches found (1 files searched)." {
		t.Errorf("unexpected output: %q", text)
	}
}
