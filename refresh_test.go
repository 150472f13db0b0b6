package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lexandro/sandboxfs-mcp/index"
	"github.com/lexandro/sandboxfs-mcp/vpath"
	"github.com/lexandro/sandboxfs-mcp/workspace"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testClock is a manually advanced clock for the index cache.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestWorkspace(t *testing.T, clock *testClock, files ...string) (*workspace.Workspace, string) {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, rel := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	options := workspace.Options{
		Mounts: []vpath.Mount{{Name: "proj", AbsolutePath: root}},
		Logger: testLogger(),
	}
	if clock != nil {
		options.Cache.Now = clock.Now
	}
	ws, err := workspace.New(options)
	if err != nil {
		t.Fatalf("workspace.New failed: %v", err)
	}
	return ws, root
}

func Test_performRefresh_BuildsMissingMountRoot(t *testing.T) {
	ws, root := newTestWorkspace(t, nil, "a.go")

	result := performRefresh(context.Background(), ws, testLogger())

	if result.Rebuilt != 1 {
		t.Errorf("expected 1 rebuilt root, got %d", result.Rebuilt)
	}
	if state := ws.Indexes().State(root); state != index.StateFresh {
		t.Errorf("expected mount root to be fresh, got %s", state)
	}
}

func Test_performRefresh_FreshIndexesUntouched(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	ws, _ := newTestWorkspace(t, clock, "a.go")
	warmIndexes(context.Background(), ws, testLogger())

	result := performRefresh(context.Background(), ws, testLogger())

	if result.Rebuilt != 0 || result.Evicted != 0 || result.Failed != 0 {
		t.Errorf("expected no work on fresh indexes, got %+v", result)
	}
}

func Test_performRefresh_RebuildsExpiredMountAndEvictsNested(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	ws, root := newTestWorkspace(t, clock, "a.go", "sub/b.go")
	ctx := context.Background()

	nested := filepath.Join(root, "sub")
	if _, err := ws.Indexes().GetOrBuild(ctx, root, ws.IndexOptions()); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Indexes().GetOrBuild(ctx, nested, ws.IndexOptions()); err != nil {
		t.Fatal(err)
	}

	clock.now = clock.now.Add(index.DefaultTTL + time.Second)
	result := performRefresh(ctx, ws, testLogger())

	if result.Rebuilt != 1 {
		t.Errorf("expected 1 rebuilt root, got %d", result.Rebuilt)
	}
	if result.Evicted != 1 {
		t.Errorf("expected 1 evicted root, got %d", result.Evicted)
	}
	if state := ws.Indexes().State(root); state != index.StateFresh {
		t.Errorf("expected mount root fresh after refresh, got %s", state)
	}
	if state := ws.Indexes().State(nested); state != index.StateAbsent {
		t.Errorf("expected nested root evicted, got %s", state)
	}
}

func Test_performRefresh_UnavailableMountCountsFailure(t *testing.T) {
	ws, root := newTestWorkspace(t, nil, "a.go")
	if err := os.RemoveAll(root); err != nil {
		t.Fatal(err)
	}

	result := performRefresh(context.Background(), ws, testLogger())

	if result.Failed != 1 {
		t.Errorf("expected 1 failure, got %+v", result)
	}
}

func Test_runPeriodicRefresh_StopsOnCancel(t *testing.T) {
	ws, root := newTestWorkspace(t, nil, "a.go")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		runPeriodicRefresh(ctx, 10*time.Millisecond, ws, testLogger())
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for ws.Indexes().State(root) != index.StateFresh {
		if time.Now().After(deadline) {
			t.Fatal("refresh loop never built the mount index")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh loop did not stop after cancel")
	}
}
