package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lexandro/sandboxfs-mcp/fserr"
	"github.com/lexandro/sandboxfs-mcp/vpath"
)

func TestMain(m *testing.M) {
	// regexp2 runs one shared clock goroutine for match timeouts
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("github.com/dlclark/regexp2.runClock"))
}

// newTestMount creates a temp directory populated with files (path -> content).
func newTestMount(t *testing.T, files map[string]string) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func newTestWorkspace(t *testing.T, mounts ...vpath.Mount) *Workspace {
	t.Helper()
	w, err := New(Options{Mounts: mounts})
	require.NoError(t, err)
	return w
}

func singleMount(t *testing.T, files map[string]string) (*Workspace, string) {
	t.Helper()
	root := newTestMount(t, files)
	return newTestWorkspace(t, vpath.Mount{Name: "proj", AbsolutePath: root}), root
}

func requireCode(t *testing.T, err error, code fserr.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, fserr.CodeOf(err), "error: %v", err)
}

func Test_New_RejectsMissingMount(t *testing.T) {
	_, err := New(Options{Mounts: []vpath.Mount{{Name: "gone", AbsolutePath: filepath.Join(t.TempDir(), "missing")}}})
	require.Error(t, err)
}

func Test_New_RejectsFileMount(t *testing.T) {
	root := newTestMount(t, map[string]string{"f.txt": "x"})
	_, err := New(Options{Mounts: []vpath.Mount{{Name: "f", AbsolutePath: filepath.Join(root, "f.txt")}}})
	require.Error(t, err)
}

func Test_Resolve_SymlinkEscapeIsRejected(t *testing.T) {
	outside := newTestMount(t, map[string]string{"secret.txt": "top secret\n"})
	w, root := singleMount(t, map[string]string{"a.txt": "a\n"})
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))

	_, err := w.Read(context.Background(), ReadRequest{Path: "proj/link/secret.txt"})
	requireCode(t, err, fserr.CodeSymlinkEscape)

	_, err = w.WriteFile(context.Background(), WriteRequest{Path: "proj/link/new.txt", Content: "x"})
	requireCode(t, err, fserr.CodeSymlinkEscape)
	_, statErr := os.Stat(filepath.Join(outside, "new.txt"))
	require.True(t, os.IsNotExist(statErr))
}

func Test_Resolve_InternalSymlinkIsAllowed(t *testing.T) {
	w, root := singleMount(t, map[string]string{"docs/a.md": "# A\n"})
	require.NoError(t, os.Symlink(filepath.Join(root, "docs"), filepath.Join(root, "alias")))

	got, err := w.Read(context.Background(), ReadRequest{Path: "proj/alias/a.md"})
	require.NoError(t, err)
	require.Equal(t, "# A\n", got.Content)
}

func Test_Resolve_TraversalIsRejected(t *testing.T) {
	w, _ := singleMount(t, nil)
	_, err := w.Read(context.Background(), ReadRequest{Path: "proj/../etc/passwd"})
	requireCode(t, err, fserr.CodeTraversal)
}

func Test_Status_ReportsMountsAndCache(t *testing.T) {
	w, root := singleMount(t, map[string]string{"a.go": "package a\n"})
	_, err := w.FindFiles(context.Background(), FindRequest{Path: "/", Query: "a"})
	require.NoError(t, err)

	status := w.Status()
	require.Len(t, status.Mounts, 1)
	require.Equal(t, root, status.Mounts[0].AbsolutePath)
	require.True(t, status.Mounts[0].Available)
	require.Len(t, status.CachedIndexes, 1)
	require.Equal(t, "proj", status.CachedIndexes[0].Root)
	require.Equal(t, 1, status.CachedIndexes[0].FileCount)
}

func newTestFile(t *testing.T, root string, rel string, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func readTestFile(t *testing.T, root string, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}
