package index

import (
	"testing"
)

func searchPaths(t *testing.T, idx *FileIndex, query string, options FindOptions) []string {
	t.Helper()
	result, err := Search(idx, query, options)
	if err != nil {
		t.Fatalf("Search(%q) failed: %v", query, err)
	}
	out := make([]string, len(result.Matches))
	for i, m := range result.Matches {
		out[i] = m.File.RelativePath
	}
	return out
}

func Test_Search_DepthPenaltyBreaksTies(t *testing.T) {
	idx := newTestIndex("sub/a.ts", "a.ts")

	got := searchPaths(t, idx, "a.ts", FindOptions{})
	if len(got) != 2 || got[0] != "a.ts" || got[1] != "sub/a.ts" {
		t.Errorf("expected a.ts ranked above sub/a.ts, got %v", got)
	}
}

func Test_Search_NameBonusOrdering(t *testing.T) {
	idx := newTestIndex("server_config.go", "config_test.go", "config.go")

	got := searchPaths(t, idx, "config", FindOptions{})
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %v", got)
	}
	// "config" is a prefix of config.go and config_test.go, substring of server_config.go
	if got[2] != "server_config.go" {
		t.Errorf("expected substring match last, got %v", got)
	}
}

func Test_Search_ExactBeatsPrefix(t *testing.T) {
	idx := newTestIndex("readme.md.bak", "readme.md")

	got := searchPaths(t, idx, "README.md", FindOptions{})
	if got[0] != "readme.md" {
		t.Errorf("expected exact name match first, got %v", got)
	}
}

func Test_Search_FilenameLikeQueryDropsPathOnlyMatches(t *testing.T) {
	idx := newTestIndex("handlers/user.go", "main.go")

	got := searchPaths(t, idx, "handlers", FindOptions{})
	if len(got) != 0 {
		t.Errorf("expected path-only match to be dropped for a bare name, got %v", got)
	}

	got = searchPaths(t, idx, "handlers/u", FindOptions{})
	if len(got) != 1 || got[0] != "handlers/user.go" {
		t.Errorf("expected path query to match, got %v", got)
	}
}

func Test_Search_MultiTermRequiresEveryTerm(t *testing.T) {
	idx := newTestIndex("api/user/handler.go", "api/order/handler.go", "web/user/view.go")

	got := searchPaths(t, idx, "user handler", FindOptions{})
	if len(got) != 1 || got[0] != "api/user/handler.go" {
		t.Errorf("expected only api/user/handler.go, got %v", got)
	}
}

func Test_Search_MultiTermLastTermInNameBonus(t *testing.T) {
	idx := newTestIndex("src/view/user.go", "src/user/view.go")

	got := searchPaths(t, idx, "src view", FindOptions{})
	if len(got) != 2 || got[0] != "src/user/view.go" {
		t.Errorf("expected the file named view.go first, got %v", got)
	}
}

func Test_Search_EmptyQueryListsByShallowness(t *testing.T) {
	idx := newTestIndex("deep/nested/z.go", "top.bin", "mid/a.go", "top.go")

	got := searchPaths(t, idx, "", FindOptions{})
	want := []string{"top.go", "top.bin", "mid/a.go", "deep/nested/z.go"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func Test_Search_StableForEqualScores(t *testing.T) {
	idx := newTestIndex("b.txt", "a.txt", "c.txt")

	got := searchPaths(t, idx, "", FindOptions{})
	if got[0] != "b.txt" || got[1] != "a.txt" || got[2] != "c.txt" {
		t.Errorf("expected walk order for equal scores, got %v", got)
	}
}

func Test_Search_GlobAndDirectories(t *testing.T) {
	idx := newTestIndex("src/", "src/main.go", "docs/main.md")

	got := searchPaths(t, idx, "main", FindOptions{Glob: "**/*.go"})
	if len(got) != 1 || got[0] != "src/main.go" {
		t.Errorf("expected glob to keep only Go files, got %v", got)
	}

	got = searchPaths(t, idx, "src", FindOptions{IncludeDirectories: true})
	if len(got) != 1 || got[0] != "src" {
		t.Errorf("expected the src directory, got %v", got)
	}

	if _, err := Search(idx, "x", FindOptions{Glob: "[bad"}); err == nil {
		t.Error("expected error for invalid glob")
	}
}

func Test_Search_MaxResultsKeepsTotal(t *testing.T) {
	idx := newTestIndex("a1.go", "a2.go", "a3.go")

	result, err := Search(idx, "a", FindOptions{MaxResults: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Matches) != 2 || result.Total != 3 {
		t.Errorf("expected 2 of 3 matches, got %d of %d", len(result.Matches), result.Total)
	}
}

func Test_SubsequenceScore(t *testing.T) {
	consecutive, ok := subsequenceScore("abc", "abc")
	if !ok {
		t.Fatal("expected match")
	}
	scattered, ok := subsequenceScore("abc", "axbxc")
	if !ok {
		t.Fatal("expected match")
	}
	if consecutive <= scattered {
		t.Errorf("expected consecutive run to outscore scattered match: %v vs %v", consecutive, scattered)
	}
	if _, ok := subsequenceScore("abd", "abc"); ok {
		t.Error("expected no match when a character is missing")
	}
}
