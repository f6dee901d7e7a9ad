package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMarker(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func assertMatch(t *testing.T, r *Rules, path string, want bool) {
	t.Helper()
	got, err := r.Match(path)
	if err != nil {
		t.Fatalf("Match(%q): %v", path, err)
	}
	if got != want {
		t.Errorf("Match(%q) = %v, want %v", path, got, want)
	}
}

func TestLoadNoMarkers(t *testing.T) {
	r, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !r.Empty() {
		t.Fatal("rules from empty directory should be empty")
	}
	assertMatch(t, r, "anything/at/all.txt", true)
}

func TestLoadMissingDirectory(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !r.Empty() {
		t.Fatal("rules from missing directory should be empty")
	}
}

func TestExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	writeMarker(t, dir, LegacyExcludeMarker, "*.log\n")

	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	assertMatch(t, r, "app.log", false)
	assertMatch(t, r, "logs/app.log", false)
	assertMatch(t, r, "app.jar", true)

	// The marker file itself never leaks into the output.
	assertMatch(t, r, LegacyExcludeMarker, false)
}

func TestExcludesAccumulate(t *testing.T) {
	dir := t.TempDir()
	writeMarker(t, dir, LegacyExcludeMarker, "*.log\n")
	writeMarker(t, dir, ExcludeMarker, "*.tmp\n")

	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	assertMatch(t, r, "a.log", false)
	assertMatch(t, r, "b.tmp", false)
	assertMatch(t, r, "c.txt", true)
	assertMatch(t, r, ExcludeMarker, false)
	assertMatch(t, r, LegacyExcludeMarker, false)
}

func TestIncludeAllowList(t *testing.T) {
	dir := t.TempDir()
	writeMarker(t, dir, IncludeMarker, "src/**\n")

	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	assertMatch(t, r, "src/main.go", true)
	assertMatch(t, r, "src/deep/nested.go", true)
	assertMatch(t, r, "README.md", false)
	assertMatch(t, r, IncludeMarker, false)
}

func TestIncludeNarrowedByExclude(t *testing.T) {
	dir := t.TempDir()
	writeMarker(t, dir, IncludeMarker, "src/**\n")
	writeMarker(t, dir, ExcludeMarker, "src/gen/**\n")

	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	assertMatch(t, r, "src/main.go", true)
	assertMatch(t, r, "src/gen/out.go", false)
	assertMatch(t, r, "docs/a.md", false)
}

func TestCommentsAndBlankLines(t *testing.T) {
	dir := t.TempDir()
	writeMarker(t, dir, ExcludeMarker, "# build leftovers\n\n*.tmp\n")

	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	assertMatch(t, r, "x.tmp", false)
	assertMatch(t, r, "# build leftovers", true) // comment is not a pattern
}

func TestNegationPattern(t *testing.T) {
	dir := t.TempDir()
	writeMarker(t, dir, ExcludeMarker, "*.log\n!keep.log\n")

	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	assertMatch(t, r, "drop.log", false)
	assertMatch(t, r, "keep.log", true)
}

func TestNilRules(t *testing.T) {
	var r *Rules
	if !r.Empty() {
		t.Fatal("nil rules should be empty")
	}
	assertMatch(t, r, "anything", true)
}
