package session_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/scenepack/scenepack/internal/session"
)

func TestLoadIgnoreFilterMatchesPatterns(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".bamignore"), []byte("^cache/\n.*\\.tmp$\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := session.LoadIgnoreFilter(dir)
	if err != nil {
		t.Fatalf("LoadIgnoreFilter: %v", err)
	}
	cases := []struct {
		rel     string
		ignored bool
	}{
		{"cache/a.png", true},
		{"scene.blend.tmp", true},
		{"scene.blend", false},
	}
	for _, c := range cases {
		if got := f.Ignored(c.rel); got != c.ignored {
			t.Errorf("Ignored(%q) = %v, want %v", c.rel, got, c.ignored)
		}
	}
}

func TestLoadIgnoreFilterMissingFileIgnoresNothing(t *testing.T) {
	dir := t.TempDir()
	f, err := session.LoadIgnoreFilter(dir)
	if err != nil {
		t.Fatalf("LoadIgnoreFilter: %v", err)
	}
	if f.Ignored("anything.blend") {
		t.Errorf("expected no filtering without a .bamignore file")
	}
}

func TestWriteDefaultIgnoreMatchesNumberedBackups(t *testing.T) {
	dir := t.TempDir()
	if err := session.WriteDefaultIgnore(dir); err != nil {
		t.Fatalf("WriteDefaultIgnore: %v", err)
	}
	f, err := session.LoadIgnoreFilter(dir)
	if err != nil {
		t.Fatalf("LoadIgnoreFilter: %v", err)
	}
	if !f.Ignored("scene.blend1") {
		t.Errorf("expected scene.blend1 to be ignored by the default pattern")
	}
	if f.Ignored("scene.blend") {
		t.Errorf("expected scene.blend to not be ignored by the default pattern")
	}
}
