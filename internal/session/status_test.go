package session_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/scenepack/scenepack/internal/packer"
	"github.com/scenepack/scenepack/internal/remap"
	"github.com/scenepack/scenepack/internal/session"
)

func TestDiffReportsAddedModifiedRemoved(t *testing.T) {
	dir := t.TempDir()
	unchangedPath := filepath.Join(dir, "unchanged.png")
	modifiedPath := filepath.Join(dir, "modified.png")
	if err := os.WriteFile(unchangedPath, []byte("same"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(modifiedPath, []byte("new bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "untracked.png"), []byte("added"), 0o644); err != nil {
		t.Fatal(err)
	}

	unchangedFP, err := remap.Fingerprint(unchangedPath)
	if err != nil {
		t.Fatal(err)
	}

	tracked := packer.PathsUUID{
		"unchanged.png": unchangedFP,
		"modified.png":  "stale-fingerprint",
		"gone.png":      "stale-fingerprint",
	}

	updated := packer.PathsUUID{}
	st, err := session.Diff(dir, tracked, nil, updated)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}

	if len(st.Added) != 1 || st.Added[0] != "untracked.png" {
		t.Errorf("Added = %v, want [untracked.png]", st.Added)
	}
	if len(st.Modified) != 1 || st.Modified[0] != "modified.png" {
		t.Errorf("Modified = %v, want [modified.png]", st.Modified)
	}
	if len(st.Removed) != 1 || st.Removed[0] != "gone.png" {
		t.Errorf("Removed = %v, want [gone.png]", st.Removed)
	}
	if !st.IsDirty() {
		t.Errorf("expected IsDirty() to be true")
	}
	if updated["modified.png"] == "stale-fingerprint" {
		t.Errorf("updated map was not refreshed with the file's current fingerprint")
	}
	if _, ok := updated["unchanged.png"]; !ok {
		t.Errorf("updated map should still carry unchanged entries")
	}
}

func TestDiffIgnoresMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "scene.blend1"), []byte("backup"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := session.WriteDefaultIgnore(dir); err != nil {
		t.Fatal(err)
	}
	ignore, err := session.LoadIgnoreFilter(dir)
	if err != nil {
		t.Fatal(err)
	}

	st, err := session.Diff(dir, packer.PathsUUID{}, ignore, nil)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(st.Added) != 0 {
		t.Errorf("Added = %v, want none (ignored)", st.Added)
	}
}

func TestDiffNotDirtyWhenTreeMatchesMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	fp, err := remap.Fingerprint(path)
	if err != nil {
		t.Fatal(err)
	}
	st, err := session.Diff(dir, packer.PathsUUID{"a.png": fp}, nil, nil)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if st.IsDirty() {
		t.Errorf("expected a clean status, got %+v", st)
	}
}
