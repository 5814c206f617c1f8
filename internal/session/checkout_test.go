package session_test

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/scenepack/scenepack/internal/session"
)

func TestExtractArchiveWritesNestedEntries(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	writeEntry := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	writeEntry("scene.blend", "blend-bytes")
	writeEntry("textures/wood.png", "pixels")
	writeEntry(".paths_uuid.json", "{}")
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	if err := session.ExtractArchive(buf.Bytes(), dir); err != nil {
		t.Fatalf("ExtractArchive: %v", err)
	}

	for name, want := range map[string]string{
		"scene.blend":       "blend-bytes",
		"textures/wood.png": "pixels",
		".paths_uuid.json":  "{}",
	} {
		got, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}
