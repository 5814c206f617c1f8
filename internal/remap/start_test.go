package remap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/scenepack/scenepack/internal/remap"
	"github.com/scenepack/scenepack/internal/report"
	"github.com/scenepack/scenepack/internal/scenetest"
)

func idBuilder() *scenetest.Builder {
	b := scenetest.New()
	b.DefineStruct(scenetest.StructDef{
		Type: "ID",
		Fields: []scenetest.Field{
			{Name: "name[1024]", Type: "char"},
		},
	})
	return b
}

func writeSceneFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStartMapsFingerprintsToSources(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "wood.png"), []byte("pixels"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := idBuilder()
	var name [1024]byte
	copy(name[:], "//wood.png\x00")
	b.AddBlock("IM", "ID", 1, 1, name[:])
	scene := writeSceneFile(t, dir, "scene.blend", b.Build())

	m, err := remap.Start(context.Background(), []string{dir}, report.Discard())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	wantAsset := filepath.Join(dir, "wood.png")
	wantScene := scene
	var gotAsset, gotScene bool
	for _, src := range m {
		if src == wantAsset {
			gotAsset = true
		}
		if src == wantScene {
			gotScene = true
		}
	}
	if !gotAsset {
		t.Errorf("fingerprint map missing asset %q: %v", wantAsset, m)
	}
	if !gotScene {
		t.Errorf("fingerprint map missing scene file %q: %v", wantScene, m)
	}
}

func TestStartSkipsMissingReferenceWithoutFailing(t *testing.T) {
	dir := t.TempDir()
	b := idBuilder()
	var name [1024]byte
	copy(name[:], "//does_not_exist.png\x00")
	b.AddBlock("IM", "ID", 1, 1, name[:])
	scene := writeSceneFile(t, dir, "scene.blend", b.Build())

	m, err := remap.Start(context.Background(), []string{dir}, report.Discard())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, src := range m {
		if src != scene {
			t.Errorf("unexpected source in map: %q", src)
		}
	}
}
