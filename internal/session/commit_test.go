package session_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/scenepack/scenepack/internal/packer"
	"github.com/scenepack/scenepack/internal/report"
	"github.com/scenepack/scenepack/internal/scenetest"
	"github.com/scenepack/scenepack/internal/sceneio"
	"github.com/scenepack/scenepack/internal/session"
)

func idImageBuilder() *scenetest.Builder {
	b := scenetest.New()
	b.DefineStruct(scenetest.StructDef{
		Type: "ID",
		Fields: []scenetest.Field{
			{Name: "name[1024]", Type: "char"},
		},
	})
	return b
}

func writeJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCommitRestoresSceneReferencesAndBuildsArchive(t *testing.T) {
	dir := t.TempDir()

	b := idImageBuilder()
	var name [1024]byte
	copy(name[:], "//wood.png\x00")
	b.AddBlock("IM", "ID", 1, 1, name[:])
	scenePath := filepath.Join(dir, "scene.blend")
	if err := os.WriteFile(scenePath, b.Build(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "wood.png"), []byte("pixels"), 0o644); err != nil {
		t.Fatal(err)
	}

	writeJSON(t, filepath.Join(dir, ".paths_remap.json"), packer.PathRemap{
		"scene.blend": "/orig/project/scene.blend",
		"wood.png":    "/orig/project/textures/wood.png",
	})
	writeJSON(t, filepath.Join(dir, ".deps_remap.json"), packer.DepsRemap{
		"scene.blend": {"//wood.png": "//textures/wood.png"},
	})
	writeJSON(t, filepath.Join(dir, ".paths_uuid.json"), packer.PathsUUID{
		"scene.blend": "stale",
		"wood.png":    "stale",
	})

	st := session.Status{Modified: []string{"scene.blend", "wood.png"}}

	plan, err := session.Commit(dir, st, report.Discard())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if plan == nil {
		t.Fatal("Commit returned a nil plan for a dirty status")
	}
	if plan.TouchedCount != 2 {
		t.Errorf("TouchedCount = %d, want 2", plan.TouchedCount)
	}

	c, err := sceneio.Open(scenePath, true)
	if err != nil {
		t.Fatalf("reopening scene: %v", err)
	}
	defer c.Close()
	got, err := c.ReadString(c.BlocksByCode("IM")[0], "name")
	if err != nil {
		t.Fatal(err)
	}
	if want := "//textures/wood.png"; got != want {
		t.Errorf("restored name = %q, want %q", got, want)
	}

	zr, err := zip.NewReader(bytes.NewReader(plan.Archive), int64(len(plan.Archive)))
	if err != nil {
		t.Fatalf("archive is not a valid zip: %v", err)
	}
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"scene.blend", "wood.png", ".paths_remap.json", ".paths_ops.json"} {
		if !names[want] {
			t.Errorf("archive missing entry %q", want)
		}
	}

	if plan.PathsUUID["scene.blend"] == "stale" {
		t.Errorf("expected scene.blend's fingerprint to be refreshed")
	}
}

func TestCommitReturnsNilForCleanStatus(t *testing.T) {
	plan, err := session.Commit(t.TempDir(), session.Status{}, report.Discard())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if plan != nil {
		t.Errorf("expected a nil plan for a clean status, got %+v", plan)
	}
}
