package remap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/scenepack/scenepack/internal/remap"
	"github.com/scenepack/scenepack/internal/report"
	"github.com/scenepack/scenepack/internal/sceneio"
)

// TestFinishRewritesRelativeReferenceAfterMove builds a scene file plus
// referenced asset under a source tree, copies both into a destination
// tree under new names (simulating a move/rename), and checks that
// Finish rewrites the scene's stored "//"-relative path to the asset's
// new relative location.
func TestFinishRewritesRelativeReferenceAfterMove(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "wood.png"), []byte("pixels"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := idBuilder()
	var name [1024]byte
	copy(name[:], "//wood.png\x00")
	b.AddBlock("IM", "ID", 1, 1, name[:])
	writeSceneFile(t, srcDir, "scene.blend", b.Build())

	m, err := remap.Start(context.Background(), []string{srcDir}, report.Discard())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	dstDir := t.TempDir()
	texturesDir := filepath.Join(dstDir, "textures")
	if err := os.MkdirAll(texturesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	copyFile(t, filepath.Join(srcDir, "wood.png"), filepath.Join(texturesDir, "wood.png"))
	copyFile(t, filepath.Join(srcDir, "scene.blend"), filepath.Join(dstDir, "scene.blend"))

	if err := remap.Finish([]string{dstDir}, m, false, false, report.Discard()); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	got := readNameField(t, filepath.Join(dstDir, "scene.blend"))
	if want := "//textures/wood.png"; got != want {
		t.Errorf("rewritten reference = %q, want %q", got, want)
	}
}

func TestFinishDryRunLeavesFileUnchanged(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "wood.png"), []byte("pixels"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := idBuilder()
	var name [1024]byte
	copy(name[:], "//wood.png\x00")
	b.AddBlock("IM", "ID", 1, 1, name[:])
	writeSceneFile(t, srcDir, "scene.blend", b.Build())

	m, err := remap.Start(context.Background(), []string{srcDir}, report.Discard())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	dstDir := t.TempDir()
	texturesDir := filepath.Join(dstDir, "textures")
	if err := os.MkdirAll(texturesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	copyFile(t, filepath.Join(srcDir, "wood.png"), filepath.Join(texturesDir, "wood.png"))
	copyFile(t, filepath.Join(srcDir, "scene.blend"), filepath.Join(dstDir, "scene.blend"))

	if err := remap.Finish([]string{dstDir}, m, false, true, report.Discard()); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	got := readNameField(t, filepath.Join(dstDir, "scene.blend"))
	if want := "//wood.png"; got != want {
		t.Errorf("dry-run should leave stored path unchanged, got %q want %q", got, want)
	}
}

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func readNameField(t *testing.T, path string) string {
	t.Helper()
	c, err := sceneio.Open(path, true)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	blocks := c.BlocksByCode("IM")
	if len(blocks) != 1 {
		t.Fatalf("got %d IM blocks, want 1", len(blocks))
	}
	s, err := c.ReadString(blocks[0], "name")
	if err != nil {
		t.Fatal(err)
	}
	return s
}
