package packer_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/scenepack/scenepack/internal/packer"
	"github.com/scenepack/scenepack/internal/report"
	"github.com/scenepack/scenepack/internal/scenetest"
	"github.com/scenepack/scenepack/internal/sceneio"
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

func TestPackFileModeRewritesAndCopiesAsset(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "wood.png"), []byte("pixels"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := idImageBuilder()
	var name [1024]byte
	copy(name[:], "//wood.png\x00")
	b.AddBlock("IM", "ID", 1, 1, name[:])
	root := filepath.Join(srcDir, "scene.blend")
	if err := os.WriteFile(root, b.Build(), 0o644); err != nil {
		t.Fatal(err)
	}

	destDir := t.TempDir()
	dest := filepath.Join(destDir, "scene.blend")

	result, err := packer.Pack(context.Background(), packer.Options{
		Root: root,
		Dest: dest,
		Mode: packer.ModeFile,
	}, report.Discard())
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if result.Dest != dest {
		t.Errorf("Dest = %q, want %q", result.Dest, dest)
	}

	if _, err := os.Stat(filepath.Join(destDir, "wood.png")); err != nil {
		t.Errorf("asset not copied: %v", err)
	}

	c, err := sceneio.Open(dest, true)
	if err != nil {
		t.Fatalf("opening packed scene: %v", err)
	}
	defer c.Close()
	got, err := c.ReadString(c.BlocksByCode("IM")[0], "name")
	if err != nil {
		t.Fatal(err)
	}
	if want := "//wood.png"; got != want {
		t.Errorf("rewritten name = %q, want %q", got, want)
	}

	for _, name := range []string{".paths_remap.json", ".deps_remap.json", ".paths_uuid.json"} {
		data, err := os.ReadFile(filepath.Join(destDir, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		var m map[string]interface{}
		if err := json.Unmarshal(data, &m); err != nil {
			t.Errorf("%s is not valid JSON: %v", name, err)
		}
	}

	if _, err := os.Stat(filepath.Join(destDir, "__blendfile_pack__")); !os.IsNotExist(err) {
		t.Errorf("staging dir not cleaned up")
	}
}

func TestPackArchiveModeProducesZip(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "wood.png"), []byte("pixels"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := idImageBuilder()
	var name [1024]byte
	copy(name[:], "//wood.png\x00")
	b.AddBlock("IM", "ID", 1, 1, name[:])
	root := filepath.Join(srcDir, "scene.blend")
	if err := os.WriteFile(root, b.Build(), 0o644); err != nil {
		t.Fatal(err)
	}

	destDir := t.TempDir()
	dest := filepath.Join(destDir, "bundle.zip")

	_, err := packer.Pack(context.Background(), packer.Options{
		Root:             root,
		Dest:             dest,
		Mode:             packer.ModeArchive,
		CompressionLevel: 6,
	}, report.Discard())
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("archive not written: %v", err)
	}
	if info.Size() == 0 {
		t.Errorf("archive is empty")
	}
}
