package sceneio_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/scenepack/scenepack/internal/sceneio"
	"github.com/scenepack/scenepack/internal/scenetest"
)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "scene-*.blend")
	if err != nil {
		t.Fatal(err)
	}
	path := f.Name()
	f.Close()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func idImageBuilder() *scenetest.Builder {
	b := scenetest.New()
	b.DefineStruct(scenetest.StructDef{
		Type: "ID",
		Fields: []scenetest.Field{
			{Name: "name[66]", Type: "char"},
		},
	})
	return b
}

func TestOpenReadsHeaderAndBlocks(t *testing.T) {
	b := idImageBuilder()
	var namePayload [66]byte
	copy(namePayload[:], "IMTexture\x00")
	b.AddBlock("IM", "ID", 0x1000, 1, namePayload[:])
	path := writeTemp(t, b.Build())

	c, err := sceneio.Open(path, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if got := c.Header().PointerSize; got != 8 {
		t.Errorf("PointerSize = %d, want 8", got)
	}
	if got := c.Header().Version; got != "280" {
		t.Errorf("Version = %q, want 280", got)
	}

	blocks := c.BlocksByCode("IM")
	if len(blocks) != 1 {
		t.Fatalf("got %d IM blocks, want 1", len(blocks))
	}
	blk, ok := c.BlockByOldAddress(0x1000)
	if !ok {
		t.Fatal("BlockByOldAddress: not found")
	}
	if blk.Code != "IM" {
		t.Errorf("resolved block code = %q, want IM", blk.Code)
	}

	got, err := c.ReadString(blk, "name")
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if got != "IMTexture" {
		t.Errorf("ReadString = %q, want IMTexture", got)
	}
}

func TestWriteStringRoundTrips(t *testing.T) {
	b := idImageBuilder()
	var namePayload [66]byte
	copy(namePayload[:], "Old\x00")
	b.AddBlock("IM", "ID", 1, 1, namePayload[:])
	path := writeTemp(t, b.Build())

	c, err := sceneio.Open(path, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	blk := c.BlocksByCode("IM")[0]
	if err := c.WriteString(blk, "name", "NewName"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if !c.Modified() {
		t.Error("Modified() = false after write")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2, err := sceneio.Open(path, true)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()
	got, err := c2.ReadString(c2.BlocksByCode("IM")[0], "name")
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if got != "NewName" {
		t.Errorf("ReadString after reopen = %q, want NewName", got)
	}
}

func TestWriteRejectedOnReadOnly(t *testing.T) {
	b := idImageBuilder()
	var namePayload [66]byte
	b.AddBlock("IM", "ID", 1, 1, namePayload[:])
	path := writeTemp(t, b.Build())

	c, err := sceneio.Open(path, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()
	if err := c.WriteString(c.BlocksByCode("IM")[0], "name", "x"); err == nil {
		t.Fatal("WriteString on read-only container: want error, got nil")
	}
}

func TestOpenDecompressesGzip(t *testing.T) {
	b := idImageBuilder()
	var namePayload [66]byte
	copy(namePayload[:], "Zipped\x00")
	b.AddBlock("IM", "ID", 1, 1, namePayload[:])
	raw := b.Build()

	var compressed bytes.Buffer
	gw := gzip.NewWriter(&compressed)
	if _, err := gw.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	path := writeTemp(t, compressed.Bytes())

	c, err := sceneio.Open(path, true)
	if err != nil {
		t.Fatalf("Open (gzip): %v", err)
	}
	defer c.Close()
	got, err := c.ReadString(c.BlocksByCode("IM")[0], "name")
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if got != "Zipped" {
		t.Errorf("ReadString = %q, want Zipped", got)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := writeTemp(t, []byte("not a scene file and not gzip either"))
	if _, err := sceneio.Open(path, true); err == nil {
		t.Fatal("Open on garbage input: want error, got nil")
	}
}
