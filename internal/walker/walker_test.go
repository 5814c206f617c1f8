package walker_test

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/scenepack/scenepack/internal/scenetest"
	"github.com/scenepack/scenepack/internal/walker"
)

func imageBlockBuilder() *scenetest.Builder {
	b := scenetest.New()
	b.DefineStruct(scenetest.StructDef{
		Type: "ID",
		Fields: []scenetest.Field{
			{Name: "name[1024]", Type: "char"},
		},
	})
	return b
}

func writeScene(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWalkEmitsImageReference(t *testing.T) {
	dir := t.TempDir()

	b := imageBlockBuilder()
	var name [1024]byte
	copy(name[:], "//textures/wood.png\x00")
	b.AddBlock("IM", "ID", 1, 1, name[:])
	root := writeScene(t, dir, "scene.blend", b.Build())

	var got []walker.Reference
	w := walker.New(walker.Options{})
	if err := w.Walk(context.Background(), root, func(r walker.Reference) error {
		got = append(got, r)
		return nil
	}); err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d references, want 1: %+v", len(got), got)
	}
	if got[0].Path != "//textures/wood.png" {
		t.Errorf("Path = %q, want //textures/wood.png", got[0].Path)
	}
	if got[0].BlockCode != "IM" {
		t.Errorf("BlockCode = %q, want IM", got[0].BlockCode)
	}
}

func TestWalkReportsMissingLibraryWithoutAborting(t *testing.T) {
	dir := t.TempDir()

	b := scenetest.New()
	b.DefineStruct(scenetest.StructDef{
		Type: "ID",
		Fields: []scenetest.Field{
			{Name: "name[1024]", Type: "char"},
		},
	})
	var libName [1024]byte
	copy(libName[:], "//missing_lib.blend\x00")
	b.AddBlock("LI", "ID", 2, 1, libName[:])
	root := writeScene(t, dir, "scene.blend", b.Build())

	var got []walker.Reference
	w := walker.New(walker.Options{Recursive: true})
	if err := w.Walk(context.Background(), root, func(r walker.Reference) error {
		got = append(got, r)
		return nil
	}); err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d references, want 1: %+v", len(got), got)
	}
	if got[0].Status != walker.StatusMissing {
		t.Errorf("Status = %v, want StatusMissing", got[0].Status)
	}
}

func TestWalkStopsOnVisitError(t *testing.T) {
	dir := t.TempDir()
	b := imageBlockBuilder()
	var name [1024]byte
	copy(name[:], "//a.png\x00")
	b.AddBlock("IM", "ID", 1, 1, name[:])
	root := writeScene(t, dir, "scene.blend", b.Build())

	sentinel := errVisitStop{}
	w := walker.New(walker.Options{})
	err := w.Walk(context.Background(), root, func(walker.Reference) error {
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("Walk error = %v, want sentinel", err)
	}
}

type errVisitStop struct{}

func (errVisitStop) Error() string { return "stop" }

// TestWalkEmitsSequenceReference exercises sceneHandler end to end: a
// Scene block's "ed.seqbase.first" pointer chain through a strip, its
// strip data, and the strip data's element, joining "dir"+"name" into
// one sequence-path reference (§4.3 scene handler). Locate refuses to
// descend through a pointer field mid-path, so every struct along
// "ed"/"seqbase" must be embedded (non-pointer); only the leaf "first"
// may be a pointer.
func TestWalkEmitsSequenceReference(t *testing.T) {
	dir := t.TempDir()
	order := binary.LittleEndian

	b := scenetest.New()
	b.DefineStruct(scenetest.StructDef{
		Type:   "StripElem",
		Fields: []scenetest.Field{{Name: "name[16]", Type: "char"}},
	})
	b.DefineStruct(scenetest.StructDef{
		Type: "StripData",
		Fields: []scenetest.Field{
			{Name: "dir[16]", Type: "char"},
			{Name: "*stripdata", Type: "StripElem"},
		},
	})
	b.DefineStruct(scenetest.StructDef{
		Type: "Strip",
		Fields: []scenetest.Field{
			{Name: "type", Type: "int"},
			{Name: "*strip", Type: "StripData"},
			{Name: "*next", Type: "Strip"},
		},
	})
	b.DefineStruct(scenetest.StructDef{
		Type:   "ListBase",
		Fields: []scenetest.Field{{Name: "*first", Type: "Strip"}},
	})
	b.DefineStruct(scenetest.StructDef{
		Type:   "Editing",
		Fields: []scenetest.Field{{Name: "seqbase", Type: "ListBase"}},
	})
	b.DefineStruct(scenetest.StructDef{
		Type:   "Scene",
		Fields: []scenetest.Field{{Name: "ed", Type: "Editing"}},
	})

	const stripAddr, stripDataAddr, stripElemAddr = 10, 20, 30

	var elemPayload [16]byte
	copy(elemPayload[:], "0001.png\x00")
	b.AddBlock("DATA", "StripElem", stripElemAddr, 1, elemPayload[:])

	dataPayload := make([]byte, 16+8)
	copy(dataPayload, "//frames/\x00")
	order.PutUint64(dataPayload[16:], stripElemAddr)
	b.AddBlock("DATA", "StripData", stripDataAddr, 1, dataPayload)

	stripPayload := make([]byte, 4+8+8)
	order.PutUint32(stripPayload[0:], 0) // sequenceStripTypeImage
	order.PutUint64(stripPayload[4:], stripDataAddr)
	order.PutUint64(stripPayload[12:], 0) // next: end of list
	b.AddBlock("DATA", "Strip", stripAddr, 1, stripPayload)

	scenePayload := make([]byte, 8)
	order.PutUint64(scenePayload, stripAddr)
	b.AddBlock("SC", "Scene", 1, 1, scenePayload)

	root := writeScene(t, dir, "scene.blend", b.Build())

	var got []walker.Reference
	w := walker.New(walker.Options{})
	if err := w.Walk(context.Background(), root, func(r walker.Reference) error {
		got = append(got, r)
		return nil
	}); err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d references, want 1: %+v", len(got), got)
	}
	if got[0].Path != "//frames/0001.png" {
		t.Errorf("Path = %q, want //frames/0001.png", got[0].Path)
	}
	if got[0].BlockCode != "SC" {
		t.Errorf("BlockCode = %q, want SC", got[0].BlockCode)
	}
}
