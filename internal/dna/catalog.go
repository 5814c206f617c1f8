// Package dna decodes the scene-file's self-description (the "DNA"
// catalog carried in the DNA1 block, §3/§4.2) and compiles dotted field
// paths against it into flat offsets. It holds no knowledge of the
// container format beyond the byte order and pointer width it is handed;
// package sceneio owns the file handle and seeks using the offsets this
// package computes.
package dna

import (
	"bytes"
	"encoding/binary"
	"strings"

	"golang.org/x/xerrors"

	"github.com/scenepack/scenepack/internal/report"
)

// Name is a raw C-style field declarator such as "*name", "(*fn)()" or
// "verts[4]", decomposed into the pieces §3 names.
type Name struct {
	Raw           string
	Short         string
	IsPointer     bool
	IsFuncPointer bool
	ArrayLen      int
}

func newName(raw string) Name {
	n := Name{Raw: raw}
	n.IsPointer = strings.Contains(raw, "*")
	n.IsFuncPointer = strings.Contains(raw, "(*")
	short := strings.NewReplacer("*", "", "(", "", ")", "").Replace(raw)
	if idx := strings.IndexByte(short, '['); idx != -1 {
		short = short[:idx]
	}
	n.Short = short

	n.ArrayLen = 1
	rest := raw
	for {
		open := strings.IndexByte(rest, '[')
		if open == -1 {
			break
		}
		close := strings.IndexByte(rest[open:], ']')
		if close == -1 {
			break
		}
		close += open
		dim := 0
		for _, c := range rest[open+1 : close] {
			if c < '0' || c > '9' {
				dim = -1
				break
			}
			dim = dim*10 + int(c-'0')
		}
		if dim > 0 {
			n.ArrayLen *= dim
		}
		rest = rest[close+1:]
	}
	return n
}

// Type is one entry of the DNA's type table: a name, its on-disk size,
// and (for compound types) the index of the Struct describing its
// layout. StructIndex is -1 for scalar/opaque types.
type Type struct {
	Name        string
	Size        int
	StructIndex int
}

// Field is one member of a Struct: which Type and Name it references,
// its on-disk Size, and its Offset within the struct — both computed
// once at parse time and cached (§3 invariant).
type Field struct {
	TypeIndex int
	NameIndex int
	Size      int
	Offset    int
}

// Struct is a compound type's field list, in declaration order.
type Struct struct {
	TypeIndex int
	Fields    []Field
}

// Catalog is the fully decoded DNA1 payload.
type Catalog struct {
	Names   []Name
	Types   []Type
	Structs []Struct
}

func align4(off int) int {
	if trim := off % 4; trim != 0 {
		return off + (4 - trim)
	}
	return off
}

func readCString(data []byte, offset int) (string, int, error) {
	end := bytes.IndexByte(data[offset:], 0)
	if end == -1 {
		return "", 0, xerrors.New("unterminated string in DNA payload")
	}
	return string(data[offset : offset+end]), offset + end + 1, nil
}

func expectTag(data []byte, offset int, tag string) error {
	if offset+4 > len(data) || string(data[offset:offset+4]) != tag {
		return xerrors.Errorf("expected DNA tag %q at offset %d", tag, offset)
	}
	return nil
}

// Parse decodes a DNA1 block payload. pointerSize is the container
// header's pointer width (4 or 8); order is its byte order. The layout
// is bit-exact per §4.2: SDNA/NAME/<n names>, TYPE/<n types>,
// TLEN/<n u16 sizes>, STRC/<n struct entries>, each section 4-aligned.
func Parse(data []byte, pointerSize int, order binary.ByteOrder) (*Catalog, error) {
	if err := expectTag(data, 0, "SDNA"); err != nil {
		return nil, report.New(report.DNAInvalid, "", err)
	}
	if err := expectTag(data, 4, "NAME"); err != nil {
		return nil, report.New(report.DNAInvalid, "", err)
	}
	offset := 8
	if offset+4 > len(data) {
		return nil, report.New(report.DNAInvalid, "", xerrors.New("truncated DNA NAME count"))
	}
	numNames := int(order.Uint32(data[offset:]))
	offset += 4

	cat := &Catalog{}
	for i := 0; i < numNames; i++ {
		raw, next, err := readCString(data, offset)
		if err != nil {
			return nil, report.New(report.DNAInvalid, "", err)
		}
		cat.Names = append(cat.Names, newName(raw))
		offset = next
	}

	offset = align4(offset)
	if err := expectTag(data, offset, "TYPE"); err != nil {
		return nil, report.New(report.DNAInvalid, "", err)
	}
	offset += 4
	numTypes := int(order.Uint32(data[offset:]))
	offset += 4
	typeNames := make([]string, numTypes)
	for i := 0; i < numTypes; i++ {
		raw, next, err := readCString(data, offset)
		if err != nil {
			return nil, report.New(report.DNAInvalid, "", err)
		}
		typeNames[i] = raw
		offset = next
	}

	offset = align4(offset)
	if err := expectTag(data, offset, "TLEN"); err != nil {
		return nil, report.New(report.DNAInvalid, "", err)
	}
	offset += 4
	cat.Types = make([]Type, numTypes)
	for i := 0; i < numTypes; i++ {
		if offset+2 > len(data) {
			return nil, report.New(report.DNAInvalid, "", xerrors.New("truncated DNA TLEN"))
		}
		size := int(order.Uint16(data[offset:]))
		offset += 2
		cat.Types[i] = Type{Name: typeNames[i], Size: size, StructIndex: -1}
	}
	// Invariant: type index 0 has size 0 (void).
	if numTypes > 0 && cat.Types[0].Size != 0 {
		return nil, report.New(report.DNAInvalid, "", xerrors.Errorf("type 0 (%s) has nonzero size %d, want void", cat.Types[0].Name, cat.Types[0].Size))
	}

	offset = align4(offset)
	if err := expectTag(data, offset, "STRC"); err != nil {
		return nil, report.New(report.DNAInvalid, "", err)
	}
	offset += 4
	if offset+4 > len(data) {
		return nil, report.New(report.DNAInvalid, "", xerrors.New("truncated DNA STRC count"))
	}
	numStructs := int(order.Uint32(data[offset:]))
	offset += 4

	for s := 0; s < numStructs; s++ {
		if offset+4 > len(data) {
			return nil, report.New(report.DNAInvalid, "", xerrors.New("truncated DNA struct header"))
		}
		typeIndex := int(order.Uint16(data[offset:]))
		fieldCount := int(order.Uint16(data[offset+2:]))
		offset += 4
		if typeIndex < 0 || typeIndex >= len(cat.Types) {
			return nil, report.New(report.DNAInvalid, "", xerrors.Errorf("struct %d: type index %d out of range", s, typeIndex))
		}
		st := Struct{TypeIndex: typeIndex}
		running := 0
		for f := 0; f < fieldCount; f++ {
			if offset+4 > len(data) {
				return nil, report.New(report.DNAInvalid, "", xerrors.New("truncated DNA field"))
			}
			fTypeIdx := int(order.Uint16(data[offset:]))
			fNameIdx := int(order.Uint16(data[offset+2:]))
			offset += 4
			if fTypeIdx < 0 || fTypeIdx >= len(cat.Types) || fNameIdx < 0 || fNameIdx >= len(cat.Names) {
				return nil, report.New(report.DNAInvalid, "", xerrors.Errorf("struct %d field %d: index out of range", s, f))
			}
			name := cat.Names[fNameIdx]
			var size int
			if name.IsPointer || name.IsFuncPointer {
				size = pointerSize * name.ArrayLen
			} else {
				size = cat.Types[fTypeIdx].Size * name.ArrayLen
			}
			st.Fields = append(st.Fields, Field{
				TypeIndex: fTypeIdx,
				NameIndex: fNameIdx,
				Size:      size,
				Offset:    running,
			})
			running += size
		}
		cat.Structs = append(cat.Structs, st)
		// A struct's total size equals its type's size (§3 invariant).
		// Scene files occasionally round structs up for alignment; only
		// flag a struct that is smaller than its accumulated fields.
		if want := cat.Types[typeIndex].Size; want != 0 && running > want {
			return nil, report.New(report.DNAInvalid, "", xerrors.Errorf("struct %d (%s): fields sum to %d bytes, type size is %d", s, cat.Types[typeIndex].Name, running, want))
		}
		cat.Types[typeIndex].StructIndex = s
	}

	return cat, nil
}

// StructForType returns the struct index describing typeIndex's layout,
// or -1 if typeIndex names a scalar/opaque type.
func (c *Catalog) StructForType(typeIndex int) int {
	if typeIndex < 0 || typeIndex >= len(c.Types) {
		return -1
	}
	return c.Types[typeIndex].StructIndex
}
