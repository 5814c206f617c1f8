package dna

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"

	"golang.org/x/xerrors"

	"github.com/scenepack/scenepack/internal/report"
)

// Accessor is a compiled dotted field path (§9 "compile a path against a
// struct into a flat offset list... plus a leaf accessor tagged with the
// leaf type"). Offset is relative to the owning block's payload start.
type Accessor struct {
	Offset        int
	IsPointer     bool
	TypeName      string
	ArrayLen      int
	fieldByteSize int
}

// Locate compiles path (e.g. "ed.seqbase.first") against the struct at
// rootStructIndex, walking each component linearly through that struct's
// field list and accumulating the running offset (§4.2 steps 1-3).
func (c *Catalog) Locate(rootStructIndex int, path string) (*Accessor, error) {
	if rootStructIndex < 0 || rootStructIndex >= len(c.Structs) {
		return nil, report.New(report.DNAInvalid, path, xerrors.Errorf("struct index %d out of range", rootStructIndex))
	}
	structIndex := rootStructIndex
	total := 0
	parts := strings.Split(path, ".")
	for i, part := range parts {
		st := &c.Structs[structIndex]
		var found *Field
		for fi := range st.Fields {
			f := &st.Fields[fi]
			if c.Names[f.NameIndex].Short == part {
				found = f
				break
			}
		}
		if found == nil {
			return nil, report.New(report.DNAInvalid, path, xerrors.Errorf("field %q not found in struct (type %s)", part, c.Types[st.TypeIndex].Name))
		}
		total += found.Offset
		name := c.Names[found.NameIndex]
		if i == len(parts)-1 {
			return &Accessor{
				Offset:        total,
				IsPointer:     name.IsPointer || name.IsFuncPointer,
				TypeName:      c.Types[found.TypeIndex].Name,
				ArrayLen:      name.ArrayLen,
				fieldByteSize: found.Size,
			}, nil
		}
		if name.IsPointer || name.IsFuncPointer {
			return nil, report.New(report.DNAInvalid, path, xerrors.Errorf("field %q is a pointer, cannot descend into it", part))
		}
		nextStruct := c.StructForType(found.TypeIndex)
		if nextStruct < 0 {
			return nil, report.New(report.DNAInvalid, path, xerrors.Errorf("field %q (type %s) is not a compound struct", part, c.Types[found.TypeIndex].Name))
		}
		structIndex = nextStruct
	}
	return nil, report.New(report.DNAInvalid, path, xerrors.New("empty field path"))
}

// IO is the minimal file interface typed field access needs: a container
// offers this over its underlying ReaderAt/WriterAt without exposing
// them directly, so dna never touches the gzip/mmap plumbing (§4.1).
type IO interface {
	ReadAt(p []byte, off int64) (int, error)
}

type WriteIO interface {
	IO
	WriteAt(p []byte, off int64) (int, error)
}

// Endian describes the byte order and pointer width a scene file's
// header fixed at write time (§3 header invariant).
type Endian struct {
	Order       binary.ByteOrder
	PointerSize int
}

// ReadPointer reads a pointer-sized unsigned integer (§4.2 leaf dispatch,
// "pointer (any type)").
func (a *Accessor) ReadPointer(r IO, blockOffset int64, e Endian) (uint64, error) {
	buf := make([]byte, e.PointerSize)
	if _, err := r.ReadAt(buf, blockOffset+int64(a.Offset)); err != nil {
		return 0, report.New(report.IO, "", err)
	}
	if e.PointerSize == 8 {
		return e.Order.Uint64(buf), nil
	}
	return uint64(e.Order.Uint32(buf)), nil
}

// ReadInt reads a 4-byte int field.
func (a *Accessor) ReadInt(r IO, blockOffset int64, e Endian) (int32, error) {
	var buf [4]byte
	if _, err := r.ReadAt(buf[:], blockOffset+int64(a.Offset)); err != nil {
		return 0, report.New(report.IO, "", err)
	}
	return int32(e.Order.Uint32(buf[:])), nil
}

// ReadShort reads a 2-byte short field.
func (a *Accessor) ReadShort(r IO, blockOffset int64, e Endian) (int16, error) {
	var buf [2]byte
	if _, err := r.ReadAt(buf[:], blockOffset+int64(a.Offset)); err != nil {
		return 0, report.New(report.IO, "", err)
	}
	return int16(e.Order.Uint16(buf[:])), nil
}

// ReadFloat reads a 4-byte float field.
func (a *Accessor) ReadFloat(r IO, blockOffset int64, e Endian) (float32, error) {
	var buf [4]byte
	if _, err := r.ReadAt(buf[:], blockOffset+int64(a.Offset)); err != nil {
		return 0, report.New(report.IO, "", err)
	}
	return math.Float32frombits(e.Order.Uint32(buf[:])), nil
}

// ReadBytes reads the raw char-array bytes for a char field.
func (a *Accessor) ReadBytes(r IO, blockOffset int64, e Endian) ([]byte, error) {
	buf := make([]byte, a.ArrayLen)
	if _, err := r.ReadAt(buf, blockOffset+int64(a.Offset)); err != nil {
		return nil, report.New(report.IO, "", err)
	}
	return buf, nil
}

// ReadString reads a char-array field and decodes it as UTF-8, truncated
// at the first NUL (§4.2 leaf dispatch, char case).
func (a *Accessor) ReadString(r IO, blockOffset int64, e Endian) (string, error) {
	buf, err := a.ReadBytes(r, blockOffset, e)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(buf, 0); i != -1 {
		buf = buf[:i]
	}
	return string(buf), nil
}

// WriteString writes a char-array field (§4.2 Writes: only char arrays
// are writeable). A string shorter than the field width is NUL-appended;
// a longer one is truncated to fit.
func (a *Accessor) WriteString(w WriteIO, blockOffset int64, e Endian, s string) error {
	if a.TypeName != "char" {
		return report.New(report.DNAInvalid, "", xerrors.Errorf("write to non-char field of type %s: not-supported", a.TypeName))
	}
	buf := make([]byte, a.ArrayLen)
	b := []byte(s)
	if len(b) >= a.ArrayLen {
		copy(buf, b[:a.ArrayLen])
	} else {
		copy(buf, b)
		buf[len(b)] = 0
	}
	if _, err := w.WriteAt(buf, blockOffset+int64(a.Offset)); err != nil {
		return report.New(report.IO, "", err)
	}
	return nil
}

// ErrNotSupported is returned by non-char primitive writes: reachable in
// the code path but unimplemented per spec §9 open question — callers
// must signal not-supported rather than silently succeed.
var ErrNotSupported = xerrors.New("not-supported: writing non-char primitive fields")

// WriteInt, WriteShort and WriteFloat exist so callers have a single
// entry point per primitive type, but they always fail: the source
// behavior this is ported from never implements these writes (§9).
func (a *Accessor) WriteInt(WriteIO, int64, Endian, int32) error     { return ErrNotSupported }
func (a *Accessor) WriteShort(WriteIO, int64, Endian, int16) error   { return ErrNotSupported }
func (a *Accessor) WriteFloat(WriteIO, int64, Endian, float32) error { return ErrNotSupported }
