// Package scenetest builds minimal, valid scene-file byte streams for
// tests, in place of the production application dependency the upstream
// test suite uses to generate fixtures (blendfile_templates.py). It
// emits exactly the header/block/DNA1 layout package sceneio and
// package dna parse.
package scenetest

import (
	"bytes"
	"encoding/binary"
)

// Field describes one DNA struct member to synthesize.
type Field struct {
	Name string // raw declarator, e.g. "*next", "id", "name[64]"
	Type string // DNA type name, e.g. "char", "int", "ID"
}

// StructDef describes one compound type to add to the synthetic DNA.
type StructDef struct {
	Type   string
	Fields []Field
}

// Builder accumulates blocks and struct definitions for one synthetic
// scene file.
type Builder struct {
	PointerSize int // 4 or 8; defaults to 8
	Order       binary.ByteOrder
	Version     string // defaults to "280"

	structs   []StructDef
	blocks    []builderBlock
	typeOrder []string
}

type builderBlock struct {
	code       string
	structType string
	oldAddr    uint64
	count      int
	payload    []byte
}

// New returns a Builder with little-endian, 8-byte-pointer defaults
// matching a 64-bit scene file.
func New() *Builder {
	return &Builder{
		PointerSize: 8,
		Order:       binary.LittleEndian,
		Version:     "280",
	}
}

// DefineStruct registers a compound type available to blocks added with
// AddBlock. Field order determines on-disk offsets.
func (b *Builder) DefineStruct(def StructDef) { b.structs = append(b.structs, def) }

// AddBlock appends a block whose SDNA index resolves to structType.
// payload is the raw struct bytes (caller's responsibility to match the
// field layout declared via DefineStruct, including alignment).
func (b *Builder) AddBlock(code, structType string, oldAddr uint64, count int, payload []byte) {
	b.blocks = append(b.blocks, builderBlock{code, structType, oldAddr, count, payload})
}

// Build serializes the header, one DNA1 block encoding the registered
// structs, every added block in the order added, and the terminal ENDB
// sentinel.
func (b *Builder) Build() []byte {
	var buf bytes.Buffer
	buf.WriteString("BLENDER")
	if b.PointerSize == 8 {
		buf.WriteByte('-')
	} else {
		buf.WriteByte('_')
	}
	if b.Order == binary.BigEndian {
		buf.WriteByte('V')
	} else {
		buf.WriteByte('v')
	}
	version := b.Version
	if version == "" {
		version = "280"
	}
	buf.WriteString(version)

	typeIndex, sdnaIndex := b.buildTypeIndex()
	dna := b.encodeDNA(typeIndex)
	writeBlockHeader(&buf, b.Order, b.PointerSize, "DNA1", int64(len(dna)), 0, 0, 1)
	buf.Write(dna)

	for _, blk := range b.blocks {
		sdna := sdnaIndex[blk.structType]
		writeBlockHeader(&buf, b.Order, b.PointerSize, blk.code, int64(len(blk.payload)), blk.oldAddr, sdna, blk.count)
		buf.Write(blk.payload)
	}

	writeBlockHeader(&buf, b.Order, b.PointerSize, "ENDB", 0, 0, 0, 0)
	return buf.Bytes()
}

func writeBlockHeader(buf *bytes.Buffer, order binary.ByteOrder, ptrSize int, code string, size int64, oldAddr uint64, sdna, count int) {
	var codeBuf [4]byte
	copy(codeBuf[:], code)
	buf.Write(codeBuf[:])

	var sizeBuf [4]byte
	order.PutUint32(sizeBuf[:], uint32(size))
	buf.Write(sizeBuf[:])

	if ptrSize == 8 {
		var addrBuf [8]byte
		order.PutUint64(addrBuf[:], oldAddr)
		buf.Write(addrBuf[:])
	} else {
		var addrBuf [4]byte
		order.PutUint32(addrBuf[:], uint32(oldAddr))
		buf.Write(addrBuf[:])
	}

	var sdnaBuf, countBuf [4]byte
	order.PutUint32(sdnaBuf[:], uint32(sdna))
	buf.Write(sdnaBuf[:])
	order.PutUint32(countBuf[:], uint32(count))
	buf.Write(countBuf[:])
}

// primitiveSizes maps each primitive DNA type name to its scalar size.
var primitiveSizes = map[string]int{
	"char":  1,
	"uchar": 1,
	"short": 2, "ushort": 2,
	"int": 4, "float": 4,
	"double": 8, "int64_t": 8, "uint64_t": 8,
	"void": 0,
}

// buildTypeIndex assigns a stable type-table index to "void" plus every
// primitive and struct type name in use, and a struct-table index to
// every defined struct. It returns the type-name->type-index map and
// the struct-type-name->SDNA-(struct)-index map blocks use directly.
func (b *Builder) buildTypeIndex() (map[string]int, map[string]int) {
	typeIndex := map[string]int{"void": 0}
	order := []string{"void"}
	add := func(name string) {
		if _, ok := typeIndex[name]; !ok {
			typeIndex[name] = len(order)
			order = append(order, name)
		}
	}
	for _, s := range b.structs {
		add(s.Type)
		for _, f := range s.Fields {
			add(f.Type)
		}
	}
	b.typeOrder = order
	sdnaIndex := make(map[string]int, len(b.structs))
	for i, s := range b.structs {
		sdnaIndex[s.Type] = i
	}
	return typeIndex, sdnaIndex
}

func (b *Builder) encodeDNA(typeIndex map[string]int) []byte {
	var buf bytes.Buffer
	buf.WriteString("SDNA")
	buf.WriteString("NAME")

	var allNames []string
	nameIndex := map[string]int{}
	addName := func(n string) int {
		if i, ok := nameIndex[n]; ok {
			return i
		}
		i := len(allNames)
		nameIndex[n] = i
		allNames = append(allNames, n)
		return i
	}
	for _, s := range b.structs {
		for _, f := range s.Fields {
			addName(f.Name)
		}
	}

	writeU32(&buf, b.Order, uint32(len(allNames)))
	for _, n := range allNames {
		buf.WriteString(n)
		buf.WriteByte(0)
	}
	pad4(&buf)

	buf.WriteString("TYPE")
	writeU32(&buf, b.Order, uint32(len(b.typeOrder)))
	for _, t := range b.typeOrder {
		buf.WriteString(t)
		buf.WriteByte(0)
	}
	pad4(&buf)

	buf.WriteString("TLEN")
	for _, t := range b.typeOrder {
		size := primitiveSizes[t]
		for _, s := range b.structs {
			if s.Type == t {
				size = b.structByteSize(s)
			}
		}
		writeU16(&buf, b.Order, uint16(size))
	}
	pad4(&buf)

	buf.WriteString("STRC")
	writeU32(&buf, b.Order, uint32(len(b.structs)))
	for _, s := range b.structs {
		writeU16(&buf, b.Order, uint16(typeIndex[s.Type]))
		writeU16(&buf, b.Order, uint16(len(s.Fields)))
		for _, f := range s.Fields {
			writeU16(&buf, b.Order, uint16(typeIndex[f.Type]))
			writeU16(&buf, b.Order, uint16(nameIndex[f.Name]))
		}
	}

	return buf.Bytes()
}

func (b *Builder) structByteSize(s StructDef) int {
	total := 0
	for _, f := range s.Fields {
		total += b.fieldByteSize(f)
	}
	return total
}

func (b *Builder) fieldByteSize(f Field) int {
	n := newTestName(f.Name)
	if n.isPointer {
		pointerSize := 4
		if b.PointerSize == 8 {
			pointerSize = 8
		}
		return pointerSize * n.arrayLen
	}
	for _, s := range b.structs {
		if s.Type == f.Type {
			return b.structByteSize(s) * n.arrayLen
		}
	}
	return primitiveSizes[f.Type] * n.arrayLen
}

type testName struct {
	isPointer bool
	arrayLen  int
}

func newTestName(raw string) testName {
	n := testName{arrayLen: 1}
	for _, c := range raw {
		if c == '*' {
			n.isPointer = true
		}
	}
	open := -1
	for i, c := range raw {
		if c == '[' {
			open = i
		}
	}
	if open != -1 {
		dim := 0
		for _, c := range raw[open+1:] {
			if c == ']' {
				break
			}
			dim = dim*10 + int(c-'0')
		}
		if dim > 0 {
			n.arrayLen = dim
		}
	}
	return n
}

func writeU32(buf *bytes.Buffer, order binary.ByteOrder, v uint32) {
	var b [4]byte
	order.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU16(buf *bytes.Buffer, order binary.ByteOrder, v uint16) {
	var b [2]byte
	order.PutUint16(b[:], v)
	buf.Write(b[:])
}

func pad4(buf *bytes.Buffer) {
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
}
