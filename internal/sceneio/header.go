package sceneio

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"

	"github.com/scenepack/scenepack/internal/dna"
	"github.com/scenepack/scenepack/internal/report"
)

// headerSize is the fixed 12-byte scene-file header: 7-byte magic,
// 1-byte pointer-size tag, 1-byte endian tag, 3-byte ASCII version (§3).
const headerSize = 12

const magic = "BLENDER"

// Header is the decoded 12-byte scene-file header.
type Header struct {
	PointerSize int // 4 or 8
	Order       binary.ByteOrder
	Version     string // 3-character ASCII, e.g. "280"
}

// Endian adapts Header to the dna package's IO helpers.
func (h Header) Endian() dna.Endian {
	return dna.Endian{Order: h.Order, PointerSize: h.PointerSize}
}

// blockHeaderSize is 20 bytes for a 32-bit pointer, 24 for 64-bit: 4-byte
// code, 4-byte length, pointer-sized old address, 4-byte SDNA index,
// 4-byte element count (§3 Block).
func (h Header) blockHeaderSize() int {
	return 4 + 4 + h.PointerSize + 4 + 4
}

func parseHeader(r io.Reader) (Header, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, report.New(report.FormatInvalid, "", xerrors.Errorf("truncated scene-file header: %w", err))
	}
	if string(buf[:7]) != magic {
		return Header{}, report.New(report.FormatInvalid, "", xerrors.Errorf("bad magic %q, want %q", buf[:7], magic))
	}
	var h Header
	switch buf[7] {
	case '-':
		h.PointerSize = 8
	case '_':
		h.PointerSize = 4
	default:
		return Header{}, report.New(report.FormatInvalid, "", xerrors.Errorf("unknown pointer-size tag %q", buf[7]))
	}
	switch buf[8] {
	case 'v':
		h.Order = binary.LittleEndian
	case 'V':
		h.Order = binary.BigEndian
	default:
		return Header{}, report.New(report.FormatInvalid, "", xerrors.Errorf("unknown endian tag %q", buf[8]))
	}
	h.Version = string(buf[9:12])
	return h, nil
}
