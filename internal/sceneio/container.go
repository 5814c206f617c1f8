// Package sceneio implements the scene-file container: header, block
// sequence, block index, and in-place typed field mutation (§4.1). It
// delegates the DNA catalog itself and compiled field paths to package
// dna, and owns only the bytes the DNA's offsets are read from and
// written to.
package sceneio

import (
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"
	"github.com/orcaman/writerseeker"
	"golang.org/x/exp/mmap"
	"golang.org/x/xerrors"

	"github.com/scenepack/scenepack/internal/dna"
	"github.com/scenepack/scenepack/internal/report"
)

type readerAt interface {
	io.ReaderAt
}

type readWriterAt interface {
	io.ReaderAt
	io.WriterAt
}

// Container is one open scene file: a single task's view of its header,
// blocks, and DNA catalog (§5: not shared between goroutines).
type Container struct {
	path       string
	readOnly   bool
	compressed bool
	modified   bool

	ra readerAt     // always set
	wa readWriterAt // set only when mutation is allowed
	mm *mmap.ReaderAt
	rw *os.File

	header Header
	blocks []*Block
	byCode map[string][]*Block
	byAddr map[uint64]*Block
	cat    *dna.Catalog
}

// Open sniffs the first 7 bytes of path; if they read "BLENDER" the file
// is parsed directly (memory-mapped when readOnly, so concurrent walks
// over many files don't each pay for a full read), otherwise it is
// streamed through gzip into an in-memory scratch buffer (§4.1 Open).
func Open(path string, readOnly bool) (*Container, error) {
	probe, err := os.Open(path)
	if err != nil {
		return nil, report.New(report.IO, path, err)
	}
	var sniff [7]byte
	n, err := io.ReadFull(probe, sniff[:])
	if err != nil && err != io.ErrUnexpectedEOF {
		probe.Close()
		return nil, report.New(report.FormatInvalid, path, xerrors.Errorf("reading header: %w", err))
	}

	if n == 7 && string(sniff[:]) == magic {
		if readOnly {
			probe.Close()
			mr, err := mmap.Open(path)
			if err != nil {
				return nil, report.New(report.IO, path, err)
			}
			c, err := newContainer(path, readOnly, false, mr, nil)
			if err != nil {
				mr.Close()
				return nil, err
			}
			c.mm = mr
			return c, nil
		}
		probe.Close()
		rw, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return nil, report.New(report.IO, path, err)
		}
		c, err := newContainer(path, readOnly, false, rw, rw)
		if err != nil {
			rw.Close()
			return nil, err
		}
		c.rw = rw
		return c, nil
	}

	// Not a direct scene file: try decompressing it as gzip.
	if _, err := probe.Seek(0, io.SeekStart); err != nil {
		probe.Close()
		return nil, report.New(report.IO, path, err)
	}
	gr, err := gzip.NewReader(probe)
	if err != nil {
		probe.Close()
		return nil, report.New(report.FormatInvalid, path, xerrors.Errorf("not a scene file (bad magic) and not gzip: %w", err))
	}
	scratch := &writerseeker.WriterSeeker{}
	if _, err := io.Copy(scratch, gr); err != nil {
		gr.Close()
		probe.Close()
		return nil, report.New(report.IO, path, xerrors.Errorf("decompressing: %w", err))
	}
	gr.Close()
	probe.Close()

	decoded, err := io.ReadAll(scratch.Reader())
	if err != nil {
		return nil, report.New(report.IO, path, xerrors.Errorf("reading scratch buffer: %w", err))
	}
	mf := &memFile{data: decoded}
	c, err := newContainer(path, readOnly, true, mf, mf)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newContainer(path string, readOnly, compressed bool, ra readerAt, wa readWriterAt) (*Container, error) {
	c := &Container{
		path:       path,
		readOnly:   readOnly,
		compressed: compressed,
		ra:         ra,
		byCode:     make(map[string][]*Block),
		byAddr:     make(map[uint64]*Block),
	}
	if !readOnly {
		c.wa = wa
	}

	hdr, err := parseHeader(io.NewSectionReader(ra, 0, headerSize))
	if err != nil {
		return nil, err
	}
	c.header = hdr

	if err := c.readBlocks(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) readBlocks() error {
	bhSize := c.header.blockHeaderSize()
	offset := int64(headerSize)
	for {
		buf := make([]byte, bhSize)
		n, err := c.ra.ReadAt(buf, offset)
		if err != nil && err != io.EOF {
			return report.New(report.IO, c.path, err)
		}
		if n < 4 {
			if n == 0 {
				// No sentinel present at all; treat end-of-stream as the
				// terminal block rather than failing the whole parse.
				c.appendBlock(&Block{Code: "ENDB"})
				return nil
			}
			return report.New(report.FormatInvalid, c.path, xerrors.New("truncated block header"))
		}
		code := trimCode(buf[:4])
		if n < bhSize {
			// §4.1: a short block header present is the terminal sentinel.
			c.appendBlock(&Block{Code: "ENDB"})
			return nil
		}

		size := int64(c.header.Order.Uint32(buf[4:8]))
		var oldAddr uint64
		var rest []byte
		if c.header.PointerSize == 8 {
			oldAddr = c.header.Order.Uint64(buf[8:16])
			rest = buf[16:]
		} else {
			oldAddr = uint64(c.header.Order.Uint32(buf[8:12]))
			rest = buf[12:]
		}
		sdna := int(c.header.Order.Uint32(rest[0:4]))
		count := int(c.header.Order.Uint32(rest[4:8]))

		b := &Block{
			Code:       code,
			Size:       size,
			OldAddress: oldAddr,
			SDNAIndex:  sdna,
			Count:      count,
			FileOffset: offset + int64(bhSize),
		}
		c.appendBlock(b)

		if b.IsTerminal() {
			return nil
		}

		if code == "DNA1" {
			data := make([]byte, size)
			if _, err := c.ra.ReadAt(data, b.FileOffset); err != nil {
				return report.New(report.IO, c.path, xerrors.Errorf("reading DNA1 payload: %w", err))
			}
			cat, err := dna.Parse(data, c.header.PointerSize, c.header.Order)
			if err != nil {
				return err
			}
			c.cat = cat
		}

		offset = b.FileOffset + size
	}
}

func trimCode(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func (c *Container) appendBlock(b *Block) {
	c.blocks = append(c.blocks, b)
	c.byCode[b.Code] = append(c.byCode[b.Code], b)
	if !b.IsTerminal() {
		c.byAddr[b.OldAddress] = b
	}
}

// Header returns the scene file's decoded 12-byte header.
func (c *Container) Header() Header { return c.header }

// DNA returns the catalog decoded from the file's DNA1 block. It is nil
// if the file carries no DNA1 block (malformed, or a non-scene-file
// passed in error).
func (c *Container) DNA() *dna.Catalog { return c.cat }

// Blocks returns every block in file order, including the trailing ENDB
// sentinel.
func (c *Container) Blocks() []*Block { return c.blocks }

// BlocksByCode returns blocks with the given 4-byte code, in file order
// (§3 "by code": insertion-ordered groups).
func (c *Container) BlocksByCode(code string) []*Block { return c.byCode[code] }

// BlockByOldAddress resolves a pointer field's value back to the block
// that held that data in the process which wrote the file (§3 "by
// original address", §4.2 pointer dereference). ok is false for a
// null/unknown address.
func (c *Container) BlockByOldAddress(addr uint64) (b *Block, ok bool) {
	if addr == 0 {
		return nil, false
	}
	b, ok = c.byAddr[addr]
	return b, ok
}

// Modified reports whether any field has been written since Open.
func (c *Container) Modified() bool { return c.modified }

// ReadOnly reports whether the container rejects mutation.
func (c *Container) ReadOnly() bool { return c.readOnly }

// Path is the source file path this container was opened from.
func (c *Container) Path() string { return c.path }

// Locate compiles path against b's struct (per its SDNA index, which the
// catalog's struct list is indexed by directly — §4.2).
func (c *Container) Locate(b *Block, path string) (*dna.Accessor, error) {
	if c.cat == nil {
		return nil, report.New(report.DNAInvalid, path, xerrors.New("scene file carries no DNA1 catalog"))
	}
	return c.cat.Locate(b.SDNAIndex, path)
}

// ReadString reads a char-array field, decoded as UTF-8 and truncated at
// the first NUL.
func (c *Container) ReadString(b *Block, path string) (string, error) {
	acc, err := c.Locate(b, path)
	if err != nil {
		return "", err
	}
	return acc.ReadString(c.ra, b.FileOffset, c.header.Endian())
}

// ReadBytes reads the raw bytes of a char-array field without decoding.
func (c *Container) ReadBytes(b *Block, path string) ([]byte, error) {
	acc, err := c.Locate(b, path)
	if err != nil {
		return nil, err
	}
	return acc.ReadBytes(c.ra, b.FileOffset, c.header.Endian())
}

// ReadPointer reads a pointer field's raw address value.
func (c *Container) ReadPointer(b *Block, path string) (uint64, error) {
	acc, err := c.Locate(b, path)
	if err != nil {
		return 0, err
	}
	if !acc.IsPointer {
		return 0, report.New(report.DNAInvalid, path, xerrors.New("field is not a pointer"))
	}
	return acc.ReadPointer(c.ra, b.FileOffset, c.header.Endian())
}

// ReadInt, ReadShort and ReadFloat read the corresponding fixed-width
// primitive field.
func (c *Container) ReadInt(b *Block, path string) (int32, error) {
	acc, err := c.Locate(b, path)
	if err != nil {
		return 0, err
	}
	return acc.ReadInt(c.ra, b.FileOffset, c.header.Endian())
}

func (c *Container) ReadShort(b *Block, path string) (int16, error) {
	acc, err := c.Locate(b, path)
	if err != nil {
		return 0, err
	}
	return acc.ReadShort(c.ra, b.FileOffset, c.header.Endian())
}

func (c *Container) ReadFloat(b *Block, path string) (float32, error) {
	acc, err := c.Locate(b, path)
	if err != nil {
		return 0, err
	}
	return acc.ReadFloat(c.ra, b.FileOffset, c.header.Endian())
}

// WriteString mirrors ReadString, writing back into the file in place
// and marking the container modified (§4.2 Writes).
func (c *Container) WriteString(b *Block, path, value string) error {
	if c.readOnly {
		return report.New(report.IO, c.path, xerrors.New("cannot mutate a read-only container"))
	}
	acc, err := c.Locate(b, path)
	if err != nil {
		return err
	}
	if err := acc.WriteString(c.wa, b.FileOffset, c.header.Endian(), value); err != nil {
		return err
	}
	c.modified = true
	return nil
}

// Close flushes pending mutations. A directly-opened, uncompressed file
// already has its writes on disk via WriteAt; a file that was
// decompressed on Open is re-gzipped to its original path only if it was
// modified (§4.1 Close).
func (c *Container) Close() error {
	if c.mm != nil {
		return c.mm.Close()
	}
	if c.rw != nil {
		return c.rw.Close()
	}
	if !c.modified {
		return nil
	}
	mf, ok := c.ra.(*memFile)
	if !ok {
		return nil
	}
	return recompress(c.path, mf.data)
}

func recompress(path string, data []byte) error {
	f, err := os.CreateTemp(osDirOf(path), ".scenepack-recompress-*")
	if err != nil {
		return report.New(report.IO, path, err)
	}
	defer os.Remove(f.Name())
	// Scene files recompress in one shot and can be large; pgzip splits
	// the write across goroutines the way initrd.go's own recompress
	// step does, where compress/gzip's reader is still used for Open's
	// one-shot probe-and-decompress.
	gw := pgzip.NewWriter(f)
	if _, err := gw.Write(data); err != nil {
		f.Close()
		return report.New(report.IO, path, err)
	}
	if err := gw.Close(); err != nil {
		f.Close()
		return report.New(report.IO, path, err)
	}
	if err := f.Close(); err != nil {
		return report.New(report.IO, path, err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return report.New(report.IO, path, err)
	}
	return nil
}

func osDirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
