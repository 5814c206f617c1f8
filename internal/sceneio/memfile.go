package sceneio

import "io"

// memFile is the random-access backing store for a scene file that had
// to be fully decompressed before it could be parsed (§4.1: a
// gzip-compressed source is streamed into a scratch handle). Field
// reads/writes need io.ReaderAt/io.WriterAt, which the gzip decoder and
// the writerseeker scratch buffer used during decompression don't offer
// together, so the decompressed bytes are copied into this plain slice
// once decompression finishes.
type memFile struct {
	data []byte
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	return copy(m.data[off:], p), nil
}
