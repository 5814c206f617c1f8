package sceneio

// Block is one record of the scene file's block sequence (§3 Block): a
// 4-byte code, payload length, the original in-memory address it held
// when the writing process wrote it, a DNA struct index, and an element
// count. FileOffset is the payload's position in the underlying stream
// (container-relative, i.e. after decompression if the source was
// gzipped), not the original file's byte offset.
type Block struct {
	Code       string
	Size       int64
	OldAddress uint64
	SDNAIndex  int
	Count      int
	FileOffset int64
}

// IsTerminal reports whether this is the ENDB sentinel, or a malformed
// trailing header short enough to be treated as one (§4.1 failure
// semantics: "a block header shorter than the expected size but present
// is interpreted as the terminal sentinel").
func (b Block) IsTerminal() bool { return b.Code == "ENDB" }
