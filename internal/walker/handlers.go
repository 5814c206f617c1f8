package walker

import (
	"errors"

	"github.com/scenepack/scenepack/internal/report"
	"github.com/scenepack/scenepack/internal/sceneio"
)

// fieldRef is a handler's raw finding before it's turned into a
// Reference carrying file/level context: the resolved reference string
// (already read from the field, or assembled from two fields for a
// sequence-path) plus its kind.
type fieldRef struct {
	kind       Kind
	path       string
	isSequence bool
}

// handler inspects one block and returns the external references it
// carries, or (nil, nil) if this variant of the block carries none
// (e.g. a generated image with no source file).
type handler func(c *sceneio.Container, b *sceneio.Block) ([]fieldRef, error)

// handlerOrder fixes the block-code visitation order (§4.3 Ordering):
// blocks are visited in block-code order within a file, within a code in
// file order.
var handlerOrder = []string{"IM", "MC", "VF", "SO", "ME", "SC", "LI"}

var handlers = map[string]handler{
	"IM": imageHandler,
	"MC": movieClipHandler,
	"VF": vectorFontHandler,
	"SO": soundHandler,
	"ME": meshHandler,
	"SC": sceneHandler,
	"LI": libraryHandler,
}

// fieldMissing reports whether err is the dna package's "field not found"
// error, which a handler treats as "this variant has none" rather than a
// fatal condition.
func fieldMissing(err error) bool {
	var e *report.Error
	return errors.As(err, &e) && e.Kind == report.DNAInvalid
}

// imageSourceFile, imageSourceSequence and imageSourceMovie mirror the
// image datablock's on-disk source-kind enum; generated and viewer-node
// images (kinds 4 and 5) carry no path worth following.
const (
	imageSourceFile     = 1
	imageSourceSequence = 2
	imageSourceMovie    = 3
)

func imageHandler(c *sceneio.Container, b *sceneio.Block) ([]fieldRef, error) {
	if packed, err := c.ReadPointer(b, "packedfile"); err == nil && packed != 0 {
		return nil, nil
	} else if err != nil && !fieldMissing(err) {
		return nil, err
	}

	isSequence := false
	if src, err := c.ReadInt(b, "source"); err == nil {
		switch src {
		case imageSourceFile, imageSourceMovie:
		case imageSourceSequence:
			isSequence = true
		default:
			return nil, nil
		}
	} else if !fieldMissing(err) {
		return nil, err
	}

	name, err := c.ReadString(b, "name")
	if err != nil {
		if fieldMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	if name == "" {
		return nil, nil
	}
	return []fieldRef{{kind: BlockPath, path: name, isSequence: isSequence}}, nil
}

func movieClipHandler(c *sceneio.Container, b *sceneio.Block) ([]fieldRef, error) {
	name, err := c.ReadString(b, "name")
	if err != nil {
		if fieldMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	return []fieldRef{{kind: BlockPath, path: name}}, nil
}

func vectorFontHandler(c *sceneio.Container, b *sceneio.Block) ([]fieldRef, error) {
	if packed, err := c.ReadPointer(b, "packedfile"); err == nil && packed != 0 {
		return nil, nil
	} else if err != nil && !fieldMissing(err) {
		return nil, err
	}
	name, err := c.ReadString(b, "name")
	if err != nil {
		if fieldMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	return []fieldRef{{kind: BlockPath, path: name}}, nil
}

func soundHandler(c *sceneio.Container, b *sceneio.Block) ([]fieldRef, error) {
	if packed, err := c.ReadPointer(b, "packedfile"); err == nil && packed != 0 {
		return nil, nil
	} else if err != nil && !fieldMissing(err) {
		return nil, err
	}
	name, err := c.ReadString(b, "name")
	if err != nil {
		if fieldMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	return []fieldRef{{kind: BlockPath, path: name}}, nil
}

// meshExternalFields lists the candidate sub-block pointer fields a mesh
// may carry external cache data under; only one is ever populated, so
// every candidate is tried and the first that resolves wins (§4.3: "a
// block-path at a sub-block's filename if present").
var meshExternalFields = []string{"extdata", "pcache"}

func meshHandler(c *sceneio.Container, b *sceneio.Block) ([]fieldRef, error) {
	for _, field := range meshExternalFields {
		addr, err := c.ReadPointer(b, field)
		if err != nil {
			if fieldMissing(err) {
				continue
			}
			return nil, err
		}
		sub, ok := c.BlockByOldAddress(addr)
		if !ok {
			continue
		}
		filename, err := c.ReadString(sub, "filename")
		if err != nil {
			if fieldMissing(err) {
				continue
			}
			return nil, err
		}
		return []fieldRef{{kind: BlockPath, path: filename}}, nil
	}
	return nil, nil
}

func libraryHandler(c *sceneio.Container, b *sceneio.Block) ([]fieldRef, error) {
	name, err := c.ReadString(b, "name")
	if err != nil {
		if fieldMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	return []fieldRef{{kind: BlockPath, path: name}}, nil
}

// sequenceStripTypeImage and sequenceStripTypeMovie mirror the video
// sequencer strip type enum; only these carry a (dir, stripdata name)
// pair worth emitting.
const (
	sequenceStripTypeImage = 0
	sequenceStripTypeMovie = 2
	sequenceStripTypeMeta  = 3
)

// walkSequence recursively follows a scene's sequence editor strip list
// (§4.3 scene handler), emitting one sequence-path reference per image or
// movie strip and descending into meta-strip sub-sequences.
func walkSequence(c *sceneio.Container, firstAddr uint64, emit func(Reference)) error {
	addr := firstAddr
	for addr != 0 {
		strip, ok := c.BlockByOldAddress(addr)
		if !ok {
			break
		}
		typ, err := c.ReadInt(strip, "type")
		if err != nil && !fieldMissing(err) {
			return err
		}

		switch int(typ) {
		case sequenceStripTypeImage, sequenceStripTypeMovie:
			dataAddr, err := c.ReadPointer(strip, "strip")
			if err == nil && dataAddr != 0 {
				if dataBlock, ok := c.BlockByOldAddress(dataAddr); ok {
					dir, derr := c.ReadString(dataBlock, "dir")
					elemAddr, eerr := c.ReadPointer(dataBlock, "stripdata")
					if derr == nil && eerr == nil && elemAddr != 0 {
						if elemBlock, ok := c.BlockByOldAddress(elemAddr); ok {
							name, nerr := c.ReadString(elemBlock, "name")
							if nerr == nil {
								emit(Reference{Kind: SequencePath, Path: joinSequencePath(dir, name), BlockCode: "SC"})
							}
						}
					}
				}
			}
		case sequenceStripTypeMeta:
			metaFirst, err := c.ReadPointer(strip, "seqbase.first")
			if err == nil && metaFirst != 0 {
				if err := walkSequence(c, metaFirst, emit); err != nil {
					return err
				}
			}
		}

		next, err := c.ReadPointer(strip, "next")
		if err != nil {
			break
		}
		addr = next
	}
	return nil
}

func joinSequencePath(dir, name string) string {
	if dir == "" {
		return name
	}
	if dir[len(dir)-1] == '/' || dir[len(dir)-1] == '\\' {
		return dir + name
	}
	return dir + "/" + name
}

func sceneHandler(c *sceneio.Container, b *sceneio.Block) ([]fieldRef, error) {
	first, err := c.ReadPointer(b, "ed.seqbase.first")
	if err != nil {
		if fieldMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	if first == 0 {
		return nil, nil
	}
	var refs []fieldRef
	err = walkSequence(c, first, func(r Reference) {
		refs = append(refs, fieldRef{kind: r.Kind, path: r.Path})
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}
