package remap

import (
	"github.com/scenepack/scenepack/internal/sceneio"
)

// RestoreFunc is consulted once per reference found in a scene file
// during Restore. It receives the block code the reference came from and
// the path exactly as stored in the file, and returns the replacement to
// write, or ok=false to leave the field untouched.
type RestoreFunc func(blockCode, oldPath string) (newPath string, ok bool)

// Restore is the packer's inverse: given one scene file and a
// caller-supplied lookup (typically backed by a bundle's per-file
// dependency remap), walk it read-write and rewrite every reference the
// lookup answers for (§4.5 Pack-restore). Unlike Finish it never touches
// the filesystem to resolve sources — the caller already knows, from
// bundle metadata, what each stored path should become.
func Restore(path string, lookup RestoreFunc) error {
	c, err := sceneio.Open(path, false)
	if err != nil {
		return err
	}
	defer c.Close()

	for code, field := range finishFields {
		for _, b := range c.BlocksByCode(code) {
			old, err := c.ReadString(b, field)
			if err != nil || old == "" {
				continue
			}
			newVal, ok := lookup(code, old)
			if !ok || newVal == old {
				continue
			}
			if err := c.WriteString(b, field, newVal); err != nil {
				return err
			}
		}
	}
	return nil
}
