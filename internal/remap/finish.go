package remap

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scenepack/scenepack/internal/report"
	"github.com/scenepack/scenepack/internal/sceneio"
)

// finishFields lists the single-field block codes Finish knows how to
// rewrite in place: every handler in package walker that resolves a
// reference off one char-array field named "name" (§4.3 handler table).
// Mesh external-data sub-blocks and sequencer strips carry their path
// across more than one field or block; Finish does not read those blocks,
// so their references are neither rewritten nor reported (see DESIGN.md).
var finishFields = map[string]string{
	"IM": "name",
	"MC": "name",
	"VF": "name",
	"SO": "name",
	"LI": "name",
}

// Finish re-derives source->destination from paths after a move/rename
// (re-fingerprinting every file found there) and rewrites every scene
// file's references to match, relative to the scene file itself, in the
// original "//"-relative or absolute style unless forceRelative is set
// (§4.5 Finish phase). dryRun performs the walk and reports what would
// change without writing anything back.
func Finish(paths []string, start Map, forceRelative, dryRun bool, sink *report.Sink) error {
	files, err := collectSceneFiles(paths)
	if err != nil {
		return err
	}

	allFiles, err := collectAllFiles(paths)
	if err != nil {
		return err
	}

	srcToDst := make(map[string]string)
	dstToSrc := make(map[string]string)
	for _, dst := range allFiles {
		fp, err := Fingerprint(dst)
		if err != nil {
			return err
		}
		if src, ok := start[fp]; ok {
			srcToDst[src] = dst
			dstToSrc[dst] = src
		}
	}

	for _, blendDst := range files {
		blendSrc, ok := dstToSrc[blendDst]
		if !ok {
			sink.Warnf("new scene file added since beginning remap: %q", blendDst)
			continue
		}
		if err := finishOne(blendDst, blendSrc, srcToDst, forceRelative, dryRun, sink); err != nil {
			return err
		}
	}
	return nil
}

func finishOne(blendDst, blendSrc string, srcToDst map[string]string, forceRelative, dryRun bool, sink *report.Sink) error {
	c, err := sceneio.Open(blendDst, dryRun)
	if err != nil {
		return err
	}
	defer c.Close()

	srcBaseDir := filepath.Dir(blendSrc)
	dstBaseDir := filepath.Dir(blendDst)

	for code, field := range finishFields {
		for _, b := range c.BlocksByCode(code) {
			old, err := c.ReadString(b, field)
			if err != nil {
				continue
			}
			if old == "" {
				continue
			}
			if err := rewriteOne(c, b, field, old, srcBaseDir, dstBaseDir, srcToDst, blendDst, forceRelative, dryRun, sink); err != nil {
				return err
			}
		}
	}
	return nil
}

// rewriteOne resolves old (as read from the scene file, in its original
// style) against srcBaseDir, looks it up in srcToDst, and if found and
// changed, writes the new reference back in the same style (relative vs
// absolute) that old used, or always-relative if forceRelative is set.
func rewriteOne(c *sceneio.Container, b *sceneio.Block, field, old, srcBaseDir, dstBaseDir string, srcToDst map[string]string, blendDst string, forceRelative, dryRun bool, sink *report.Sink) error {
	isRelative := strings.HasPrefix(old, "//")
	var srcAbs string
	if isRelative {
		srcAbs = filepath.Join(srcBaseDir, strings.TrimPrefix(old, "//"))
	} else {
		srcAbs = old
	}
	srcAbs = filepath.Clean(srcAbs)

	dstAbs, ok := srcToDst[srcAbs]
	if !ok {
		sink.Warnf("file %q from %q not found in map!", srcAbs, blendDst)
		return nil
	}

	var newVal string
	if isRelative || forceRelative {
		rel, err := filepath.Rel(dstBaseDir, dstAbs)
		if err != nil {
			return err
		}
		newVal = "//" + filepath.ToSlash(rel)
	} else {
		newVal = dstAbs
	}

	if newVal == old || dryRun {
		return nil
	}
	return c.WriteString(b, field, newVal)
}

// collectAllFiles returns every regular file under paths, not just scene
// files, so Finish can re-fingerprint referenced assets alongside the
// scene files that point at them.
func collectAllFiles(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		err = filepath.Walk(abs, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(out)
	return out, nil
}
