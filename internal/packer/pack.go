package packer

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/scenepack/scenepack/internal/remap"
	"github.com/scenepack/scenepack/internal/report"
	"github.com/scenepack/scenepack/internal/sceneio"
	"github.com/scenepack/scenepack/internal/walker"
)

// finishFields lists the single-field block codes the packer knows how
// to rewrite in place, mirroring package remap's own finishFields (§4.3
// handler table: every handler resolving off one char-array "name"
// field). Mesh external-data sub-blocks and sequencer strips are
// reported via sink but left unrewritten — see DESIGN.md.
var finishFields = map[string]string{
	"IM": "name",
	"MC": "name",
	"VF": "name",
	"SO": "name",
	"LI": "name",
}

// Mode selects the packer's finalize strategy (§4.4 Operation step 5).
type Mode int

const (
	ModeFile Mode = iota
	ModeArchive
)

// Options configures one pack operation (§6 CLI: "pack(src, dst,
// mode, recurse-all-deps?, compression-level, project-fakeroot?)").
type Options struct {
	Root string // absolute path to the root scene file
	Dest string // destination scene-file path (file mode) or archive path (archive mode)
	Mode Mode

	// AllDeps expands every object in a linked library rather than only
	// the subset the referencing file actually used (walker.FullLibrary).
	AllDeps bool

	// CompressionLevel is the deflate level used in archive mode, -1
	// (default) to 9.
	CompressionLevel int

	// Fakeroot is the project-root-relative directory containing Root;
	// empty disables project-relative remapping (§4.4 Path rewrite policy).
	Fakeroot string
}

// rewriteOp is one reference this pack run decided to rewrite, queued
// against the scene file it came from until that file's staged copy is
// opened for mutation.
type rewriteOp struct {
	code    string
	oldPath string
	newPath string
}

// Result is what Pack produced: where the bundle landed, and the
// metadata every side file was built from.
type Result struct {
	Dest      string
	SideFiles SideFiles
}

// copyEntry is one asset destined for a plain copy (never staged or
// mutated — only scene files are staged) from its source to its computed
// bundle location.
type copyEntry struct {
	src, dst string
}

// Pack walks Root (and, recursively, everything it links), stages a
// mutable copy of every scene file touched, rewrites every external
// reference to its new bundle location, and finalizes either a mirrored
// directory tree or a deflate archive (§4.4).
func Pack(ctx context.Context, opts Options, sink *report.Sink) (*Result, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	dest, err := filepath.Abs(opts.Dest)
	if err != nil {
		return nil, err
	}
	baseDirSrc := filepath.Dir(root)
	baseDirDst := filepath.Dir(dest)
	tempDir := filepath.Join(baseDirDst, tempDirName(opts.Mode))

	finalPolicy := PathPolicy{BaseDirSrc: baseDirSrc, DestDir: baseDirDst, Fakeroot: opts.Fakeroot}
	stagingPolicy := PathPolicy{BaseDirSrc: baseDirSrc, DestDir: tempDir, Fakeroot: opts.Fakeroot}
	st := newStager(stagingPolicy)

	var copyFiles []copyEntry
	copySeen := map[string]bool{} // source abs path already queued for copy
	addCopy := func(src, dst string) {
		if copySeen[src] {
			return
		}
		copySeen[src] = true
		copyFiles = append(copyFiles, copyEntry{src, dst})
	}

	rewrites := make(map[string][]rewriteOp) // scene file abs path -> ops
	sceneFiles := map[string]bool{root: true} // abs path, for staging at the end
	deps := DepsRemap{}
	pathsRemap := PathRemap{}

	sink.Infof("scanning deps: %s", root)

	w := walker.New(walker.Options{Recursive: true, FullLibrary: opts.AllDeps})
	err = w.Walk(ctx, root, func(ref walker.Reference) error {
		sceneAbs := filepath.Join(ref.BaseDir, ref.SceneFile)
		sceneFiles[sceneAbs] = true

		if ref.Status == walker.StatusMissing {
			sink.Warnf("source missing: %s", ref.Path)
			return nil
		}

		srcAbs := resolveRefPath(ref)
		destAbs, refStr, err := finalPolicy.Resolve(srcAbs, sceneAbs)
		if err != nil {
			return err
		}

		if ref.BlockCode == "LI" {
			// The library itself is staged, not copied as an asset; record
			// it so a leaf library that emits no references of its own
			// (nothing else ever visits it) still lands in the bundle.
			sceneFiles[srcAbs] = true
		} else {
			addCopy(srcAbs, destAbs)
			dstDir := filepath.Dir(destAbs)

			// Image sequences and sidecar siblings are expansions of one
			// reference into many concrete files, resolved lazily here
			// during copy rather than during the walk (§4.4, §9).
			if ref.IsSequence {
				next := sequenceIterator(srcAbs)
				for p, ok := next(); ok; p, ok = next() {
					addCopy(p, filepath.Join(dstDir, filepath.Base(p)))
				}
			}
			nextSib := siblingIterator(srcAbs)
			for p, ok := nextSib(); ok; p, ok = nextSib() {
				addCopy(p, filepath.Join(dstDir, filepath.Base(p)))
			}
		}

		if _, ok := finishFields[ref.BlockCode]; ok {
			rewrites[sceneAbs] = append(rewrites[sceneAbs], rewriteOp{
				code:    ref.BlockCode,
				oldPath: ref.Path,
				newPath: refStr,
			})
			if deps[ref.SceneFile] == nil {
				deps[ref.SceneFile] = make(map[string]string)
			}
			deps[ref.SceneFile][refStr] = ref.Path
		} else {
			sink.Warnf("%s block carries a reference this packer does not rewrite in place: %s", ref.BlockCode, ref.Path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, ce := range copyFiles {
		destRel, err := filepath.Rel(baseDirDst, ce.dst)
		if err != nil {
			return nil, err
		}
		pathsRemap[filepath.ToSlash(destRel)] = ce.src
	}

	sink.Infof("archiving: %d files", len(copyFiles)+1)

	// Stage every touched scene file, then apply its rewrites.
	stagedByScene := make(map[string]string, len(sceneFiles))
	for scene := range sceneFiles {
		staged, err := st.stage(scene, scene)
		if err != nil {
			return nil, err
		}
		stagedByScene[scene] = staged
	}
	for scene, ops := range rewrites {
		staged := stagedByScene[scene]
		if staged == "" {
			continue
		}
		if err := applyRewrites(staged, ops); err != nil {
			return nil, err
		}
	}

	pathsUUID := PathsUUID{}
	for scene, staged := range stagedByScene {
		fp, err := fingerprintFile(staged)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(tempDir, staged[:len(staged)-len(tempSuffix)])
		if err != nil {
			return nil, err
		}
		relSlash := filepath.ToSlash(rel)
		pathsUUID[relSlash] = fp
		// Every staged scene file gets its own path-remap entry too
		// (ported from blendfile_pack.py's `paths_remap[basename(src)] =
		// relbase(src)` for the root file), not only the assets it
		// references.
		if _, ok := pathsRemap[relSlash]; !ok {
			pathsRemap[relSlash] = scene
		}
	}
	for _, ce := range copyFiles {
		if _, err := os.Stat(ce.src); err != nil {
			continue
		}
		fp, err := fingerprintFile(ce.src)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(baseDirDst, ce.dst)
		if err != nil {
			return nil, err
		}
		pathsUUID[filepath.ToSlash(rel)] = fp
	}

	if opts.Fakeroot != "" {
		pathsRemap["."] = opts.Fakeroot
	}

	sideFiles := SideFiles{PathRemap: pathsRemap, DepsRemap: deps, PathsUUID: pathsUUID}

	switch opts.Mode {
	case ModeFile:
		if err := finalizeFile(root, dest, stagedByScene, copyFiles, sideFiles, sink); err != nil {
			return nil, err
		}
	case ModeArchive:
		if err := finalizeArchive(root, dest, baseDirDst, tempDir, stagedByScene, copyFiles, sideFiles, opts.CompressionLevel, sink); err != nil {
			return nil, err
		}
	default:
		return nil, xerrors.Errorf("packer: unknown mode %d", opts.Mode)
	}

	return &Result{Dest: dest, SideFiles: sideFiles}, nil
}

func tempDirName(mode Mode) string {
	if mode == ModeArchive {
		return "__blendfile_temp__"
	}
	return "__blendfile_pack__"
}

// resolveRefPath resolves a walker.Reference's stored path against the
// directory it was found in, the same convention walker.Walk itself uses
// internally to resolve library paths.
func resolveRefPath(ref walker.Reference) string {
	if filepath.IsAbs(ref.Path) {
		return filepath.Clean(ref.Path)
	}
	trimmed := ref.Path
	if len(trimmed) >= 2 && trimmed[:2] == "//" {
		trimmed = trimmed[2:]
	}
	return filepath.Clean(filepath.Join(ref.BaseDir, trimmed))
}

// applyRewrites opens a staged scene file read-write and writes every
// queued reference's new value into the field the handler table says it
// came from (§4.3, finishFields).
func applyRewrites(stagedPath string, ops []rewriteOp) error {
	c, err := sceneio.Open(stagedPath, false)
	if err != nil {
		return err
	}
	defer c.Close()

	for _, op := range ops {
		field := finishFields[op.code]
		for _, b := range c.BlocksByCode(op.code) {
			cur, err := c.ReadString(b, field)
			if err != nil || cur != op.oldPath {
				continue
			}
			if err := c.WriteString(b, field, op.newPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func fingerprintFile(path string) (string, error) {
	return remap.Fingerprint(path)
}
