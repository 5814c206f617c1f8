// Package packer builds a bundle (directory or archive) containing a
// root scene file, every scene file it links to, and every external
// asset those files reference, with every path field rewritten to the
// new layout (§4.4).
package packer

import (
	"path/filepath"
	"strings"
)

// PathPolicy implements the packer's path rewrite rule (§4.4 Path
// rewrite policy): given a reference's absolute source path and the
// directory the root scene file lives in, decide where that reference
// lands under the destination tree, and what to write back into the
// scene file that pointed at it.
//
// BaseDirSrc is the root scene file's own directory — every relpath
// computation is anchored there, even while walking a library several
// hops away, so a tree of inter-linked files packs into one coherent
// destination layout.
type PathPolicy struct {
	BaseDirSrc string
	DestDir    string
	Fakeroot   string // project-root-relative dir of the source within the project; "" disables project-relative remapping
}

// destRelative computes the destination-relative path for an absolute
// source path, given the (already remapped) directory its owning scene
// file will land in. It returns:
//   - destRel: the path relative to BaseDirSrc, used to build the
//     physical destination path under DestDir.
//   - refPath: the path relative to fpDestDir (the referencing scene
//     file's own destination directory), written into the "//"-prefixed
//     reference field.
func (p PathPolicy) destRelative(pathSrc, fpDestDir string) (destRel, refPath string, err error) {
	rel, err := filepath.Rel(p.BaseDirSrc, pathSrc)
	if err != nil {
		return "", "", err
	}

	switch {
	case p.Fakeroot == "":
		// /foo/../bar.png -> /foo/__/bar.png: nest everything under the
		// destination root rather than letting it escape upward.
		destRel = filepath.Clean(strings.ReplaceAll(rel, "..", "__"))
	case !strings.Contains(rel, ".."):
		destRel = filepath.Clean(rel)
	default:
		joined := filepath.Clean(filepath.Join(p.Fakeroot, rel))
		if strings.Contains(joined, "..") {
			// Still escapes the project after rebasing: genuinely outside
			// the project directory, name it accordingly rather than
			// producing a path that could climb out of the bundle.
			joined = strings.ReplaceAll(joined, "..", "__nonproject__")
		}
		// The leading "_" is the absolute-marker: at unpack time, a path
		// beginning "_" is restored to its project-absolute location.
		destRel = "_" + joined
	}

	relFromFp, err := filepath.Rel(fpDestDir, p.BaseDirSrc)
	if err != nil {
		return "", "", err
	}
	refPath = filepath.Clean(filepath.Join(relFromFp, destRel))
	return destRel, refPath, nil
}

// sceneDestDir returns the destination directory a scene file at
// blendAbsPath will land in once its own path is run through the same
// policy — needed so that a library several hops from the root writes
// references relative to *its* destination location, not the root's.
func (p PathPolicy) sceneDestDir(blendAbsPath string) (string, error) {
	dummy := filepath.Join(filepath.Dir(blendAbsPath), "dummy")
	destRel, _, err := p.destRelative(dummy, p.BaseDirSrc)
	if err != nil {
		return "", err
	}
	return filepath.Join(p.BaseDirSrc, filepath.Dir(destRel)), nil
}

// Resolve computes the full destination path (absolute, under DestDir)
// and the in-file reference string (a "//"-prefixed, scene-relative
// path) for one reference, given the absolute directory the referencing
// scene file itself was opened from.
func (p PathPolicy) Resolve(pathSrc, referencingBlendAbsPath string) (destAbs, refPath string, err error) {
	fpDestDir, err := p.sceneDestDir(referencingBlendAbsPath)
	if err != nil {
		return "", "", err
	}
	destRel, ref, err := p.destRelative(pathSrc, fpDestDir)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(p.DestDir, destRel), "//" + filepath.ToSlash(ref), nil
}
