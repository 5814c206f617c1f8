// Package session keeps a local working copy's side-files in sync with
// its working tree: status, checkout and commit all key off the file ->
// fingerprint map a checkout seeds and a commit updates (§4.6).
package session

import (
	"os"
	"path/filepath"

	"golang.org/x/xerrors"
)

// ConfigDir is the directory marking a bam-style repository root, mirrored
// from bam_config.CONFIG_DIR.
const ConfigDir = ".bam"

// sessionMarker is the file whose presence marks a session's root
// directory, mirrored from bam_config.SESSION_FILE. Any session file
// would do; the marker only needs to exist once a checkout has run.
const sessionMarker = ".paths_remap.json"

// FindBaseDir walks upward from dir looking for a subdir/file named
// testSubpath, the way bam_config.find_basedir does, and returns the
// matching path (joined with suffix, if given) or "" if none of dir's
// ancestors carry it.
func FindBaseDir(dir, testSubpath, suffix string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		test := filepath.Join(dir, testSubpath)
		if _, err := os.Stat(test); err == nil {
			if suffix != "" {
				return filepath.Join(test, suffix), nil
			}
			return test, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// FindRootDir is FindBaseDir without the ConfigDir suffix: the directory
// containing .bam, not .bam itself.
func FindRootDir(dir string) (string, error) {
	base, err := FindBaseDir(dir, ConfigDir, "")
	if err != nil || base == "" {
		return "", err
	}
	return filepath.Dir(base), nil
}

// FindSessionDir locates the session root above dir: the directory
// holding a checkout's side-files.
func FindSessionDir(dir string) (string, error) {
	base, err := FindBaseDir(dir, sessionMarker, "")
	if err != nil || base == "" {
		return "", err
	}
	return filepath.Dir(base), nil
}

// RequireSessionDir is FindSessionDir but turns "not found" into an
// error, for commands that cannot proceed without one.
func RequireSessionDir(dir string) (string, error) {
	root, err := FindSessionDir(dir)
	if err != nil {
		return "", err
	}
	if root == "" {
		return "", xerrors.Errorf("not a bam session (or any parent directory): %s", sessionMarker)
	}
	return root, nil
}
