package session

import (
	"os"
	"path/filepath"

	"github.com/scenepack/scenepack/internal/packer"
	"github.com/scenepack/scenepack/internal/remap"
	"github.com/scenepack/scenepack/internal/report"
)

// Status is the added/modified/removed partition of a session's working
// tree against its last-known fingerprint map (§4.6, ported from
// bam_session.status).
type Status struct {
	Added    []string
	Modified []string
	Removed  []string
}

// Diff compares rootDir's working tree against paths (the session's
// file -> fingerprint map, typically loaded from .paths_uuid.json). When
// updated is non-nil it is filled in with every path that should be
// written back: present files keep their current fingerprint, removed
// files are dropped, matching bam_session.status's paths_uuid_update
// side-output.
func Diff(rootDir string, paths packer.PathsUUID, ignore *IgnoreFilter, updated packer.PathsUUID) (Status, error) {
	var st Status
	seen := make(map[string]bool, len(paths))

	for rel, wantFP := range paths {
		seen[rel] = true
		abs := filepath.Join(rootDir, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				st.Removed = append(st.Removed, rel)
				continue
			}
			return Status{}, report.New(report.IO, abs, err)
		}
		if info.IsDir() {
			continue
		}
		gotFP, err := remap.Fingerprint(abs)
		if err != nil {
			return Status{}, err
		}
		if updated != nil {
			updated[rel] = gotFP
		}
		if gotFP != wantFP {
			st.Modified = append(st.Modified, rel)
		}
	}

	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if seen[rel] || isSideFile(rel) {
			return nil
		}
		if ignore.Ignored(rel) {
			return nil
		}
		st.Added = append(st.Added, rel)
		return nil
	})
	if err != nil {
		return Status{}, report.New(report.IO, rootDir, err)
	}

	return st, nil
}

// isSideFile reports whether rel is one of a session's own metadata
// files, never itself a candidate for "added".
func isSideFile(rel string) bool {
	switch rel {
	case ".paths_remap.json", ".deps_remap.json", ".paths_uuid.json", ".paths_ops.json", ".bamignore":
		return true
	}
	return false
}

// IsDirty reports whether Status carries any change at all, mirroring
// bam_session.is_dirty.
func (s Status) IsDirty() bool {
	return len(s.Added) > 0 || len(s.Modified) > 0 || len(s.Removed) > 0
}
