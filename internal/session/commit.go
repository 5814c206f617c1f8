package session

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/scenepack/scenepack/internal/packer"
	"github.com/scenepack/scenepack/internal/remap"
	"github.com/scenepack/scenepack/internal/report"
	"github.com/scenepack/scenepack/internal/transport"
)

// PathOps maps a project-relative path to the single-character
// operation code a commit applies to it: A (added), M (modified), D
// (deleted) — §6 "Session files".
type PathOps map[string]string

const (
	opAdded    = "A"
	opModified = "M"
	opDeleted  = "D"
)

const pathsOpsFile = ".paths_ops.json"

// CommitPlan is what Commit built before uploading: the archive bytes
// and the fingerprint updates to persist once the upload succeeds.
type CommitPlan struct {
	Archive      []byte
	PathsUUID    packer.PathsUUID // full map, post-commit
	TouchedCount int
}

// Commit builds the commit archive for a dirty session: the modified
// and added files (each scene file first restored to its pre-pack
// reference form via §4.5 pack-restore), a path-remap subset limited to
// the touched files, and a path-ops map recording every change
// including deletions (§4.6).
func Commit(rootDir string, st Status, sink *report.Sink) (*CommitPlan, error) {
	if !st.IsDirty() {
		return nil, nil
	}

	side, err := packer.ReadSideFiles(rootDir)
	if err != nil {
		return nil, err
	}
	paths, err := LoadPathsUUID(rootDir)
	if err != nil {
		return nil, err
	}

	touched := make([]string, 0, len(st.Added)+len(st.Modified))
	touched = append(touched, st.Added...)
	touched = append(touched, st.Modified...)

	for _, rel := range touched {
		if !strings.HasSuffix(strings.ToLower(rel), ".blend") {
			continue
		}
		abs := filepath.Join(rootDir, filepath.FromSlash(rel))
		deps := side.DepsRemap[filepath.Base(rel)]
		if len(deps) == 0 {
			continue
		}
		if err := remap.Restore(abs, restoreFromDeps(deps)); err != nil {
			return nil, err
		}
	}

	subsetRemap := packer.PathRemap{}
	for _, rel := range touched {
		if v, ok := side.PathRemap[rel]; ok {
			subsetRemap[rel] = v
		}
	}

	ops := make(PathOps, len(touched)+len(st.Removed))
	for _, rel := range st.Added {
		ops[rel] = opAdded
	}
	for _, rel := range st.Modified {
		ops[rel] = opModified
	}
	for _, rel := range st.Removed {
		ops[rel] = opDeleted
	}

	archive, err := buildCommitArchive(rootDir, touched, subsetRemap, ops, sink)
	if err != nil {
		return nil, err
	}

	next := make(packer.PathsUUID, len(paths))
	for k, v := range paths {
		next[k] = v
	}
	for _, rel := range st.Removed {
		delete(next, rel)
	}
	for _, rel := range touched {
		fp, err := remap.Fingerprint(filepath.Join(rootDir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, err
		}
		next[rel] = fp
	}

	return &CommitPlan{Archive: archive, PathsUUID: next, TouchedCount: len(touched)}, nil
}

// Upload sends plan's archive to client and, on success, persists the
// updated fingerprint map (§4.6 "on success the session's fingerprint
// map is updated with the new fingerprints").
func Upload(ctx context.Context, client *transport.Client, sessionPath, message, rootDir string, plan *CommitPlan) error {
	if err := client.Commit(ctx, sessionPath, message, plan.Archive); err != nil {
		return err
	}
	return SavePathsUUID(rootDir, plan.PathsUUID)
}

func restoreFromDeps(deps map[string]string) remap.RestoreFunc {
	return func(_ string, oldPath string) (string, bool) {
		orig, ok := deps[oldPath]
		return orig, ok
	}
}

func buildCommitArchive(rootDir string, touched []string, subsetRemap packer.PathRemap, ops PathOps, sink *report.Sink) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})

	for _, rel := range touched {
		abs := filepath.Join(rootDir, filepath.FromSlash(rel))
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, report.New(report.IO, abs, err)
		}
		w, err := zw.Create(rel)
		if err != nil {
			return nil, report.New(report.IO, rel, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, report.New(report.IO, rel, err)
		}
		sink.Infof("committing: %s", rel)
	}

	for name, v := range map[string]interface{}{
		".paths_remap.json": subsetRemap,
		pathsOpsFile:         ops,
	} {
		data, err := json.MarshalIndent(v, "", "    ")
		if err != nil {
			return nil, err
		}
		data = append(data, '\n')
		w, err := zw.Create(name)
		if err != nil {
			return nil, report.New(report.IO, name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, report.New(report.IO, name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
