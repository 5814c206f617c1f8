package remap

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scenepack/scenepack/internal/report"
	"github.com/scenepack/scenepack/internal/walker"
)

// Map is the output of Start and the input to Finish: a content
// fingerprint to the absolute source path that produced it (§4.5 Start
// phase: "Emit a map fingerprint -> source-path").
type Map map[string]string

// Start walks every scene file under paths in read-only mode, fingerprints
// every file it references plus the scene files themselves, and returns
// the resulting fingerprint->path map. A duplicate fingerprint or a
// reference that does not exist is warned on through sink rather than
// aborting the walk (§4.5 Start phase).
func Start(ctx context.Context, paths []string, sink *report.Sink) (Map, error) {
	files, err := collectSceneFiles(paths)
	if err != nil {
		return nil, err
	}

	toFingerprint := make(map[string]bool)
	w := walker.New(walker.Options{Recursive: false})
	for _, blend := range files {
		toFingerprint[blend] = true

		rootDir := filepath.Dir(blend)
		err := w.Walk(ctx, blend, func(ref walker.Reference) error {
			if ref.Status == walker.StatusMissing {
				sink.Warnf("file %q from %q not found!", ref.Path, blend)
				return nil
			}
			abs := resolveAbs(ref, rootDir)
			if _, err := os.Stat(abs); err != nil {
				sink.Warnf("file %q from %q not found!", abs, blend)
				return nil
			}
			toFingerprint[abs] = true
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	// Sorting only makes which duplicate wins (and the warning order)
	// predictable (§4.5 Start phase mirrors blendfile_path_remap.py:start).
	sorted := make([]string, 0, len(toFingerprint))
	for f := range toFingerprint {
		sorted = append(sorted, f)
	}
	sort.Strings(sorted)

	m := make(Map, len(sorted))
	for _, f := range sorted {
		fp, err := Fingerprint(f)
		if err != nil {
			return nil, err
		}
		if existing, ok := m[fp]; ok {
			sink.Warnf("duplicate file found! (%q, %q)", existing, f)
			continue
		}
		m[fp] = f
	}
	return m, nil
}

// collectSceneFiles walks paths and returns every ".blend"-suffixed file
// found beneath them, absolute, in deterministic order.
func collectSceneFiles(paths []string) ([]string, error) {
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
			if info.IsDir() {
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), ".blend") {
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

// resolveAbs turns a walker.Reference into an absolute, cleaned path,
// joining sequence-style directory+filename references the way the
// walker leaves them (already composed into ref.Path by the handler).
func resolveAbs(ref walker.Reference, rootDir string) string {
	p := ref.Path
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	trimmed := strings.TrimPrefix(p, "//")
	base := ref.BaseDir
	if base == "" {
		base = rootDir
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
