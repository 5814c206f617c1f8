package packer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"

	"github.com/scenepack/scenepack/internal/report"
)

// finalizeFile implements §4.4 Operation step 5, file mode: move the
// staged root to its final name, strip the staging suffix from every
// other staged scene file by relocating it out of the temp directory and
// into its computed destination, then copy every referenced asset.
func finalizeFile(root, dest string, stagedByScene map[string]string, copyFiles []copyEntry, side SideFiles, sink *report.Sink) error {
	tempDir := filepath.Dir(stagedByScene[root])
	for scene, staged := range stagedByScene {
		final := dest
		if scene != root {
			rel, err := filepath.Rel(tempDir, strings.TrimSuffix(staged, tempSuffix))
			if err != nil {
				return err
			}
			final = filepath.Join(filepath.Dir(dest), rel)
		}
		if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
			return report.New(report.IO, final, err)
		}
		data, err := os.ReadFile(staged)
		if err != nil {
			return report.New(report.IO, staged, err)
		}
		if err := renameio.WriteFile(final, data, 0o644); err != nil {
			return report.New(report.IO, final, err)
		}
		os.Remove(staged)
		sink.Infof("written: %s", final)
	}
	os.RemoveAll(tempDir)

	for _, ce := range copyFiles {
		if _, err := os.Stat(ce.src); err != nil {
			sink.Warnf("source missing: %s", ce.src)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(ce.dst), 0o755); err != nil {
			return report.New(report.IO, ce.dst, err)
		}
		sink.Infof("copying: %s -> %s", ce.src, ce.dst)
		if err := copyFileContents(ce.src, ce.dst); err != nil {
			return err
		}
	}

	return side.WriteTo(filepath.Dir(dest))
}
