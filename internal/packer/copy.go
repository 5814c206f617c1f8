package packer

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/scenepack/scenepack/internal/report"
)

// copyFileContents copies src to dst and carries over src's permission
// bits, the same file-mode-preservation the teacher's build sandbox
// applies when staging package inputs, so a staged or bundled asset
// never silently drops an executable bit or a restrictive mode the
// source file relied on.
func copyFileContents(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return report.New(report.IO, src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return report.New(report.IO, dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return report.New(report.IO, dst, xerrors.Errorf("staging copy: %w", err))
	}
	if err := out.Close(); err != nil {
		return report.New(report.IO, dst, err)
	}
	return preserveMode(src, dst)
}

// preserveMode copies src's permission bits onto dst via unix.Stat and
// unix.Chmod, mirroring what Blender's original packer leaves to the
// OS's own shutil.copy (which preserves mode by default) — Go's
// io.Copy has no such side effect, so it has to be done explicitly.
func preserveMode(src, dst string) error {
	var st unix.Stat_t
	if err := unix.Stat(src, &st); err != nil {
		return report.New(report.IO, src, err)
	}
	if err := unix.Chmod(dst, uint32(st.Mode&0o7777)); err != nil {
		return report.New(report.IO, dst, err)
	}
	return nil
}
