package session

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio"

	"github.com/scenepack/scenepack/internal/report"
	"github.com/scenepack/scenepack/internal/transport"
)

// Checkout fetches projectPath's bundle archive from client and
// extracts it into rootDir, seeding the session's file -> fingerprint
// map from the archive's own .paths_uuid.json (§4.6, §6 "Session
// files").
func Checkout(ctx context.Context, client *transport.Client, projectPath, rootDir string, sink *report.Sink) error {
	archive, err := client.Checkout(ctx, projectPath, func(s string) { sink.Infof("%s", s) })
	if err != nil {
		return err
	}
	return ExtractArchive(archive, rootDir)
}

// ExtractArchive writes every entry of a deflate bundle archive (§6
// Bundle archive) into rootDir, creating parent directories as needed.
// It is the inverse of packer's archive finalize strategy.
func ExtractArchive(archive []byte, rootDir string) error {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return report.New(report.FormatInvalid, "", err)
	}
	for _, f := range zr.File {
		dest := filepath.Join(rootDir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return report.New(report.IO, dest, err)
		}
		if err := extractOne(f, dest); err != nil {
			return err
		}
	}
	return nil
}

// extractOne writes one archive entry to dest via a temp file swapped
// in with a rename, the same atomic-write pattern install.go uses when
// unpacking a squashfs inode, so a checkout killed mid-extraction never
// leaves a half-written file at its final name.
func extractOne(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return report.New(report.IO, dest, err)
	}
	defer rc.Close()

	out, err := renameio.TempFile("", dest)
	if err != nil {
		return report.New(report.IO, dest, err)
	}
	defer out.Cleanup()
	if _, err := io.Copy(out, rc); err != nil {
		return report.New(report.IO, dest, err)
	}
	return out.CloseAtomicallyReplace()
}
