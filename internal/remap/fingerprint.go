// Package remap resolves external references after files move: it
// fingerprints file content to survive renames, then rewrites scene-file
// references to match a tree's new layout (§4.5).
package remap

import (
	"crypto/sha512"
	"fmt"
	"io"
	"os"

	"golang.org/x/xerrors"

	"github.com/scenepack/scenepack/internal/report"
)

// Fingerprint identifies a file by content regardless of its name or
// location: hex(length) concatenated with the SHA-512 hexdigest (§3
// Bundle, paths-uuid; §4.5 "content fingerprint (length || SHA-512)").
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", report.New(report.IO, path, err)
	}
	defer f.Close()

	h := sha512.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", report.New(report.IO, path, xerrors.Errorf("hashing: %w", err))
	}
	return fmt.Sprintf("%x%x", n, h.Sum(nil)), nil
}

// FingerprintBytes fingerprints an in-memory buffer the same way, for
// callers that already hold the content (e.g. a staged archive entry).
func FingerprintBytes(data []byte) string {
	sum := sha512.Sum512(data)
	return fmt.Sprintf("%x%x", len(data), sum[:])
}
