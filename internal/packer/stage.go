package packer

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/scenepack/scenepack/internal/report"
)

// tempSuffix marks a staged scene file as not yet finalized, so a staged
// copy can coexist with a path that will eventually replace it (§4.4
// Operation step 1, ported from blendfile_pack.py's TEMP_SUFFIX).
const tempSuffix = "@"

// stager copies each scene file to a staging location inside the bundle's
// temp directory on first visit, and returns the same staged path on
// every later visit so repeated recursion into one shared library edits
// the single staged copy rather than re-copying over earlier edits
// (§4.4 Rationale).
type stager struct {
	policy PathPolicy // DestDir is the temp directory; Resolve gives the staged layout

	mu     sync.Mutex
	staged map[string]string // source abs path -> staged path (with tempSuffix)
}

func newStager(policy PathPolicy) *stager {
	return &stager{policy: policy, staged: make(map[string]string)}
}

// stage returns the staging path for srcPath (a scene file, referenced
// from referencingBlendAbsPath's own eventual destination), copying it
// there the first time it is seen.
func (s *stager) stage(srcPath, referencingBlendAbsPath string) (string, error) {
	destAbs, _, err := s.policy.Resolve(srcPath, referencingBlendAbsPath)
	if err != nil {
		return "", err
	}
	staged := destAbs + tempSuffix

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.staged[srcPath]; ok {
		return existing, nil
	}
	if err := os.MkdirAll(filepath.Dir(staged), 0o755); err != nil {
		return "", report.New(report.IO, staged, err)
	}
	if err := copyFileContents(srcPath, staged); err != nil {
		return "", err
	}
	s.staged[srcPath] = staged
	return staged, nil
}

