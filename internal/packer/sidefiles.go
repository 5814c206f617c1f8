package packer

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/scenepack/scenepack/internal/report"
)

// PathRemap maps a bundle-relative destination path to the absolute
// source path it was copied (or, for a scene file, staged) from; values
// are not made project-relative. When Options.Fakeroot is set, the entry
// keyed "." records it (ported from blendfile_pack.py's
// `paths_remap_relbase` handling — see DESIGN.md); otherwise there is no
// "." entry.
type PathRemap map[string]string

// DepsRemap maps a scene file's basename to, for that file, every
// rewritten reference: the new in-file text to the text it replaced
// (`{"file.blend": {"path_new": "path_old", ...}}` in blendfile_pack.py).
type DepsRemap map[string]map[string]string

// PathsUUID maps a bundle-relative path to the content fingerprint
// (§4.5 Fingerprint) of the file as it lands in the bundle (the rewritten
// staged copy for a scene file, the source for a copied asset), seeding a
// session's file->fingerprint map at checkout time (§4.6).
type PathsUUID map[string]string

const (
	pathRemapFile = ".paths_remap.json"
	depsRemapFile = ".deps_remap.json"
	pathsUUIDFile = ".paths_uuid.json"
)

// SideFiles bundles the three JSON metadata maps a pack operation
// produces (§6 Bundle archive).
type SideFiles struct {
	PathRemap PathRemap
	DepsRemap DepsRemap
	PathsUUID PathsUUID
}

// WriteTo writes the three side files into dir, each canonical JSON
// (sorted keys via Go's map-key marshaling order, 4-space indent) per
// §6.
func (s SideFiles) WriteTo(dir string) error {
	for name, v := range map[string]interface{}{
		pathRemapFile: s.PathRemap,
		depsRemapFile: s.DepsRemap,
		pathsUUIDFile: s.PathsUUID,
	} {
		if err := writeJSON(filepath.Join(dir, name), v); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := marshalIndent(v)
	if err != nil {
		return report.New(report.IO, path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return report.New(report.IO, path, err)
	}
	return nil
}

// marshalIndent renders v as canonical JSON: 4-space indent, keys sorted
// the way Go's encoding/json already sorts map[string]... keys (§6
// Bundle archive: "canonical JSON mapping (sorted keys, 4-space indent)").
func marshalIndent(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ReadSideFiles loads the three JSON maps back out of dir, for the
// remapper's pack-restore phase at commit time.
func ReadSideFiles(dir string) (*SideFiles, error) {
	var s SideFiles
	if err := readJSON(filepath.Join(dir, pathRemapFile), &s.PathRemap); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, depsRemapFile), &s.DepsRemap); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, pathsUUIDFile), &s.PathsUUID); err != nil {
		return nil, err
	}
	return &s, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return report.New(report.IO, path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return report.New(report.FormatInvalid, path, err)
	}
	return nil
}
