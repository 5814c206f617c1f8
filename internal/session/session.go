package session

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/scenepack/scenepack/internal/packer"
	"github.com/scenepack/scenepack/internal/report"
)

const pathsUUIDFile = ".paths_uuid.json"

// LoadPathsUUID reads a session's file -> fingerprint map. A missing
// file is not an error: a freshly-initialized session has none yet.
func LoadPathsUUID(sessionRoot string) (packer.PathsUUID, error) {
	path := filepath.Join(sessionRoot, pathsUUIDFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return packer.PathsUUID{}, nil
		}
		return nil, report.New(report.IO, path, err)
	}
	var m packer.PathsUUID
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, report.New(report.FormatInvalid, path, err)
	}
	return m, nil
}

// SavePathsUUID writes a session's file -> fingerprint map back to disk,
// canonical JSON (sorted keys, 4-space indent) per §6.
func SavePathsUUID(sessionRoot string, m packer.PathsUUID) error {
	path := filepath.Join(sessionRoot, pathsUUIDFile)
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return report.New(report.IO, path, err)
	}
	return nil
}
