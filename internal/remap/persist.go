package remap

import (
	"encoding/json"
	"os"

	"github.com/scenepack/scenepack/internal/report"
)

// startMapFile holds the fingerprint->source map a remap-start run
// produced, read back by the later remap-finish run (§6 CLI:
// "remap-start(paths)", "remap-finish(paths, ...)" are separate
// entry points, so the map between them has to survive the process).
const startMapFile = ".bam_remap_start.json"

// SaveStartMap persists m to the current directory for a later
// LoadStartMap call.
func SaveStartMap(m Map) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := os.WriteFile(startMapFile, data, 0o644); err != nil {
		return report.New(report.IO, startMapFile, err)
	}
	return nil
}

// LoadStartMap reads back the map SaveStartMap wrote.
func LoadStartMap() (Map, error) {
	data, err := os.ReadFile(startMapFile)
	if err != nil {
		return nil, report.New(report.IO, startMapFile, err)
	}
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, report.New(report.FormatInvalid, startMapFile, err)
	}
	return m, nil
}

// Reset discards a persisted start map (§6 CLI "remap-reset()"),
// abandoning an in-progress remap without finishing it.
func Reset() error {
	err := os.Remove(startMapFile)
	if err != nil && !os.IsNotExist(err) {
		return report.New(report.IO, startMapFile, err)
	}
	return nil
}
