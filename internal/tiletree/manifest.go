package tiletree

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest summarizes one completed (or in-progress) generator run: which
// zooms were processed, how many tiles landed vs. were skipped as
// missing source data, and how long it took. The generator reads this
// back on startup to resume a run without re-walking zooms it already
// finished.
type Manifest struct {
	MinZoom         int             `json:"min_zoom"`
	MaxZoom         int             `json:"max_zoom"`
	CompletedZooms  []int           `json:"completed_zooms"`
	TilesWritten    map[int]int64   `json:"tiles_written"`    // per zoom
	TilesSkipped    map[int]int64   `json:"tiles_skipped"`    // per zoom, no source data
	DurationSeconds map[int]float64 `json:"duration_seconds"` // per zoom
}

func manifestPath(root string) string {
	return filepath.Join(root, "manifest.json")
}

// LoadManifest reads the manifest at root, returning a zero-value
// Manifest (not an error) if none exists yet — a fresh generator run
// starts from scratch.
func LoadManifest(root string) (*Manifest, error) {
	data, err := os.ReadFile(manifestPath(root))
	if os.IsNotExist(err) {
		return &Manifest{
			TilesWritten:    make(map[int]int64),
			TilesSkipped:    make(map[int]int64),
			DurationSeconds: make(map[int]float64),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tiletree: reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("tiletree: parsing manifest: %w", err)
	}
	if m.TilesWritten == nil {
		m.TilesWritten = make(map[int]int64)
	}
	if m.TilesSkipped == nil {
		m.TilesSkipped = make(map[int]int64)
	}
	if m.DurationSeconds == nil {
		m.DurationSeconds = make(map[int]float64)
	}
	return &m, nil
}

// IsZoomComplete reports whether zoom has already been fully generated in
// a prior run.
func (m *Manifest) IsZoomComplete(zoom int) bool {
	for _, z := range m.CompletedZooms {
		if z == zoom {
			return true
		}
	}
	return false
}

// MarkZoomComplete records zoom as finished, along with its counters.
func (m *Manifest) MarkZoomComplete(zoom int, written, skipped int64, seconds float64) {
	if !m.IsZoomComplete(zoom) {
		m.CompletedZooms = append(m.CompletedZooms, zoom)
	}
	m.TilesWritten[zoom] = written
	m.TilesSkipped[zoom] = skipped
	m.DurationSeconds[zoom] = seconds
}

// Save writes the manifest to root atomically (same temp-file-then-rename
// discipline as tile writes, so a crash mid-save never corrupts it).
func (m *Manifest) Save(root string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("tiletree: marshaling manifest: %w", err)
	}

	final := manifestPath(root)
	tmp, err := os.CreateTemp(root, "manifest.json.tmp-*")
	if err != nil {
		return fmt.Errorf("tiletree: creating manifest temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("tiletree: writing manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("tiletree: fsyncing manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("tiletree: closing manifest temp file: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("tiletree: renaming manifest into place: %w", err)
	}
	return nil
}
