// Package demstore opens the on-disk source DEM corpus: a directory of
// {tile_id}.zst + {tile_id}.json pairs. It owns exactly one concern —
// validated decompression — and never crops, pads, or otherwise reshapes
// what it reads. A previous implementation auto-cropped zero-padded edges
// off some rasters and broke seam alignment; that behavior is intentionally
// not reproduced here. Trust the sidecar bounds.
package demstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// ElevationArray is a decompressed in-memory view of one SourceDEM. It is
// never mutated after construction; callers must treat Data as read-only.
type ElevationArray struct {
	Data    []int16
	Height  int
	Width   int
	Sidecar *Sidecar
}

// At returns the sample at (row, col). Callers are expected to have already
// bounds-checked row/col against Height/Width; this is the hot path for the
// mosaic engine and stays free of per-call bounds error handling.
func (a *ElevationArray) At(row, col int) int16 {
	return a.Data[row*a.Width+col]
}

// Store opens SourceDEMs from a directory of {tile_id}.zst/{tile_id}.json
// pairs.
type Store struct {
	dir     string
	decoder *zstd.Decoder
}

// New constructs a Store rooted at dir. The returned Store owns a single
// zstd decoder reused (safely, for concurrent DecodeAll calls) across every
// Load.
func New(dir string) (*Store, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("constructing zstd decoder: %w", err)
	}
	return &Store{dir: dir, decoder: dec}, nil
}

// Close releases the decoder's background resources.
func (s *Store) Close() {
	s.decoder.Close()
}

func (s *Store) paths(tileID string) (zstPath, jsonPath string) {
	return filepath.Join(s.dir, tileID+".zst"), filepath.Join(s.dir, tileID+".json")
}

// Exists reports whether both halves of a SourceDEM pair are present,
// without reading or validating their contents. The mosaic engine uses this
// for its directory-existence overlap check before paying for a Load.
func (s *Store) Exists(tileID string) bool {
	zstPath, jsonPath := s.paths(tileID)
	if _, err := os.Stat(zstPath); err != nil {
		return false
	}
	if _, err := os.Stat(jsonPath); err != nil {
		return false
	}
	return true
}

// Load reads, validates and decompresses one SourceDEM. A missing sidecar,
// a declared-vs-actual size mismatch, or a corrupt zstd frame are all fatal
// for this DEM — callers (the cache, the mosaic engine) decide whether that
// failure poisons a whole tile or is merely skipped.
func (s *Store) Load(tileID string) (*ElevationArray, error) {
	zstPath, jsonPath := s.paths(tileID)

	jsonBytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("dem %s: missing or unreadable sidecar: %w", tileID, err)
	}
	sidecar, err := ParseSidecar(jsonBytes)
	if err != nil {
		return nil, fmt.Errorf("dem %s: %w", tileID, err)
	}

	compressed, err := os.ReadFile(zstPath)
	if err != nil {
		return nil, fmt.Errorf("dem %s: reading compressed raster: %w", tileID, err)
	}

	expectedBytes := sidecar.Height * sidecar.Width * 2
	decoded, err := s.decoder.DecodeAll(compressed, make([]byte, 0, expectedBytes))
	if err != nil {
		return nil, fmt.Errorf("dem %s: decompression failed: %w", tileID, err)
	}
	if len(decoded) != expectedBytes {
		return nil, fmt.Errorf("dem %s: decompressed %d bytes, sidecar declares %d (%dx%d)",
			tileID, len(decoded), expectedBytes, sidecar.Height, sidecar.Width)
	}

	data := bytesToInt16(decoded)

	return &ElevationArray{
		Data:    data,
		Height:  sidecar.Height,
		Width:   sidecar.Width,
		Sidecar: sidecar,
	}, nil
}

// EstimatedBytes returns the memory footprint of an ElevationArray for the
// cache's byte-budget accounting.
func (a *ElevationArray) EstimatedBytes() int64 {
	return int64(len(a.Data)) * 2
}

// SourceFileCount counts the sidecar JSON files in the store's directory.
// The generator uses this as a guardrail before a full run: a corpus that
// looks suspiciously small usually means a bad mount or an interrupted
// sync, not an intentionally small deployment.
func (s *Store) SourceFileCount() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("counting source files in %s: %w", s.dir, err)
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			count++
		}
	}
	return count, nil
}

// CoverageBounds scans every sidecar in the store's directory and returns
// the union of their bounds. The generator uses this to derive a default
// bbox for a run when the operator doesn't pass one explicitly, mirroring
// the reference implementation's discover_coverage_bbox_from_metadata.
func (s *Store) CoverageBounds() (Bounds, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return Bounds{}, fmt.Errorf("scanning %s for coverage bounds: %w", s.dir, err)
	}

	union := Bounds{Left: 180, Right: -180, Bottom: 90, Top: -90}
	found := false
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return Bounds{}, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		sidecar, err := ParseSidecar(data)
		if err != nil {
			return Bounds{}, fmt.Errorf("parsing %s: %w", e.Name(), err)
		}
		if sidecar.Bounds.Left < union.Left {
			union.Left = sidecar.Bounds.Left
		}
		if sidecar.Bounds.Right > union.Right {
			union.Right = sidecar.Bounds.Right
		}
		if sidecar.Bounds.Bottom < union.Bottom {
			union.Bottom = sidecar.Bounds.Bottom
		}
		if sidecar.Bounds.Top > union.Top {
			union.Top = sidecar.Bounds.Top
		}
		found = true
	}
	if !found {
		return Bounds{}, fmt.Errorf("no sidecar files found in %s to derive coverage bounds from", s.dir)
	}
	return union, nil
}
