// Package mosaic assembles one 256x256 elevation tile from however many
// source DEM squares overlap it, painting each source onto a shared
// canvas in a fixed, deterministic order so overlapping DEMs blend the
// same way regardless of which happens to load first or fastest.
package mosaic

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/cipher985/floodmap-tiles/internal/demstore"
	"github.com/cipher985/floodmap-tiles/internal/resample"
	"github.com/cipher985/floodmap-tiles/internal/tilegeom"
)

// CanvasSize is the fixed output tile edge length, in samples.
const CanvasSize = 256

// DEMVersion is the 1-arc-second product version baked into every
// source DEM's filename (e.g. n27_w083_1arc_v3).
const DEMVersion = 3

// NodataSample is the canvas's fill value before anything is painted,
// and the value left behind anywhere no source DEM overlapped.
const NodataSample int16 = -32768

// Loader is the subset of elevcache.Cache the mosaic engine depends on,
// so tests can substitute a fake without standing up real DEM files.
type Loader interface {
	Exists(tileID string) bool
	Get(tileID string) (*demstore.ElevationArray, error)
}

// Engine builds tiles from a DEM cache.
type Engine struct {
	cache Loader
}

// New constructs an Engine backed by cache.
func New(cache Loader) *Engine {
	return &Engine{cache: cache}
}

// Result is one assembled tile plus diagnostics about how it was built.
type Result struct {
	Samples       []int16 // row-major, CanvasSize x CanvasSize
	SourcesUsed   int
	SourcesFailed int
	AllOcean      bool // true when no overlapping DEM square exists in the corpus
}

// BuildTile assembles the elevation canvas for tile z/x/y. DEM squares are
// painted in a fixed order (sorted by ID), "paint-behind": a square only
// fills canvas cells still holding nodata, so the first DEM in sort order
// wins any overlap and a later square never overwrites an earlier one's
// pixels, matching the reference implementation's deterministic layering.
func (e *Engine) BuildTile(ctx context.Context, z, x, y int) (*Result, error) {
	latTop, latBottom, lonLeft, lonRight := tilegeom.TileBounds(z, x, y)
	squares := tilegeom.OverlappingDEMSquares(latTop, latBottom, lonLeft, lonRight, DEMVersion)

	canvas := make([]int16, CanvasSize*CanvasSize)
	for i := range canvas {
		canvas[i] = NodataSample
	}

	if len(squares) == 0 {
		return &Result{Samples: canvas, AllOcean: true}, nil
	}

	sort.Slice(squares, func(i, j int) bool { return squares[i].ID < squares[j].ID })

	dst := resample.GeoBox{Top: latTop, Bottom: latBottom, Left: lonLeft, Right: lonRight}

	res := &Result{Samples: canvas}
	for _, sq := range squares {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("mosaic: building tile %d/%d/%d: %w", z, x, y, ctx.Err())
		default:
		}

		if !e.cache.Exists(sq.ID) {
			// Genuinely no data for this square (ocean, or outside the
			// ingested corpus) — expected, not a failure, nothing to log.
			continue
		}

		if err := e.paintSource(sq.ID, dst, canvas); err != nil {
			log.Printf("mosaic: tile %d/%d/%d: source %s failed, skipping: %v", z, x, y, sq.ID, err)
			res.SourcesFailed++
			continue
		}
		res.SourcesUsed++
	}

	if res.SourcesUsed == 0 && res.SourcesFailed > 0 {
		log.Printf("mosaic: tile %d/%d/%d: all %d overlapping sources failed to load", z, x, y, res.SourcesFailed)
	}
	if res.SourcesUsed == 0 && res.SourcesFailed == 0 {
		// Every overlapping square was absent from the corpus, not merely
		// unloadable — this tile is genuinely ocean/no-data.
		res.AllOcean = true
	}

	return res, nil
}

func (e *Engine) paintSource(tileID string, dst resample.GeoBox, canvas []int16) error {
	arr, err := e.cache.Get(tileID)
	if err != nil {
		return err
	}

	nodata := int16(arr.Sidecar.NodataValue)
	src := resample.GeoBox{
		Top:    arr.Sidecar.Bounds.Top,
		Bottom: arr.Sidecar.Bounds.Bottom,
		Left:   arr.Sidecar.Bounds.Left,
		Right:  arr.Sidecar.Bounds.Right,
	}

	win, ok := resample.ComputeWindow(src, arr.Height, arr.Width, dst, CanvasSize)
	if !ok {
		return nil
	}

	patchH := win.SrcY1 - win.SrcY0
	patchW := win.SrcX1 - win.SrcX0
	patch := make([]int16, patchH*patchW)
	for r := 0; r < patchH; r++ {
		for c := 0; c < patchW; c++ {
			patch[r*patchW+c] = arr.At(win.SrcY0+r, win.SrcX0+c)
		}
	}

	dstH := win.DstY1 - win.DstY0
	dstW := win.DstX1 - win.DstX0
	resized := resample.Resize(patch, patchH, patchW, dstH, dstW, nodata)

	for r := 0; r < dstH; r++ {
		for c := 0; c < dstW; c++ {
			v := resized[r*dstW+c]
			if v == nodata {
				continue // never let a source's own nodata paint over an earlier source's real data
			}
			idx := (win.DstY0+r)*CanvasSize + (win.DstX0 + c)
			if canvas[idx] != NodataSample {
				continue // paint-behind: the first source enumerated wins an overlap, not the last
			}
			canvas[idx] = v
		}
	}
	return nil
}
