package mosaic

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/cipher985/floodmap-tiles/internal/demstore"
	"github.com/cipher985/floodmap-tiles/internal/tilegeom"
)

// fakeLoader serves fixed arrays by tile ID without touching disk.
type fakeLoader struct {
	arrays map[string]*demstore.ElevationArray
	fail   map[string]bool
}

func (f *fakeLoader) Exists(tileID string) bool {
	if f.fail[tileID] {
		return true // present on disk, but fails to load
	}
	_, ok := f.arrays[tileID]
	return ok
}

func (f *fakeLoader) Get(tileID string) (*demstore.ElevationArray, error) {
	if f.fail[tileID] {
		return nil, fmt.Errorf("fake load failure for %s", tileID)
	}
	arr, ok := f.arrays[tileID]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", tileID)
	}
	return arr, nil
}

func constantArray(h, w int, fill int16, bounds demstore.Bounds) *demstore.ElevationArray {
	data := make([]int16, h*w)
	for i := range data {
		data[i] = fill
	}
	return &demstore.ElevationArray{
		Data:   data,
		Height: h,
		Width:  w,
		Sidecar: &demstore.Sidecar{
			Bounds:      bounds,
			NodataValue: -32768,
		},
	}
}

func TestBuildTile_NoOverlappingDEMsIsOcean(t *testing.T) {
	loader := &fakeLoader{arrays: map[string]*demstore.ElevationArray{}}
	eng := New(loader)

	// Null Island: no 1-arc DEM squares exist there in this fixture set.
	x, y := tilegeom.DegToTile(0, 0, 5)
	res, err := eng.BuildTile(context.Background(), 5, x, y)
	if err != nil {
		t.Fatal(err)
	}
	if !res.AllOcean {
		t.Error("expected AllOcean=true when no overlapping DEM square exists in the corpus")
	}
	for i, v := range res.Samples {
		if v != NodataSample {
			t.Fatalf("sample %d = %d, want nodata", i, v)
		}
	}
}

func TestBuildTile_SingleSourceFullyCoversTile(t *testing.T) {
	z, x, y := 10, 277, 429 // inside n27_w083 per mercator_test's hand-verified tampa tile
	latTop, latBottom, lonLeft, lonRight := tilegeom.TileBounds(z, x, y)

	squares := tilegeom.OverlappingDEMSquares(latTop, latBottom, lonLeft, lonRight, DEMVersion)
	if len(squares) == 0 {
		t.Fatal("test setup: expected at least one overlapping square")
	}

	arrays := make(map[string]*demstore.ElevationArray, len(squares))
	for _, sq := range squares {
		bounds := demstore.Bounds{
			Left:   float64(sq.LonInt) - 0.5/3600,
			Right:  float64(sq.LonInt) + 1 + 0.5/3600,
			Bottom: float64(sq.LatInt) - 0.5/3600,
			Top:    float64(sq.LatInt) + 1 + 0.5/3600,
		}
		arrays[sq.ID] = constantArray(120, 120, 55, bounds)
	}

	loader := &fakeLoader{arrays: arrays}
	eng := New(loader)

	res, err := eng.BuildTile(context.Background(), z, x, y)
	if err != nil {
		t.Fatal(err)
	}
	if res.AllOcean {
		t.Fatal("expected a covered tile, got AllOcean")
	}
	if res.SourcesUsed == 0 {
		t.Fatal("expected at least one source painted")
	}

	// Center of the canvas should be real data, not nodata, when sources
	// fully blanket the tile.
	center := CanvasSize/2*CanvasSize + CanvasSize/2
	if res.Samples[center] == NodataSample {
		t.Error("canvas center is still nodata despite full source coverage")
	}
}

func TestBuildTile_FailedSourceIsSkippedNotFatal(t *testing.T) {
	z, x, y := 10, 277, 429
	latTop, latBottom, lonLeft, lonRight := tilegeom.TileBounds(z, x, y)
	squares := tilegeom.OverlappingDEMSquares(latTop, latBottom, lonLeft, lonRight, DEMVersion)
	if len(squares) == 0 {
		t.Fatal("test setup: expected at least one overlapping square")
	}

	loader := &fakeLoader{
		arrays: map[string]*demstore.ElevationArray{},
		fail:   map[string]bool{squares[0].ID: true},
	}
	eng := New(loader)

	res, err := eng.BuildTile(context.Background(), z, x, y)
	if err != nil {
		t.Fatalf("a single source failure must not fail the whole tile: %v", err)
	}
	if res.SourcesFailed == 0 {
		t.Error("expected the failing source to be counted")
	}
}

func TestBuildTile_FirstSourceInSortOrderWinsOverlap(t *testing.T) {
	z, x, y := 10, 278, 429 // straddles the -82 meridian: n27_w083 and n27_w082
	latTop, latBottom, lonLeft, lonRight := tilegeom.TileBounds(z, x, y)
	squares := tilegeom.OverlappingDEMSquares(latTop, latBottom, lonLeft, lonRight, DEMVersion)
	if len(squares) < 2 {
		t.Fatal("test setup: need at least two overlapping squares to pin down paint order")
	}
	sort.Slice(squares, func(i, j int) bool { return squares[i].ID < squares[j].ID })

	// Every square's patch fully covers the tile (oversized bounds), so
	// whichever square the canvas keeps is determined purely by paint
	// order, not by which source geometrically dominates.
	arrays := make(map[string]*demstore.ElevationArray, len(squares))
	for i, sq := range squares {
		bounds := demstore.Bounds{
			Left:   lonLeft - 1,
			Right:  lonRight + 1,
			Bottom: latBottom - 1,
			Top:    latTop + 1,
		}
		fill := int16(10 + i) // distinct per source, so overwrites are observable
		arrays[sq.ID] = constantArray(120, 120, fill, bounds)
	}
	loader := &fakeLoader{arrays: arrays}
	eng := New(loader)

	res, err := eng.BuildTile(context.Background(), z, x, y)
	if err != nil {
		t.Fatal(err)
	}

	want := int16(10) // squares[0], the first in sort-by-ID order
	for i, v := range res.Samples {
		if v != want {
			t.Fatalf("sample %d = %d, want %d (first-enumerated source must win the overlap, not the last)", i, v, want)
		}
	}
}

func TestBuildTile_DeterministicPaintOrder(t *testing.T) {
	z, x, y := 10, 277, 429
	latTop, latBottom, lonLeft, lonRight := tilegeom.TileBounds(z, x, y)
	squares := tilegeom.OverlappingDEMSquares(latTop, latBottom, lonLeft, lonRight, DEMVersion)
	if len(squares) == 0 {
		t.Fatal("test setup: expected at least one overlapping square")
	}

	arrays := make(map[string]*demstore.ElevationArray, len(squares))
	for _, sq := range squares {
		bounds := demstore.Bounds{
			Left:   float64(sq.LonInt) - 0.5/3600,
			Right:  float64(sq.LonInt) + 1 + 0.5/3600,
			Bottom: float64(sq.LatInt) - 0.5/3600,
			Top:    float64(sq.LatInt) + 1 + 0.5/3600,
		}
		arrays[sq.ID] = constantArray(120, 120, 10, bounds)
	}
	loader := &fakeLoader{arrays: arrays}
	eng := New(loader)

	res1, err := eng.BuildTile(context.Background(), z, x, y)
	if err != nil {
		t.Fatal(err)
	}
	res2, err := eng.BuildTile(context.Background(), z, x, y)
	if err != nil {
		t.Fatal(err)
	}
	for i := range res1.Samples {
		if res1.Samples[i] != res2.Samples[i] {
			t.Fatalf("sample %d differs between two identical builds: %d vs %d (paint order must be deterministic)",
				i, res1.Samples[i], res2.Samples[i])
		}
	}
}
