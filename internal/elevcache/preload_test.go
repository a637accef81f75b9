package elevcache

import (
	"context"
	"testing"

	"github.com/cipher985/floodmap-tiles/internal/demstore"
)

func TestDefaultStartupAreas_NonEmptyAndBounded(t *testing.T) {
	areas := DefaultStartupAreas()
	if len(areas) == 0 {
		t.Fatal("expected a non-empty fixed list of startup areas")
	}
	for _, a := range areas {
		if a.Name == "" {
			t.Error("every area should have a name for log lines")
		}
		if a.LatTop <= a.LatBottom {
			t.Errorf("area %s: LatTop (%f) must be above LatBottom (%f)", a.Name, a.LatTop, a.LatBottom)
		}
		if a.LonRight <= a.LonLeft {
			t.Errorf("area %s: LonRight (%f) must be east of LonLeft (%f)", a.Name, a.LonRight, a.LonLeft)
		}
	}
}

func TestPreload_WarmsCacheForOverlappingSquares(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "n27_w083_1arc_v3", 4, 4, 100, demstore.Bounds{Left: -83.5, Right: -82.5, Bottom: 26.5, Top: 27.5})

	store, err := demstore.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	c := New(store, 0)
	areas := []Area{{Name: "tampa", LatTop: 28, LatBottom: 27, LonLeft: -83, LonRight: -82}}
	c.Preload(context.Background(), areas, 2)

	stats := c.Stats()
	if stats.Entries == 0 {
		t.Error("Preload should have warmed at least one cache entry for an overlapping area")
	}
}

func TestPreload_MissingSquaresAreSkippedNotFatal(t *testing.T) {
	dir := t.TempDir()
	store, err := demstore.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	c := New(store, 0)
	// Null Island: no fixtures exist here, every overlapping square will
	// fail to load. Preload must not panic or block forever.
	areas := []Area{{Name: "null_island", LatTop: 1, LatBottom: -1, LonLeft: -1, LonRight: 1}}
	c.Preload(context.Background(), areas, 2)

	if stats := c.Stats(); stats.Entries != 0 {
		t.Errorf("entries = %d, want 0 (nothing should have loaded successfully)", stats.Entries)
	}
}
