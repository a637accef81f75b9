package resample

import "testing"

func TestComputeWindow_NoOverlap(t *testing.T) {
	src := GeoBox{Top: 28, Bottom: 27, Left: -83, Right: -82}
	dst := GeoBox{Top: 20, Bottom: 19, Left: -70, Right: -69}
	_, ok := ComputeWindow(src, 3600, 3600, dst, 256)
	if ok {
		t.Fatal("expected no overlap")
	}
}

func TestComputeWindow_FullCoverage(t *testing.T) {
	// Destination tile fully inside a single DEM square.
	src := GeoBox{Top: 28, Bottom: 27, Left: -83, Right: -82}
	dst := GeoBox{Top: 27.9, Bottom: 27.1, Left: -82.9, Right: -82.1}
	w, ok := ComputeWindow(src, 3600, 3600, dst, 256)
	if !ok {
		t.Fatal("expected overlap")
	}
	if w.DstY0 != 0 || w.DstX0 != 0 || w.DstY1 != 256 || w.DstX1 != 256 {
		t.Errorf("destination window should cover the whole canvas, got %+v", w)
	}
	if w.Empty() {
		t.Error("window should not be empty")
	}
}

func TestComputeWindow_PartialOverlapClampsToEdge(t *testing.T) {
	// dst straddles the right edge of src: only the left half of dst is covered.
	src := GeoBox{Top: 28, Bottom: 27, Left: -83, Right: -82}
	dst := GeoBox{Top: 27.9, Bottom: 27.1, Left: -82.5, Right: -81.5}
	w, ok := ComputeWindow(src, 3600, 3600, dst, 256)
	if !ok {
		t.Fatal("expected overlap")
	}
	if w.SrcX1 != 3600 {
		t.Errorf("source window should run to the source's right edge, got SrcX1=%d", w.SrcX1)
	}
	if w.DstX0 != 0 {
		t.Errorf("destination window should start at the left edge, got DstX0=%d", w.DstX0)
	}
	if w.DstX1 >= 256 {
		t.Errorf("destination window should not reach the right edge, got DstX1=%d", w.DstX1)
	}
}

func TestComputeWindow_DegenerateBoxIsEmpty(t *testing.T) {
	src := GeoBox{Top: 28, Bottom: 27, Left: -83, Right: -82}
	dst := GeoBox{Top: 28, Bottom: 28, Left: -83, Right: -82}
	_, ok := ComputeWindow(src, 3600, 3600, dst, 256)
	if ok {
		t.Fatal("a zero-height destination box should never overlap")
	}
}

func TestCeilFrac(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{3.0, 3.0},
		{3.0001, 4.0},
		{-1.5, -1.0},
		{0, 0},
	}
	for _, c := range cases {
		if got := ceilFrac(c.in); got != c.want {
			t.Errorf("ceilFrac(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestRoundInt(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{0.4, 0},
		{0.5, 1},
		{0.6, 1},
		{-0.5, -1},
		{-0.6, -1},
	}
	for _, c := range cases {
		if got := roundInt(c.in); got != c.want {
			t.Errorf("roundInt(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
