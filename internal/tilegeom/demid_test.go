package tilegeom

import "testing"

func TestFormatDEMID(t *testing.T) {
	tests := []struct {
		lat, lon, version int
		want              string
	}{
		{27, -83, 3, "n27_w083_1arc_v3"},
		{-5, 12, 3, "s05_e012_1arc_v3"},
		{0, 0, 1, "n00_e000_1arc_v1"},
	}
	for _, tt := range tests {
		if got := FormatDEMID(tt.lat, tt.lon, tt.version); got != tt.want {
			t.Errorf("FormatDEMID(%d,%d,%d) = %q, want %q", tt.lat, tt.lon, tt.version, got, tt.want)
		}
	}
}

func TestOverlappingDEMSquares_SingleSquare(t *testing.T) {
	// A query box fully inside one degree square should return exactly that square.
	squares := OverlappingDEMSquares(27.9, 27.1, -82.9, -82.1, 3)
	if len(squares) != 1 {
		t.Fatalf("expected 1 square, got %d: %+v", len(squares), squares)
	}
	if squares[0].ID != "n27_w083_1arc_v3" {
		t.Errorf("got %q, want n27_w083_1arc_v3", squares[0].ID)
	}
}

func TestOverlappingDEMSquares_StraddlingBoundary(t *testing.T) {
	// A query box straddling the -82/-81 degree line should hit both squares
	// (n27_w083 covers [-83,-82], n27_w082 covers [-82,-81]).
	squares := OverlappingDEMSquares(27.9, 27.1, -82.1, -81.9, 3)
	if len(squares) != 2 {
		t.Fatalf("expected 2 squares, got %d: %+v", len(squares), squares)
	}
	ids := map[string]bool{}
	for _, s := range squares {
		ids[s.ID] = true
	}
	if !ids["n27_w083_1arc_v3"] || !ids["n27_w082_1arc_v3"] {
		t.Errorf("missing expected square ids, got %+v", squares)
	}
}

func TestOverlappingDEMSquares_ExactBoundary(t *testing.T) {
	// A query box whose edges land exactly on integer degree lines yields
	// only the square it spans, not the neighbours it merely touches.
	squares := OverlappingDEMSquares(28.0, 27.0, -83.0, -82.0, 3)
	if len(squares) != 1 {
		t.Fatalf("expected 1 square for exact [27,28]x[-83,-82] box, got %d: %+v", len(squares), squares)
	}
}
