// Package resample implements the per-DEM crop + resample step shared by
// the decompressed-array cache's extract_tile convenience wrapper and the
// mosaic engine's per-source loop: map a geographic intersection to source
// and destination array indices, and resample between them with Lanczos
// when the shapes differ. Operates purely on (row, col) reads of int16
// values; nothing here is coupled to a particular array library.
package resample

// GeoBox is a geographic bounding box in degrees.
type GeoBox struct {
	Top, Bottom, Left, Right float64
}

// Window describes the mapping from a geographic intersection to a source
// raster's index range and a destination canvas's index range.
type Window struct {
	SrcY0, SrcY1, SrcX0, SrcX1 int
	DstY0, DstY1, DstX0, DstX1 int
}

// Empty reports whether the window covers zero pixels in either raster.
func (w Window) Empty() bool {
	return w.SrcY1 <= w.SrcY0 || w.SrcX1 <= w.SrcX0 || w.DstY1 <= w.DstY0 || w.DstX1 <= w.DstX0
}

// ComputeWindow finds the geographic intersection of src and dst, then maps
// it to integer index ranges in both the source raster (srcH x srcW, bounds
// src) and the destination canvas (dstSize x dstSize, bounds dst). Returns
// ok=false when there is no geographic overlap at all.
//
// Source indices are rounded so the window fully covers the intersection
// (floor on the low edge, ceil on the high edge); destination indices are
// rounded to the nearest pixel, matching the reference mosaicking
// implementation this is ported from.
func ComputeWindow(src GeoBox, srcH, srcW int, dst GeoBox, dstSize int) (Window, bool) {
	overlapTop := minF(src.Top, dst.Top)
	overlapBottom := maxF(src.Bottom, dst.Bottom)
	overlapLeft := maxF(src.Left, dst.Left)
	overlapRight := minF(src.Right, dst.Right)

	if overlapBottom >= overlapTop || overlapLeft >= overlapRight {
		return Window{}, false
	}

	srcLatSpan := src.Top - src.Bottom
	srcLonSpan := src.Right - src.Left
	srcY0 := clampInt(int((src.Top-overlapTop)/srcLatSpan*float64(srcH)), 0, srcH)
	srcY1 := clampInt(int(ceilFrac((src.Top-overlapBottom)/srcLatSpan*float64(srcH))), 0, srcH)
	srcX0 := clampInt(int((overlapLeft-src.Left)/srcLonSpan*float64(srcW)), 0, srcW)
	srcX1 := clampInt(int(ceilFrac((overlapRight-src.Left)/srcLonSpan*float64(srcW))), 0, srcW)

	dstLatSpan := dst.Top - dst.Bottom
	dstLonSpan := dst.Right - dst.Left
	dstY0 := clampInt(roundInt((dst.Top-overlapTop)/dstLatSpan*float64(dstSize)), 0, dstSize)
	dstY1 := clampInt(roundInt((dst.Top-overlapBottom)/dstLatSpan*float64(dstSize)), 0, dstSize)
	dstX0 := clampInt(roundInt((overlapLeft-dst.Left)/dstLonSpan*float64(dstSize)), 0, dstSize)
	dstX1 := clampInt(roundInt((overlapRight-dst.Left)/dstLonSpan*float64(dstSize)), 0, dstSize)

	w := Window{
		SrcY0: srcY0, SrcY1: srcY1, SrcX0: srcX0, SrcX1: srcX1,
		DstY0: dstY0, DstY1: dstY1, DstX0: dstX0, DstX1: dstX1,
	}
	return w, !w.Empty()
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundInt(f float64) int {
	if f >= 0 {
		return int(f + 0.5)
	}
	return int(f - 0.5)
}

func ceilFrac(f float64) float64 {
	i := int(f)
	if float64(i) < f {
		return float64(i + 1)
	}
	return float64(i)
}
