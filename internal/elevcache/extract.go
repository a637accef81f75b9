package elevcache

import (
	"github.com/cipher985/floodmap-tiles/internal/resample"
)

// ExtractTile loads tileID (via the cache) and resamples the geographic
// box dst out of it into a dstSize x dstSize int16 canvas, painting
// NODATA everywhere dst doesn't overlap the source. It handles one source
// DEM only; the mosaic engine does not call it and uses the lower-level
// resample package directly to paint several sources onto one canvas.
func (c *Cache) ExtractTile(tileID string, dst resample.GeoBox, dstSize int) ([]int16, error) {
	arr, err := c.Get(tileID)
	if err != nil {
		return nil, err
	}

	nodata := int16(arr.Sidecar.NodataValue)
	out := make([]int16, dstSize*dstSize)
	for i := range out {
		out[i] = nodata
	}

	src := resample.GeoBox{
		Top:    arr.Sidecar.Bounds.Top,
		Bottom: arr.Sidecar.Bounds.Bottom,
		Left:   arr.Sidecar.Bounds.Left,
		Right:  arr.Sidecar.Bounds.Right,
	}

	win, ok := resample.ComputeWindow(src, arr.Height, arr.Width, dst, dstSize)
	if !ok {
		return out, nil
	}

	patchH := win.SrcY1 - win.SrcY0
	patchW := win.SrcX1 - win.SrcX0
	patch := make([]int16, patchH*patchW)
	for r := 0; r < patchH; r++ {
		for cix := 0; cix < patchW; cix++ {
			patch[r*patchW+cix] = arr.At(win.SrcY0+r, win.SrcX0+cix)
		}
	}

	dstH := win.DstY1 - win.DstY0
	dstW := win.DstX1 - win.DstX0
	resized := resample.Resize(patch, patchH, patchW, dstH, dstW, nodata)

	for r := 0; r < dstH; r++ {
		for cix := 0; cix < dstW; cix++ {
			out[(win.DstY0+r)*dstSize+(win.DstX0+cix)] = resized[r*dstW+cix]
		}
	}

	return out, nil
}
