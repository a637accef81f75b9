package resample

import "math"

// lanczosA is the kernel's support radius (a=3), the same window size the
// reference implementation gets from PIL's Image.LANCZOS.
const lanczosA = 3

func lanczosKernel(x float64) float64 {
	if x == 0 {
		return 1
	}
	if x <= -lanczosA || x >= lanczosA {
		return 0
	}
	piX := math.Pi * x
	return lanczosA * math.Sin(piX) * math.Sin(piX/lanczosA) / (piX * piX)
}

// Resize resamples a row-major int16 source patch (srcH x srcW) to a
// row-major int16 destination patch (dstH x dstW) using separable Lanczos
// weights evaluated on float-promoted samples. Source samples equal to
// nodata are excluded from the weighted sum and the remaining weights are
// renormalized — resampling must not blend real elevation with the NODATA
// sentinel. A destination pixel with no valid contributing samples is
// itself nodata.
func Resize(src []int16, srcH, srcW, dstH, dstW int, nodata int16) []int16 {
	out := make([]int16, dstH*dstW)
	if srcH == 0 || srcW == 0 || dstH == 0 || dstW == 0 {
		return out
	}

	scaleY := float64(srcH) / float64(dstH)
	scaleX := float64(srcW) / float64(dstW)

	for dy := 0; dy < dstH; dy++ {
		srcYc := (float64(dy)+0.5)*scaleY - 0.5
		y0 := int(math.Floor(srcYc)) - lanczosA + 1
		y1 := int(math.Floor(srcYc)) + lanczosA

		for dx := 0; dx < dstW; dx++ {
			srcXc := (float64(dx)+0.5)*scaleX - 0.5
			x0 := int(math.Floor(srcXc)) - lanczosA + 1
			x1 := int(math.Floor(srcXc)) + lanczosA

			var sum, weightSum float32
			for sy := y0; sy <= y1; sy++ {
				wy := lanczosKernel(float64(sy) - srcYc)
				if wy == 0 {
					continue
				}
				csy := clampInt(sy, 0, srcH-1)
				for sx := x0; sx <= x1; sx++ {
					wx := lanczosKernel(float64(sx) - srcXc)
					if wx == 0 {
						continue
					}
					csx := clampInt(sx, 0, srcW-1)
					v := src[csy*srcW+csx]
					if v == nodata {
						continue
					}
					w := float32(wy * wx)
					sum += w * float32(v)
					weightSum += w
				}
			}

			if weightSum == 0 {
				out[dy*dstW+dx] = nodata
			} else {
				out[dy*dstW+dx] = int16(math.Round(float64(sum / weightSum)))
			}
		}
	}
	return out
}
