// Package quant converts int16-meter elevation samples to the uint16 wire
// format. The conversion must be bit-identical whether it runs in the
// offline generator or the runtime request path, so there is exactly one
// implementation of it, shared by both.
package quant

import "math"

const (
	// NodataI16 is the sentinel for missing samples in source DEM rasters.
	NodataI16 = -32768
	// NodataU16 is the sentinel for missing samples in the wire format.
	NodataU16 = 65535

	minValidMeters = -500
	maxValidMeters = 9000
	quantScale     = 65534
	rangeMeters    = 9500
)

// Sample quantizes one int16 elevation sample to its uint16 wire value.
// The division and rounding happen in float32 arithmetic (not float64), as
// required for cross-implementation byte-identity — the reference
// implementation this was ported from used the same float32 promotion.
func Sample(v int16) uint16 {
	if v == NodataI16 || v < minValidMeters || v > maxValidMeters {
		return NodataU16
	}

	q := (float32(v) + float32(-minValidMeters)) / float32(rangeMeters) * float32(quantScale)
	r := roundHalfToEven32(q)
	if r < 0 {
		r = 0
	}
	if r > quantScale {
		r = quantScale
	}
	return uint16(r)
}

// roundHalfToEven32 rounds a float32 to the nearest integer, ties to even —
// the IEEE 754 default rounding mode. Widening to float64 for the rounding
// decision loses no precision (float32 -> float64 is always exact) and the
// result is re-narrowed to float32 before the caller's clamp/cast, so this
// stays equivalent to doing the rounding in float32 throughout.
func roundHalfToEven32(x float32) float32 {
	return float32(math.RoundToEven(float64(x)))
}

// Dequantize recovers the approximate elevation in meters for a wire value.
// Only used by tests and diagnostics; the wire format itself never needs
// this direction at runtime.
func Dequantize(u uint16) (meters float64, isNodata bool) {
	if u == NodataU16 {
		return 0, true
	}
	return float64(u)/float64(quantScale)*float64(rangeMeters) + minValidMeters, false
}

// Row quantizes a full row-major int16 raster into uint16 samples;
// PayloadBytes packs them into the little-endian wire payload.
func Row(samples []int16) []uint16 {
	out := make([]uint16, len(samples))
	for i, v := range samples {
		out[i] = Sample(v)
	}
	return out
}
