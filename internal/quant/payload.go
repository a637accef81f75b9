package quant

import "encoding/binary"

// PayloadBytes packs a row-major uint16 raster into its little-endian byte
// payload, exactly as stored in a .u16 wire file.
func PayloadBytes(samples []uint16) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}

// AllNodataPayload returns a payload of n samples, every one the NODATA
// sentinel — the byte-identical result of quantizing an all-NODATA canvas.
func AllNodataPayload(n int) []byte {
	out := make([]byte, n*2)
	for i := 0; i < n*2; i += 2 {
		out[i] = 0xFF
		out[i+1] = 0xFF
	}
	return out
}
