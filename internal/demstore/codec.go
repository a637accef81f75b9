package demstore

import "encoding/binary"

// bytesToInt16 reinterprets a little-endian byte buffer as row-major int16
// samples. Decoded explicitly (rather than via an unsafe pointer cast) so
// behavior does not depend on host byte order.
func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2 : i*2+2]))
	}
	return out
}
