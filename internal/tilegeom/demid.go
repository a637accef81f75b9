package tilegeom

import (
	"fmt"
	"math"
)

// demEpsilon nudges each query bound inward before flooring/ceiling, so a
// bound that lands on (or within float noise of) an integer degree line
// does not pull in the neighbouring square it only touches along that line.
const demEpsilon = 1e-9

// DEMSquare identifies one candidate 1x1 degree source DEM square.
type DEMSquare struct {
	LatInt int
	LonInt int
	ID     string
}

// FormatDEMID renders the stable tile id for an integer degree square,
// e.g. FormatDEMID(27, -83, 3) == "n27_w083_1arc_v3".
func FormatDEMID(latInt, lonInt, version int) string {
	latLetter := "n"
	if latInt < 0 {
		latLetter = "s"
	}
	lonLetter := "e"
	if lonInt < 0 {
		lonLetter = "w"
	}
	return fmt.Sprintf("%s%02d_%s%03d_1arc_v%d", latLetter, abs(latInt), lonLetter, abs(lonInt), version)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// OverlappingDEMSquares enumerates every integer degree square whose
// [latInt, latInt+1] x [lonInt, lonInt+1] box intersects the query bounds.
// version is the DEM vintage suffix (e.g. 3 for "_1arc_v3").
func OverlappingDEMSquares(latTop, latBottom, lonLeft, lonRight float64, version int) []DEMSquare {
	latMinInt := int(math.Floor(latBottom + demEpsilon))
	latMaxInt := int(math.Ceil(latTop-demEpsilon)) - 1
	lonMinInt := int(math.Floor(lonLeft + demEpsilon))
	lonMaxInt := int(math.Ceil(lonRight-demEpsilon)) - 1

	var out []DEMSquare
	for lat := latMinInt; lat <= latMaxInt; lat++ {
		for lon := lonMinInt; lon <= lonMaxInt; lon++ {
			out = append(out, DEMSquare{
				LatInt: lat,
				LonInt: lon,
				ID:     FormatDEMID(lat, lon, version),
			})
		}
	}
	return out
}
