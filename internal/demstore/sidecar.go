package demstore

import (
	"encoding/json"
	"fmt"
)

// Bounds is the geographic extent of a SourceDEM, in degrees, already
// expanded by half a pixel on each side so that sample centers align with
// integer degree lines. This expansion is load-bearing for seam continuity
// between adjacent DEMs (see the mosaic engine).
type Bounds struct {
	Left, Right, Bottom, Top float64
}

// Sidecar is the parsed {tile_id}.json metadata accompanying a
// {tile_id}.zst source DEM. Two on-disk shapes are accepted: a "shape":
// [h, w] field (current ingestion pipeline), or separate "height"/"width"
// fields (legacy). Both must keep working; the ingestion step has never
// been fully migrated off the legacy format.
type Sidecar struct {
	TileID          string
	Bounds          Bounds
	Transform       []float64
	CRS             string
	Height, Width   int
	DType           string
	NodataValue     int32
	OriginalSize    int64
	CompressedSize  int64
}

type sidecarWire struct {
	TileID         string    `json:"tile_id"`
	OriginalFile   string    `json:"original_file"`
	Bounds         boundsWire `json:"bounds"`
	Transform      []float64 `json:"transform"`
	CRS            string    `json:"crs"`
	Shape          []int     `json:"shape"`
	Height         int       `json:"height"`
	Width          int       `json:"width"`
	DType          string    `json:"dtype"`
	OriginalSize   int64     `json:"original_size"`
	CompressedSize int64     `json:"compressed_size"`
	NodataValue    int32     `json:"nodata_value"`
}

type boundsWire struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Top    float64 `json:"top"`
}

// ParseSidecar decodes a sidecar JSON document, accepting either the
// "shape": [h, w] form or the legacy "height"/"width" fields.
func ParseSidecar(data []byte) (*Sidecar, error) {
	var wire sidecarWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parsing sidecar: %w", err)
	}

	height, width := wire.Height, wire.Width
	if len(wire.Shape) == 2 {
		height, width = wire.Shape[0], wire.Shape[1]
	}
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("sidecar %s: missing or invalid shape/height+width", wire.TileID)
	}

	nodata := wire.NodataValue
	if nodata == 0 {
		nodata = -32768
	}

	return &Sidecar{
		TileID: wire.TileID,
		Bounds: Bounds{
			Left:   wire.Bounds.Left,
			Right:  wire.Bounds.Right,
			Bottom: wire.Bounds.Bottom,
			Top:    wire.Bounds.Top,
		},
		Transform:      wire.Transform,
		CRS:            wire.CRS,
		Height:         height,
		Width:          width,
		DType:          wire.DType,
		NodataValue:    nodata,
		OriginalSize:   wire.OriginalSize,
		CompressedSize: wire.CompressedSize,
	}, nil
}
