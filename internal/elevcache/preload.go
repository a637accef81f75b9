package elevcache

import (
	"context"
	"log"

	"github.com/cipher985/floodmap-tiles/internal/tilegeom"
)

// Area names a region to warm the cache for at startup — the Go
// equivalent of the reference implementation's fixed metro-coordinate
// preload list, expressed as a lat/lon box instead of a single point so
// callers can size the warm set to the deployment's expected traffic.
type Area struct {
	Name              string
	LatTop, LatBottom float64
	LonLeft, LonRight float64
}

// defaultPreloadRadius is the half-width, in degrees, of the box drawn
// around each DefaultStartupAreas coordinate — matching the reference
// implementation's preload_area(radius_degrees=1.0) default.
const defaultPreloadRadius = 1.0

// DefaultStartupAreas returns the fixed list of coastal, flood-prone metro
// areas the reference implementation warms at startup, each expressed as
// a +/-defaultPreloadRadius degree box around its center point.
func DefaultStartupAreas() []Area {
	centers := []struct {
		name     string
		lat, lon float64
	}{
		{"miami", 25.7617, -80.1918},
		{"tampa", 27.9506, -82.4572},
		{"new_orleans", 29.9511, -90.0715},
		{"houston", 29.7604, -95.3698},
		{"new_york", 40.7128, -74.0060},
		{"norfolk", 36.8508, -76.2859},
		{"charleston", 32.7765, -79.9311},
		{"sacramento", 38.5816, -121.4944},
	}
	areas := make([]Area, len(centers))
	for i, c := range centers {
		areas[i] = Area{
			Name:      c.name,
			LatTop:    c.lat + defaultPreloadRadius,
			LatBottom: c.lat - defaultPreloadRadius,
			LonLeft:   c.lon - defaultPreloadRadius,
			LonRight:  c.lon + defaultPreloadRadius,
		}
	}
	return areas
}

// Preload warms the cache with every DEM square overlapping the given
// areas; up to concurrency workers load squares from one shared queue
// covering all areas. A failed load is logged and skipped — preloading is a
// best-effort warm-up, never a precondition for serving.
func (c *Cache) Preload(ctx context.Context, areas []Area, concurrency int) {
	if concurrency <= 0 {
		concurrency = 4
	}

	type job struct {
		area string
		id   string
	}
	jobs := make(chan job)

	done := make(chan struct{})
	for i := 0; i < concurrency; i++ {
		go func() {
			for j := range jobs {
				select {
				case <-ctx.Done():
					continue
				default:
				}
				if _, err := c.Get(j.id); err != nil {
					log.Printf("preload: area %s: dem %s: %v", j.area, j.id, err)
				}
			}
			done <- struct{}{}
		}()
	}

	for _, a := range areas {
		squares := tilegeom.OverlappingDEMSquares(a.LatTop, a.LatBottom, a.LonLeft, a.LonRight, 3)
		for _, sq := range squares {
			select {
			case <-ctx.Done():
				goto closeJobs
			case jobs <- job{area: a.Name, id: sq.ID}:
			}
		}
	}
closeJobs:
	close(jobs)
	for i := 0; i < concurrency; i++ {
		<-done
	}
}
