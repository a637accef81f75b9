// Package generator drives the offline precomputation of every elevation
// tile in a zoom range, writing each through internal/tiletree with a
// bounded pool of concurrent workers.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/cipher985/floodmap-tiles/internal/demstore"
	"github.com/cipher985/floodmap-tiles/internal/mosaic"
	"github.com/cipher985/floodmap-tiles/internal/quant"
	"github.com/cipher985/floodmap-tiles/internal/tilegeom"
	"github.com/cipher985/floodmap-tiles/internal/tiletree"
)

// ErrUndersizedCorpus is wrapped into the error Run returns when the
// source-corpus guardrail trips, so callers can tell a configuration
// problem (exit code 2) apart from a failure during generation itself.
var ErrUndersizedCorpus = errors.New("source corpus looks truncated")

// BBox restricts a run to a geographic region, in degrees. A nil *BBox on
// Config means "derive one from the source corpus's sidecar bounds."
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Config configures one generation run.
type Config struct {
	MinZoom        int
	MaxZoom        int
	Concurrency    int
	SkipExisting   bool
	BrotliQuality  int
	DisableBrotli  bool // --no-br: skip the Brotli variant entirely
	WriteRaw       bool // --write-raw: also emit the uncompressed .u16
	WriteGzipCopy  bool
	MinSourceFiles int // guardrail: abort if the source corpus looks truncated
	BBox           *BBox
}

// Stats accumulates counters for one zoom level's run.
type Stats struct {
	Written int64
	Skipped int64 // already on disk, SkipExisting
	Missing int64 // quantized to all NODATA (ocean or no usable source); not written
}

// Generator drives tile generation for a configured zoom range.
type Generator struct {
	engine  *mosaic.Engine
	store   *tiletree.Store
	sources sourceInspector
	cfg     Config
}

// New constructs a Generator writing through store, built from engine,
// per cfg. sources is consulted once at the start of Run for the
// undersized-corpus guardrail and, when cfg.BBox is nil, to derive the
// run's default bbox from the corpus's sidecar bounds; pass nil to skip
// both (the guardrail is then disabled and the run covers the whole
// world).
func New(engine *mosaic.Engine, store *tiletree.Store, sources sourceInspector, cfg Config) *Generator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.BrotliQuality <= 0 {
		cfg.BrotliQuality = 5
	}
	return &Generator{engine: engine, store: store, sources: sources, cfg: cfg}
}

// sourceInspector abstracts the two things Run needs to know about the
// source corpus without touching real files: whether it looks large
// enough to run against, and what geographic area it covers. Tests fake
// it without a real directory of source files.
type sourceInspector interface {
	SourceFileCount() (int, error)
	CoverageBounds() (demstore.Bounds, error)
}

// Run generates every zoom in [MinZoom, MaxZoom], skipping zooms already
// recorded complete in the manifest at root, and writes an updated
// manifest after each zoom finishes.
func (g *Generator) Run(ctx context.Context, root string) error {
	if g.sources != nil && g.cfg.MinSourceFiles > 0 {
		count, err := g.sources.SourceFileCount()
		if err != nil {
			return fmt.Errorf("generator: checking source corpus: %w", err)
		}
		if count < g.cfg.MinSourceFiles {
			return fmt.Errorf("generator: source corpus has %d files, below the configured floor of %d (refusing to run against what looks like a truncated mount): %w",
				count, g.cfg.MinSourceFiles, ErrUndersizedCorpus)
		}
	}

	bbox := g.resolveBBox()

	manifest, err := tiletree.LoadManifest(root)
	if err != nil {
		return fmt.Errorf("generator: loading manifest: %w", err)
	}

	for zoom := g.cfg.MaxZoom; zoom >= g.cfg.MinZoom; zoom-- {
		if manifest.IsZoomComplete(zoom) {
			log.Printf("generator: zoom %d already complete, skipping", zoom)
			continue
		}

		start := time.Now()
		stats, err := g.runZoom(ctx, zoom, bbox)
		if err != nil {
			return fmt.Errorf("generator: zoom %d: %w", zoom, err)
		}

		manifest.MarkZoomComplete(zoom, stats.Written, stats.Missing, time.Since(start).Seconds())
		if err := manifest.Save(root); err != nil {
			return fmt.Errorf("generator: saving manifest after zoom %d: %w", zoom, err)
		}

		log.Printf("generator: zoom %d done: %d written, %d skipped (existing), %d missing (all NODATA), in %.1fs",
			zoom, stats.Written, stats.Skipped, stats.Missing, time.Since(start).Seconds())
	}
	return nil
}

// resolveBBox picks the geographic region a run covers: the configured
// bbox if one was given, else the union of the source corpus's sidecar
// bounds, else (no source inspector available, as in some tests) the
// whole world.
func (g *Generator) resolveBBox() BBox {
	if g.cfg.BBox != nil {
		return *g.cfg.BBox
	}
	if g.sources != nil {
		bounds, err := g.sources.CoverageBounds()
		if err == nil {
			return BBox{MinLon: bounds.Left, MinLat: bounds.Bottom, MaxLon: bounds.Right, MaxLat: bounds.Top}
		}
		log.Printf("generator: could not derive a coverage bbox from the source corpus, defaulting to the whole world: %v", err)
	}
	return BBox{MinLon: -180, MinLat: -tilegeom.MaxMercatorLat, MaxLon: 180, MaxLat: tilegeom.MaxMercatorLat}
}

// tileRangeForBBox projects bbox's corners to tile coordinates at zoom
// and returns the inclusive [x0,x1] x [y0,y1] range covering it, clamping
// to the Web Mercator-valid range the way the reference implementation's
// tiles_for_bbox does.
func tileRangeForBBox(b BBox, zoom int) (x0, x1, y0, y1 int) {
	minLon, maxLon := clampLon(b.MinLon), clampLon(b.MaxLon)
	minLat, maxLat := tilegeom.ClampLat(b.MinLat), tilegeom.ClampLat(b.MaxLat)

	xA, yA := tilegeom.DegToTile(minLat, minLon, zoom)
	xB, yB := tilegeom.DegToTile(maxLat, maxLon, zoom)

	x0, x1 = xA, xB
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	y0, y1 = yA, yB
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return x0, x1, y0, y1
}

func clampLon(lon float64) float64 {
	if lon < -180 {
		return -180
	}
	if lon > 180 {
		return 180
	}
	return lon
}

func (g *Generator) runZoom(ctx context.Context, zoom int, bbox BBox) (Stats, error) {
	x0, x1, y0, y1 := tileRangeForBBox(bbox, zoom)

	var stats Stats
	group, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(g.cfg.Concurrency))

	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			x, y := x, y
			if err := sem.Acquire(gctx, 1); err != nil {
				// Context cancelled; stop scheduling new work and collect
				// whatever's already in flight.
				return stats, group.Wait()
			}
			group.Go(func() error {
				defer sem.Release(1)
				return g.generateOne(gctx, zoom, x, y, &stats)
			})
		}
	}

	if err := group.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (g *Generator) generateOne(ctx context.Context, z, x, y int, stats *Stats) error {
	if !tilegeom.ValidTile(z, x, y) {
		return nil
	}

	if g.cfg.SkipExisting && g.store.Exists(z, x, y) {
		atomic.AddInt64(&stats.Skipped, 1)
		return nil
	}

	result, err := g.engine.BuildTile(ctx, z, x, y)
	if err != nil {
		return fmt.Errorf("building tile %d/%d/%d: %w", z, x, y, err)
	}

	if result.AllOcean {
		atomic.AddInt64(&stats.Missing, 1)
		return nil
	}

	samples := quant.Row(result.Samples)
	allNodata := true
	for _, s := range samples {
		if s != quant.NodataU16 {
			allNodata = false
			break
		}
	}
	if allNodata {
		atomic.AddInt64(&stats.Missing, 1)
		return nil
	}
	payload := quant.PayloadBytes(samples)

	if g.cfg.WriteRaw {
		if err := g.store.Put(z, x, y, tiletree.Raw, payload); err != nil {
			return fmt.Errorf("writing raw tile %d/%d/%d: %w", z, x, y, err)
		}
	}

	if !g.cfg.DisableBrotli {
		brotli, err := tiletree.CompressBrotli(payload, g.cfg.BrotliQuality)
		if err != nil {
			return fmt.Errorf("compressing tile %d/%d/%d: %w", z, x, y, err)
		}
		if err := g.store.Put(z, x, y, tiletree.Brotli, brotli); err != nil {
			return fmt.Errorf("writing tile %d/%d/%d: %w", z, x, y, err)
		}
	}

	if g.cfg.WriteGzipCopy {
		gz, err := tiletree.CompressGzip(payload)
		if err != nil {
			return fmt.Errorf("gzip-compressing tile %d/%d/%d: %w", z, x, y, err)
		}
		if err := g.store.Put(z, x, y, tiletree.Gzip, gz); err != nil {
			return fmt.Errorf("writing gzip tile %d/%d/%d: %w", z, x, y, err)
		}
	}

	atomic.AddInt64(&stats.Written, 1)
	return nil
}
