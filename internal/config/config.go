// Package config resolves command-line flags with environment-variable
// fallbacks into the immutable configuration structs the two binaries
// run with.
package config

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/cipher985/floodmap-tiles/internal/generator"
)

// ServerConfig configures cmd/tileserver.
type ServerConfig struct {
	Addr               string
	SourceDir          string
	TileDir            string
	CacheBudgetMB      int64
	HotCacheEntries    int
	WriteThrough       bool
	PreloadOnStart     bool
	PreloadConcurrency int
}

// GeneratorConfig configures cmd/tilegen.
type GeneratorConfig struct {
	SourceDir      string
	TileDir        string
	MinZoom        int
	MaxZoom        int
	Concurrency    int
	SkipExisting   bool
	WriteGzipCopy  bool
	WriteRaw       bool
	DisableBrotli  bool
	MinSourceFiles int
	CacheBudgetMB  int64
	BBox           *generator.BBox
}

// ParseServerConfig builds a ServerConfig from flags, falling back to
// environment variables (FLOODMAP_* prefix) for anything not passed on
// the command line, matching the teacher's flag-driven CLI style.
func ParseServerConfig(args []string) (ServerConfig, error) {
	fs := flag.NewFlagSet("tileserver", flag.ContinueOnError)

	cfg := ServerConfig{}
	fs.StringVar(&cfg.Addr, "addr", envOr("FLOODMAP_ADDR", ":8080"), "HTTP listen address")
	fs.StringVar(&cfg.SourceDir, "source-dir", envOr("FLOODMAP_SOURCE_DIR", "./data/source"), "Directory of compressed source DEM squares")
	fs.StringVar(&cfg.TileDir, "tile-dir", envOr("FLOODMAP_TILE_DIR", "./data/tiles"), "Directory of precomputed output tiles")
	fs.Int64Var(&cfg.CacheBudgetMB, "cache-mb", envOrInt64("FLOODMAP_CACHE_MB", 512), "In-memory DEM array cache budget, in megabytes")
	fs.IntVar(&cfg.HotCacheEntries, "hot-cache-entries", envOrInt("FLOODMAP_HOT_CACHE_ENTRIES", 4096), "Hot-tile HTTP response cache entry count (0 disables)")
	fs.BoolVar(&cfg.WriteThrough, "write-through", envOrBool("FLOODMAP_WRITE_THROUGH", true), "Persist runtime-mosaicked tiles to the tile tree")
	fs.BoolVar(&cfg.PreloadOnStart, "preload", envOrBool("FLOODMAP_PRELOAD", true), "Fire-and-forget warm the DEM cache for a fixed list of metro areas at startup")
	fs.IntVar(&cfg.PreloadConcurrency, "preload-concurrency", envOrInt("FLOODMAP_PRELOAD_CONCURRENCY", min(runtime.NumCPU(), 8)), "Number of concurrent tile loads while preloading")

	if err := fs.Parse(args); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// ParseGeneratorConfig builds a GeneratorConfig from flags, falling back
// to environment variables.
func ParseGeneratorConfig(args []string) (GeneratorConfig, error) {
	fs := flag.NewFlagSet("tilegen", flag.ContinueOnError)

	cfg := GeneratorConfig{}
	fs.StringVar(&cfg.SourceDir, "source-dir", envOr("FLOODMAP_SOURCE_DIR", "./data/source"), "Directory of compressed source DEM squares")
	fs.StringVar(&cfg.TileDir, "tile-dir", envOr("FLOODMAP_TILE_DIR", "./data/tiles"), "Directory to write precomputed output tiles")
	fs.IntVar(&cfg.MinZoom, "min-zoom", envOrInt("FLOODMAP_MIN_ZOOM", 8), "Minimum zoom level to generate")
	fs.IntVar(&cfg.MaxZoom, "max-zoom", envOrInt("FLOODMAP_MAX_ZOOM", 15), "Maximum zoom level to generate")
	fs.IntVar(&cfg.Concurrency, "concurrency", envOrInt("FLOODMAP_CONCURRENCY", max(runtime.NumCPU()-1, 1)), "Number of concurrent tile-building workers")
	fs.BoolVar(&cfg.SkipExisting, "skip-existing", envOrBool("FLOODMAP_SKIP_EXISTING", true), "Skip tiles already present on disk within an incomplete zoom")
	fs.BoolVar(&cfg.WriteGzipCopy, "write-gzip", envOrBool("FLOODMAP_WRITE_GZIP", false), "Also write a gzip-encoded copy of every tile")
	fs.BoolVar(&cfg.WriteRaw, "write-raw", envOrBool("FLOODMAP_WRITE_RAW", false), "Also write the uncompressed .u16 raw tile")
	fs.BoolVar(&cfg.DisableBrotli, "no-br", envOrBool("FLOODMAP_NO_BR", false), "Skip writing the Brotli-compressed tile variant")
	fs.IntVar(&cfg.MinSourceFiles, "min-source-files", envOrInt("FLOODMAP_MIN_SOURCE_FILES", 0), "Refuse to run if the source corpus has fewer files than this (0 disables)")
	fs.Int64Var(&cfg.CacheBudgetMB, "cache-mb", envOrInt64("FLOODMAP_CACHE_MB", 2048), "In-memory DEM array cache budget, in megabytes")
	bbox := fs.String("bbox", envOr("FLOODMAP_BBOX", ""), "Restrict generation to MIN_LON,MIN_LAT,MAX_LON,MAX_LAT (default: derived from the source corpus's sidecar bounds)")

	if err := fs.Parse(args); err != nil {
		return GeneratorConfig{}, err
	}
	if cfg.MinZoom > cfg.MaxZoom {
		return GeneratorConfig{}, fmt.Errorf("config: min-zoom (%d) is greater than max-zoom (%d)", cfg.MinZoom, cfg.MaxZoom)
	}
	if *bbox != "" {
		box, err := parseBBox(*bbox)
		if err != nil {
			return GeneratorConfig{}, err
		}
		cfg.BBox = &box
	}
	return cfg, nil
}

// parseBBox parses a "min_lon,min_lat,max_lon,max_lat" flag value, the
// comma-separated form matching this corpus's convention of plain string
// flags over custom flag.Value types.
func parseBBox(s string) (generator.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return generator.BBox{}, fmt.Errorf("config: --bbox wants 4 comma-separated values (min_lon,min_lat,max_lon,max_lat), got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return generator.BBox{}, fmt.Errorf("config: --bbox value %q is not a number: %w", p, err)
		}
		vals[i] = v
	}
	return generator.BBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envOrInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
