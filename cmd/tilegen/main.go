package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/cipher985/floodmap-tiles/internal/config"
	"github.com/cipher985/floodmap-tiles/internal/demstore"
	"github.com/cipher985/floodmap-tiles/internal/elevcache"
	"github.com/cipher985/floodmap-tiles/internal/generator"
	"github.com/cipher985/floodmap-tiles/internal/mosaic"
	"github.com/cipher985/floodmap-tiles/internal/tiletree"
)

// fatalConfig logs and exits 2, the configuration-error status spec §6
// reserves for bad flags, a missing source directory, or an undersized
// corpus — distinct from exit 1 for other fatal failures during a run.
func fatalConfig(format string, args ...any) {
	log.Printf(format, args...)
	os.Exit(2)
}

func main() {
	cfg, err := config.ParseGeneratorConfig(os.Args[1:])
	if err != nil {
		fatalConfig("tilegen: parsing config: %v", err)
	}
	if info, err := os.Stat(cfg.SourceDir); err != nil || !info.IsDir() {
		fatalConfig("tilegen: source directory %s is missing or not a directory", cfg.SourceDir)
	}

	store, err := demstore.New(cfg.SourceDir)
	if err != nil {
		fatalConfig("tilegen: opening source DEM store at %s: %v", cfg.SourceDir, err)
	}
	defer store.Close()

	cache := elevcache.New(store, cfg.CacheBudgetMB*1024*1024)
	engine := mosaic.New(cache)

	tiles, err := tiletree.New(cfg.TileDir)
	if err != nil {
		fatalConfig("tilegen: opening tile tree at %s: %v", cfg.TileDir, err)
	}

	gen := generator.New(engine, tiles, store, generator.Config{
		MinZoom:        cfg.MinZoom,
		MaxZoom:        cfg.MaxZoom,
		Concurrency:    cfg.Concurrency,
		SkipExisting:   cfg.SkipExisting,
		WriteGzipCopy:  cfg.WriteGzipCopy,
		WriteRaw:       cfg.WriteRaw,
		DisableBrotli:  cfg.DisableBrotli,
		MinSourceFiles: cfg.MinSourceFiles,
		BBox:           cfg.BBox,
	})

	log.Printf("tilegen: generating zooms %d..%d from %s into %s (concurrency=%d)",
		cfg.MaxZoom, cfg.MinZoom, cfg.SourceDir, cfg.TileDir, cfg.Concurrency)

	if err := gen.Run(context.Background(), cfg.TileDir); err != nil {
		if errors.Is(err, generator.ErrUndersizedCorpus) {
			fatalConfig("tilegen: %v", err)
		}
		log.Fatalf("tilegen: %v", err)
	}
	log.Println("tilegen: done")
}
