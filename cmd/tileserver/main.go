package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cipher985/floodmap-tiles/internal/config"
	"github.com/cipher985/floodmap-tiles/internal/demstore"
	"github.com/cipher985/floodmap-tiles/internal/elevcache"
	"github.com/cipher985/floodmap-tiles/internal/mosaic"
	"github.com/cipher985/floodmap-tiles/internal/router"
	"github.com/cipher985/floodmap-tiles/internal/tiletree"
)

// fatalConfig logs and exits 2, the configuration-error status spec §6
// reserves for configuration problems — here, flag-parse errors and
// failures constructing the DEM store, tile tree or router — distinct
// from exit 1 for other fatal failures.
func fatalConfig(format string, args ...any) {
	log.Printf(format, args...)
	os.Exit(2)
}

func main() {
	cfg, err := config.ParseServerConfig(os.Args[1:])
	if err != nil {
		fatalConfig("tileserver: parsing config: %v", err)
	}

	store, err := demstore.New(cfg.SourceDir)
	if err != nil {
		fatalConfig("tileserver: opening source DEM store at %s: %v", cfg.SourceDir, err)
	}
	defer store.Close()

	cache := elevcache.New(store, cfg.CacheBudgetMB*1024*1024)
	engine := mosaic.New(cache)

	tiles, err := tiletree.New(cfg.TileDir)
	if err != nil {
		fatalConfig("tileserver: opening tile tree at %s: %v", cfg.TileDir, err)
	}

	srv, err := router.New(engine, tiles, router.Config{
		WriteThrough:    cfg.WriteThrough,
		HotCacheEntries: cfg.HotCacheEntries,
	})
	if err != nil {
		fatalConfig("tileserver: constructing router: %v", err)
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("tileserver: shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
		cancel()
	}()

	if cfg.PreloadOnStart {
		areas := elevcache.DefaultStartupAreas()
		log.Printf("tileserver: preloading %d startup areas in the background (concurrency=%d)", len(areas), cfg.PreloadConcurrency)
		go cache.Preload(ctx, areas, cfg.PreloadConcurrency)
	}

	log.Printf("tileserver: listening on %s (source=%s, tiles=%s)", cfg.Addr, cfg.SourceDir, cfg.TileDir)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("tileserver: %v", err)
	}
	<-ctx.Done()
}
