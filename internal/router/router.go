// Package router exposes the elevation tile service over HTTP: a single
// GET endpoint serving precomputed tiles from disk when present, and
// falling back to building one on the spot when not.
package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cipher985/floodmap-tiles/internal/mosaic"
	"github.com/cipher985/floodmap-tiles/internal/quant"
	"github.com/cipher985/floodmap-tiles/internal/tilegeom"
	"github.com/cipher985/floodmap-tiles/internal/tiletree"
)

// Engine is the subset of *mosaic.Engine the router needs, for testing.
type Engine interface {
	BuildTile(ctx context.Context, z, x, y int) (*mosaic.Result, error)
}

// Server holds the router's dependencies.
type Server struct {
	engine       Engine
	store        *tiletree.Store
	writeThrough bool
	hotCache     *lru.Cache[cacheKey, []byte]
}

type cacheKey struct {
	z, x, y int
	enc     tiletree.Encoding
}

// Config configures a Server.
type Config struct {
	// WriteThrough persists runtime-mosaicked tiles to disk so a later
	// request for the same tile hits the precomputed path.
	WriteThrough bool
	// HotCacheEntries bounds the in-memory response cache for frequently
	// requested tiles. 0 disables it.
	HotCacheEntries int
}

// New constructs a Server backed by engine (runtime mosaicking) and store
// (precomputed tiles on disk).
func New(engine Engine, store *tiletree.Store, cfg Config) (*Server, error) {
	s := &Server{engine: engine, store: store, writeThrough: cfg.WriteThrough}
	if cfg.HotCacheEntries > 0 {
		c, err := lru.New[cacheKey, []byte](cfg.HotCacheEntries)
		if err != nil {
			return nil, fmt.Errorf("router: constructing hot cache: %w", err)
		}
		s.hotCache = c
	}
	return s, nil
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/tiles/elevation/{z}/{x}/{y}.u16", s.handleTile)
	r.Get("/healthz", s.handleHealth)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	z, x, y, ok := parseTileParams(r)
	if !ok {
		http.Error(w, "invalid tile coordinates", http.StatusBadRequest)
		return
	}
	if !tilegeom.ValidTile(z, x, y) {
		http.Error(w, fmt.Sprintf("tile %d/%d/%d is out of range for its zoom", z, x, y), http.StatusBadRequest)
		return
	}

	enc := negotiateEncoding(r.Header.Get("Accept-Encoding"))

	if payload, cacheControl, ok := s.servePrecomputed(z, x, y, enc); ok {
		writeTileResponse(w, payload, enc, cacheControl)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	payload, err := s.buildAndEncode(ctx, z, x, y, enc)
	if err != nil {
		log.Printf("router: tile %d/%d/%d: %v", z, x, y, err)
		if errors.Is(err, context.DeadlineExceeded) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "tile build timed out", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "failed to build tile", http.StatusInternalServerError)
		return
	}
	writeTileResponse(w, payload, enc, "public, max-age=300")
}

func parseTileParams(r *http.Request) (z, x, y int, ok bool) {
	zStr := chi.URLParam(r, "z")
	xStr := chi.URLParam(r, "x")
	yStr := strings.TrimSuffix(chi.URLParam(r, "y"), ".u16")

	var err error
	if z, err = strconv.Atoi(zStr); err != nil {
		return 0, 0, 0, false
	}
	if x, err = strconv.Atoi(xStr); err != nil {
		return 0, 0, 0, false
	}
	if y, err = strconv.Atoi(yStr); err != nil {
		return 0, 0, 0, false
	}
	return z, x, y, true
}

// negotiateEncoding picks the best encoding the client accepts, preferring
// brotli over gzip over raw.
func negotiateEncoding(acceptEncoding string) tiletree.Encoding {
	if strings.Contains(acceptEncoding, "br") {
		return tiletree.Brotli
	}
	if strings.Contains(acceptEncoding, "gzip") {
		return tiletree.Gzip
	}
	return tiletree.Raw
}

// servePrecomputed serves a tile already written to disk: it checks the
// hot cache for the requested encoding, otherwise reads whichever variant
// the store prefers (brotli, then gzip, then raw) and re-encodes it to the
// requested encoding when the two differ.
func (s *Server) servePrecomputed(z, x, y int, want tiletree.Encoding) (payload []byte, cacheControl string, ok bool) {
	if s.hotCache != nil {
		if cached, found := s.hotCache.Get(cacheKey{z, x, y, want}); found {
			return cached, "public, max-age=31536000, immutable", true
		}
	}

	data, stored, err := s.store.Get(z, x, y)
	if err != nil {
		return nil, "", false
	}

	payload, err = reencode(data, stored, want)
	if err != nil {
		log.Printf("router: re-encoding precomputed tile %d/%d/%d from %s to %s: %v", z, x, y, stored, want, err)
		return nil, "", false
	}

	if s.hotCache != nil {
		s.hotCache.Add(cacheKey{z, x, y, want}, payload)
	}
	return payload, "public, max-age=31536000, immutable", true
}

// reencode converts a stored payload from its on-disk encoding to the
// client's requested encoding, round-tripping through the raw bytes only
// when the two differ.
func reencode(data []byte, stored, want tiletree.Encoding) ([]byte, error) {
	if stored == want {
		return data, nil
	}
	raw, err := tiletree.Decode(data, stored)
	if err != nil {
		return nil, err
	}
	switch want {
	case tiletree.Brotli:
		return tiletree.CompressBrotli(raw, 5)
	case tiletree.Gzip:
		return tiletree.CompressGzip(raw)
	default:
		return raw, nil
	}
}

func (s *Server) buildAndEncode(ctx context.Context, z, x, y int, enc tiletree.Encoding) ([]byte, error) {
	result, err := s.engine.BuildTile(ctx, z, x, y)
	if err != nil {
		return nil, fmt.Errorf("building tile: %w", err)
	}

	samples := quant.Row(result.Samples)
	raw := quant.PayloadBytes(samples)

	var payload []byte
	switch enc {
	case tiletree.Brotli:
		payload, err = tiletree.CompressBrotli(raw, 5)
	case tiletree.Gzip:
		payload, err = tiletree.CompressGzip(raw)
	default:
		payload = raw
	}
	if err != nil {
		return nil, fmt.Errorf("compressing tile: %w", err)
	}

	if s.writeThrough {
		if err := s.store.Put(z, x, y, enc, payload); err != nil {
			log.Printf("router: write-through for tile %d/%d/%d failed (serving anyway): %v", z, x, y, err)
		}
	}

	return payload, nil
}

func writeTileResponse(w http.ResponseWriter, payload []byte, enc tiletree.Encoding, cacheControl string) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("Vary", "Accept-Encoding")
	switch enc {
	case tiletree.Brotli:
		w.Header().Set("Content-Encoding", "br")
	case tiletree.Gzip:
		w.Header().Set("Content-Encoding", "gzip")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}
