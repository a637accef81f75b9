package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cipher985/floodmap-tiles/internal/mosaic"
	"github.com/cipher985/floodmap-tiles/internal/quant"
	"github.com/cipher985/floodmap-tiles/internal/tiletree"
)

type fakeEngine struct {
	result *mosaic.Result
	err    error
	calls  int
}

func (f *fakeEngine) BuildTile(ctx context.Context, z, x, y int) (*mosaic.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func constantResult(fill int16) *mosaic.Result {
	samples := make([]int16, mosaic.CanvasSize*mosaic.CanvasSize)
	for i := range samples {
		samples[i] = fill
	}
	return &mosaic.Result{Samples: samples, SourcesUsed: 1}
}

func TestHandleTile_InvalidCoordinates(t *testing.T) {
	store, err := tiletree.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(&fakeEngine{}, store, Config{})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/tiles/elevation/notanumber/1/2.u16", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleTile_OutOfRangeTile(t *testing.T) {
	store, err := tiletree.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(&fakeEngine{}, store, Config{})
	if err != nil {
		t.Fatal(err)
	}

	// z=2 has only 4 tiles per axis (0-3); x=99 is out of range.
	req := httptest.NewRequest(http.MethodGet, "/tiles/elevation/2/99/1.u16", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleTile_CacheMissFallsBackToRuntimeBuild(t *testing.T) {
	store, err := tiletree.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	engine := &fakeEngine{result: constantResult(42)}
	srv, err := New(engine, store, Config{})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/tiles/elevation/10/277/429.u16", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
	if engine.calls != 1 {
		t.Errorf("engine.calls = %d, want 1", engine.calls)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=300" {
		t.Errorf("Cache-Control = %q, want runtime-fallback max-age", cc)
	}

	wantLen := mosaic.CanvasSize * mosaic.CanvasSize * 2
	if w.Body.Len() != wantLen {
		t.Errorf("body length = %d, want %d (raw, no Accept-Encoding sent)", w.Body.Len(), wantLen)
	}
	if vary := w.Header().Get("Vary"); vary != "Accept-Encoding" {
		t.Errorf("Vary = %q, want %q (so caching proxies don't serve the wrong encoding)", vary, "Accept-Encoding")
	}
}

func TestHandleTile_PrecomputedHitSkipsEngine(t *testing.T) {
	store, err := tiletree.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	samples := make([]int16, mosaic.CanvasSize*mosaic.CanvasSize)
	for i := range samples {
		samples[i] = 7
	}
	payload := quant.PayloadBytes(quant.Row(samples))
	if err := store.Put(10, 277, 429, tiletree.Raw, payload); err != nil {
		t.Fatal(err)
	}

	engine := &fakeEngine{result: constantResult(999)}
	srv, err := New(engine, store, Config{})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/tiles/elevation/10/277/429.u16", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if engine.calls != 0 {
		t.Error("a precomputed hit must not invoke the runtime engine")
	}
	if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=31536000, immutable" {
		t.Errorf("Cache-Control = %q, want immutable precomputed caching", cc)
	}
}

func TestHandleTile_BuildFailureIs500(t *testing.T) {
	store, err := tiletree.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	engine := &fakeEngine{err: errBoom{}}
	srv, err := New(engine, store, Config{})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/tiles/elevation/10/277/429.u16", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestHandleTile_WriteThroughPersistsRuntimeBuild(t *testing.T) {
	store, err := tiletree.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	engine := &fakeEngine{result: constantResult(3)}
	srv, err := New(engine, store, Config{WriteThrough: true})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/tiles/elevation/10/277/429.u16", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !store.Exists(10, 277, 429) {
		t.Error("write-through should have persisted the runtime-built tile")
	}
}

func TestNegotiateEncoding(t *testing.T) {
	cases := []struct {
		header string
		want   tiletree.Encoding
	}{
		{"br, gzip", tiletree.Brotli},
		{"gzip", tiletree.Gzip},
		{"", tiletree.Raw},
		{"identity", tiletree.Raw},
	}
	for _, c := range cases {
		if got := negotiateEncoding(c.header); got != c.want {
			t.Errorf("negotiateEncoding(%q) = %v, want %v", c.header, got, c.want)
		}
	}
}

func TestHealthz(t *testing.T) {
	store, err := tiletree.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(&fakeEngine{}, store, Config{})
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
