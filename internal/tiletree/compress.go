package tiletree

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// CompressBrotli compresses payload at the given quality (0-11).
func CompressBrotli(payload []byte, quality int) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, quality)
	if _, err := w.Write(payload); err != nil {
		w.Close()
		return nil, fmt.Errorf("tiletree: brotli compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("tiletree: brotli compress: %w", err)
	}
	return buf.Bytes(), nil
}

// CompressGzip compresses payload at the stdlib's default level.
func CompressGzip(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		w.Close()
		return nil, fmt.Errorf("tiletree: gzip compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("tiletree: gzip compress: %w", err)
	}
	return buf.Bytes(), nil
}

// DecompressBrotli reverses CompressBrotli.
func DecompressBrotli(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tiletree: brotli decompress: %w", err)
	}
	return out, nil
}

// DecompressGzip reverses CompressGzip.
func DecompressGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("tiletree: gzip decompress: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tiletree: gzip decompress: %w", err)
	}
	return out, nil
}

// Decode returns the raw payload for a tile read back by (*Store).Get,
// decompressing according to the encoding it was stored under.
func Decode(data []byte, enc Encoding) ([]byte, error) {
	switch enc {
	case Brotli:
		return DecompressBrotli(data)
	case Gzip:
		return DecompressGzip(data)
	default:
		return data, nil
	}
}
