package capture

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// decodeBody interprets the event's content-encoding and returns the
// decompressed payload bytes.
func decodeBody(ev RawEvent) ([]byte, error) {
	if len(ev.Body) == 0 {
		return nil, nil
	}

	switch strings.ToLower(strings.TrimSpace(ev.ContentEncoding)) {
	case "", "identity":
		return ev.Body, nil
	case "gzip":
		reader, err := gzip.NewReader(bytes.NewReader(ev.Body))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer reader.Close()
		return readAll(reader, "gzip")
	case "br":
		return readAll(brotli.NewReader(bytes.NewReader(ev.Body)), "brotli")
	case "deflate":
		// Servers disagree on whether deflate means zlib-wrapped or raw.
		reader, err := zlib.NewReader(bytes.NewReader(ev.Body))
		if err == nil {
			defer reader.Close()
			return readAll(reader, "zlib")
		}
		raw := flate.NewReader(bytes.NewReader(ev.Body))
		defer raw.Close()
		return readAll(raw, "deflate")
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", ev.ContentEncoding)
	}
}

func readAll(r io.Reader, codec string) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompress %s body: %w", codec, err)
	}
	return data, nil
}
