package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"os"
	"time"
)

// Format selects the image encoding of an export.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

var (
	// ErrUnsupportedFormat is returned for formats the exporter cannot
	// encode.
	ErrUnsupportedFormat = errors.New("chart: unsupported export format")
)

// DefaultJPEGQuality is used when Export is called with quality <= 0.
const DefaultJPEGQuality = 90

// Export encodes the last composited frame. WebP is not supported and
// fails with ErrUnsupportedFormat. On any failure the data is nil.
func (r *Renderer) Export(format Format, quality int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return nil, ErrDestroyed
	}

	img := r.layers.Image()
	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("chart: png encode: %w", err)
		}
	case FormatJPEG:
		if quality <= 0 {
			quality = DefaultJPEGQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("chart: jpeg encode: %w", err)
		}
	default:
		return nil, ErrUnsupportedFormat
	}
	return buf.Bytes(), nil
}

// ExportFile renders the current frame to a file. An empty path generates
// a timestamped name in the working directory.
func (r *Renderer) ExportFile(path string, format Format, quality int) (string, error) {
	data, err := r.Export(format, quality)
	if err != nil {
		return "", err
	}

	if path == "" {
		pair := r.pair
		if pair == "" {
			pair = "chart"
		}
		path = fmt.Sprintf("%s_%s.%s", pair, time.Now().Format("20060102_150405"), format)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("chart: write export: %w", err)
	}
	return path, nil
}
