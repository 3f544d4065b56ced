package source

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decoding errors.
var (
	// ErrUnsupportedFormat is returned for a file extension no decoder
	// handles.
	ErrUnsupportedFormat = errors.New("source: unsupported image format")

	// ErrEmptyData is returned when image data is empty.
	ErrEmptyData = errors.New("source: empty image data")
)

// extensions lists the file extensions LoadImage accepts.
var extensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Supported reports whether path has an image extension LoadImage can
// decode.
func Supported(path string) bool {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// LoadImage loads an image from the given file path. Supported formats:
// PNG, JPEG, GIF, BMP, TIFF, WebP.
func LoadImage(path string) (image.Image, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("source: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// LoadImageFromBytes decodes an image from a byte slice, detecting the
// format from its content.
func LoadImageFromBytes(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	return Decode(bytes.NewReader(data))
}

// Decode decodes an image from r, detecting the format from its content.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("source: decode: %w", err)
	}
	return img, nil
}

// Glob expands pattern and keeps the paths LoadImage supports, in sorted
// order.
func Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("source: glob %q: %w", pattern, err)
	}
	out := matches[:0]
	for _, m := range matches {
		if Supported(m) {
			out = append(out, m)
		}
	}
	return out, nil
}
