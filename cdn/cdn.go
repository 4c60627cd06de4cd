// Package cdn stores uploaded images and builds delivery URLs for them.
package cdn

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrNotFound is returned by Destroy when the asset no longer exists.
var ErrNotFound = errors.New("cdn: asset not found")

// Asset describes a stored image.
type Asset struct {
	PublicID string
	URL      string
	Format   string
	Width    int
	Height   int
	Bytes    int64
}

// UploadInput is one file handed to an Uploader.
type UploadInput struct {
	Filename string // original client filename
	Folder   string
	Body     io.Reader
}

// Uploader stores and removes image binaries.
type Uploader interface {
	Upload(ctx context.Context, in UploadInput) (Asset, error)
	Destroy(ctx context.Context, publicID string) error
}

// ImageInfo is what Probe learns from an image header.
type ImageInfo struct {
	Format string
	Width  int
	Height int
}

var allowedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
	"bmp":  true,
}

// Probe reads the image header from r and rejects anything that is not a
// supported raster format.
func Probe(r io.Reader) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("decode image header: %w", err)
	}
	if !allowedFormats[format] {
		return ImageInfo{}, fmt.Errorf("unsupported image format %q", format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

var transformSegment = regexp.MustCompile(`^(c|w|h|f|q|g|ar|e|t)_[^/.]+$`)

// Thumbnail rewrites a Cloudinary delivery URL so it is cropped to width w.
// URLs from other hosts, and URLs already carrying a transformation, are
// returned unchanged.
func Thumbnail(src string, w int) string {
	if w <= 0 {
		return src
	}
	const marker = "/image/upload/"
	i := strings.Index(src, marker)
	if i < 0 {
		return src
	}
	head, rest := src[:i+len(marker)], src[i+len(marker):]
	first, _, _ := strings.Cut(rest, "/")
	if transformSegment.MatchString(first) {
		return src
	}
	return head + "c_fill,w_" + strconv.Itoa(w) + "/" + rest
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// baseName turns a client filename into a safe file stem.
func baseName(filename string) string {
	stem := strings.TrimSuffix(path.Base(strings.ReplaceAll(filename, "\\", "/")), path.Ext(filename))
	stem = strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(stem), "-"), "-")
	if stem == "" || stem == "." {
		return "image"
	}
	if len(stem) > 60 {
		stem = strings.TrimRight(stem[:60], "-")
	}
	return stem
}
