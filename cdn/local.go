package cdn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const (
	defaultMaxWidth = 1600
	jpegQuality     = 82
)

// Local stores images on disk under Dir and serves them from URLPrefix.
// Images wider than MaxWidth are scaled down and everything is re-encoded
// as JPEG. It is used when no Cloudinary account is configured.
type Local struct {
	Dir       string
	URLPrefix string
	MaxWidth  int
}

// NewLocal returns a disk uploader writing to dir, served under urlPrefix.
func NewLocal(dir, urlPrefix string) *Local {
	return &Local{Dir: dir, URLPrefix: strings.TrimRight(urlPrefix, "/"), MaxWidth: defaultMaxWidth}
}

func (l *Local) Upload(ctx context.Context, in UploadInput) (Asset, error) {
	img, _, err := image.Decode(in.Body)
	if err != nil {
		return Asset{}, fmt.Errorf("decode image: %w", err)
	}

	img = l.scale(img)
	b := img.Bounds()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Asset{}, fmt.Errorf("encode jpeg: %w", err)
	}

	folder := safeFolder(in.Folder)
	dir := filepath.Join(l.Dir, filepath.FromSlash(folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Asset{}, fmt.Errorf("create upload dir: %w", err)
	}

	name, err := writeUnique(dir, baseName(in.Filename), buf.Bytes())
	if err != nil {
		return Asset{}, err
	}

	publicID := strings.TrimSuffix(name, ".jpg")
	if folder != "" {
		publicID = folder + "/" + publicID
	}
	return Asset{
		PublicID: publicID,
		URL:      l.URLPrefix + "/" + publicID + ".jpg",
		Format:   "jpg",
		Width:    b.Dx(),
		Height:   b.Dy(),
		Bytes:    int64(buf.Len()),
	}, nil
}

func (l *Local) Destroy(ctx context.Context, publicID string) error {
	if strings.Contains(publicID, "..") {
		return fmt.Errorf("invalid public id %q", publicID)
	}
	err := os.Remove(filepath.Join(l.Dir, filepath.FromSlash(publicID)+".jpg"))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (l *Local) scale(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if l.MaxWidth <= 0 || w <= l.MaxWidth {
		return img
	}
	newH := h * l.MaxWidth / w
	dst := image.NewRGBA(image.Rect(0, 0, l.MaxWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// writeUnique writes data to stem.jpg in dir, appending a counter when the
// name is taken. The file is created exclusively, so concurrent uploads of
// the same name never share a path.
func writeUnique(dir, stem string, data []byte) (string, error) {
	name := stem + ".jpg"
	for i := 2; ; i++ {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			name = fmt.Sprintf("%s-%d.jpg", stem, i)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("write image: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(f.Name())
			return "", fmt.Errorf("write image: %w", err)
		}
		return name, nil
	}
}

// safeFolder keeps only slug characters in each folder segment.
func safeFolder(folder string) string {
	var parts []string
	for _, p := range strings.Split(folder, "/") {
		p = strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(p), "-"), "-")
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "/")
}
