package cdn

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// Cloudinary stores images on Cloudinary.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinary configures a Cloudinary uploader from a CLOUDINARY_URL style
// connection string. folder is the default folder for uploads without one.
func NewCloudinary(url, folder string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return &Cloudinary{cld: cld, folder: folder}, nil
}

// NewCloudinaryFromParams configures a Cloudinary uploader from explicit credentials.
func NewCloudinaryFromParams(cloud, key, secret, folder string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloud, key, secret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return &Cloudinary{cld: cld, folder: folder}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, in UploadInput) (Asset, error) {
	folder := in.Folder
	if folder == "" {
		folder = c.folder
	}
	res, err := c.cld.Upload.Upload(ctx, in.Body, uploader.UploadParams{
		PublicID:     baseName(in.Filename) + "-" + uuid.NewString()[:8],
		Folder:       folder,
		Overwrite:    api.Bool(false),
		ResourceType: "image",
	})
	if err != nil {
		return Asset{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return Asset{}, errors.New("cloudinary upload: " + res.Error.Message)
	}
	return Asset{
		PublicID: res.PublicID,
		URL:      res.SecureURL,
		Format:   res.Format,
		Width:    res.Width,
		Height:   res.Height,
		Bytes:    int64(res.Bytes),
	}, nil
}

func (c *Cloudinary) Destroy(ctx context.Context, publicID string) error {
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
		Invalidate:   api.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return errors.New("cloudinary destroy: " + res.Error.Message)
	}
	switch res.Result {
	case "ok":
		return nil
	case "not found":
		return ErrNotFound
	default:
		return fmt.Errorf("cloudinary destroy: unexpected result %q", res.Result)
	}
}
