package corpsite

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/corpsite/cdn"
)

const (
	maxUploadSize = 10 << 20 // 10MB
	maxAltLength  = 250
	defaultFolder = "general"
)

// mediaFolder normalizes the folder a client asked for. Folders are single
// slug segments so they map cleanly onto CDN folders and upload directories.
func mediaFolder(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return defaultFolder, nil
	}
	if !ValidSlug(v) {
		return "", &ValidationError{Fields: map[string]string{"folder": "use lowercase letters, digits and single hyphens"}}
	}
	return v, nil
}

func (a *App) handleMediaUpload(c echo.Context) error {
	if a.uploader == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "media uploads are not configured")
	}
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no file provided")
	}
	if file.Size > maxUploadSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large (max 10MB)")
	}
	folder, err := mediaFolder(c.FormValue("folder"))
	if err != nil {
		return err
	}
	alt := strings.TrimSpace(c.FormValue("alt"))
	if len([]rune(alt)) > maxAltLength {
		return &ValidationError{Fields: map[string]string{"alt": fmt.Sprintf("must be at most %d characters", maxAltLength)}}
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize+1))
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxUploadSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large (max 10MB)")
	}
	if _, err := cdn.Probe(bytes.NewReader(data)); err != nil {
		return &ValidationError{Fields: map[string]string{"file": "not a supported image: " + err.Error()}}
	}

	ctx := c.Request().Context()
	asset, err := a.uploader.Upload(ctx, cdn.UploadInput{
		Filename: file.Filename,
		Folder:   folder,
		Body:     bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("upload %q: %w", file.Filename, err)
	}

	m := MediaAsset{
		PublicID:     asset.PublicID,
		URL:          asset.URL,
		Format:       asset.Format,
		Width:        asset.Width,
		Height:       asset.Height,
		Bytes:        asset.Bytes,
		OriginalName: file.Filename,
		Alt:          alt,
		Folder:       folder,
	}
	if err := a.Store.SaveMedia(ctx, &m); err != nil {
		// Leave nothing orphaned on the CDN when the record cannot be saved.
		if derr := a.uploader.Destroy(ctx, asset.PublicID); derr != nil {
			a.logger.Warn("remove orphaned asset", "public_id", asset.PublicID, "err", derr)
		}
		return err
	}
	a.logger.Info("media uploaded", "public_id", m.PublicID, "bytes", m.Bytes)
	return c.JSON(http.StatusCreated, m)
}

func (a *App) handleMediaList(c echo.Context) error {
	folder := strings.TrimSpace(c.QueryParam("folder"))
	assets, err := a.Store.ListMedia(c.Request().Context(), folder)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, assets)
}

func (a *App) handleMediaUpdate(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var body struct {
		Alt string `json:"alt"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	alt := strings.TrimSpace(body.Alt)
	if len([]rune(alt)) > maxAltLength {
		return &ValidationError{Fields: map[string]string{"alt": fmt.Sprintf("must be at most %d characters", maxAltLength)}}
	}
	ctx := c.Request().Context()
	if err := a.Store.UpdateMediaAlt(ctx, id, alt); err != nil {
		return err
	}
	m, err := a.Store.GetMedia(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// handleMediaDelete removes the binary from the uploader and then the record.
// An asset already gone from the CDN still has its record removed.
func (a *App) handleMediaDelete(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	m, err := a.Store.GetMedia(ctx, id)
	if err != nil {
		return err
	}
	if a.uploader != nil {
		if err := a.uploader.Destroy(ctx, m.PublicID); err != nil && !errors.Is(err, cdn.ErrNotFound) {
			return fmt.Errorf("destroy %q: %w", m.PublicID, err)
		}
	}
	if err := a.Store.DeleteMedia(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
