package corpsite

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/corpsite/i18n"
	"github.com/eringen/corpsite/richtext"
)

type slideInput struct {
	Title         i18n.Text `json:"title"`
	Subtitle      i18n.Text `json:"subtitle"`
	Description   i18n.Text `json:"description"`
	ButtonText    i18n.Text `json:"buttonText"`
	ButtonLink    string    `json:"buttonLink"`
	ImageURL      string    `json:"imageUrl"`
	ImagePublicID string    `json:"imagePublicId"`
	Active        *bool     `json:"active"`
}

func toSlide(in slideInput) (HeroSlide, error) {
	verr := &ValidationError{}
	sl := HeroSlide{
		Title:         in.Title.Trim(),
		Subtitle:      in.Subtitle.Trim(),
		Description:   in.Description.Trim(),
		ButtonText:    in.ButtonText.Trim(),
		ImagePublicID: strings.TrimSpace(in.ImagePublicID),
		Active:        in.Active == nil || *in.Active,
	}
	if sl.Title.IsZero() {
		verr.Add("title", "a title in at least one language is required")
	}
	checkLength(verr, "title", sl.Title, maxTitleLength)
	checkLength(verr, "subtitle", sl.Subtitle, maxTitleLength)
	checkLength(verr, "description", sl.Description, maxMetaLength)
	if in.ImageURL = strings.TrimSpace(in.ImageURL); in.ImageURL != "" {
		if sl.ImageURL = richtext.SafeURL(in.ImageURL); sl.ImageURL == "" {
			verr.Add("imageUrl", "must be an http(s) URL or a site path")
		}
	}
	if in.ButtonLink = strings.TrimSpace(in.ButtonLink); in.ButtonLink != "" {
		if sl.ButtonLink = richtext.SafeURL(in.ButtonLink); sl.ButtonLink == "" {
			verr.Add("buttonLink", "must be an http(s) URL or a site path")
		}
	}
	return sl, verr.Err()
}

func (a *App) handleAdminListSlides(c echo.Context) error {
	slides, err := a.Store.ListSlides(c.Request().Context(), false)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, slides)
}

func (a *App) handleAdminCreateSlide(c echo.Context) error {
	var in slideInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sl, err := toSlide(in)
	if err != nil {
		return err
	}
	if err := a.Store.CreateSlide(c.Request().Context(), &sl); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusCreated, sl)
}

func (a *App) handleAdminUpdateSlide(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in slideInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sl, err := toSlide(in)
	if err != nil {
		return err
	}
	sl.ID = id
	if err := a.Store.UpdateSlide(c.Request().Context(), &sl); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, sl)
}

func (a *App) handleAdminDeleteSlide(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := a.Store.DeleteSlide(c.Request().Context(), id); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

// handleAdminReorderSlides takes {"ids": [3, 1, 2]} and returns the slides
// in their new order.
func (a *App) handleAdminReorderSlides(c echo.Context) error {
	var body struct {
		IDs []int64 `json:"ids"`
	}
	if err := c.Bind(&body); err != nil || len(body.IDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, `body must be {"ids": [...]}`)
	}
	ctx := c.Request().Context()
	if err := a.Store.ReorderSlides(ctx, body.IDs); err != nil {
		return err
	}
	a.Cache.Invalidate()
	slides, err := a.Store.ListSlides(ctx, false)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, slides)
}
