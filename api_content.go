package corpsite

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/corpsite/i18n"
)

const maxDocumentSize = 512 << 10

func langParam(c echo.Context) (i18n.Lang, error) {
	l, err := i18n.Parse(c.Param("lang"))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return l, nil
}

// handleContent serves a page document to public clients. ?lang defaults to
// the site language.
func (a *App) handleContent(c echo.Context) error {
	lang := a.Config.DefaultLang
	if v := c.QueryParam("lang"); v != "" {
		l, err := i18n.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		lang = l
	}
	rec, err := a.Cache.Page(c.Request().Context(), c.Param("page"), lang)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (a *App) handleAdminListContent(c echo.Context) error {
	entries, err := a.Content.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func (a *App) handleAdminGetContent(c echo.Context) error {
	lang, err := langParam(c)
	if err != nil {
		return err
	}
	rec, err := a.Content.Get(c.Request().Context(), c.Param("page"), lang)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// handleAdminSaveContent stores the request body, a JSON object, as the
// document for the page and language in the path.
func (a *App) handleAdminSaveContent(c echo.Context) error {
	lang, err := langParam(c)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxDocumentSize+1))
	if err != nil {
		return err
	}
	if len(body) > maxDocumentSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "document too large")
	}
	rec, err := a.Content.Save(c.Request().Context(), c.Param("page"), lang, body)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, rec)
}

func (a *App) handleAdminDeleteContent(c echo.Context) error {
	lang, err := langParam(c)
	if err != nil {
		return err
	}
	if err := a.Content.Delete(c.Request().Context(), c.Param("page"), lang); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

// handleAdminExportContent writes every stored document to the content
// directory so it can be committed alongside the site.
func (a *App) handleAdminExportContent(c echo.Context) error {
	n, err := a.Content.Export(c.Request().Context(), a.Config.ContentDir)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"written": n, "dir": a.Config.ContentDir})
}
