package corpsite

import (
	"html"
	"io/fs"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// handleAdminShell serves the admin single-page app shell for every
// /admin/* path; the client router takes it from there. The CSRF token and
// site name are injected into meta tags.
func (a *App) handleAdminShell(c echo.Context) error {
	shell, err := fs.ReadFile(embeddedFS(), "admin/index.html")
	if err != nil {
		return err
	}
	r := strings.NewReplacer(
		"%CSRF_TOKEN%", html.EscapeString(CsrfToken(c)),
		"%SITE_NAME%", html.EscapeString(a.Config.Name),
	)
	c.Response().Header().Set("X-Robots-Tag", "noindex, nofollow")
	return c.HTMLBlob(http.StatusOK, []byte(r.Replace(string(shell))))
}

func handleAdminRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/admin/")
}
