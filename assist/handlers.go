package assist

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the generators to the admin client. A nil client makes
// every endpoint answer 503.
type Handler struct {
	client *Client
}

// NewHandler creates a handler for client, which may be nil.
func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// RegisterRoutes mounts the endpoints on g, normally /api/admin/ai.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/article", h.Article)
	g.POST("/ideas", h.Ideas)
	g.POST("/translate", h.Translate)
}

func (h *Handler) Article(c echo.Context) error {
	if h.client == nil {
		return notConfigured(c)
	}
	var req ArticleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	a, err := h.client.GenerateArticle(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Ideas(c echo.Context) error {
	if h.client == nil {
		return notConfigured(c)
	}
	var req IdeasRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	ideas, err := h.client.GenerateIdeas(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"ideas": ideas})
}

func (h *Handler) Translate(c echo.Context) error {
	if h.client == nil {
		return notConfigured(c)
	}
	var req TranslateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	text, err := h.client.Translate(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"text": text})
}

func notConfigured(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "AI assistant is not configured"})
}

func (h *Handler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, map[string]string{"error": "the AI service timed out"})
	case errors.Is(err, ErrMalformedResponse):
		c.Logger().Warnf("assist: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "the AI service returned an unusable reply"})
	default:
		c.Logger().Errorf("assist: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "the AI service request failed"})
	}
}
