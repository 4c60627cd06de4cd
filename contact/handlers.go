package contact

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/corpsite/notify"
)

// Default submission limit per client address.
const (
	DefaultRateLimit  = 5
	DefaultRateWindow = 10 * time.Minute
)

// Handler handles contact HTTP requests.
type Handler struct {
	store    *Store
	salt     string
	limiter  *submissionLimiter
	notifier notify.Notifier
	logger   *slog.Logger

	rateMax    int
	rateWindow time.Duration
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithNotifier sets where new submissions are announced.
func WithNotifier(n notify.Notifier) HandlerOption {
	return func(h *Handler) { h.notifier = n }
}

// WithLogger sets the handler's logger.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// WithRateLimit overrides the per-address submission limit.
func WithRateLimit(max int, window time.Duration) HandlerOption {
	return func(h *Handler) { h.rateMax, h.rateWindow = max, window }
}

// WithSalt sets the salt client addresses are hashed with. See LoadSalt.
func WithSalt(salt string) HandlerOption {
	return func(h *Handler) { h.salt = salt }
}

// NewHandler creates a contact handler. Submissions are limited to
// DefaultRateLimit per DefaultRateWindow for each client address.
// Call Close to stop the limiter's background sweep.
func NewHandler(store *Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:      store,
		notifier:   notify.Nop{},
		logger:     slog.Default(),
		rateMax:    DefaultRateLimit,
		rateWindow: DefaultRateWindow,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.limiter = newSubmissionLimiter(h.rateMax, h.rateWindow)
	return h
}

// Close releases the handler's background work. It is safe to call twice.
func (h *Handler) Close() {
	h.limiter.close()
}

// Accept validates and stores a submission from ip. A filled honeypot
// yields (nil, nil) so bots see the same response as people.
func (h *Handler) Accept(ctx context.Context, req Request, ip string) (*Submission, error) {
	ipHash := HashIP(h.salt, ip)
	if req.IsSpam() {
		h.logger.Info("contact honeypot triggered", "ip_hash", ipHash)
		return nil, nil
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !h.limiter.allow(ipHash) {
		return nil, ErrRateLimited
	}

	sub := &Submission{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
		Subject: req.Subject,
		Message: req.Message,
		Lang:    req.Lang,
		IPHash:  ipHash,
	}
	if err := h.store.Create(ctx, sub); err != nil {
		return nil, err
	}

	ev := notify.ContactEvent{
		ID:        sub.ID,
		Name:      sub.Name,
		Email:     sub.Email,
		Phone:     sub.Phone,
		Company:   sub.Company,
		Subject:   sub.Subject,
		Message:   sub.Message,
		Lang:      sub.Lang,
		CreatedAt: sub.CreatedAt,
	}
	if err := h.notifier.ContactSubmitted(ctx, ev); err != nil {
		h.logger.Warn("contact notification failed", "id", sub.ID, "err", err)
	}
	return sub, nil
}

// Submit handles the public JSON or form submission endpoint.
func (h *Handler) Submit(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	sub, err := h.Accept(c.Request().Context(), req, c.RealIP())
	var verr ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": verr})
	case errors.Is(err, ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many submissions, try again later"})
	case err != nil:
		c.Logger().Errorf("contact submit: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	resp := map[string]any{"ok": true}
	if sub != nil {
		resp["id"] = sub.ID
	}
	return c.JSON(http.StatusCreated, resp)
}

// List returns a page of the inbox. Query: unread=1, page, limit.
func (h *Handler) List(c echo.Context) error {
	limit := queryInt(c, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	page := min(queryInt(c, "page", 1), math.MaxInt32)
	unread := c.QueryParam("unread")

	res, err := h.store.List(c.Request().Context(), ListFilter{
		UnreadOnly: unread == "1" || unread == "true",
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// UnreadCount returns the number of unread submissions.
func (h *Handler) UnreadCount(c echo.Context) error {
	n, err := h.store.CountUnread(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"unread": n})
}

// Get returns one submission and marks it read.
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	sub, err := h.store.Get(ctx, c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "submission not found")
	}
	if err != nil {
		return err
	}
	if !sub.Read {
		if err := h.store.SetRead(ctx, sub.ID, true); err != nil {
			return err
		}
		sub.Read = true
	}
	return c.JSON(http.StatusOK, sub)
}

// Update changes the read flag: {"read": false} marks a submission unread.
func (h *Handler) Update(c echo.Context) error {
	var body struct {
		Read *bool `json:"read"`
	}
	if err := c.Bind(&body); err != nil || body.Read == nil {
		return echo.NewHTTPError(http.StatusBadRequest, `body must be {"read": true|false}`)
	}
	err := h.store.SetRead(c.Request().Context(), c.Param("id"), *body.Read)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "submission not found")
	}
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes a submission.
func (h *Handler) Delete(c echo.Context) error {
	err := h.store.Delete(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "submission not found")
	}
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RegisterRoutes registers the public submission endpoint on publicGroup
// and the inbox API under /api/admin/contacts behind authMiddleware.
func (h *Handler) RegisterRoutes(e *echo.Echo, publicGroup *echo.Group, authMiddleware echo.MiddlewareFunc) {
	publicGroup.POST("/api/contact", h.Submit)

	admin := e.Group("/api/admin/contacts")
	admin.Use(authMiddleware)
	admin.GET("", h.List)
	admin.GET("/unread-count", h.UnreadCount)
	admin.GET("/:id", h.Get)
	admin.PATCH("/:id", h.Update)
	admin.DELETE("/:id", h.Delete)
}

func queryInt(c echo.Context, name string, fallback int) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
