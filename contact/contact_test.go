package contact

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	_ "modernc.org/sqlite"

	"github.com/eringen/corpsite/notify"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "contact.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return s
}

func newTestHandler(t *testing.T, s *Store, opts ...HandlerOption) *Handler {
	t.Helper()
	salt, err := LoadSalt(s)
	if err != nil {
		t.Fatalf("LoadSalt failed: %v", err)
	}
	h := NewHandler(s, append([]HandlerOption{WithSalt(salt)}, opts...)...)
	t.Cleanup(h.Close)
	return h
}

type recordingNotifier struct {
	events []notify.ContactEvent
	err    error
}

func (r *recordingNotifier) ContactSubmitted(_ context.Context, ev notify.ContactEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingNotifier) Close() error { return nil }

func validRequest() Request {
	return Request{
		Name:    "  Omar Haddad ",
		Email:   "omar@example.com",
		Company: "Haddad Holdings",
		Subject: "Board review",
		Message: "We would like to discuss a board effectiveness review.",
		Lang:    "AR",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		field  string
	}{
		{"missing name", func(r *Request) { r.Name = "" }, "name"},
		{"bad email", func(r *Request) { r.Email = "omar@" }, "email"},
		{"email without tld", func(r *Request) { r.Email = "omar@localhost" }, "email"},
		{"display name email", func(r *Request) { r.Email = "Omar <omar@example.com>" }, "email"},
		{"short message", func(r *Request) { r.Message = "hi" }, "message"},
		{"long subject", func(r *Request) { r.Subject = strings.Repeat("x", maxSubjectLen+1) }, "subject"},
		{"long phone", func(r *Request) { r.Phone = strings.Repeat("1", maxPhoneLen+1) }, "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			req.Normalize()
			err := req.Validate()
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr[tt.field]; !ok {
				t.Errorf("expected error on %q, got %v", tt.field, verr)
			}
		})
	}

	req := validRequest()
	req.Normalize()
	if err := req.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	if req.Name != "Omar Haddad" || req.Lang != "ar" {
		t.Errorf("Normalize: name=%q lang=%q", req.Name, req.Lang)
	}
}

func TestArabicLengthCountsCharacters(t *testing.T) {
	req := validRequest()
	req.Name = strings.Repeat("ع", maxNameLen)
	req.Normalize()
	if err := req.Validate(); err != nil {
		t.Fatalf("200 Arabic characters should be allowed: %v", err)
	}
}

func TestAcceptStoresAndNotifies(t *testing.T) {
	s := setupTestStore(t)
	n := &recordingNotifier{err: errors.New("nats down")}
	h := newTestHandler(t, s, WithNotifier(n))

	sub, err := h.Accept(context.Background(), validRequest(), "198.51.100.7")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if sub == nil || sub.ID == "" {
		t.Fatal("expected stored submission with id")
	}
	if sub.IPHash == "" || sub.IPHash == "198.51.100.7" {
		t.Errorf("ip should be hashed, got %q", sub.IPHash)
	}
	if len(n.events) != 1 || n.events[0].ID != sub.ID {
		t.Errorf("expected one notification for %s, got %+v", sub.ID, n.events)
	}

	got, err := s.Get(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Lang != "ar" || got.Read {
		t.Errorf("unexpected stored submission: %+v", got)
	}
}

func TestAcceptHoneypot(t *testing.T) {
	s := setupTestStore(t)
	h := newTestHandler(t, s)

	req := validRequest()
	req.Website = "http://spam.example"
	sub, err := h.Accept(context.Background(), req, "198.51.100.8")
	if err != nil || sub != nil {
		t.Fatalf("honeypot should be silently dropped, got %v %v", sub, err)
	}
	res, _ := s.List(context.Background(), ListFilter{})
	if res.Total != 0 {
		t.Errorf("expected nothing stored, got %d", res.Total)
	}
}

func TestAcceptRateLimit(t *testing.T) {
	s := setupTestStore(t)
	h := newTestHandler(t, s, WithRateLimit(2, time.Minute))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := h.Accept(ctx, validRequest(), "198.51.100.9"); err != nil {
			t.Fatalf("submission %d failed: %v", i, err)
		}
	}
	if _, err := h.Accept(ctx, validRequest(), "198.51.100.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if _, err := h.Accept(ctx, validRequest(), "198.51.100.10"); err != nil {
		t.Fatalf("other address should be allowed: %v", err)
	}

	bad := validRequest()
	bad.Email = "nope"
	if _, err := h.Accept(ctx, bad, "198.51.100.11"); err == nil {
		t.Fatal("expected validation error")
	}
	if !h.limiter.allow(HashIP(h.salt, "198.51.100.11")) {
		t.Error("invalid submissions should not count toward the limit")
	}
}

func TestLoadSalt(t *testing.T) {
	s := setupTestStore(t)

	first, err := LoadSalt(s)
	if err != nil {
		t.Fatalf("LoadSalt failed: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("salt = %q, want 64 hex characters", first)
	}
	second, err := LoadSalt(s)
	if err != nil {
		t.Fatalf("second LoadSalt failed: %v", err)
	}
	if second != first {
		t.Errorf("salt changed between loads: %q then %q", first, second)
	}

	if HashIP(first, "203.0.113.1") == HashIP("other-salt", "203.0.113.1") {
		t.Error("hashes with different salts should differ")
	}
	if HashIP(first, "203.0.113.1") != HashIP(first, "203.0.113.1") {
		t.Error("hash should be stable for the same salt")
	}
}

func TestHandlersDoNotShareSalt(t *testing.T) {
	a := newTestHandler(t, setupTestStore(t))
	b := newTestHandler(t, setupTestStore(t))
	if a.salt == "" || a.salt == b.salt {
		t.Errorf("each installation should get its own salt, got %q and %q", a.salt, b.salt)
	}
}

func TestHandlerCloseStopsLimiter(t *testing.T) {
	h := NewHandler(setupTestStore(t), WithRateLimit(1, time.Hour))
	h.Close()
	h.Close()
	select {
	case <-h.limiter.done:
	default:
		t.Fatal("Close should stop the limiter sweep")
	}
}

func TestSubmissionLimiterWindow(t *testing.T) {
	l := newSubmissionLimiter(2, time.Minute)
	defer l.close()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.allow("k") || !l.allow("k") {
		t.Fatal("first two submissions should be allowed")
	}
	if l.allow("k") {
		t.Fatal("third submission inside the window should be refused")
	}
	now = now.Add(time.Minute + time.Second)
	if !l.allow("k") {
		t.Error("submission after the window should be allowed")
	}
}

func TestInbox(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		sub := &Submission{Name: "n", Email: "e@example.com", Message: "message body", Lang: "en"}
		if err := s.Create(ctx, sub); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		ids = append(ids, sub.ID)
	}

	if err := s.SetRead(ctx, ids[0], true); err != nil {
		t.Fatalf("SetRead failed: %v", err)
	}
	res, err := s.List(ctx, ListFilter{UnreadOnly: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if res.Total != 2 || res.Unread != 2 || len(res.Items) != 2 {
		t.Errorf("unexpected unread listing: total=%d unread=%d items=%d", res.Total, res.Unread, len(res.Items))
	}

	page, err := s.List(ctx, ListFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 1 {
		t.Errorf("unexpected second page: total=%d items=%d", page.Total, len(page.Items))
	}

	if err := s.Delete(ctx, ids[1]); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, ids[1]); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCleanupOlderThan(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	old := time.Now().UTC().AddDate(0, 0, -40).Format(time.RFC3339)
	if _, err := s.db.Exec(`INSERT INTO contacts (id, name, email, message, created_at) VALUES ('old', 'n', 'e@example.com', 'm', ?)`, old); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Create(ctx, &Submission{Name: "n", Email: "e@example.com", Message: "fresh message"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	n, err := s.CleanupOlderThan(ctx, 30)
	if err != nil {
		t.Fatalf("CleanupOlderThan failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deleted, got %d", n)
	}
	stop := s.StartCleanupScheduler(0, time.Millisecond, nil)
	stop()
}

func TestSubmitEndpoint(t *testing.T) {
	s := setupTestStore(t)
	h := newTestHandler(t, s)
	e := echo.New()
	pass := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	h.RegisterRoutes(e, e.Group(""), pass)

	body, _ := json.Marshal(validRequest())
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("expected id in response: %s", rec.Body.String())
	}

	form := url.Values{"name": {"Sara"}, "email": {"bad"}, "message": {"too short"}}
	req = httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"email"`) {
		t.Errorf("expected field errors, got %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/contacts/"+created.ID, nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"read":true`) {
		t.Fatalf("expected read submission, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/admin/contacts/"+created.ID, strings.NewReader(`{"read":false}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/contacts/unread-count", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), `"unread":1`) {
		t.Errorf("expected one unread, got %s", rec.Body.String())
	}
}
