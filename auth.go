package corpsite

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/sha3"
)

const (
	sessionName  = "admin_session"
	sessionTTL   = 12 * time.Hour
	tokenTTL     = 12 * time.Hour
	tokenIssuer  = "corpsite"
	adminUserKey = "admin_user"
)

// tokenClaims are the bearer token claims. H fingerprints the password hash
// so changing the password revokes outstanding tokens.
type tokenClaims struct {
	Email string `json:"email"`
	H     string `json:"h"`
	jwt.RegisteredClaims
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(sessionTTL.Seconds()),
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// IsAdmin checks if the current session is authenticated.
func IsAdmin(c echo.Context) bool {
	_, ok := sessionUserID(c)
	return ok
}

func sessionUserID(c echo.Context) (int64, bool) {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return 0, false
	}
	if auth, ok := sess.Values["authenticated"].(bool); !ok || !auth {
		return 0, false
	}
	id, ok := sess.Values["user_id"].(int64)
	return id, ok
}

func setAdminSession(c echo.Context, userID int64) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values["authenticated"] = true
	sess.Values["user_id"] = userID
	return sess.Save(c.Request(), c.Response())
}

func clearAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// CsrfToken extracts the CSRF token from the Echo context.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}

// AdminFromContext returns the user set by requireAdmin.
func AdminFromContext(c echo.Context) (AdminUser, bool) {
	u, ok := c.Get(adminUserKey).(AdminUser)
	return u, ok
}

func passwordFingerprint(hash string) string {
	out := make([]byte, 16)
	sha3.ShakeSum256(out, []byte(hash))
	return hex.EncodeToString(out)
}

// issueToken signs an HS256 bearer token for u.
func (a *App) issueToken(ctx context.Context, u AdminUser) (string, time.Time, error) {
	hash, err := a.Store.passwordHash(ctx, u.ID)
	if err != nil {
		return "", time.Time{}, err
	}
	issued := time.Now()
	expires := issued.Add(tokenTTL)
	claims := tokenClaims{
		Email: u.Email,
		H:     passwordFingerprint(hash),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.Config.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// verifyToken validates a bearer token and returns its user id.
func (a *App) verifyToken(ctx context.Context, raw string) (int64, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(tokenIssuer),
	)
	var claims tokenClaims
	if _, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(a.Config.JWTSecret), nil
	}); err != nil {
		return 0, fmt.Errorf("invalid token: %w", err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token subject %q", claims.Subject)
	}
	hash, err := a.Store.passwordHash(ctx, id)
	if err != nil {
		return 0, err
	}
	if claims.H != passwordFingerprint(hash) {
		return 0, errors.New("token revoked")
	}
	return id, nil
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// requireAdmin admits requests carrying an admin session cookie or a valid
// bearer token, and stores the AdminUser on the context.
func (a *App) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		var id int64
		if raw := bearerToken(c); raw != "" {
			var err error
			if id, err = a.verifyToken(ctx, raw); err != nil {
				c.Logger().Debugf("rejected bearer token: %v", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
		} else {
			var ok bool
			if id, ok = sessionUserID(c); !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
		}
		u, err := a.Store.GetAdminUser(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		if err != nil {
			return err
		}
		c.Set(adminUserKey, u)
		return next(c)
	}
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type loginResponse struct {
	User      AdminUser `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	CSRFToken string    `json:"csrfToken,omitempty"`
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		retry := a.loginLimiter.RetryAfter(ip)
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts, try again later")
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	ctx := c.Request().Context()
	u, err := a.Store.Authenticate(ctx, req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		a.loginLimiter.Record(ip)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if err != nil {
		return err
	}
	a.loginLimiter.Reset(ip)

	if err := setAdminSession(c, u.ID); err != nil {
		return err
	}
	token, expires, err := a.issueToken(ctx, u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{User: u, Token: token, ExpiresAt: expires, CSRFToken: CsrfToken(c)})
}

func (a *App) handleLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleMe(c echo.Context) error {
	u, _ := AdminFromContext(c)
	return c.JSON(http.StatusOK, map[string]any{"user": u, "csrfToken": CsrfToken(c)})
}

// ensureBootstrapAdmin creates the configured admin when no account exists.
func (a *App) ensureBootstrapAdmin(ctx context.Context) error {
	n, err := a.Store.CountAdminUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if a.Config.AdminEmail == "" || a.Config.AdminPassword == "" {
		a.logger.Warn("no admin account exists; set ADMIN_EMAIL and ADMIN_PASSWORD or run `corpsite admin create`")
		return nil
	}
	u, err := a.Store.CreateAdminUser(ctx, a.Config.AdminEmail, "Administrator", a.Config.AdminPassword)
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	a.logger.Info("created bootstrap admin", "email", u.Email)
	return nil
}
