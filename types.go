package corpsite

import (
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/eringen/corpsite/views"
)

// Domain types shared with the views package.
type (
	BlogPost  = views.BlogPost
	Category  = views.Category
	HeroSlide = views.HeroSlide
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = sql.ErrNoRows
	// ErrConflict is returned when a write would break a uniqueness or
	// reference constraint.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials is returned by Authenticate for an unknown email
	// or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// MediaAsset is an uploaded image recorded in the media library.
type MediaAsset struct {
	ID           int64     `json:"id"`
	PublicID     string    `json:"publicId"`
	URL          string    `json:"url"`
	Format       string    `json:"format"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Bytes        int64     `json:"bytes"`
	OriginalName string    `json:"originalName"`
	Alt          string    `json:"alt"`
	Folder       string    `json:"folder"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AdminUser is an account allowed into the admin API.
type AdminUser struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// ValidationError lists field problems of an admin write.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a problem with field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

// Err returns e when it holds at least one problem, nil otherwise.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
