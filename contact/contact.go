// Package contact stores contact-form submissions and serves the public
// submission endpoint and the admin inbox API.
package contact

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrNotFound is returned for unknown submission ids.
	ErrNotFound = errors.New("contact: submission not found")
	// ErrRateLimited is returned when an address submits too often.
	ErrRateLimited = errors.New("contact: too many submissions")
)

const saltSetting = "contact_hash_salt"

// LoadSalt returns the installation's IP hashing salt, generating and
// storing one on first use.
func LoadSalt(store *Store) (string, error) {
	salt, err := store.GetSetting(saltSetting)
	if err != nil {
		return "", fmt.Errorf("read hash salt: %w", err)
	}
	if salt != "" {
		return salt, nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	salt = hex.EncodeToString(b)
	if err := store.SetSetting(saltSetting, salt); err != nil {
		return "", fmt.Errorf("store hash salt: %w", err)
	}
	return salt, nil
}

// HashIP creates a salted SHA-256 hash of an IP address.
func HashIP(salt, ip string) string {
	h := sha256.New()
	h.Write([]byte(salt + ip))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Submission is a stored contact request.
type Submission struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Company   string    `json:"company"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Lang      string    `json:"lang"`
	IPHash    string    `json:"-"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Request is the public form payload. Website is the honeypot field and
// must stay empty.
type Request struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Phone   string `json:"phone" form:"phone"`
	Company string `json:"company" form:"company"`
	Subject string `json:"subject" form:"subject"`
	Message string `json:"message" form:"message"`
	Lang    string `json:"lang" form:"lang"`
	Website string `json:"website" form:"website"`
}

// Field length limits, counted in characters.
const (
	maxNameLen    = 200
	maxEmailLen   = 254
	maxPhoneLen   = 50
	maxCompanyLen = 200
	maxSubjectLen = 300
	maxMessageLen = 5000
	minMessageLen = 10
)

// ValidationError maps field names to problems.
type ValidationError map[string]string

func (v ValidationError) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}

// IsSpam reports whether the honeypot field was filled in.
func (r *Request) IsSpam() bool {
	return strings.TrimSpace(r.Website) != ""
}

// Normalize trims every field and defaults the language.
func (r *Request) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Company = strings.TrimSpace(r.Company)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Message = strings.TrimSpace(r.Message)
	r.Lang = strings.ToLower(strings.TrimSpace(r.Lang))
	if r.Lang != "ar" {
		r.Lang = "en"
	}
}

// Validate checks required fields, lengths and the email format.
func (r *Request) Validate() error {
	errs := ValidationError{}
	checkLen := func(field, v string, max int) {
		if utf8.RuneCountInString(v) > max {
			errs[field] = fmt.Sprintf("must be at most %d characters", max)
		}
	}

	if r.Name == "" {
		errs["name"] = "is required"
	}
	checkLen("name", r.Name, maxNameLen)

	switch {
	case r.Email == "":
		errs["email"] = "is required"
	case !validEmail(r.Email):
		errs["email"] = "is not a valid address"
	}
	checkLen("email", r.Email, maxEmailLen)

	checkLen("phone", r.Phone, maxPhoneLen)
	checkLen("company", r.Company, maxCompanyLen)
	checkLen("subject", r.Subject, maxSubjectLen)

	if utf8.RuneCountInString(r.Message) < minMessageLen {
		errs["message"] = fmt.Sprintf("must be at least %d characters", minMessageLen)
	}
	checkLen("message", r.Message, maxMessageLen)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	_, domain, ok := strings.Cut(s, "@")
	return ok && strings.Contains(domain, ".") && !strings.HasSuffix(domain, ".")
}
