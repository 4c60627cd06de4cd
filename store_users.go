package corpsite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost        = 10
	minPasswordLength = 8
)

// CountAdminUsers returns the number of admin accounts.
func (s *Store) CountAdminUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&n)
	return n, err
}

// CreateAdminUser adds an account with a bcrypt-hashed password. An email
// already in use yields ErrConflict.
func (s *Store) CreateAdminUser(ctx context.Context, email, name, password string) (AdminUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	verr := &ValidationError{}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		verr.Add("email", "a valid email is required")
	}
	if len(password) < minPasswordLength {
		verr.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if err := verr.Err(); err != nil {
		return AdminUser{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return AdminUser{}, fmt.Errorf("hash password: %w", err)
	}
	u := AdminUser{Email: email, Name: strings.TrimSpace(name), CreatedAt: now()}
	res, err := s.db.ExecContext(ctx, `INSERT INTO admin_users (email, name, password_hash, created_at)
		VALUES (?, ?, ?, ?)`, u.Email, u.Name, string(hash), formatTime(u.CreatedAt))
	if isUniqueViolation(err) {
		return AdminUser{}, fmt.Errorf("admin %q already exists: %w", email, ErrConflict)
	}
	if err != nil {
		return AdminUser{}, fmt.Errorf("insert admin user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	return u, err
}

// SetAdminPassword replaces the password of the account with email.
func (s *Store) SetAdminPassword(ctx context.Context, email, password string) error {
	if len(password) < minPasswordLength {
		verr := &ValidationError{}
		verr.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
		return verr
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE admin_users SET password_hash = ? WHERE email = ?`,
		string(hash), strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Authenticate checks email and password and stamps the login time.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, email, password string) (AdminUser, error) {
	u, hash, err := s.adminUserBy(ctx, `email = ?`, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrNotFound) {
		// Compare against a fixed hash so unknown emails take as long as known ones.
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return AdminUser{}, ErrInvalidCredentials
	}
	if err != nil {
		return AdminUser{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return AdminUser{}, ErrInvalidCredentials
	}
	t := now()
	if _, err := s.db.ExecContext(ctx, `UPDATE admin_users SET last_login_at = ? WHERE id = ?`,
		formatTime(t), u.ID); err != nil {
		return AdminUser{}, err
	}
	u.LastLoginAt = &t
	return u, nil
}

// GetAdminUser returns an account by id.
func (s *Store) GetAdminUser(ctx context.Context, id int64) (AdminUser, error) {
	u, _, err := s.adminUserBy(ctx, `id = ?`, id)
	return u, err
}

// passwordHash returns the stored hash for the account with id.
func (s *Store) passwordHash(ctx context.Context, id int64) (string, error) {
	_, hash, err := s.adminUserBy(ctx, `id = ?`, id)
	return hash, err
}

func (s *Store) adminUserBy(ctx context.Context, cond string, arg any) (AdminUser, string, error) {
	var u AdminUser
	var hash, created string
	var lastLogin sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, email, name, password_hash, created_at, last_login_at
		FROM admin_users WHERE `+cond, arg).Scan(&u.ID, &u.Email, &u.Name, &hash, &created, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return AdminUser{}, "", ErrNotFound
	}
	if err != nil {
		return AdminUser{}, "", err
	}
	u.CreatedAt = parseTime(created)
	u.LastLoginAt = parseNullTime(lastLogin)
	return u, hash, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)
