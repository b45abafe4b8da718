package assistant

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"jalsaathi/internal/models"
)

// MinPasswordLength matches the sign-up form's rule.
const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingCredentials = errors.New("username and password are required")
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrUsernameTaken      = errors.New("username already registered")
	ErrUserNotFound       = errors.New("user not found")
)

const userColumns = `id, username, full_name, password_hash, created_at`

// Service persists citizen accounts, their conversations and advisor history.
type Service struct {
	db *sql.DB
}

// NewService builds a repository over an opened and migrated database.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Registration is what a citizen submits on the sign-up form.
type Registration struct {
	Username string
	Password string
	FullName string
}

// RegisterUser creates a citizen account. Usernames are case-insensitive.
func (s *Service) RegisterUser(ctx context.Context, reg Registration) (*models.User, error) {
	username := normalizeUsername(reg.Username)
	password := strings.TrimSpace(reg.Password)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if len([]rune(password)) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	var taken bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username,
	).Scan(&taken); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	user := &models.User{
		Username:     username,
		FullName:     strings.TrimSpace(reg.FullName),
		PasswordHash: hashPassword(password),
		CreatedAt:    time.Now().UTC(),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, full_name, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.Username, user.FullName, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert citizen %s: %w", username, err)
	}
	if user.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("citizen id: %w", err)
	}
	return user, nil
}

// Login returns the account for a username and password. Unknown usernames
// and wrong passwords both give ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = normalizeUsername(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username,
	))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(user.PasswordHash), []byte(hashPassword(password))) != 1 {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
}

// DeleteUser removes the account row. Conversations and tokens are dropped
// by their owners before this is called.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrUserNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete citizen %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete citizen %d: %w", id, err)
	} else if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.FullName, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load citizen: %w", err)
	}
	return &user, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func hashPassword(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
