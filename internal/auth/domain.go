package auth

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/editorialhouse/newsroom/internal/shared"
)

const (
	// DefaultFullName is stored when registration omits a full name.
	DefaultFullName = "New User"
	// DefaultCredentials is stored when registration omits credentials.
	DefaultCredentials = "Web User"
	// DefaultProfilePicture is stored when registration omits a picture.
	DefaultProfilePicture = "default_user.png"
)

// User represents an account that can sign in.
type User struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	PasswordHash      string    `json:"-"`
	FullName          string    `json:"fullName"`
	Credentials       string    `json:"credentials"`
	ProfilePictureURL string    `json:"profilePictureUrl"`
	Enabled           bool      `json:"enabled"`
	SessionValidUntil time.Time `json:"sessionValidUntil"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// RegisterInput is the self sign-up payload.
type RegisterInput struct {
	Username          string `json:"username" validate:"required,min=3,max=64"`
	Password          string `json:"password" validate:"required,min=8,max=72"`
	FullName          string `json:"fullName" validate:"omitempty,max=255"`
	Credentials       string `json:"credentials" validate:"omitempty,max=255"`
	ProfilePictureURL string `json:"profilePictureUrl" validate:"omitempty,max=2048"`
}

// LoginInput carries username and password.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	SessionID string    `json:"-"`
}

var folder = cases.Fold()

// NormalizeUsername applies NFKC and case folding so visually equal names
// collide.
func NormalizeUsername(raw string) (string, error) {
	name := folder.String(norm.NFKC.String(strings.TrimSpace(raw)))
	if name == "" {
		return "", fmt.Errorf("%w: username required", shared.ErrInvalidArgument)
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("%w: username must not contain spaces", shared.ErrInvalidArgument)
	}
	return name, nil
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
