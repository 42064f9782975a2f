package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/editorialhouse/newsroom/internal/rbac"
	"github.com/editorialhouse/newsroom/internal/shared"
)

// DefaultSessionValidity is how long a login keeps an account usable.
const DefaultSessionValidity = 7 * 24 * time.Hour

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	tokens   *TokenIssuer
	validity time.Duration
	cost     int
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a new Service. A zero validity uses DefaultSessionValidity.
func NewService(repo Repository, tokens *TokenIssuer, validity time.Duration, logger *slog.Logger) *Service {
	if validity <= 0 {
		validity = DefaultSessionValidity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		tokens:   tokens,
		validity: validity,
		cost:     bcrypt.DefaultCost,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// WithHashCost overrides the bcrypt cost.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hashed), nil
}

// Register creates an enabled account with the USER role.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	username, err := NormalizeUsername(in.Username)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", shared.ErrInvalidArgument)
	}
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: username %q already taken", shared.ErrConflictingState, username)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, shared.Internal(err)
	}
	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, shared.Internal(err)
	}
	now := s.now()
	user, err := s.repo.Create(ctx, User{
		Username:          username,
		PasswordHash:      hash,
		FullName:          orDefault(in.FullName, DefaultFullName),
		Credentials:       orDefault(in.Credentials, DefaultCredentials),
		ProfilePictureURL: orDefault(in.ProfilePictureURL, DefaultProfilePicture),
		Enabled:           true,
		SessionValidUntil: now.Add(s.validity),
		CreatedAt:         now,
	}, []rbac.RoleName{rbac.RoleUser})
	if err != nil {
		return nil, shared.Internal(err)
	}
	s.logger.Info("user registered", slog.Int64("user_id", user.ID), slog.String("username", user.Username))
	return user, nil
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	name, err := NormalizeUsername(username)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	user, err := s.repo.FindByUsername(ctx, name)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, shared.Internal(err)
	}
	if !user.Enabled {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates, extends the validity deadline, records a login
// session and issues a bearer token bound to it.
func (s *Service) Login(ctx context.Context, in LoginInput, ip, ua string) (LoginResult, error) {
	user, err := s.Authenticate(ctx, in.Username, in.Password)
	if err != nil {
		return LoginResult{}, err
	}
	until := s.now().Add(s.validity)
	if err := s.repo.ExtendSession(ctx, user.ID, until); err != nil {
		return LoginResult{}, shared.Internal(err)
	}
	user.SessionValidUntil = until

	sessionID := uuid.NewString()
	token, expires, err := s.tokens.Issue(user, sessionID)
	if err != nil {
		return LoginResult{}, shared.Internal(err)
	}
	if err := s.repo.CreateSession(ctx, sessionID, user.ID, expires, ip, ua); err != nil {
		return LoginResult{}, shared.Internal(err)
	}
	s.logger.Info("user logged in", slog.Int64("user_id", user.ID), slog.String("session_id", sessionID))
	return LoginResult{User: user, Token: token, ExpiresAt: expires, SessionID: sessionID}, nil
}

// Logout revokes a login session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return shared.Internal(s.repo.DeleteSession(ctx, sessionID))
}

// ResolveCaller loads the user behind a session and resolves its authority.
// Unknown, disabled or expired accounts and revoked sessions are
// ErrUnauthenticated.
func (s *Service) ResolveCaller(ctx context.Context, userID int64, sessionID string) (*rbac.Caller, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user", shared.ErrUnauthenticated)
		}
		return nil, shared.Internal(err)
	}
	now := s.now()
	if !user.Enabled {
		return nil, fmt.Errorf("%w: account disabled", shared.ErrUnauthenticated)
	}
	if !now.Before(user.SessionValidUntil) {
		return nil, fmt.Errorf("%w: session validity expired", shared.ErrUnauthenticated)
	}
	if sessionID != "" {
		active, err := s.repo.SessionActive(ctx, sessionID, user.ID, now)
		if err != nil {
			return nil, shared.Internal(err)
		}
		if !active {
			return nil, fmt.Errorf("%w: session revoked", shared.ErrUnauthenticated)
		}
	}
	subject, err := s.repo.LoadSubject(ctx, user.ID)
	if err != nil {
		return nil, shared.Internal(err)
	}
	return rbac.NewCaller(user.ID, user.Username, subject), nil
}

// Profile is the view of the current user.
type Profile struct {
	User        *User    `json:"user"`
	Authorities rbac.Set `json:"authorities"`
}

// Me returns the profile of the caller.
func (s *Service) Me(ctx context.Context, caller *rbac.Caller) (Profile, error) {
	if err := rbac.Authenticated(caller); err != nil {
		return Profile{}, err
	}
	user, err := s.repo.FindByID(ctx, caller.UserID)
	if err != nil {
		return Profile{}, shared.Internal(err)
	}
	return Profile{User: user, Authorities: caller.Authority}, nil
}

// PruneSessions removes expired login sessions.
func (s *Service) PruneSessions(ctx context.Context) (int64, error) {
	n, err := s.repo.PruneSessions(ctx, s.now())
	return n, shared.Internal(err)
}
