// Package auth authenticates dashboard users. Passwords are bcrypt hashes,
// failed logins are rate limited per username and sessions live in memory for
// a fixed time.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/pkg/db/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrForbidden          = errors.New("insufficient role")
	ErrWeakPassword       = errors.New("password is too weak")
	ErrInvalidUser        = errors.New("invalid user")
)

// ErrRateLimited is returned while an identity is locked out.
type ErrRateLimited struct {
	RetryAfter time.Duration
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("too many failed login attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

// UserStore is the persistence the service needs.
type UserStore interface {
	ActiveUser(ctx context.Context, username string) (*models.AdminUser, error)
	CreateUser(ctx context.Context, user *models.AdminUser) error
	UpdatePasswordHash(ctx context.Context, userID uint, hash string) error
	TouchLastLogin(ctx context.Context, userID uint, at time.Time) error
}

type Service struct {
	users    UserStore
	limiter  *LoginLimiter
	sessions *SessionStore
	now      func() time.Time
}

func NewService(users UserStore, limiter *LoginLimiter, sessions *SessionStore) *Service {
	return &Service{users: users, limiter: limiter, sessions: sessions, now: time.Now}
}

func (s *Service) Sessions() *SessionStore {
	return s.sessions
}

// Login verifies credentials and opens a session.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if !s.limiter.Allow(username) {
		return nil, &ErrRateLimited{RetryAfter: s.limiter.RetryAfter(username)}
	}

	user, err := s.users.ActiveUser(ctx, username)
	if err != nil || !CheckPassword(user.PasswordHash, password) {
		if err != nil {
			log.WithError(err).WithField("username", username).Debug("login lookup failed")
		}
		s.limiter.RecordFailure(username)
		return nil, ErrInvalidCredentials
	}

	s.limiter.Reset(username)
	if err := s.users.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		log.WithError(err).WithField("username", username).Warning("could not update last login")
	}
	session := s.sessions.Create(user.ID, user.Username, user.FullName, Role(user.Role))
	log.WithFields(log.Fields{"username": username, "role": user.Role}).Info("user logged in")
	return session, nil
}

func (s *Service) Logout(token string) {
	s.sessions.Delete(token)
}

// Authenticate resolves a bearer token.
func (s *Service) Authenticate(token string) (Session, bool) {
	return s.sessions.Get(token)
}

// NewUser is the input for CreateUser.
type NewUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

// CreateUser adds a user. Only admins may create users.
func (s *Service) CreateUser(ctx context.Context, actor Session, in NewUser) (*models.AdminUser, error) {
	if !actor.Role.Allows(RoleAdmin) {
		return nil, ErrForbidden
	}
	return s.createUser(ctx, in)
}

// Bootstrap creates a user without an acting session, for the CLI.
func (s *Service) Bootstrap(ctx context.Context, in NewUser) (*models.AdminUser, error) {
	return s.createUser(ctx, in)
}

func (s *Service) createUser(ctx context.Context, in NewUser) (*models.AdminUser, error) {
	if in.Role == "" {
		in.Role = RoleAgent
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidUser, in.Role)
	}
	if strings.TrimSpace(in.Username) == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidUser)
	}
	if strength := PasswordStrength(in.Password); !strength.IsStrong {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, strings.Join(strength.Feedback, ", "))
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.AdminUser{
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
		Email:        in.Email,
		FullName:     in.FullName,
		Role:         string(in.Role),
		IsActive:     true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the password of the session's user after checking
// the current one.
func (s *Service) ChangePassword(ctx context.Context, actor Session, current, next string) error {
	user, err := s.users.ActiveUser(ctx, actor.Username)
	if err != nil {
		return err
	}
	if !CheckPassword(user.PasswordHash, current) {
		s.limiter.RecordFailure(actor.Username)
		return ErrInvalidCredentials
	}
	if strength := PasswordStrength(next); !strength.IsStrong {
		return fmt.Errorf("%w: %s", ErrWeakPassword, strings.Join(strength.Feedback, ", "))
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordHash(ctx, user.ID, hash)
}

// Sweep drops expired sessions and stale login failures.
func (s *Service) Sweep() (sessions, identities int) {
	return s.sessions.Sweep(), s.limiter.Sweep()
}
