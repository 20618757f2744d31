package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const SessionTimeout = time.Hour

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleAgent   Role = "agent"
)

var roleLevels = map[Role]int{
	RoleAdmin:   3,
	RoleManager: 2,
	RoleAgent:   1,
}

func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Allows reports whether r is at least as privileged as required. Unknown
// roles allow nothing.
func (r Role) Allows(required Role) bool {
	level, ok := roleLevels[r]
	if !ok {
		return false
	}
	return level >= roleLevels[required]
}

// Session is the authenticated identity attached to a request.
type Session struct {
	Token     string    `json:"token"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore holds live sessions in memory, keyed by token.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	timeout  time.Duration
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithClock(SessionTimeout, time.Now)
}

func NewSessionStoreWithClock(timeout time.Duration, now func() time.Time) *SessionStore {
	return &SessionStore{sessions: map[string]*Session{}, timeout: timeout, now: now}
}

func (s *SessionStore) Create(userID uint, username, fullName string, role Role) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	session := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		Username:  username,
		FullName:  fullName,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.timeout),
	}
	s.sessions[session.Token] = session
	return session
}

// Get returns a copy of the session for token, or false when it is unknown or
// expired. Expired sessions are removed.
func (s *SessionStore) Get(token string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return Session{}, false
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, token)
		return Session{}, false
	}
	return *session, true
}

func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Sweep removes expired sessions.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for token, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, token)
			n++
		}
	}
	return n
}

type sessionKey struct{}

// WithSession attaches a session to the request context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session set by WithSession.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

var roleDisplayNames = map[Role]string{
	RoleAdmin:   "👑 ผู้ดูแลระบบ",
	RoleManager: "👔 ผู้จัดการ",
	RoleAgent:   "👨‍💼 เจ้าหน้าที่",
}

// DisplayName is the label shown in the dashboard header.
func (r Role) DisplayName() string {
	if name, ok := roleDisplayNames[r]; ok {
		return name
	}
	return string(r)
}
