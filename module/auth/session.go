package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog/log"
)

// DefaultSessionLifetime is used when a manager is built with a zero lifetime.
const DefaultSessionLifetime = 24 * time.Hour

var ErrSessionNotFound = errors.New("session not found")

// Session is the server side record behind the session cookie. UserID is 0
// until a user logs in.
type Session struct {
	Token      string    `json:"token"`
	UserID     int64     `json:"user_id,omitempty"`
	Expiration time.Time `json:"expiration"`
}

// Expired reports whether the session must be re-created before use.
func (s *Session) Expired(now time.Time) bool {
	return !s.Expiration.After(now)
}

// SessionManager stores sessions keyed by token.
type SessionManager interface {
	CreateSession(ctx context.Context) (*Session, error)
	// RetrieveSession returns nil when the token is unknown.
	RetrieveSession(ctx context.Context, token string) (*Session, error)
	// RecreateSession rotates an expired session to a new expiration, keeping
	// its token and user.
	RecreateSession(ctx context.Context, token string) (*Session, error)
	SetUser(ctx context.Context, token string, userID int64) error
	DeleteSession(ctx context.Context, token string) error
}

// MemorySessionManager keeps sessions in a sharded concurrent map. Sessions
// are never mutated after being published; every change stores a new value.
type MemorySessionManager struct {
	sessions cmap.ConcurrentMap[string, *Session]
	lifetime time.Duration
	now      func() time.Time
}

func NewMemorySessionManager(lifetime time.Duration) *MemorySessionManager {
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}
	return &MemorySessionManager{
		sessions: cmap.New[*Session](),
		lifetime: lifetime,
		now:      time.Now,
	}
}

func (m *MemorySessionManager) CreateSession(ctx context.Context) (*Session, error) {
	for {
		session := &Session{Token: uuid.NewString(), Expiration: m.now().Add(m.lifetime)}
		if m.sessions.SetIfAbsent(session.Token, session) {
			return session, nil
		}
	}
}

func (m *MemorySessionManager) RetrieveSession(ctx context.Context, token string) (*Session, error) {
	session, ok := m.sessions.Get(token)
	if !ok || session == nil {
		return nil, nil
	}
	return session, nil
}

func (m *MemorySessionManager) RecreateSession(ctx context.Context, token string) (*Session, error) {
	var missing bool
	rotated := m.sessions.Upsert(token, nil, func(exist bool, current, _ *Session) *Session {
		now := m.now()
		if !exist || current == nil {
			missing = true
			return &Session{Token: token, Expiration: now.Add(m.lifetime)}
		}
		// A concurrent request rotated it first.
		if !current.Expired(now) {
			return current
		}
		return &Session{Token: token, UserID: current.UserID, Expiration: now.Add(m.lifetime)}
	})
	if missing {
		log.Ctx(ctx).Debug().Msg("Re-created a session that was already removed")
	}
	return rotated, nil
}

func (m *MemorySessionManager) SetUser(ctx context.Context, token string, userID int64) error {
	if !m.sessions.Has(token) {
		return ErrSessionNotFound
	}
	var found bool
	m.sessions.Upsert(token, nil, func(exist bool, current, _ *Session) *Session {
		if !exist || current == nil {
			return nil
		}
		found = true
		return &Session{Token: current.Token, UserID: userID, Expiration: current.Expiration}
	})
	if !found {
		// Deleted concurrently; drop the placeholder Upsert stored.
		m.sessions.RemoveCb(token, func(_ string, s *Session, exists bool) bool {
			return exists && s == nil
		})
		return ErrSessionNotFound
	}
	return nil
}

func (m *MemorySessionManager) DeleteSession(ctx context.Context, token string) error {
	m.sessions.Remove(token)
	return nil
}

func (m *MemorySessionManager) Count() int {
	return m.sessions.Count()
}

// Cleanup removes sessions that expired more than grace ago and returns how
// many were removed.
func (m *MemorySessionManager) Cleanup(grace time.Duration) int {
	cutoff := m.now().Add(-grace)
	removed := 0
	for _, token := range m.sessions.Keys() {
		if m.sessions.RemoveCb(token, func(_ string, s *Session, exists bool) bool {
			return exists && (s == nil || s.Expiration.Before(cutoff))
		}) {
			removed++
		}
	}
	return removed
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (m *MemorySessionManager) RunCleanup(ctx context.Context, interval, grace time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := m.Cleanup(grace); removed > 0 {
				log.Debug().Int("removed", removed).Msg("Removed expired sessions")
			}
		}
	}
}
