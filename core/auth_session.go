package core

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	defaultAuthSessionTTL        = 15 * time.Minute
	defaultAuthSessionMaxEntries = 4096
)

// AuthSession is the transient context of one authorization flow,
// created by AuthorizationURL and consumed by ExchangeCode. It is a
// value keyed by its state parameter, so concurrent flows for
// different users never share mutable state.
type AuthSession struct {
	State       string
	UserID      string
	RedirectURI string
	Scope       ScopeSet
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// AuthSessionStore persists flow sessions between the authorize and
// exchange steps. Consume removes the session it returns.
type AuthSessionStore interface {
	Save(ctx context.Context, session AuthSession) error
	Consume(ctx context.Context, state string) (AuthSession, error)
}

// MemoryAuthSessionStore is the default in-process store. Entries
// expire after the TTL and the oldest entry is evicted once the
// capacity is exceeded, so an abandoned flow cannot grow memory
// without bound.
type MemoryAuthSessionStore struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]AuthSession
}

func NewMemoryAuthSessionStore(ttl time.Duration) *MemoryAuthSessionStore {
	return NewMemoryAuthSessionStoreWithLimits(ttl, defaultAuthSessionMaxEntries)
}

func NewMemoryAuthSessionStoreWithLimits(ttl time.Duration, maxEntries int) *MemoryAuthSessionStore {
	if ttl <= 0 {
		ttl = defaultAuthSessionTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultAuthSessionMaxEntries
	}
	return &MemoryAuthSessionStore{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    map[string]AuthSession{},
	}
}

func (s *MemoryAuthSessionStore) Save(_ context.Context, session AuthSession) error {
	if s == nil {
		return newInternalError("auth session store is not configured")
	}
	state := strings.TrimSpace(session.State)
	if state == "" {
		return newBadInputError("auth session state is required")
	}

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = session.CreatedAt.Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.entries[state] = cloneAuthSession(session)
	for len(s.entries) > s.maxEntries {
		s.evictOldestLocked()
	}
	return nil
}

func (s *MemoryAuthSessionStore) Consume(_ context.Context, state string) (AuthSession, error) {
	if s == nil {
		return AuthSession{}, newInternalError("auth session store is not configured")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return AuthSession{}, newBadInputError("auth session state is required")
	}

	s.mu.Lock()
	session, ok := s.entries[state]
	if ok {
		delete(s.entries, state)
	}
	s.mu.Unlock()

	if !ok {
		return AuthSession{}, newBadInputError("auth session not found")
	}
	if !session.ExpiresAt.IsZero() && time.Now().UTC().After(session.ExpiresAt) {
		return AuthSession{}, newBadInputError("auth session expired")
	}
	return cloneAuthSession(session), nil
}

func (s *MemoryAuthSessionStore) pruneLocked(now time.Time) {
	for state, session := range s.entries {
		if !session.ExpiresAt.IsZero() && now.After(session.ExpiresAt) {
			delete(s.entries, state)
		}
	}
}

func (s *MemoryAuthSessionStore) evictOldestLocked() {
	oldestState := ""
	var oldestAt time.Time
	for state, session := range s.entries {
		if oldestState == "" || session.CreatedAt.Before(oldestAt) {
			oldestState = state
			oldestAt = session.CreatedAt
		}
	}
	if oldestState != "" {
		delete(s.entries, oldestState)
	}
}

func cloneAuthSession(session AuthSession) AuthSession {
	cloned := session
	cloned.Scope = append(ScopeSet(nil), session.Scope...)
	return cloned
}

var _ AuthSessionStore = (*MemoryAuthSessionStore)(nil)
