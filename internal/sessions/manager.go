package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"docvault-backend/internal/shared/auth"
	"docvault-backend/internal/users"
)

// Manager issues opaque session tokens and resolves them back to principals.
// Sessions live in memory; restarting the server logs everyone out, which is
// acceptable for cookie sessions with a short TTL.
type Manager struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	users   users.Repo
	now     func() time.Time
}

type entry struct {
	userID    string
	expiresAt time.Time
}

// NewManager constructs a Manager backed by the given user repo.
func NewManager(userRepo users.Repo, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		ttl:     ttl,
		entries: make(map[string]entry),
		users:   userRepo,
		now:     time.Now,
	}
}

// Issue creates a session token for the user.
func (m *Manager) Issue(userID string) string {
	token := uuid.NewString()
	m.mu.Lock()
	m.entries[token] = entry{userID: userID, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return token
}

// Resolve maps a token to a principal. The user record is re-read on every
// call so role changes and deletions take effect immediately.
func (m *Manager) Resolve(ctx context.Context, token string) (auth.Principal, bool) {
	m.mu.Lock()
	e, ok := m.entries[token]
	if ok && m.now().After(e.expiresAt) {
		delete(m.entries, token)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return auth.Principal{}, false
	}

	user, err := m.users.GetByID(ctx, e.userID)
	if err != nil {
		return auth.Principal{}, false
	}
	return user.Principal(), true
}

// Revoke invalidates a token. Unknown tokens are ignored.
func (m *Manager) Revoke(token string) {
	m.mu.Lock()
	delete(m.entries, token)
	m.mu.Unlock()
}
