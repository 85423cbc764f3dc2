// Package session keeps per-browser workspaces in memory.
//
// Each Session owns one Workspace and a mutex; every engine call runs inside
// Session.Do, so calls from one user never overlap. Sessions expire after a
// period of inactivity and are removed by Store.Run.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataplay/internal/metrics"
)

// DefaultTTL is used when Options.TTL is not set.
const DefaultTTL = 2 * time.Hour

// Session is one user's workspace plus the lock that serializes access.
type Session struct {
	ID      string
	Created time.Time

	mu sync.Mutex
	ws *Workspace

	// lastSeen is guarded by the owning Store's mutex.
	lastSeen time.Time
}

// New returns a standalone session, for callers without a Store (the CLI
// and tests).
func New(maxTables int) *Session {
	now := time.Now()
	return &Session{
		ID:       uuid.NewString(),
		Created:  now,
		ws:       NewWorkspace(maxTables),
		lastSeen: now,
	}
}

// Do runs fn with exclusive access to the workspace.
func (s *Session) Do(fn func(ws *Workspace) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.ws)
}

// Options configures a Store.
type Options struct {
	TTL       time.Duration
	MaxTables int
}

// Store holds live sessions keyed by ID.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	max      int
	now      func() time.Time
}

func NewStore(opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      opts.TTL,
		max:      opts.MaxTables,
		now:      time.Now,
	}
}

// TTL returns the inactivity timeout.
func (st *Store) TTL() time.Duration { return st.ttl }

// Create starts a new empty session.
func (st *Store) Create() *Session {
	s := New(st.max)

	st.mu.Lock()
	now := st.now()
	s.Created, s.lastSeen = now, now
	st.sessions[s.ID] = s
	st.mu.Unlock()

	metrics.ActiveSessions.Inc()
	return s
}

// Get returns a live session and refreshes its expiry. Expired sessions are
// removed and reported as missing.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	now := st.now()
	if now.Sub(s.lastSeen) > st.ttl {
		delete(st.sessions, id)
		metrics.ActiveSessions.Dec()
		return nil, false
	}
	s.lastSeen = now
	return s, true
}

// Delete removes a session.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; ok {
		delete(st.sessions, id)
		metrics.ActiveSessions.Dec()
	}
}

// Len returns the number of stored sessions, expired or not.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	removed := 0
	for id, s := range st.sessions {
		if now.Sub(s.lastSeen) > st.ttl {
			delete(st.sessions, id)
			removed++
		}
	}
	metrics.ActiveSessions.Sub(float64(removed))
	return removed
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				slog.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
