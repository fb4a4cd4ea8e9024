package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/livetemplate/tinkerpen"
)

// Session is one editor tab: a controller plus the websocket clients that
// watch it.
type Session struct {
	ID         string
	Controller *tinkerpen.Controller
	CreatedAt  time.Time
	// Project sessions were seeded from the served directory and receive
	// file edits in watch mode.
	Project bool

	mu       sync.Mutex
	lastSeen time.Time
	clients  map[*client]struct{}
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen returns the last time the session was used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// registerClient tracks a websocket client. Sessions with connected clients
// never expire.
func (s *Session) registerClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
	s.lastSeen = time.Now()
}

func (s *Session) unregisterClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
	s.lastSeen = time.Now()
}

func (s *Session) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// close disconnects every client and releases the controller.
func (s *Session) close() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	for _, c := range clients {
		c.closeWith(closeSessionGone, "session ended")
	}
	s.Controller.Close()
}

// SessionStore holds the live sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	options  []tinkerpen.Option
	debug    bool
}

// NewSessionStore creates a store whose sessions expire after ttl without
// use. opts are applied to every new controller.
func NewSessionStore(ttl time.Duration, debug bool, opts ...tinkerpen.Option) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		options:  opts,
		debug:    debug,
	}
}

// Create starts a new session with the given buffers.
func (st *SessionStore) Create(f tinkerpen.Fragments, project bool, opts ...tinkerpen.Option) *Session {
	all := make([]tinkerpen.Option, 0, len(st.options)+len(opts)+1)
	all = append(all, st.options...)
	all = append(all, tinkerpen.WithFragments(f))
	all = append(all, opts...)

	now := time.Now()
	sess := &Session{
		ID:         uuid.NewString(),
		Controller: tinkerpen.NewController(all...),
		CreatedAt:  now,
		Project:    project,
		lastSeen:   now,
		clients:    make(map[*client]struct{}),
	}

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	count := len(st.sessions)
	st.mu.Unlock()

	if st.debug {
		log.Printf("[Session] Created %s (%d active)", sess.ID, count)
	}
	return sess
}

// Get returns a session and marks it as used.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()

	if ok {
		sess.Touch()
	}
	return sess, ok
}

// Delete ends a session. It reports whether the session existed.
func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		sess.close()
		if st.debug {
			log.Printf("[Session] Deleted %s", id)
		}
	}
	return ok
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Each calls fn for every live session. fn may call back into the store.
func (st *SessionStore) Each(fn func(*Session)) {
	st.mu.RLock()
	list := make([]*Session, 0, len(st.sessions))
	for _, sess := range st.sessions {
		list = append(list, sess)
	}
	st.mu.RUnlock()

	for _, sess := range list {
		fn(sess)
	}
}

// MostRecent returns the session used last, if any.
func (st *SessionStore) MostRecent() (*Session, bool) {
	var latest *Session
	st.Each(func(sess *Session) {
		if latest == nil || sess.LastSeen().After(latest.LastSeen()) {
			latest = sess
		}
	})
	return latest, latest != nil
}

// Sweep removes sessions idle for longer than the TTL at now and returns
// how many were removed. Sessions with connected clients are kept.
func (st *SessionStore) Sweep(now time.Time) int {
	var expired []*Session

	st.mu.Lock()
	for id, sess := range st.sessions {
		if sess.clientCount() > 0 {
			continue
		}
		if now.Sub(sess.LastSeen()) > st.ttl {
			expired = append(expired, sess)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, sess := range expired {
		sess.close()
	}
	if len(expired) > 0 {
		log.Printf("[Session] Expired %d idle session(s)", len(expired))
	}
	return len(expired)
}

// Run sweeps expired sessions every interval until ctx is cancelled. The
// returned channel is closed when the loop exits.
func (st *SessionStore) Run(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				st.Sweep(now)
			case <-ctx.Done():
				return
			}
		}
	}()
	return done
}

// CloseAll ends every session.
func (st *SessionStore) CloseAll() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
}
