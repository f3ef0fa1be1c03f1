package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/sherpa/internal/conversation"
	"github.com/MikeSquared-Agency/sherpa/internal/metrics"
)

const sessionCookie = "sherpa_session"

type session struct {
	ctrl     *conversation.Controller
	lastSeen time.Time
	// streams counts open event streams; a session with one is never idle.
	streams int
}

// Sessions holds one conversation per browser session, keyed by the
// conversation ID that is also stored in the session cookie. Sessions that
// see no request for longer than the idle timeout are closed by Sweep.
type Sessions struct {
	newController func() *conversation.Controller
	idleTimeout   time.Duration
	now           func() time.Time

	mu   sync.Mutex
	byID map[uuid.UUID]*session
}

// NewSessions returns an empty registry. A zero idleTimeout disables eviction.
func NewSessions(newController func() *conversation.Controller, idleTimeout time.Duration) *Sessions {
	return &Sessions{
		newController: newController,
		idleTimeout:   idleTimeout,
		now:           time.Now,
		byID:          make(map[uuid.UUID]*session),
	}
}

func (s *Sessions) Open() *conversation.Controller {
	c := s.newController()
	s.mu.Lock()
	s.byID[c.ID()] = &session{ctrl: c, lastSeen: s.now()}
	s.mu.Unlock()
	metrics.SessionOpened()
	return c
}

// Get returns the conversation and marks it as seen.
func (s *Sessions) Get(id uuid.UUID) (*conversation.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.ctrl, true
}

// Close disposes the conversation and forgets it. It reports whether the
// session existed.
func (s *Sessions) Close(id uuid.UUID) bool {
	s.mu.Lock()
	sess, ok := s.byID[id]
	delete(s.byID, id)
	s.mu.Unlock()
	if !ok {
		return false
	}
	sess.ctrl.Close()
	metrics.SessionClosed()
	return true
}

func (s *Sessions) CloseAll() {
	s.mu.Lock()
	all := s.byID
	s.byID = make(map[uuid.UUID]*session)
	s.mu.Unlock()
	for _, sess := range all {
		sess.ctrl.Close()
		metrics.SessionClosed()
	}
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Sweep closes every session idle for longer than the idle timeout and
// returns how many it closed.
func (s *Sessions) Sweep() int {
	if s.idleTimeout <= 0 {
		return 0
	}

	now := s.now()
	var idle []uuid.UUID
	s.mu.Lock()
	for id, sess := range s.byID {
		if sess.streams == 0 && now.Sub(sess.lastSeen) > s.idleTimeout {
			idle = append(idle, id)
		}
	}
	s.mu.Unlock()

	closed := 0
	for _, id := range idle {
		if s.Close(id) {
			closed++
		}
	}
	return closed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Sessions) RunSweeper(ctx context.Context, interval time.Duration) {
	if s.idleTimeout <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// hold keeps the session alive until the returned func is called.
func (s *Sessions) hold(id uuid.UUID) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return func() {}
	}
	sess.streams++
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		sess.streams--
		sess.lastSeen = s.now()
	}
}

// lookup returns the conversation named by the request cookie, if any.
func (s *Sessions) lookup(r *http.Request) (*conversation.Controller, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return nil, false
	}
	return s.Get(id)
}

// resolve returns the request's conversation, opening a new one and setting
// the cookie when the request has none or names an unknown one.
func (s *Sessions) resolve(w http.ResponseWriter, r *http.Request) *conversation.Controller {
	if c, ok := s.lookup(r); ok {
		return c
	}
	c := s.Open()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    c.ID().String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c
}
