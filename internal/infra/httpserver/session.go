package httpserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/comment-analyzer/internal/domain/comments"
)

const sessionCookie = "session_id"

type session struct {
	latest   *domain.AnalysisResult
	lastSeen time.Time
}

// SessionStore keeps the latest analysis result per browser session in
// memory. Sessions idle for longer than ttl are dropped.
type SessionStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	sessions  map[string]*session
	lastSweep time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionStore{ttl: ttl, now: time.Now, sessions: make(map[string]*session)}
}

// Resolve returns the session id of the request, starting a new session
// (and setting the cookie) when it has none or it expired.
func (s *SessionStore) Resolve(w http.ResponseWriter, r *http.Request) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions[c.Value]; ok && now.Sub(sess.lastSeen) <= s.ttl {
			sess.lastSeen = now
			return c.Value
		}
	}

	id := uuid.NewString()
	s.sessions[id] = &session{lastSeen: now}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// Latest returns the last analysis result stored for the session, or nil.
func (s *SessionStore) Latest(id string) *domain.AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess.latest
	}
	return nil
}

// SetLatest overwrites the session's latest result.
func (s *SessionStore) SetLatest(id string, res *domain.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{}
		s.sessions[id] = sess
	}
	sess.latest = res
	sess.lastSeen = s.now()
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweep runs at most once a minute; callers hold mu.
func (s *SessionStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < time.Minute {
		return
	}
	s.lastSweep = now
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
