package profilegen

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"
)

const sessionIdCookieName = "profilegen_session"

const DefaultSessionIdleTTL = 2 * time.Hour

type session struct {
	store    *Store
	lastSeen time.Time
}

// Sessions hands out one Store per browser. It's all in memory: restarting the server
// (or letting a session sit idle past IdleTTL) starts everyone over with fresh defaults.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
	IdleTTL  time.Duration
	// Cookies are Secure unless this is set (for plain-http development)
	InsecureCookies bool
	// Used for new sessions' random background colors. Nil means math/rand.
	ColorSource ColorSource
	now         func() time.Time
}

func NewSessions() *Sessions {
	return &Sessions{
		sessions: make(map[string]*session),
		IdleTTL:  DefaultSessionIdleTTL,
		now:      time.Now,
	}
}

// StoreFor returns the Store for the request's session, starting a new session (and
// setting its cookie) if the request doesn't have a live one.
func (s *Sessions) StoreFor(w http.ResponseWriter, r *http.Request) (*Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if cookie, err := r.Cookie(sessionIdCookieName); err == nil {
		if sess, ok := s.sessions[cookie.Value]; ok && now.Sub(sess.lastSeen) < s.IdleTTL {
			sess.lastSeen = now
			return sess.store, nil
		}
	}
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	sess := &session{store: NewStore(s.ColorSource), lastSeen: now}
	s.sessions[id] = sess
	s.saveSessionInCookie(w, id)
	return sess.store, nil
}

// Len is the number of sessions, live or not yet swept.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep forgets sessions that have been idle for longer than IdleTTL.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	swept := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) >= s.IdleTTL {
			delete(s.sessions, id)
			swept++
		}
	}
	return swept
}

func (s *Sessions) saveSessionInCookie(w http.ResponseWriter, id string) {
	cookie := http.Cookie{
		Name:     sessionIdCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   !s.InsecureCookies,
		SameSite: http.SameSiteStrictMode,
	}
	http.SetCookie(w, &cookie)
}

func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
