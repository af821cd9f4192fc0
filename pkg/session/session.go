// Package session holds the short-lived resolution sessions users pick a
// candidate from. The store is an explicit, injectable dependency rather than
// a process-wide global so tests can run isolated instances and multiple
// resolution requests can share one safely. Entries are evicted lazily on
// lookup and periodically by the cache janitor; eviction never touches
// already-persisted canonical links.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"SongVault-Go/pkg/match"
	"SongVault-Go/pkg/metrics"
	"SongVault-Go/pkg/music"
)

// Lookup failures. An expired session is reported distinctly from an unknown
// token so callers can tell the user to re-search rather than suspect a bug.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// DefaultTTL bounds how long a user has to pick a candidate.
const DefaultTTL = 10 * time.Minute

// Session is the ranked result set issued by one resolution. Groups are
// immutable once the session is created.
type Session struct {
	Token     string                 `json:"session_token"`
	Query     music.Query            `json:"query"`
	Groups    []match.CandidateGroup `json:"groups"`
	CreatedAt time.Time              `json:"created_at"`
	ExpiresAt time.Time              `json:"expires_at"`
}

// Store issues and resolves session tokens. Safe for concurrent use.
type Store struct {
	ttl   time.Duration
	cache *gocache.Cache
	now   func() time.Time
}

// NewStore returns a store whose sessions live for ttl (DefaultTTL when
// zero). Expired entries linger one extra TTL in the cache so lookups can
// report expiry before the janitor removes them for good.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:   ttl,
		cache: gocache.New(2*ttl, ttl),
		now:   time.Now,
	}
}

// Create stores the ranked groups under a fresh unguessable token and returns
// the session handed back to the caller.
func (s *Store) Create(q music.Query, groups []match.CandidateGroup) (Session, error) {
	token, err := randomToken(24)
	if err != nil {
		return Session{}, err
	}
	now := s.now()
	sess := Session{
		Token:     token,
		Query:     q,
		Groups:    groups,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.cache.Set(token, sess, gocache.DefaultExpiration)
	metrics.SessionsActive.Set(float64(s.activeCount()))
	return sess, nil
}

// activeCount counts sessions that have not passed their own ExpiresAt.
// Expired entries linger in the cache until the janitor runs, so the raw
// item count would overstate the gauge.
func (s *Store) activeCount() int {
	n := 0
	now := s.now()
	for _, item := range s.cache.Items() {
		if sess, ok := item.Object.(Session); ok && now.Before(sess.ExpiresAt) {
			n++
		}
	}
	return n
}

// Lookup returns the session for token. ErrSessionNotFound is returned for
// unknown tokens, ErrSessionExpired once the TTL has passed; an expired
// session is deleted on sight.
func (s *Store) Lookup(token string) (Session, error) {
	v, ok := s.cache.Get(token)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	sess := v.(Session)
	if s.now().After(sess.ExpiresAt) {
		s.cache.Delete(token)
		metrics.SessionsActive.Set(float64(s.activeCount()))
		return Session{}, ErrSessionExpired
	}
	return sess, nil
}

// randomToken returns a URL-safe base64 string with n bytes of entropy, used
// for generating non-guessable session tokens.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
