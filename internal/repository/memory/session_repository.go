package memory

import (
	"time"

	"prompt-optimiser-be/pkg/optimiser/session"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps live sessions in process memory with a sliding expiry.
// An evicted or deleted session is closed so its debounce cannot fire afterwards.
type SessionRepository struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := cache.New(ttl, 10*time.Minute)
	c.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*session.Session); ok {
			s.Close()
		}
	})
	return &SessionRepository{cache: c, ttl: ttl}
}

func (r *SessionRepository) Save(s *session.Session) {
	r.cache.Set(s.ID(), s, cache.DefaultExpiration)
}

// Get returns the session and pushes its expiry forward. The refresh is keyed by
// the session's own id: sessionID may alias a request buffer that is reused later.
func (r *SessionRepository) Get(sessionID string) (*session.Session, bool) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	s := x.(*session.Session)
	r.cache.Set(s.ID(), s, cache.DefaultExpiration)
	return s, true
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
