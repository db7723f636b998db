package memory

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"derm-triage-be/pkg/store"
)

// SessionRepository keeps active patient sessions in memory with an idle TTL.
// Every mutating operation on a session must run under Lock(sessionID):
// turns for the same session are serialized, and a racing delete either waits
// for the in-flight operation or wins, in which case the next Get observes
// the deletion. A deleted session is never resurrected because Save is only
// reached after a successful Get under the same lock.
type SessionRepository struct {
	cache *cache.Cache

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionRepository(idleTTL, purgeInterval time.Duration) *SessionRepository {
	r := &SessionRepository{
		cache: cache.New(idleTTL, purgeInterval),
		locks: make(map[string]*sync.Mutex),
	}
	// Idle-timeout eviction destroys the session; its lock entry must go with
	// it or the registry grows by one entry per expired session.
	r.cache.OnEvicted(func(sessionID string, _ interface{}) {
		r.mu.Lock()
		delete(r.locks, sessionID)
		r.mu.Unlock()
	})
	return r
}

// Lock acquires the per-session mutex and returns the unlock function.
func (r *SessionRepository) Lock(sessionID string) func() {
	r.mu.Lock()
	m, ok := r.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		r.locks[sessionID] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (r *SessionRepository) Save(session *store.Session) {
	session.UpdatedAt = time.Now()
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)

	r.mu.Lock()
	delete(r.locks, sessionID)
	r.mu.Unlock()
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
