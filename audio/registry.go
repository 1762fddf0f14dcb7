package audio

import "sync"

// Registry maps guild IDs to their single live Session.
//
// Lock order is session before registry: the registry never takes a
// session lock while holding its own.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session // guildID → Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the guild's session, creating an idle one if needed.
func (r *Registry) GetOrCreate(guildID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok {
		return s
	}
	s := newSession(guildID)
	r.sessions[guildID] = s
	return s
}

func (r *Registry) Get(guildID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[guildID]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// All returns the live sessions in no particular order.
func (r *Registry) All() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// acquire returns the guild's live session with its lock held. A session
// evicted while we waited for its lock is skipped, so the caller always
// holds the one registered session. The caller must unlock.
func (r *Registry) acquire(guildID string, create bool) (*Session, bool) {
	for {
		var s *Session
		if create {
			s = r.GetOrCreate(guildID)
		} else {
			var ok bool
			if s, ok = r.Get(guildID); !ok {
				return nil, false
			}
		}

		s.mu.Lock()
		if !s.evicted {
			return s, true
		}
		s.mu.Unlock()
	}
}

// evict is the only way a session leaves the registry. It marks s dead and
// drops it from the map if still registered. The caller must hold s.mu.
func (r *Registry) evict(s *Session) {
	s.evicted = true
	s.cancelIdle()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[s.guildID] == s {
		delete(r.sessions, s.guildID)
	}
}
