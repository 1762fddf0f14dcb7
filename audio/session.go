package audio

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the playback state of one guild. Every field is guarded by mu,
// which is held for the whole of an intent, including the resolver and
// voice calls it makes, so intents for one guild never interleave.
type Session struct {
	mu sync.Mutex

	id            string
	guildID       string
	textChannelID string

	queue *Queue
	state State
	voice VoiceHandle
	alone bool

	// epoch changes whenever the rendering track changes; track-end
	// callbacks carrying an older epoch are ignored.
	epoch uint64

	idle      *time.Timer
	idleEpoch uint64

	evicted bool
}

func newSession(guildID string) *Session {
	return &Session{
		id:      uuid.NewString(),
		guildID: guildID,
		queue:   NewQueue(),
		state:   StateIdle,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) GuildID() string {
	return s.guildID
}

// Snapshot is the read-only view handed to the control surface.
type Snapshot struct {
	GuildID    string
	SessionID  string
	State      State
	NowPlaying *Track
	Position   int // 1-based, 0 when nothing is current
	Length     int
	HasNext    bool
	Upcoming   []*Track
}

// Controls returns the affordances matching this snapshot.
func (snap Snapshot) Controls() []Control {
	return Controls(snap.State, snap.HasNext)
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		GuildID:    s.guildID,
		SessionID:  s.id,
		State:      s.state,
		NowPlaying: s.queue.Current(),
		Position:   s.queue.Position() + 1,
		Length:     s.queue.Len(),
		HasNext:    s.queue.HasNext(),
		Upcoming:   s.queue.Upcoming(),
	}
}

// cancelIdle stops a pending idle timer. Bumping idleEpoch also defuses a
// callback that already fired and is waiting for mu.
func (s *Session) cancelIdle() {
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	s.idleEpoch++
}

func (s *Session) startIdle(d time.Duration, fire func(epoch uint64)) {
	s.cancelIdle()
	epoch := s.idleEpoch
	s.idle = time.AfterFunc(d, func() { fire(epoch) })
}
