package audio

import "math/rand/v2"

// noPosition marks a queue with no current track.
const noPosition = -1

// Queue is an ordered list of tracks with a pointer to the one playing.
// It is not safe for concurrent use; the owning Session serializes access.
type Queue struct {
	tracks   []*Track
	position int
}

func NewQueue() *Queue {
	return &Queue{position: noPosition}
}

// Enqueue appends t and returns its 1-based position in the queue.
func (q *Queue) Enqueue(t *Track) int {
	q.tracks = append(q.tracks, t)
	return len(q.tracks)
}

// Current returns the track at the current position, or nil.
func (q *Queue) Current() *Track {
	if q.position == noPosition {
		return nil
	}
	return q.tracks[q.position]
}

// Position returns the current index, or -1 when nothing is current.
func (q *Queue) Position() int {
	return q.position
}

func (q *Queue) Len() int {
	return len(q.tracks)
}

func (q *Queue) Empty() bool {
	return len(q.tracks) == 0
}

// Start makes the first track current. It reports false if there is
// nothing to start or a track is already current.
func (q *Queue) Start() bool {
	if q.position != noPosition || len(q.tracks) == 0 {
		return false
	}
	q.position = 0
	return true
}

func (q *Queue) HasNext() bool {
	return q.position != noPosition && q.position+1 < len(q.tracks)
}

// Advance moves to the next track. It reports false, leaving the queue
// untouched, when there is no next track.
func (q *Queue) Advance() bool {
	if !q.HasNext() {
		return false
	}
	q.position++
	return true
}

// Shuffle permutes the tracks after the current one. The current track
// never moves. perm is expected to be a uniform Fisher-Yates shuffle such
// as rand.Shuffle; nil selects that default.
func (q *Queue) Shuffle(perm func(n int, swap func(i, j int))) {
	if perm == nil {
		perm = rand.Shuffle
	}
	start := q.position + 1
	if q.position == noPosition {
		start = 0
	}
	tail := q.tracks[start:]
	if len(tail) < 2 {
		return
	}
	perm(len(tail), func(i, j int) {
		tail[i], tail[j] = tail[j], tail[i]
	})
}

// List returns a copy of every track in playback order.
func (q *Queue) List() []*Track {
	return append([]*Track(nil), q.tracks...)
}

// Upcoming returns a copy of the tracks after the current one.
func (q *Queue) Upcoming() []*Track {
	if q.position == noPosition {
		return append([]*Track(nil), q.tracks...)
	}
	return append([]*Track(nil), q.tracks[q.position+1:]...)
}

func (q *Queue) Clear() {
	q.tracks = nil
	q.position = noPosition
}
