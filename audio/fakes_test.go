package audio

import (
	"context"
	"fmt"
	"sync"
)

type fakeHandle struct {
	mu           sync.Mutex
	channelID    string
	played       []*Track
	dones        []func(error)
	paused       bool
	disconnected int
	playErr      error
}

func (h *fakeHandle) ChannelID() string {
	return h.channelID
}

func (h *fakeHandle) Play(track *Track, done func(error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.playErr != nil {
		return h.playErr
	}
	h.played = append(h.played, track)
	h.dones = append(h.dones, done)
	return nil
}

func (h *fakeHandle) Pause() {
	h.mu.Lock()
	h.paused = true
	h.mu.Unlock()
}

func (h *fakeHandle) Resume() {
	h.mu.Lock()
	h.paused = false
	h.mu.Unlock()
}

func (h *fakeHandle) Disconnect() error {
	h.mu.Lock()
	h.disconnected++
	h.mu.Unlock()
	return nil
}

// finish reports the end of the i-th rendered track, as the streamer
// would from its own goroutine.
func (h *fakeHandle) finish(i int, err error) {
	h.mu.Lock()
	done := h.dones[i]
	h.mu.Unlock()
	done(err)
}

// finishCurrent ends the most recently rendered track.
func (h *fakeHandle) finishCurrent(err error) {
	h.mu.Lock()
	i := len(h.dones) - 1
	h.mu.Unlock()
	h.finish(i, err)
}

func (h *fakeHandle) titles() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.played))
	for _, t := range h.played {
		out = append(out, t.Title)
	}
	return out
}

func (h *fakeHandle) disconnects() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disconnected
}

func (h *fakeHandle) isPaused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

type fakeConnector struct {
	mu      sync.Mutex
	handles []*fakeHandle
	err     error
}

func (c *fakeConnector) Connect(ctx context.Context, guildID, channelID string) (VoiceHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	h := &fakeHandle{channelID: channelID}
	c.handles = append(c.handles, h)
	return h, nil
}

func (c *fakeConnector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}

func (c *fakeConnector) last() *fakeHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handles[len(c.handles)-1]
}

type fakeResolver struct {
	mu    sync.Mutex
	fail  map[string]error
	calls int
}

func (r *fakeResolver) Resolve(ctx context.Context, query string) (*Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if err := r.fail[query]; err != nil {
		return nil, err
	}
	return &Track{Title: query, URL: "https://example.com/" + query}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
	errs   []error
}

func (n *recordingNotifier) record(event string) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *recordingNotifier) TrackStarted(textChannelID string, snap Snapshot) {
	n.record(fmt.Sprintf("started:%s@%s", snap.NowPlaying.Title, textChannelID))
}

func (n *recordingNotifier) QueueFinished(textChannelID string) {
	n.record("finished@" + textChannelID)
}

func (n *recordingNotifier) InactivityDisconnect(textChannelID string) {
	n.record("inactive@" + textChannelID)
}

func (n *recordingNotifier) ConnectionLost(textChannelID string, err error) {
	n.mu.Lock()
	n.errs = append(n.errs, err)
	n.mu.Unlock()
	n.record("lost@" + textChannelID)
}

func (n *recordingNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func (n *recordingNotifier) count(event string) int {
	c := 0
	for _, e := range n.snapshot() {
		if e == event {
			c++
		}
	}
	return c
}
