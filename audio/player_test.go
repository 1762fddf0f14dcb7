package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testGuild = "g1"
	testVoice = "voice1"
	testText  = "text1"
)

type harness struct {
	player    *Player
	registry  *Registry
	resolver  *fakeResolver
	connector *fakeConnector
	notifier  *recordingNotifier
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		registry:  NewRegistry(),
		resolver:  &fakeResolver{fail: map[string]error{}},
		connector: &fakeConnector{},
		notifier:  &recordingNotifier{},
	}
	h.player = NewPlayer(h.registry, h.resolver, h.connector, h.notifier, zap.NewNop(), opts)
	t.Cleanup(h.player.Shutdown)
	return h
}

func (h *harness) play(t *testing.T, query string) Result {
	t.Helper()
	res, err := h.player.Play(context.Background(), PlayRequest{
		GuildID:        testGuild,
		TextChannelID:  testText,
		RequesterID:    "u1",
		VoiceChannelID: testVoice,
		Query:          query,
	})
	require.NoError(t, err)
	return res
}

func (h *harness) state(t *testing.T) State {
	t.Helper()
	s, ok := h.registry.Get(testGuild)
	require.True(t, ok, "session should exist")
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func TestPlayQueueSkipStop(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	first := h.play(t, "A")
	assert.True(t, first.Started)
	assert.Equal(t, 1, first.Queued)
	assert.Equal(t, "u1", first.Track.RequestedBy)
	assert.Equal(t, StatePlaying, first.Snapshot.State)

	second := h.play(t, "B")
	assert.False(t, second.Started)
	assert.Equal(t, 2, second.Queued)
	assert.Equal(t, 1, h.connector.count(), "enqueue on a live session reuses the connection")

	handle := h.connector.last()
	assert.Equal(t, []string{"A"}, handle.titles())

	skipped, err := h.player.Skip(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, "B", skipped.Track.Title)
	assert.Equal(t, 2, skipped.Snapshot.Position)
	assert.Equal(t, []string{"A", "B"}, handle.titles())

	res, err := h.player.Skip(ctx, testGuild)
	assert.ErrorIs(t, err, ErrNoNextTrack)
	assert.Equal(t, "B", res.Snapshot.NowPlaying.Title)
	assert.Equal(t, StatePlaying, h.state(t))

	stopped, err := h.player.Stop(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, "B", stopped.Track.Title)
	assert.Equal(t, 1, handle.disconnects())
	assert.Equal(t, 0, h.registry.Len())

	_, err = h.player.Stop(ctx, testGuild)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, 1, handle.disconnects(), "double stop releases once")

	assert.Equal(t, []string{"started:A@text1"}, h.notifier.snapshot())
}

func TestPauseResume(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	h.play(t, "A")
	handle := h.connector.last()

	res, err := h.player.Pause(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, res.Snapshot.State)
	assert.True(t, handle.isPaused())
	assert.Equal(t, ControlResume, res.Snapshot.Controls()[0].ID)

	_, err = h.player.Pause(ctx, testGuild)
	assert.ErrorIs(t, err, ErrNotPlaying)

	res, err = h.player.Resume(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, StatePlaying, res.Snapshot.State)
	assert.False(t, handle.isPaused())

	_, err = h.player.Resume(ctx, testGuild)
	assert.ErrorIs(t, err, ErrNotPaused)
}

func TestSkipDoesNotUnpause(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	h.play(t, "A")
	h.play(t, "B")

	_, err := h.player.Pause(ctx, testGuild)
	require.NoError(t, err)

	res, err := h.player.Skip(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, res.Snapshot.State)
	assert.Equal(t, "B", res.Track.Title)
}

func TestIntentsWithoutSession(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	intents := map[string]func() (Result, error){
		"skip":    func() (Result, error) { return h.player.Skip(ctx, testGuild) },
		"pause":   func() (Result, error) { return h.player.Pause(ctx, testGuild) },
		"resume":  func() (Result, error) { return h.player.Resume(ctx, testGuild) },
		"shuffle": func() (Result, error) { return h.player.Shuffle(ctx, testGuild) },
		"stop":    func() (Result, error) { return h.player.Stop(ctx, testGuild) },
	}
	for name, intent := range intents {
		t.Run(name, func(t *testing.T) {
			_, err := intent()
			assert.ErrorIs(t, err, ErrNotConnected)
		})
	}

	_, err := h.player.NowPlaying(testGuild)
	assert.ErrorIs(t, err, ErrNotPlaying)
	assert.Equal(t, 0, h.registry.Len())
}

func TestPlayValidation(t *testing.T) {
	h := newHarness(t, Options{})

	_, err := h.player.Play(context.Background(), PlayRequest{GuildID: testGuild, VoiceChannelID: testVoice, Query: "  "})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = h.player.Play(context.Background(), PlayRequest{GuildID: testGuild, Query: "A"})
	assert.ErrorIs(t, err, ErrNoVoiceChannel)

	assert.Equal(t, 0, h.registry.Len())
	assert.Equal(t, 0, h.connector.count())
}

func TestResolutionFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.resolver.fail["bad"] = errors.New("not found")

	_, err := h.player.Play(context.Background(), PlayRequest{GuildID: testGuild, VoiceChannelID: testVoice, Query: "bad"})
	assert.ErrorIs(t, err, ErrResolutionFailed)
	assert.Equal(t, 0, h.registry.Len(), "a failed first play leaves no session behind")
	assert.Equal(t, 0, h.connector.count())

	h.play(t, "A")
	h.play(t, "B")
	_, err = h.player.Play(context.Background(), PlayRequest{GuildID: testGuild, VoiceChannelID: testVoice, Query: "bad"})
	assert.ErrorIs(t, err, ErrResolutionFailed)

	snap, err := h.player.NowPlaying(testGuild)
	require.NoError(t, err)
	assert.Equal(t, "A", snap.NowPlaying.Title)
	assert.Equal(t, 2, snap.Length, "existing queue untouched")
}

func TestConnectFailureEvictsSession(t *testing.T) {
	h := newHarness(t, Options{})
	h.connector.err = errors.New("missing permissions")

	_, err := h.player.Play(context.Background(), PlayRequest{GuildID: testGuild, VoiceChannelID: testVoice, Query: "A"})
	assert.Error(t, err)
	assert.Equal(t, 0, h.registry.Len())
}

func TestTrackFinishedAdvancesThenExhausts(t *testing.T) {
	h := newHarness(t, Options{IdleTimeout: 30 * time.Millisecond})
	h.play(t, "A")
	h.play(t, "B")
	handle := h.connector.last()

	handle.finishCurrent(nil)
	assert.Equal(t, []string{"A", "B"}, handle.titles())
	assert.Equal(t, StatePlaying, h.state(t))

	handle.finishCurrent(nil)
	assert.Equal(t, StateIdle, h.state(t), "exhausted session stays registered")
	assert.Equal(t, 1, handle.disconnects())
	assert.Equal(t, []string{"started:A@text1", "started:B@text1", "finished@text1"}, h.notifier.snapshot())

	assert.Eventually(t, func() bool { return h.registry.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, h.notifier.count("inactive@text1"), "evicting an idle session is silent")
}

func TestPlayAfterExhaustionReconnects(t *testing.T) {
	h := newHarness(t, Options{IdleTimeout: time.Hour})
	h.play(t, "A")
	h.connector.last().finishCurrent(nil)
	require.Equal(t, StateIdle, h.state(t))

	res := h.play(t, "B")
	assert.True(t, res.Started)
	assert.Equal(t, 1, res.Queued)
	assert.Equal(t, 2, h.connector.count())
	assert.Equal(t, StatePlaying, h.state(t))
}

func TestStaleTrackEndIsIgnored(t *testing.T) {
	h := newHarness(t, Options{})
	h.play(t, "A")
	h.play(t, "B")
	h.play(t, "C")
	handle := h.connector.last()

	_, err := h.player.Skip(context.Background(), testGuild)
	require.NoError(t, err)

	// A was cut by the skip; a late completion for it must not advance.
	handle.finish(0, nil)

	snap, err := h.player.NowPlaying(testGuild)
	require.NoError(t, err)
	assert.Equal(t, "B", snap.NowPlaying.Title)
	assert.Equal(t, []string{"A", "B"}, handle.titles())
}

func TestTrackEndedWithConnectionLost(t *testing.T) {
	h := newHarness(t, Options{})
	h.play(t, "A")
	h.play(t, "B")
	handle := h.connector.last()

	handle.finishCurrent(fmt.Errorf("%w: opus send timed out", ErrConnectionLost))

	assert.Equal(t, 0, h.registry.Len())
	assert.Equal(t, 1, handle.disconnects())
	assert.Equal(t, 1, h.notifier.count("lost@text1"))
}

func TestConnectionLost(t *testing.T) {
	h := newHarness(t, Options{})
	h.play(t, "A")
	handle := h.connector.last()

	h.player.ConnectionLost(testGuild, "other-channel", nil)
	assert.Equal(t, 1, h.registry.Len(), "report about another channel is ignored")

	h.player.ConnectionLost(testGuild, testVoice, nil)
	assert.Equal(t, 0, h.registry.Len())
	assert.Equal(t, 1, handle.disconnects())
	require.Equal(t, 1, h.notifier.count("lost@text1"))
	assert.ErrorIs(t, h.notifier.errs[0], ErrConnectionLost)

	h.player.ConnectionLost(testGuild, testVoice, nil)
	assert.Equal(t, 1, h.notifier.count("lost@text1"))
}

func TestIdleTimeoutWhenAlone(t *testing.T) {
	h := newHarness(t, Options{IdleTimeout: 20 * time.Millisecond})
	h.play(t, "A")
	handle := h.connector.last()

	h.player.MembershipChanged(testGuild, testVoice, 1)

	assert.Eventually(t, func() bool { return h.registry.Len() == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, h.notifier.count("inactive@text1"), "inactivity is reported exactly once")
	assert.Equal(t, 1, handle.disconnects())
}

func TestMembershipChangeCancelsIdleTimer(t *testing.T) {
	h := newHarness(t, Options{IdleTimeout: 30 * time.Millisecond})
	h.play(t, "A")

	h.player.MembershipChanged(testGuild, testVoice, 1)
	h.player.MembershipChanged(testGuild, testVoice, 2)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, StatePlaying, h.state(t))
	assert.Equal(t, 0, h.notifier.count("inactive@text1"))
}

func TestMembershipChangeForOtherChannelIgnored(t *testing.T) {
	h := newHarness(t, Options{IdleTimeout: 20 * time.Millisecond})
	h.play(t, "A")

	h.player.MembershipChanged(testGuild, "elsewhere", 1)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, StatePlaying, h.state(t))
}

func TestStopCancelsIdleTimer(t *testing.T) {
	h := newHarness(t, Options{IdleTimeout: 20 * time.Millisecond})
	h.play(t, "A")
	h.player.MembershipChanged(testGuild, testVoice, 1)

	_, err := h.player.Stop(context.Background(), testGuild)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, h.notifier.count("inactive@text1"))
}

func TestShuffleKeepsCurrentTrack(t *testing.T) {
	reverse := func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	h := newHarness(t, Options{Shuffle: reverse})
	for _, q := range []string{"A", "B", "C", "D"} {
		h.play(t, q)
	}

	res, err := h.player.Shuffle(context.Background(), testGuild)
	require.NoError(t, err)

	assert.Equal(t, "A", res.Snapshot.NowPlaying.Title)
	var upcoming []string
	for _, tr := range res.Snapshot.Upcoming {
		upcoming = append(upcoming, tr.Title)
	}
	assert.Equal(t, []string{"D", "C", "B"}, upcoming)
}

func TestConcurrentPlaysShareOneSession(t *testing.T) {
	h := newHarness(t, Options{})
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.player.Play(context.Background(), PlayRequest{
				GuildID:        testGuild,
				TextChannelID:  testText,
				VoiceChannelID: testVoice,
				Query:          fmt.Sprintf("T%d", i),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, h.registry.Len())
	assert.Equal(t, 1, h.connector.count())

	snap, err := h.player.NowPlaying(testGuild)
	require.NoError(t, err)
	assert.Equal(t, n, snap.Length)
}

func TestGuildsAreIndependent(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	for _, g := range []string{"g1", "g2"} {
		_, err := h.player.Play(ctx, PlayRequest{GuildID: g, VoiceChannelID: testVoice, Query: "A"})
		require.NoError(t, err)
	}

	_, err := h.player.Stop(ctx, "g1")
	require.NoError(t, err)

	snap, err := h.player.NowPlaying("g2")
	require.NoError(t, err)
	assert.Equal(t, StatePlaying, snap.State)
	assert.Len(t, h.player.Snapshots(), 1)
}

func TestShutdownReleasesEverything(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	for _, g := range []string{"g1", "g2", "g3"} {
		_, err := h.player.Play(ctx, PlayRequest{GuildID: g, VoiceChannelID: testVoice, Query: "A"})
		require.NoError(t, err)
	}

	h.player.Shutdown()

	assert.Equal(t, 0, h.registry.Len())
	for _, handle := range h.connector.handles {
		assert.Equal(t, 1, handle.disconnects())
	}
}

func TestRenderFailureTearsDown(t *testing.T) {
	h := newHarness(t, Options{})
	h.play(t, "A")
	h.play(t, "B")
	handle := h.connector.last()
	handle.mu.Lock()
	handle.playErr = errors.New("ffmpeg missing")
	handle.mu.Unlock()

	_, err := h.player.Skip(context.Background(), testGuild)
	assert.ErrorIs(t, err, ErrConnectionLost)
	assert.Equal(t, 0, h.registry.Len())
}
