package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultIdleTimeout is how long a session may sit alone in its channel.
const DefaultIdleTimeout = 30 * time.Second

// Player applies user intents and transport events to guild sessions.
type Player struct {
	registry    *Registry
	resolver    Resolver
	connector   Connector
	notifier    Notifier
	idleTimeout time.Duration
	shuffle     func(n int, swap func(i, j int))
	logger      *zap.Logger
}

type Options struct {
	IdleTimeout time.Duration
	// Shuffle permutes n elements; nil means rand.Shuffle.
	Shuffle func(n int, swap func(i, j int))
}

func NewPlayer(registry *Registry, resolver Resolver, connector Connector, notifier Notifier, logger *zap.Logger, opts Options) *Player {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	return &Player{
		registry:    registry,
		resolver:    resolver,
		connector:   connector,
		notifier:    notifier,
		idleTimeout: opts.IdleTimeout,
		shuffle:     opts.Shuffle,
		logger:      logger,
	}
}

// PlayRequest carries a play intent. VoiceChannelID is the requester's
// current voice channel, empty when they are not in one.
type PlayRequest struct {
	GuildID        string
	TextChannelID  string
	RequesterID    string
	VoiceChannelID string
	Query          string
}

// Result is what an intent reports back for rendering.
type Result struct {
	Track    *Track
	Queued   int // 1-based position assigned by a play intent
	Started  bool
	Snapshot Snapshot
}

func (p *Player) Play(ctx context.Context, req PlayRequest) (Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Result{}, ErrEmptyQuery
	}
	if req.VoiceChannelID == "" {
		return Result{}, ErrNoVoiceChannel
	}

	var notify func()
	defer func() {
		if notify != nil {
			notify()
		}
	}()

	s, _ := p.registry.acquire(req.GuildID, true)
	defer s.mu.Unlock()
	log := p.sessionLogger(s)

	track, err := p.resolver.Resolve(ctx, query)
	if err != nil {
		log.Warn("Resolve failed", zap.String("query", query), zap.Error(err))
		p.discardIfIdle(s)
		return Result{}, fmt.Errorf("%w: %w", ErrResolutionFailed, err)
	}
	track = track.WithRequester(req.RequesterID)

	if s.state.Connected() {
		pos := s.queue.Enqueue(track)
		p.touch(s)
		log.Info("Track queued", zap.String("track", track.Title), zap.Int("position", pos))
		return Result{Track: track, Queued: pos, Snapshot: s.snapshot()}, nil
	}

	handle, err := p.connector.Connect(ctx, req.GuildID, req.VoiceChannelID)
	if err != nil {
		log.Error("Voice connect failed", zap.String("channel_id", req.VoiceChannelID), zap.Error(err))
		p.discardIfIdle(s)
		return Result{}, fmt.Errorf("join voice channel: %w", err)
	}

	s.cancelIdle()
	s.voice = handle
	s.alone = false
	s.textChannelID = req.TextChannelID
	s.queue.Clear()
	pos := s.queue.Enqueue(track)
	s.queue.Start()
	s.state = StatePlaying

	if err := p.render(s); err != nil {
		log.Error("Failed to start playback", zap.String("track", track.Title), zap.Error(err))
		p.teardown(s)
		return Result{}, fmt.Errorf("start playback: %w", err)
	}

	log.Info("Playback started", zap.String("track", track.Title), zap.String("channel_id", handle.ChannelID()))
	snap := s.snapshot()
	text := s.textChannelID
	notify = func() { p.notifier.TrackStarted(text, snap) }
	return Result{Track: track, Queued: pos, Started: true, Snapshot: snap}, nil
}

func (p *Player) Skip(ctx context.Context, guildID string) (Result, error) {
	s, err := p.connected(guildID)
	if err != nil {
		return Result{}, err
	}
	defer s.mu.Unlock()

	if !s.queue.Advance() {
		return Result{Snapshot: s.snapshot()}, ErrNoNextTrack
	}
	if err := p.render(s); err != nil {
		p.sessionLogger(s).Error("Skip failed to render", zap.Error(err))
		p.teardown(s)
		return Result{}, fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	p.touch(s)

	snap := s.snapshot()
	p.sessionLogger(s).Info("Skipped", zap.String("track", snap.NowPlaying.Title))
	return Result{Track: snap.NowPlaying, Snapshot: snap}, nil
}

func (p *Player) Pause(ctx context.Context, guildID string) (Result, error) {
	s, err := p.connected(guildID)
	if err != nil {
		return Result{}, err
	}
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return Result{Snapshot: s.snapshot()}, ErrNotPlaying
	}
	s.voice.Pause()
	s.state = StatePaused
	p.touch(s)
	return Result{Track: s.queue.Current(), Snapshot: s.snapshot()}, nil
}

func (p *Player) Resume(ctx context.Context, guildID string) (Result, error) {
	s, err := p.connected(guildID)
	if err != nil {
		return Result{}, err
	}
	defer s.mu.Unlock()

	if s.state != StatePaused {
		return Result{Snapshot: s.snapshot()}, ErrNotPaused
	}
	s.voice.Resume()
	s.state = StatePlaying
	p.touch(s)
	return Result{Track: s.queue.Current(), Snapshot: s.snapshot()}, nil
}

func (p *Player) Shuffle(ctx context.Context, guildID string) (Result, error) {
	s, err := p.connected(guildID)
	if err != nil {
		return Result{}, err
	}
	defer s.mu.Unlock()

	s.queue.Shuffle(p.shuffle)
	p.touch(s)
	return Result{Track: s.queue.Current(), Snapshot: s.snapshot()}, nil
}

// Stop releases the voice connection and evicts the session. The result
// holds the snapshot taken just before teardown.
func (p *Player) Stop(ctx context.Context, guildID string) (Result, error) {
	s, ok := p.registry.acquire(guildID, false)
	if !ok {
		return Result{}, ErrNotConnected
	}
	defer s.mu.Unlock()

	before := s.snapshot()
	wasConnected := s.state.Connected()
	p.teardown(s)
	if !wasConnected {
		return Result{}, ErrNotConnected
	}
	p.sessionLogger(s).Info("Stopped")
	return Result{Track: before.NowPlaying, Snapshot: before}, nil
}

// NowPlaying returns the current snapshot of a guild with a current track.
func (p *Player) NowPlaying(guildID string) (Snapshot, error) {
	s, ok := p.registry.acquire(guildID, false)
	if !ok {
		return Snapshot{}, ErrNotPlaying
	}
	defer s.mu.Unlock()

	if s.queue.Current() == nil {
		return Snapshot{}, ErrNotPlaying
	}
	return s.snapshot(), nil
}

// Snapshots lists every live session.
func (p *Player) Snapshots() []Snapshot {
	sessions := p.registry.All()
	out := make([]Snapshot, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		if !s.evicted {
			out = append(out, s.snapshot())
		}
		s.mu.Unlock()
	}
	return out
}

// MembershipChanged reports the member count (bot included) of a voice
// channel in a guild. A session left alone in its channel is stopped after
// the idle timeout unless somebody comes back first.
func (p *Player) MembershipChanged(guildID, channelID string, members int) {
	s, ok := p.registry.acquire(guildID, false)
	if !ok {
		return
	}
	defer s.mu.Unlock()

	if !s.state.Connected() || s.voice.ChannelID() != channelID {
		return
	}

	s.alone = members <= 1
	if s.alone {
		p.sessionLogger(s).Debug("Alone in voice channel, arming idle timer", zap.Duration("timeout", p.idleTimeout))
		p.armIdle(s)
		return
	}
	s.cancelIdle()
}

// ConnectionLost tears down a guild whose transport to channelID dropped
// underneath it. Reports about any other channel are stale and ignored.
func (p *Player) ConnectionLost(guildID, channelID string, cause error) {
	var notify func()
	defer func() {
		if notify != nil {
			notify()
		}
	}()

	s, ok := p.registry.acquire(guildID, false)
	if !ok {
		return
	}
	defer s.mu.Unlock()

	if !s.state.Connected() || s.voice.ChannelID() != channelID {
		return
	}
	p.sessionLogger(s).Warn("Voice connection lost", zap.Error(cause))
	text := s.textChannelID
	p.teardown(s)
	err := ErrConnectionLost
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrConnectionLost, cause)
	}
	notify = func() { p.notifier.ConnectionLost(text, err) }
}

// Shutdown releases every voice handle and empties the registry.
func (p *Player) Shutdown() {
	for _, s := range p.registry.All() {
		s.mu.Lock()
		if !s.evicted {
			p.teardown(s)
		}
		s.mu.Unlock()
	}
	p.logger.Info("All playback sessions released")
}

func (p *Player) connected(guildID string) (*Session, error) {
	s, ok := p.registry.acquire(guildID, false)
	if !ok {
		return nil, ErrNotConnected
	}
	if !s.state.Connected() {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	return s, nil
}

// render starts the current track on the session's voice handle.
func (p *Player) render(s *Session) error {
	s.epoch++
	epoch := s.epoch
	return s.voice.Play(s.queue.Current(), func(err error) {
		p.trackEnded(s, epoch, err)
	})
}

func (p *Player) trackEnded(s *Session, epoch uint64, cause error) {
	var notify func()
	defer func() {
		if notify != nil {
			notify()
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.evicted || s.epoch != epoch || !s.state.Connected() {
		return
	}
	log := p.sessionLogger(s)
	text := s.textChannelID

	if errors.Is(cause, ErrConnectionLost) {
		log.Warn("Voice connection lost during playback", zap.Error(cause))
		p.teardown(s)
		notify = func() { p.notifier.ConnectionLost(text, cause) }
		return
	}
	if cause != nil {
		log.Warn("Track ended with error, advancing", zap.Error(cause))
	}

	if s.queue.Advance() {
		if err := p.render(s); err != nil {
			log.Error("Failed to start next track", zap.Error(err))
			p.teardown(s)
			notify = func() { p.notifier.ConnectionLost(text, fmt.Errorf("%w: %w", ErrConnectionLost, err)) }
			return
		}
		snap := s.snapshot()
		notify = func() { p.notifier.TrackStarted(text, snap) }
		return
	}

	log.Info("Queue exhausted")
	p.release(s)
	s.queue.Clear()
	s.state = StateIdle
	s.alone = false
	s.epoch++
	p.armIdle(s)
	notify = func() { p.notifier.QueueFinished(text) }
}

func (p *Player) armIdle(s *Session) {
	s.startIdle(p.idleTimeout, func(epoch uint64) {
		p.idleFired(s, epoch)
	})
}

func (p *Player) idleFired(s *Session, epoch uint64) {
	var notify func()
	defer func() {
		if notify != nil {
			notify()
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.evicted || s.idleEpoch != epoch {
		return
	}
	s.idle = nil

	if !s.state.Connected() {
		p.sessionLogger(s).Debug("Evicting unused idle session")
		p.teardown(s)
		return
	}
	if !s.alone {
		return
	}

	p.sessionLogger(s).Info("Disconnecting after inactivity", zap.Duration("timeout", p.idleTimeout))
	text := s.textChannelID
	p.teardown(s)
	notify = func() { p.notifier.InactivityDisconnect(text) }
}

// touch restarts the idle countdown after a mutating intent so a timer
// armed before the change never fires against the changed session.
func (p *Player) touch(s *Session) {
	if s.alone && s.state.Connected() {
		p.armIdle(s)
		return
	}
	s.cancelIdle()
}

// discardIfIdle evicts a session that holds nothing worth keeping.
func (p *Player) discardIfIdle(s *Session) {
	if s.state == StateIdle && s.voice == nil {
		p.registry.evict(s)
	}
}

// teardown is the terminal transition shared by stop, inactivity and
// connection loss.
func (p *Player) teardown(s *Session) {
	s.cancelIdle()
	p.release(s)
	s.queue.Clear()
	s.state = StateStopped
	s.alone = false
	s.epoch++
	p.registry.evict(s)
}

func (p *Player) release(s *Session) {
	if s.voice == nil {
		return
	}
	if err := s.voice.Disconnect(); err != nil {
		p.sessionLogger(s).Warn("Voice disconnect failed", zap.Error(err))
	}
	s.voice = nil
}

func (p *Player) sessionLogger(s *Session) *zap.Logger {
	return p.logger.With(zap.String("guild_id", s.guildID), zap.String("session_id", s.id))
}
