package vc

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"jukebox/audio"
)

// VoiceManager joins voice channels and tracks the open connection of each
// guild. It is the audio.Connector used in production.
type VoiceManager struct {
	session *discordgo.Session
	logger  *zap.Logger

	mu          sync.RWMutex
	connections map[string]*Handle // guildID → open handle
}

var _ audio.Connector = (*VoiceManager)(nil)

func NewVoiceManager(s *discordgo.Session, logger *zap.Logger) *VoiceManager {
	return &VoiceManager{
		session:     s,
		logger:      logger,
		connections: make(map[string]*Handle),
	}
}

// Connect joins the voice channel and stores the connection.
func (vm *VoiceManager) Connect(ctx context.Context, guildID, channelID string) (audio.VoiceHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := vm.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("channel voice join: %w", err)
	}

	h := &Handle{
		guildID: guildID,
		conn:    audio.NewConnection(vc, vm.logger.With(zap.String("guild_id", guildID))),
		manager: vm,
	}

	vm.mu.Lock()
	vm.connections[guildID] = h
	vm.mu.Unlock()

	vm.logger.Info("Joined voice channel", zap.String("guild_id", guildID), zap.String("channel_id", channelID))
	return h, nil
}

// Get returns the open handle for the guild, if it exists.
func (vm *VoiceManager) Get(guildID string) (*Handle, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	h, ok := vm.connections[guildID]
	return h, ok
}

// Close disconnects every handle still open.
func (vm *VoiceManager) Close() {
	vm.mu.RLock()
	handles := make([]*Handle, 0, len(vm.connections))
	for _, h := range vm.connections {
		handles = append(handles, h)
	}
	vm.mu.RUnlock()

	for _, h := range handles {
		if err := h.Disconnect(); err != nil {
			vm.logger.Warn("Voice disconnect failed", zap.String("guild_id", h.guildID), zap.Error(err))
		}
	}
}

func (vm *VoiceManager) forget(h *Handle) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.connections[h.guildID] == h {
		delete(vm.connections, h.guildID)
	}
}

// Handle is one open voice connection.
type Handle struct {
	guildID string
	conn    *audio.Connection
	manager *VoiceManager
	once    sync.Once
}

var _ audio.VoiceHandle = (*Handle)(nil)

func (h *Handle) ChannelID() string {
	return h.conn.ChannelID()
}

func (h *Handle) Play(track *audio.Track, done func(error)) error {
	return h.conn.Play(track.Source(), done)
}

func (h *Handle) Pause() {
	h.conn.Pause()
}

func (h *Handle) Resume() {
	h.conn.Resume()
}

// Disconnect leaves the channel. Only the first call does anything.
func (h *Handle) Disconnect() error {
	var err error
	h.once.Do(func() {
		h.manager.forget(h)
		err = h.conn.Disconnect()
	})
	return err
}
