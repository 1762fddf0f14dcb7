package audio

import "context"

// Resolver turns a user query or link into a track.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*Track, error)
}

// Connector opens voice connections. vc.VoiceManager is the discordgo-backed one.
type Connector interface {
	Connect(ctx context.Context, guildID, channelID string) (VoiceHandle, error)
}

// VoiceHandle is an open audio transport to one voice channel.
//
// Play replaces whatever is rendering and calls done exactly once when the
// new track ends on its own: nil on completion, ErrConnectionLost wrapped
// when the transport dropped, any other error when the track failed to
// render. done is not called for a track replaced by Play or cut by
// Disconnect. Implementations must not block on done's caller.
type VoiceHandle interface {
	ChannelID() string
	Play(track *Track, done func(error)) error
	Pause()
	Resume()
	Disconnect() error
}

// Notifier receives events that are not replies to a user intent.
type Notifier interface {
	TrackStarted(textChannelID string, snap Snapshot)
	QueueFinished(textChannelID string)
	InactivityDisconnect(textChannelID string)
	ConnectionLost(textChannelID string, err error)
}
