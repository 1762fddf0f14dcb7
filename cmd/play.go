package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"jukebox/audio"
)

// Controller is the slice of audio.Player the commands drive.
type Controller interface {
	Play(ctx context.Context, req audio.PlayRequest) (audio.Result, error)
	Skip(ctx context.Context, guildID string) (audio.Result, error)
	Pause(ctx context.Context, guildID string) (audio.Result, error)
	Resume(ctx context.Context, guildID string) (audio.Result, error)
	Shuffle(ctx context.Context, guildID string) (audio.Result, error)
	Stop(ctx context.Context, guildID string) (audio.Result, error)
	NowPlaying(guildID string) (audio.Snapshot, error)
}

var _ Controller = (*audio.Player)(nil)

// Responder answers whoever invoked a command: a text message, a slash
// command or a button press.
type Responder interface {
	Reply(content string) error
	ReplyEmbed(embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error
	// UpdateControls swaps the buttons of the message a button press came
	// from. Other invocations reply with content and the new buttons.
	UpdateControls(content string, components []discordgo.MessageComponent) error
}

type BotCommand struct {
	Player    Controller
	Responder Responder
	Renderer  Renderer
	Logger    *zap.Logger

	GuildID        string
	ChannelID      string
	UserID         string
	VoiceChannelID string // invoker's voice channel, "" when not in one
}

func (cmd *BotCommand) Play(ctx context.Context, query string) {
	res, err := cmd.Player.Play(ctx, audio.PlayRequest{
		GuildID:        cmd.GuildID,
		TextChannelID:  cmd.ChannelID,
		RequesterID:    cmd.UserID,
		VoiceChannelID: cmd.VoiceChannelID,
		Query:          query,
	})
	if err != nil {
		cmd.fail("play", err)
		return
	}
	cmd.send(cmd.Responder.ReplyEmbed(cmd.Renderer.TrackQueued(res.Track, res.Queued), nil))
}

func (cmd *BotCommand) Skip(ctx context.Context) {
	res, err := cmd.Player.Skip(ctx, cmd.GuildID)
	if errors.Is(err, audio.ErrNoNextTrack) {
		cmd.send(cmd.Responder.ReplyEmbed(NoNextTrackEmbed(), ControlRows(res.Snapshot.Controls())))
		return
	}
	if err != nil {
		cmd.fail("skip", err)
		return
	}
	cmd.send(cmd.Responder.ReplyEmbed(cmd.Renderer.NowPlaying(res.Snapshot), ControlRows(res.Snapshot.Controls())))
}

func (cmd *BotCommand) Pause(ctx context.Context) {
	res, err := cmd.Player.Pause(ctx, cmd.GuildID)
	if err != nil {
		cmd.fail("pause", err)
		return
	}
	cmd.send(cmd.Responder.UpdateControls("⏸️ Paused playback.", ControlRows(res.Snapshot.Controls())))
}

func (cmd *BotCommand) Resume(ctx context.Context) {
	res, err := cmd.Player.Resume(ctx, cmd.GuildID)
	if err != nil {
		cmd.fail("resume", err)
		return
	}
	cmd.send(cmd.Responder.UpdateControls("▶️ Resumed playback.", ControlRows(res.Snapshot.Controls())))
}

func (cmd *BotCommand) Shuffle(ctx context.Context) {
	res, err := cmd.Player.Shuffle(ctx, cmd.GuildID)
	if err != nil {
		cmd.fail("shuffle", err)
		return
	}
	n := len(res.Snapshot.Upcoming)
	if n < 2 {
		cmd.send(cmd.Responder.Reply("🔀 Nothing to shuffle."))
		return
	}
	cmd.send(cmd.Responder.Reply(fmt.Sprintf("🔀 Shuffled **%d** upcoming tracks.", n)))
}

func (cmd *BotCommand) Stop(ctx context.Context) {
	if _, err := cmd.Player.Stop(ctx, cmd.GuildID); err != nil {
		cmd.fail("stop", err)
		return
	}
	cmd.send(cmd.Responder.ReplyEmbed(StoppedEmbed(cmd.UserID), []discordgo.MessageComponent{}))
}

func (cmd *BotCommand) NowPlaying() {
	snap, err := cmd.Player.NowPlaying(cmd.GuildID)
	if err != nil {
		cmd.fail("now-playing", err)
		return
	}
	cmd.send(cmd.Responder.ReplyEmbed(cmd.Renderer.NowPlaying(snap), ControlRows(snap.Controls())))
}

func (cmd *BotCommand) Queue() {
	snap, err := cmd.Player.NowPlaying(cmd.GuildID)
	if err != nil {
		cmd.send(cmd.Responder.Reply("📭 Nothing is currently playing."))
		return
	}
	cmd.send(cmd.Responder.ReplyEmbed(QueueEmbed(snap), nil))
}

// fail reports an intent error. Expected taxonomy errors are not logged
// above debug; they are ordinary user mistakes.
func (cmd *BotCommand) fail(intent string, err error) {
	log := cmd.Logger.With(zap.String("intent", intent), zap.String("guild_id", cmd.GuildID), zap.Error(err))
	if expected(err) {
		log.Debug("Intent rejected")
	} else {
		log.Warn("Intent failed")
	}
	cmd.send(cmd.Responder.Reply(audio.UserMessage(err)))
}

func (cmd *BotCommand) send(err error) {
	if err != nil {
		cmd.Logger.Warn("Failed to respond", zap.String("guild_id", cmd.GuildID), zap.Error(err))
	}
}

func expected(err error) bool {
	for _, target := range []error{
		audio.ErrEmptyQuery,
		audio.ErrNoVoiceChannel,
		audio.ErrNoNextTrack,
		audio.ErrNotPlaying,
		audio.ErrNotPaused,
		audio.ErrNotConnected,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
