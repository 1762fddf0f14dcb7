package framework

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"jukebox/audio"
	commands "jukebox/cmd"
	"jukebox/vc"
)

var helpEntries = []struct{ usage, text string }{
	{"play <song or URL>", "Play a track or add it to the queue"},
	{"pause", "Pause playback"},
	{"resume", "Resume playback"},
	{"skip", "Skip to the next track"},
	{"shuffle", "Shuffle the upcoming tracks"},
	{"stop", "Stop playback and leave the voice channel"},
	{"nowplaying", "Show the current track"},
	{"queue", "List the upcoming tracks"},
	{"ping", "Responds with Pong!"},
}

func helpMessage(prefix string) string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, e := range helpEntries {
		fmt.Fprintf(&b, "`%s%s` - %s\n", prefix, e.usage, e.text)
	}
	return b.String()
}

const infoMessage = "This is a music bot written in Go using the DiscordGo library.\n" +
	"It plays YouTube, Spotify and search results in your voice channel."

// parseCommand splits "!play some song" into ("play", "some song").
func parseCommand(prefix, content string) (name, args string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(content, prefix))
	if rest == "" {
		return "", "", false
	}
	name, args, _ = strings.Cut(rest, " ")
	return strings.ToLower(name), strings.TrimSpace(args), true
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	name, args, ok := parseCommand(b.cfg.CommandPrefix, m.Content)
	if !ok {
		return
	}

	responder := &messageResponder{session: s, message: m.Message}
	defer b.recoverHandler(responder, name)

	if !b.limiter.Allow(m.Author.ID) {
		_ = responder.Reply(rateLimitedMessage)
		return
	}

	cmd := b.newCommand(s, responder, m.GuildID, m.ChannelID, m.Author.ID)
	ctx := context.Background()

	switch name {
	case "ping":
		_ = responder.Reply("Pong!")
	case "help":
		_ = responder.Reply(helpMessage(b.cfg.CommandPrefix))
	case "info":
		_ = responder.Reply(infoMessage)
	case "play", "p":
		cmd.Play(ctx, args)
	case "skip":
		cmd.Skip(ctx)
	case "pause":
		cmd.Pause(ctx)
	case "resume":
		cmd.Resume(ctx)
	case "shuffle":
		cmd.Shuffle(ctx)
	case "stop", "leave":
		cmd.Stop(ctx)
	case "nowplaying", "np":
		cmd.NowPlaying()
	case "queue", "q":
		cmd.Queue()
	default:
		_ = responder.Reply("Unknown command. Type `" + b.cfg.CommandPrefix + "help` for available commands.")
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return
	}
	userID := i.Member.User.ID

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		responder := &interactionResponder{session: s, interaction: i.Interaction}
		defer b.recoverHandler(responder, data.Name)

		if !b.limiter.Allow(userID) {
			_ = responder.Reply(rateLimitedMessage)
			return
		}
		// Resolving can outlast the three second acknowledgement window.
		if err := responder.Defer(); err != nil {
			b.logger.Warn("Failed to acknowledge interaction", zap.String("command", data.Name), zap.Error(err))
			return
		}

		cmd := b.newCommand(s, responder, i.GuildID, i.ChannelID, userID)
		ctx := context.Background()
		switch data.Name {
		case "play":
			cmd.Play(ctx, optionString(data.Options, "query"))
		case "pause":
			cmd.Pause(ctx)
		case "resume":
			cmd.Resume(ctx)
		case "skip":
			cmd.Skip(ctx)
		case "shuffle":
			cmd.Shuffle(ctx)
		case "stop":
			cmd.Stop(ctx)
		case "now-playing":
			cmd.NowPlaying()
		case "queue":
			cmd.Queue()
		default:
			_ = responder.Reply("Unknown command.")
		}

	case discordgo.InteractionMessageComponent:
		id := i.MessageComponentData().CustomID
		responder := &interactionResponder{session: s, interaction: i.Interaction}
		defer b.recoverHandler(responder, id)

		if !b.limiter.Allow(userID) {
			_ = responder.Reply(rateLimitedMessage)
			return
		}

		cmd := b.newCommand(s, responder, i.GuildID, i.ChannelID, userID)
		ctx := context.Background()
		switch id {
		case audio.ControlPause:
			cmd.Pause(ctx)
		case audio.ControlResume:
			cmd.Resume(ctx)
		case audio.ControlSkip:
			_ = responder.Defer()
			cmd.Skip(ctx)
		case audio.ControlShuffle:
			cmd.Shuffle(ctx)
		case audio.ControlStop:
			_ = responder.Defer()
			cmd.Stop(ctx)
		}
	}
}

// onVoiceStateUpdate feeds membership changes and the bot's own
// disconnects into the player.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	h, ok := b.voice.Get(v.GuildID)
	if !ok {
		return
	}

	if s.State.User != nil && v.UserID == s.State.User.ID && v.ChannelID == "" {
		// Only trust a disconnect naming the channel we left; a late event
		// must not tear down a session that already rejoined.
		if v.BeforeUpdate != nil && v.BeforeUpdate.ChannelID != "" {
			b.Player.ConnectionLost(v.GuildID, v.BeforeUpdate.ChannelID, nil)
		}
		return
	}

	channelID := h.ChannelID()
	b.Player.MembershipChanged(v.GuildID, channelID, vc.MemberCount(s.State, v.GuildID, channelID))
}

func (b *Bot) newCommand(s *discordgo.Session, r commands.Responder, guildID, channelID, userID string) *commands.BotCommand {
	return &commands.BotCommand{
		Player:         b.Player,
		Responder:      r,
		Renderer:       b.renderer,
		Logger:         b.logger.Named("commands"),
		GuildID:        guildID,
		ChannelID:      channelID,
		UserID:         userID,
		VoiceChannelID: vc.UserChannel(s.State, guildID, userID),
	}
}

// recoverHandler keeps a panicking command from taking the gateway down.
func (b *Bot) recoverHandler(r commands.Responder, command string) {
	if rec := recover(); rec != nil {
		b.logger.Error("Command handler panicked", zap.String("command", command), zap.Any("panic", rec), zap.Stack("stack"))
		_ = r.Reply(audio.UserMessage(errPanic))
	}
}

func optionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, o := range options {
		if o.Name == name {
			return o.StringValue()
		}
	}
	return ""
}
