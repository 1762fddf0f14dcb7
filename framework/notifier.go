package framework

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"jukebox/audio"
	commands "jukebox/cmd"
)

// MessageSender is the part of *discordgo.Session the notifier needs.
type MessageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ChannelNotifier posts player events to the text channel that started
// the session.
type ChannelNotifier struct {
	sender   MessageSender
	renderer commands.Renderer
	logger   *zap.Logger
}

var _ audio.Notifier = (*ChannelNotifier)(nil)

func NewChannelNotifier(sender MessageSender, renderer commands.Renderer, logger *zap.Logger) *ChannelNotifier {
	return &ChannelNotifier{sender: sender, renderer: renderer, logger: logger}
}

func (n *ChannelNotifier) TrackStarted(textChannelID string, snap audio.Snapshot) {
	n.send(textChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{n.renderer.NowPlaying(snap)},
		Components: commands.ControlRows(snap.Controls()),
	})
}

func (n *ChannelNotifier) QueueFinished(textChannelID string) {
	n.send(textChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{commands.QueueFinishedEmbed()},
	})
}

func (n *ChannelNotifier) InactivityDisconnect(textChannelID string) {
	n.send(textChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{commands.InactivityEmbed()},
	})
}

func (n *ChannelNotifier) ConnectionLost(textChannelID string, err error) {
	n.send(textChannelID, &discordgo.MessageSend{Content: audio.UserMessage(err)})
}

func (n *ChannelNotifier) send(channelID string, msg *discordgo.MessageSend) {
	if channelID == "" {
		return
	}
	if _, err := n.sender.ChannelMessageSendComplex(channelID, msg); err != nil {
		n.logger.Warn("Failed to post notification", zap.String("channel_id", channelID), zap.Error(err))
	}
}
