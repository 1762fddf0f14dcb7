package framework

import (
	"errors"

	"github.com/bwmarrin/discordgo"

	commands "jukebox/cmd"
)

const rateLimitedMessage = "⏳ You're sending commands too fast, try again in a moment."

var errPanic = errors.New("command handler panicked")

type messageResponder struct {
	session *discordgo.Session
	message *discordgo.Message
}

var _ commands.Responder = (*messageResponder)(nil)

func (r *messageResponder) Reply(content string) error {
	_, err := r.session.ChannelMessageSendReply(r.message.ChannelID, content, r.message.Reference())
	return err
}

func (r *messageResponder) ReplyEmbed(embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	_, err := r.session.ChannelMessageSendComplex(r.message.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
		Reference:  r.message.Reference(),
	})
	return err
}

func (r *messageResponder) UpdateControls(content string, components []discordgo.MessageComponent) error {
	_, err := r.session.ChannelMessageSendComplex(r.message.ChannelID, &discordgo.MessageSend{
		Content:    content,
		Components: components,
		Reference:  r.message.Reference(),
	})
	return err
}

// interactionResponder answers slash commands and button presses. Once
// deferred, every answer edits the deferred response.
type interactionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
	deferred    bool
}

var _ commands.Responder = (*interactionResponder)(nil)

func (r *interactionResponder) Defer() error {
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err == nil {
		r.deferred = true
	}
	return err
}

func (r *interactionResponder) Reply(content string) error {
	if r.deferred {
		_, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{Content: &content})
		return err
	}
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

func (r *interactionResponder) ReplyEmbed(embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	embeds := []*discordgo.MessageEmbed{embed}
	if r.deferred {
		_, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
			Embeds:     &embeds,
			Components: &components,
		})
		return err
	}
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: embeds, Components: components},
	})
}

func (r *interactionResponder) UpdateControls(content string, components []discordgo.MessageComponent) error {
	if r.deferred {
		_, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
			Content:    &content,
			Components: &components,
		})
		return err
	}
	if r.interaction.Type == discordgo.InteractionMessageComponent {
		return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{Components: components},
		})
	}
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Components: components},
	})
}
