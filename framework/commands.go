package framework

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// SlashCommands lists the application commands the bot answers.
var SlashCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "play",
		Description: "Play a song from YouTube, Spotify or a search",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "Song name or URL",
				Required:    true,
			},
		},
	},
	{Name: "pause", Description: "Pause the current song"},
	{Name: "resume", Description: "Resume the paused song"},
	{Name: "skip", Description: "Skip to the next song"},
	{Name: "shuffle", Description: "Shuffle the upcoming songs"},
	{Name: "stop", Description: "Stop playback and leave the voice channel"},
	{Name: "now-playing", Description: "Show the current song"},
	{Name: "queue", Description: "List the upcoming songs"},
}

// Registered remembers created commands per guild ("" means global) so
// they can be removed again.
type Registered map[string][]*discordgo.ApplicationCommand

// RegisterCommands overwrites the command set of every guild in guildIDs,
// or the global set when guildIDs is empty.
func RegisterCommands(s *discordgo.Session, guildIDs []string, logger *zap.Logger) (Registered, error) {
	if s.State.User == nil {
		return nil, errors.New("session is not ready")
	}
	appID := s.State.User.ID
	if len(guildIDs) == 0 {
		guildIDs = []string{""}
	}

	registered := make(Registered)
	var errs []error
	for _, guildID := range guildIDs {
		created, err := s.ApplicationCommandBulkOverwrite(appID, guildID, SlashCommands)
		if err != nil {
			errs = append(errs, fmt.Errorf("guild %q: %w", guildID, err))
			continue
		}
		registered[guildID] = created
		logger.Info("Slash commands registered", zap.String("guild_id", guildID), zap.Int("count", len(created)))
	}
	return registered, errors.Join(errs...)
}

// UnregisterCommands deletes what RegisterCommands created.
func UnregisterCommands(s *discordgo.Session, registered Registered, logger *zap.Logger) {
	if s.State.User == nil {
		return
	}
	appID := s.State.User.ID
	for guildID, cmds := range registered {
		for _, c := range cmds {
			if err := s.ApplicationCommandDelete(appID, guildID, c.ID); err != nil {
				logger.Warn("Failed to delete slash command", zap.String("guild_id", guildID), zap.String("command", c.Name), zap.Error(err))
			}
		}
		logger.Info("Slash commands removed", zap.String("guild_id", guildID))
	}
}
