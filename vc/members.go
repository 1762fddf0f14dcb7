package vc

import "github.com/bwmarrin/discordgo"

// MemberCount counts who is in a voice channel: the bot itself plus every
// non-bot user. Other bots do not keep a session alive.
func MemberCount(state *discordgo.State, guildID, channelID string) int {
	guild, err := state.Guild(guildID)
	if err != nil {
		return 0
	}

	selfID := ""
	if state.User != nil {
		selfID = state.User.ID
	}

	count := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		if vs.UserID == selfID {
			count++
			continue
		}
		if member, err := state.Member(guildID, vs.UserID); err == nil && member.User != nil && member.User.Bot {
			continue
		}
		count++
	}
	return count
}

// UserChannel returns the voice channel a user is in, or "".
func UserChannel(state *discordgo.State, guildID, userID string) string {
	guild, err := state.Guild(guildID)
	if err != nil {
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}
