package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"jukebox/audio"
)

const (
	colorBlue  = 0x3498DB
	colorGreen = 0x57F287
	colorRed   = 0xED4245
)

// maxQueueLines bounds the queue listing to stay under the embed limit.
const maxQueueLines = 15

// Renderer builds the embeds shown for tracks.
type Renderer struct {
	NowPlayingImage string
}

func (r Renderer) TrackQueued(t *audio.Track, position int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color: colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Track Queued:", Value: fmt.Sprintf("**#`%d`** - %s", position, trackLink(t)), Inline: true},
			{Name: "Requested by:", Value: mention(t.RequestedBy), Inline: true},
			{Name: "Duration:", Value: "`" + t.FormattedDuration() + "`", Inline: true},
		},
		Timestamp: timestamp(),
	}
}

func (r Renderer) NowPlaying(snap audio.Snapshot) *discordgo.MessageEmbed {
	t := snap.NowPlaying
	if t == nil {
		return &discordgo.MessageEmbed{Color: colorRed, Description: "🚫 No song is currently playing.", Timestamp: timestamp()}
	}

	title := "🎶 Now Playing"
	if snap.State == audio.StatePaused {
		title = "⏸️ Paused"
	}
	embed := &discordgo.MessageEmbed{
		Title: title,
		Color: colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Track:", Value: trackLink(t)},
			{Name: "Requested By:", Value: mention(t.RequestedBy), Inline: true},
			{Name: "Duration:", Value: "`" + t.FormattedDuration() + "`", Inline: true},
			{Name: "Queue:", Value: fmt.Sprintf("`%d/%d`", snap.Position, snap.Length), Inline: true},
		},
		Timestamp: timestamp(),
	}
	if t.ArtworkURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.ArtworkURL}
	}
	if r.NowPlayingImage != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: r.NowPlayingImage}
	}
	return embed
}

func QueueEmbed(snap audio.Snapshot) *discordgo.MessageEmbed {
	var b strings.Builder
	if snap.NowPlaying != nil {
		fmt.Fprintf(&b, "🎶 **Now Playing:** %s\n", trackLink(snap.NowPlaying))
	}
	if len(snap.Upcoming) == 0 {
		b.WriteString("🕳️ Nothing queued after this track.")
	} else {
		b.WriteString("🎼 **Up next:**\n")
		for i, t := range snap.Upcoming {
			if i == maxQueueLines {
				fmt.Fprintf(&b, "…and %d more", len(snap.Upcoming)-maxQueueLines)
				break
			}
			fmt.Fprintf(&b, "`%d.` %s `%s`\n", snap.Position+i+1, trackLink(t), t.FormattedDuration())
		}
	}
	return &discordgo.MessageEmbed{Color: colorBlue, Description: b.String(), Timestamp: timestamp()}
}

func StoppedEmbed(userID string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       colorRed,
		Description: mention(userID) + " **stopped** the queue.",
		Timestamp:   timestamp(),
	}
}

func NoNextTrackEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       colorRed,
		Description: audio.UserMessage(audio.ErrNoNextTrack),
		Timestamp:   timestamp(),
	}
}

func QueueFinishedEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Color: colorGreen, Description: "**Queue finished.**", Timestamp: timestamp()}
}

func InactivityEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       colorRed,
		Description: "👋 Left the voice channel after being alone for a while.",
		Timestamp:   timestamp(),
	}
}

// ControlRows lays controls out as secondary buttons in one row.
func ControlRows(controls []audio.Control) []discordgo.MessageComponent {
	if len(controls) == 0 {
		return []discordgo.MessageComponent{}
	}
	row := discordgo.ActionsRow{}
	for _, c := range controls {
		row.Components = append(row.Components, discordgo.Button{
			CustomID: c.ID,
			Emoji:    &discordgo.ComponentEmoji{Name: c.Emoji},
			Style:    discordgo.SecondaryButton,
			Disabled: c.Disabled,
		})
	}
	return []discordgo.MessageComponent{row}
}

func trackLink(t *audio.Track) string {
	if t.URL == "" {
		return "`" + t.Title + "`"
	}
	return fmt.Sprintf("[`%s`](%s)", t.Title, t.URL)
}

func mention(userID string) string {
	if userID == "" {
		return "unknown"
	}
	return "<@" + userID + ">"
}

func timestamp() string {
	return time.Now().Format(time.RFC3339)
}
