package audio

import (
	"fmt"
	"time"
)

// Track is an immutable description of something playable. Resolvers build
// it, the queue owns it, nobody mutates it afterwards.
type Track struct {
	Title       string
	Artist      string
	Duration    time.Duration
	ArtworkURL  string
	URL         string // page link shown to users
	StreamURL   string // what the streamer hands to yt-dlp
	RequestedBy string
}

// WithRequester returns a copy of t attributed to userID.
func (t Track) WithRequester(userID string) *Track {
	t.RequestedBy = userID
	return &t
}

// FormattedDuration renders the duration as HH:MM:SS.
func (t *Track) FormattedDuration() string {
	return FormatDuration(t.Duration)
}

func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Source is the link handed to the streamer. Falls back to the page URL.
func (t *Track) Source() string {
	if t.StreamURL != "" {
		return t.StreamURL
	}
	return t.URL
}
