package resolve

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"jukebox/audio"
)

var (
	spotifyURLPattern = regexp.MustCompile(`(?:https?://)?(?:open\.)?spotify\.com/(?:intl-[a-z]{2}/)?track/([a-zA-Z0-9]+)`)
	spotifyURIPattern = regexp.MustCompile(`^spotify:track:([a-zA-Z0-9]+)$`)
)

// SpotifyTrackID extracts the track ID from a Spotify track link or URI.
func SpotifyTrackID(query string) (string, bool) {
	if m := spotifyURLPattern.FindStringSubmatch(query); m != nil {
		return m[1], true
	}
	if m := spotifyURIPattern.FindStringSubmatch(query); m != nil {
		return m[1], true
	}
	return "", false
}

// Spotify looks up track metadata with an app-only token.
type Spotify struct {
	client  *spotify.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ SpotifyLookup = (*Spotify)(nil)

// NewSpotify builds a client-credentials backed lookup. perSecond bounds
// outgoing API calls.
func NewSpotify(ctx context.Context, clientID, clientSecret string, perSecond float64, logger *zap.Logger) *Spotify {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return NewSpotifyWithClient(spotify.New(cfg.Client(ctx)), perSecond, logger)
}

func NewSpotifyWithClient(client *spotify.Client, perSecond float64, logger *zap.Logger) *Spotify {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Spotify{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:  logger,
	}
}

func (s *Spotify) Track(ctx context.Context, id string) (*audio.Track, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("spotify rate limit: %w", err)
	}

	track, err := s.client.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return nil, err
	}

	artists := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		artists = append(artists, a.Name)
	}

	t := &audio.Track{
		Title:    track.Name,
		Artist:   strings.Join(artists, ", "),
		Duration: time.Duration(track.Duration) * time.Millisecond,
		URL:      track.ExternalURLs["spotify"],
	}
	if len(track.Album.Images) > 0 {
		t.ArtworkURL = track.Album.Images[0].URL
	}

	s.logger.Debug("Spotify track fetched", zap.String("id", id), zap.String("title", t.Title))
	return t, nil
}
