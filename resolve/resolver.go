// Package resolve turns user queries and links into playable tracks.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"jukebox/audio"
)

var (
	ErrNoResults          = errors.New("no results")
	ErrSpotifyUnavailable = errors.New("spotify credentials are not configured")
)

// Searcher finds the best match for free text.
type Searcher interface {
	Search(ctx context.Context, query string) (*audio.Track, error)
}

// Prober reads metadata for a direct media link.
type Prober interface {
	Probe(ctx context.Context, link string) (*audio.Track, error)
}

// SpotifyLookup fetches track metadata by Spotify ID.
type SpotifyLookup interface {
	Track(ctx context.Context, id string) (*audio.Track, error)
}

// Chain routes a query to the matching backend: Spotify track links go
// through SpotifyLookup and then Searcher for something streamable, other
// links through Prober, anything else through Searcher.
type Chain struct {
	searcher Searcher
	prober   Prober
	spotify  SpotifyLookup // nil when not configured
	cache    *Cache        // nil when disabled
	timeout  time.Duration
	logger   *zap.Logger
}

var _ audio.Resolver = (*Chain)(nil)

func NewChain(searcher Searcher, prober Prober, spotify SpotifyLookup, cache *Cache, timeout time.Duration, logger *zap.Logger) *Chain {
	return &Chain{
		searcher: searcher,
		prober:   prober,
		spotify:  spotify,
		cache:    cache,
		timeout:  timeout,
		logger:   logger,
	}
}

func (c *Chain) Resolve(ctx context.Context, query string) (*audio.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, audio.ErrEmptyQuery
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.cache != nil {
		if t, ok := c.cache.Get(ctx, query); ok {
			c.logger.Debug("Resolver cache hit", zap.String("query", query))
			return t, nil
		}
	}

	t, err := c.resolve(ctx, query)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(ctx, query, t)
	}
	return t, nil
}

func (c *Chain) resolve(ctx context.Context, query string) (*audio.Track, error) {
	if id, ok := SpotifyTrackID(query); ok {
		return c.resolveSpotify(ctx, id)
	}
	if isLink(query) {
		t, err := c.prober.Probe(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", query, err)
		}
		return t, nil
	}
	t, err := c.searcher.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return t, nil
}

// resolveSpotify keeps Spotify's metadata but streams the best YouTube
// match for "<title> <artists>".
func (c *Chain) resolveSpotify(ctx context.Context, id string) (*audio.Track, error) {
	if c.spotify == nil {
		return nil, ErrSpotifyUnavailable
	}
	meta, err := c.spotify.Track(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("spotify track %s: %w", id, err)
	}

	match, err := c.searcher.Search(ctx, strings.TrimSpace(meta.Title+" "+meta.Artist))
	if err != nil {
		return nil, fmt.Errorf("find stream for spotify track %s: %w", id, err)
	}

	t := *meta
	t.StreamURL = match.URL
	if t.Duration == 0 {
		t.Duration = match.Duration
	}
	return &t, nil
}

func isLink(query string) bool {
	u, err := url.Parse(query)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
