package resolve

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"jukebox/audio"
)

const cacheKeyPrefix = "jukebox:resolve:"

// Cache keeps resolved tracks in Redis so repeated queries skip the
// network. Failures are logged and treated as misses.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

// OpenCache connects to redisURL and checks the server answers.
func OpenCache(ctx context.Context, redisURL string, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return NewCache(rdb, ttl, logger), nil
}

type cachedTrack struct {
	Title      string        `json:"title"`
	Artist     string        `json:"artist,omitempty"`
	Duration   time.Duration `json:"duration"`
	ArtworkURL string        `json:"artwork_url,omitempty"`
	URL        string        `json:"url"`
	StreamURL  string        `json:"stream_url,omitempty"`
}

func (c *Cache) Get(ctx context.Context, query string) (*audio.Track, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey(query)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Resolver cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var ct cachedTrack
	if err := json.Unmarshal(raw, &ct); err != nil {
		c.logger.Warn("Discarding corrupt cache entry", zap.String("query", query), zap.Error(err))
		return nil, false
	}
	return &audio.Track{
		Title:      ct.Title,
		Artist:     ct.Artist,
		Duration:   ct.Duration,
		ArtworkURL: ct.ArtworkURL,
		URL:        ct.URL,
		StreamURL:  ct.StreamURL,
	}, true
}

// Set stores t without its requester.
func (c *Cache) Set(ctx context.Context, query string, t *audio.Track) {
	raw, err := json.Marshal(cachedTrack{
		Title:      t.Title,
		Artist:     t.Artist,
		Duration:   t.Duration,
		ArtworkURL: t.ArtworkURL,
		URL:        t.URL,
		StreamURL:  t.StreamURL,
	})
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(query), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Resolver cache write failed", zap.Error(err))
	}
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}

// cacheKey folds case for free text only; links and Spotify IDs are case
// sensitive.
func cacheKey(query string) string {
	query = strings.TrimSpace(query)
	if _, spotify := SpotifyTrackID(query); !spotify && !isLink(query) {
		query = strings.ToLower(query)
	}
	sum := sha1.Sum([]byte(query))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
