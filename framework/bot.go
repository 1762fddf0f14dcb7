package framework

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"jukebox/audio"
	"jukebox/config"
	commands "jukebox/cmd"
	"jukebox/resolve"
	"jukebox/vc"
)

// Bot wires the Discord gateway to the playback core.
type Bot struct {
	Session *discordgo.Session
	Player  *audio.Player

	cfg      *config.Config
	logger   *zap.Logger
	voice    *vc.VoiceManager
	renderer commands.Renderer
	limiter  *UserLimiter
	cache    *resolve.Cache
	handlers []func()
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		Session:  session,
		cfg:      cfg,
		logger:   logger,
		voice:    vc.NewVoiceManager(session, logger.Named("voice")),
		renderer: commands.Renderer{NowPlayingImage: cfg.NowPlayingImage},
		limiter:  NewUserLimiter(cfg.CommandRate, cfg.CommandBurst),
	}

	resolver, err := b.buildResolver(ctx)
	if err != nil {
		return nil, err
	}
	notifier := NewChannelNotifier(session, b.renderer, logger.Named("notifier"))
	b.Player = audio.NewPlayer(audio.NewRegistry(), resolver, b.voice, notifier, logger.Named("player"), audio.Options{
		IdleTimeout: cfg.IdleTimeout,
	})
	return b, nil
}

func (b *Bot) buildResolver(ctx context.Context) (*resolve.Chain, error) {
	var spotify resolve.SpotifyLookup
	if b.cfg.Spotify.Enabled() {
		spotify = resolve.NewSpotify(ctx, b.cfg.Spotify.ClientID, b.cfg.Spotify.ClientSecret, b.cfg.Spotify.RateLimit, b.logger.Named("spotify"))
	} else {
		b.logger.Info("Spotify credentials not set, Spotify links are disabled")
	}

	if b.cfg.Cache.RedisURL != "" {
		cache, err := resolve.OpenCache(ctx, b.cfg.Cache.RedisURL, b.cfg.Cache.TTL, b.logger.Named("cache"))
		if err != nil {
			return nil, fmt.Errorf("open resolver cache: %w", err)
		}
		b.cache = cache
	}

	return resolve.NewChain(resolve.YouTubeSearch{}, resolve.YTDLP{}, spotify, b.cache, b.cfg.ResolveTimeout, b.logger.Named("resolve")), nil
}

// Run connects to the gateway and blocks until ctx is done, then releases
// every voice connection.
func (b *Bot) Run(ctx context.Context) error {
	b.handlers = append(b.handlers,
		b.Session.AddHandler(b.onReady),
		b.Session.AddHandler(b.onMessageCreate),
		b.Session.AddHandler(b.onInteractionCreate),
		b.Session.AddHandler(b.onVoiceStateUpdate),
	)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	b.logger.Info("Bot is running")

	registered, err := RegisterCommands(b.Session, b.cfg.GuildIDs, b.logger)
	if err != nil {
		b.logger.Error("Slash command registration failed", zap.Error(err))
	}

	<-ctx.Done()
	b.logger.Info("Shutting down")

	b.Player.Shutdown()
	b.voice.Close()

	if b.cfg.UnregisterCommands {
		UnregisterCommands(b.Session, registered, b.logger)
	}
	for _, remove := range b.handlers {
		remove()
	}
	if b.cache != nil {
		_ = b.cache.Close()
	}
	return b.Session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("Logged in", zap.String("user", r.User.Username), zap.Int("guilds", len(r.Guilds)))
	if err := s.UpdateListeningStatus("/play"); err != nil {
		b.logger.Debug("Failed to set presence", zap.Error(err))
	}
}
