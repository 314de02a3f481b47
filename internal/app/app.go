package app

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Camel-bot/Spotilife/internal/config"
	"github.com/Camel-bot/Spotilife/internal/ipc"
	"github.com/Camel-bot/Spotilife/internal/metrics"
	"github.com/Camel-bot/Spotilife/internal/player"
	"github.com/Camel-bot/Spotilife/internal/prefs"
	"github.com/Camel-bot/Spotilife/pkg/lyrics"
	"github.com/Camel-bot/Spotilife/pkg/music"
	"github.com/Camel-bot/Spotilife/pkg/redis"
)

// resolveTimeout bounds one whole Resolve, fallback included.
const resolveTimeout = 30 * time.Second

type App struct {
	cfg       *config.Config
	ipcServer *ipc.Server
	hub       *ipc.Hub
	publisher ipc.Publisher
	metrics   *metrics.Metrics
	manager   *music.Manager
	prefs     prefs.Store
	redis     *redis.Client

	getTrack    func() (music.Track, error)
	getPlayTime func() float64

	mutex        sync.Mutex
	currentTrack music.Track
	currentOpts  lyrics.Options
	presentation *music.Presentation

	// 歌词调度器控制
	schedulerMutex  sync.Mutex
	schedulerCancel context.CancelFunc
}

// SetupLogging 设置 zerolog 的全局配置
func SetupLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// New 创建应用，连接偏好存储并初始化歌词管理器
func New(cfg *config.Config) (*App, error) {
	SetupLogging(cfg.App.LogLevel)

	a := &App{
		cfg:         cfg,
		ipcServer:   ipc.NewServer(cfg.App.SocketPath),
		hub:         ipc.NewHub(),
		metrics:     metrics.New(),
		getTrack:    player.GetCurrentTrack,
		getPlayTime: player.GetCurrentPlayTime,
	}
	a.ipcServer.SetStatusPath(cfg.App.StatusPath)
	a.publisher = ipc.Publishers{a.ipcServer, a.hub}
	a.prefs = a.newPrefsStore()

	manager, err := music.CreateDefaultManager(cfg.ProviderConfig(),
		music.WithNotifier(a),
		music.WithObserver(a.metrics),
	)
	if err != nil {
		return nil, err
	}
	a.manager = manager

	for source, name := range manager.GetProviderNames() {
		log.Debug().Str("source", string(source)).Str("provider", name).Msg("Lyrics provider ready")
	}
	return a, nil
}

func (a *App) newPrefsStore() prefs.Store {
	defaults := a.cfg.Options()
	if !a.cfg.Redis.Enabled {
		return prefs.NewStaticStore(defaults)
	}

	client, err := redis.NewClient(a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		log.Warn().Err(err).Str("addr", a.cfg.Redis.Addr).Msg("Redis unavailable, using preferences from config file")
		return prefs.NewStaticStore(defaults)
	}
	a.redis = client
	log.Info().Str("addr", a.cfg.Redis.Addr).Str("key", a.cfg.Redis.Key).Msg("Reading preferences from redis")
	return prefs.NewRedisStore(client, a.cfg.Redis.Key, defaults)
}

// InvalidToken implements music.Notifier.
func (a *App) InvalidToken(source lyrics.Source) {
	log.Warn().Str("provider", string(source)).Msg("Provider token is invalid, please update it")
	if a.publisher != nil {
		a.publisher.Broadcast(ipc.InvalidTokenMessage(source))
	}
}

// Run 启动IPC服务并轮询播放器，直到ctx结束
func (a *App) Run(ctx context.Context) error {
	if err := a.ipcServer.Start(); err != nil {
		return err
	}
	defer a.ipcServer.Close()
	defer a.Close()

	if a.cfg.App.HTTPAddr != "" {
		go func() {
			mux := ipc.NewMux(a.hub, a.metrics.Handler())
			if err := ipc.ListenAndServe(ctx, a.cfg.App.HTTPAddr, mux); err != nil {
				log.Error().Err(err).Msg("HTTP server failed")
			}
		}()
	}

	ticker := time.NewTicker(a.cfg.App.CheckInterval)
	defer ticker.Stop()

	log.Info().Msg("Starting player check loop...")
	for {
		a.updateSongInfo(ctx)
		select {
		case <-ctx.Done():
			a.stopScheduler()
			return nil
		case <-ticker.C:
		}
	}
}

// Close 释放外部连接
func (a *App) Close() {
	if a.redis != nil {
		a.redis.Close()
		a.redis = nil
	}
}

// ResolveOnce resolves lyrics for track with the current preferences. A
// non-empty source takes precedence over the stored one.
func (a *App) ResolveOnce(ctx context.Context, track music.Track, source lyrics.Source) (*music.Envelope, error) {
	opts, err := a.prefs.Snapshot(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read preferences, using defaults")
	}
	if source != "" {
		opts.Source = source
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()
	return a.manager.Resolve(ctx, track, opts, nil)
}

func (a *App) updateSongInfo(ctx context.Context) {
	track, err := a.getTrack()
	if err != nil {
		a.mutex.Lock()
		hadTrack := a.currentTrack != (music.Track{})
		a.currentTrack = music.Track{}
		a.presentation = nil
		a.mutex.Unlock()

		if hadTrack {
			log.Info().Msg("Player stopped")
			a.stopScheduler()
			a.publisher.Broadcast(ipc.LyricsErrorMessage(lyrics.ErrNoActiveTrack))
		}
		return
	}

	opts, err := a.prefs.Snapshot(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read preferences, using defaults")
	}

	a.mutex.Lock()
	sameTrack := track == a.currentTrack
	if sameTrack && opts == a.currentOpts {
		a.mutex.Unlock()
		return
	}
	// 同一首歌只是偏好变化时沿用之前的配色，换歌时丢弃
	var prev *music.Presentation
	if sameTrack {
		prev = a.presentation
	} else {
		a.presentation = nil
	}
	a.currentTrack = track
	a.currentOpts = opts
	a.mutex.Unlock()

	if sameTrack {
		log.Info().Str("source", string(opts.Source)).Msg("Preferences changed, re-resolving lyrics")
	} else {
		log.Info().Msg("-----------------------------------------------------")
		log.Info().Str("title", track.Title).Str("artist", track.Artist).Msg("New song detected")
	}

	rctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	env, err := a.manager.Resolve(rctx, track, opts, prev)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error().Err(err).Msg("Failed to get lyrics")
		a.stopScheduler()
		a.publisher.Broadcast(ipc.LyricsErrorMessage(err))
		return
	}

	a.mutex.Lock()
	p := env.Presentation
	a.presentation = &p
	a.mutex.Unlock()

	a.publisher.Broadcast(ipc.LyricsMessage(env))
	if env.Result.TimeSynced {
		a.startLyricScheduler(env.Result.Lines, a.getPlayTime)
	} else {
		a.stopScheduler()
	}
}
