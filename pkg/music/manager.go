package music

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Camel-bot/Spotilife/pkg/lyrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func logger() *zerolog.Logger {
	l := log.With().Str("component", "music-manager").Logger()
	return &l
}

// Manager resolves lyrics through the selected provider with at most one
// fallback to a designated secondary provider.
type Manager struct {
	providers map[lyrics.Source]LyricsAPI
	fallback  lyrics.Source
	notifier  Notifier
	observer  Observer
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier sets the invalid-token notice sink.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithObserver sets the attempt observer.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithFallbackSource overrides the designated fallback provider.
func WithFallbackSource(s lyrics.Source) Option {
	return func(m *Manager) { m.fallback = s }
}

// NewManager 创建新的歌词管理器
func NewManager(providers map[lyrics.Source]LyricsAPI, opts ...Option) *Manager {
	m := &Manager{
		providers: providers,
		fallback:  lyrics.FallbackSource,
	}
	for _, opt := range opts {
		opt(m)
	}

	if len(providers) == 0 {
		logger().Warn().Msg("No lyrics providers configured")
	} else {
		logger().Info().
			Int("provider_count", len(providers)).
			Str("fallback_provider", string(m.fallback)).
			Msg("Lyrics manager initialized")
	}
	return m
}

// Resolve fetches lyrics for track and assembles the envelope. A non-nil prev
// presentation is carried through unchanged; otherwise one is derived from
// the track's artwork color.
func (m *Manager) Resolve(ctx context.Context, track Track, opts lyrics.Options, prev *Presentation) (*Envelope, error) {
	if track.empty() {
		return nil, lyrics.ErrNoActiveTrack
	}

	query := track.Query()
	fetchLog := logger().With().
		Str("fetch_id", uuid.NewString()).
		Str("track_id", query.TrackID).
		Logger()

	source := opts.Source
	notified := false
	notify := func(src lyrics.Source, err error) {
		if notified || m.notifier == nil || !errors.Is(err, lyrics.ErrInvalidToken) {
			return
		}
		notified = true
		m.notifier.InvalidToken(src)
	}

	result, err := m.fetch(ctx, &fetchLog, source, query, opts)
	if err != nil {
		notify(source, err)

		if source == m.fallback || !opts.Fallback {
			return nil, err
		}

		fetchLog.Warn().
			Err(err).
			Str("provider", string(source)).
			Str("fallback", string(m.fallback)).
			Msg("Primary provider failed, trying fallback")
		if m.observer != nil {
			m.observer.ObserveFallback(source, m.fallback)
		}

		source = m.fallback
		result, err = m.fetch(ctx, &fetchLog, source, query, opts)
		if err != nil {
			notify(source, err)
			return nil, err
		}
	}

	presentation := PresentationFromArtwork(track.ArtworkColor)
	if prev != nil {
		presentation = *prev
	}

	env := Assemble(result, presentation)
	env.Source = source
	return env, nil
}

// fetch runs one provider attempt.
func (m *Manager) fetch(ctx context.Context, l *zerolog.Logger, source lyrics.Source, query lyrics.Query, opts lyrics.Options) (*lyrics.Result, error) {
	provider, ok := m.providers[source]
	if !ok {
		err := fmt.Errorf("%w: %s", lyrics.ErrUnknownSource, source)
		if m.observer != nil {
			m.observer.ObserveAttempt(source, err, 0)
		}
		return nil, err
	}

	l.Info().
		Str("provider", provider.GetProviderName()).
		Str("title", query.Title).
		Str("artist", query.Artist).
		Msg("Trying to get lyrics")

	start := time.Now()
	result, err := provider.GetLyrics(ctx, query, opts)
	elapsed := time.Since(start)
	if m.observer != nil {
		m.observer.ObserveAttempt(source, err, elapsed)
	}
	if err != nil {
		l.Warn().Str("provider", provider.GetProviderName()).Err(err).Msg("Provider failed")
		return nil, err
	}

	l.Info().
		Str("provider", provider.GetProviderName()).
		Int("lines", len(result.Lines)).
		Bool("synced", result.TimeSynced).
		Dur("elapsed", elapsed).
		Msg("Successfully got lyrics")
	return result, nil
}

// GetProviderNames 获取所有提供商名称
func (m *Manager) GetProviderNames() map[lyrics.Source]string {
	names := make(map[lyrics.Source]string, len(m.providers))
	for source, provider := range m.providers {
		names[source] = provider.GetProviderName()
	}
	return names
}
