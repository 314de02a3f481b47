package music

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Camel-bot/Spotilife/pkg/lyrics"
	"github.com/Camel-bot/Spotilife/pkg/musixmatch"
)

type mockProvider struct {
	name   string
	result *lyrics.Result
	err    error
	calls  int
	opts   []lyrics.Options
}

func (m *mockProvider) GetLyrics(ctx context.Context, query lyrics.Query, opts lyrics.Options) (*lyrics.Result, error) {
	m.calls++
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockProvider) GetProviderName() string { return m.name }

type recordingObserver struct {
	attempts  map[lyrics.Source]int
	failures  map[lyrics.Source]int
	fallbacks int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		attempts: make(map[lyrics.Source]int),
		failures: make(map[lyrics.Source]int),
	}
}

func (o *recordingObserver) ObserveAttempt(source lyrics.Source, err error, elapsed time.Duration) {
	o.attempts[source]++
	if err != nil {
		o.failures[source]++
	}
}

func (o *recordingObserver) ObserveFallback(from, to lyrics.Source) { o.fallbacks++ }

type recordingNotifier struct {
	notices []lyrics.Source
}

func (n *recordingNotifier) InvalidToken(source lyrics.Source) {
	n.notices = append(n.notices, source)
}

var testTrack = Track{Title: "Song", Artist: "Artist", TrackID: "abc123", ArtworkColor: "#1db954"}

func syncedResult() *lyrics.Result {
	return &lyrics.Result{
		TimeSynced: true,
		Lines: []lyrics.Line{
			{Content: "first", OffsetMs: 1000},
			{Content: "second", OffsetMs: 2500},
		},
	}
}

func TestResolveFallback(t *testing.T) {
	tests := []struct {
		name          string
		source        lyrics.Source
		fallback      bool
		primaryErr    error
		fallbackErr   error
		wantErr       error
		wantSource    lyrics.Source
		wantPrimary   int
		wantSecondary int
	}{
		{
			name:        "primary success",
			source:      lyrics.SourceMusixmatch,
			fallback:    true,
			wantSource:  lyrics.SourceMusixmatch,
			wantPrimary: 1,
		},
		{
			name:        "not found without fallback",
			source:      lyrics.SourceMusixmatch,
			fallback:    false,
			primaryErr:  lyrics.ErrSongNotFound,
			wantErr:     lyrics.ErrSongNotFound,
			wantPrimary: 1,
		},
		{
			name:          "not found with fallback",
			source:        lyrics.SourceMusixmatch,
			fallback:      true,
			primaryErr:    lyrics.ErrSongNotFound,
			wantSource:    lyrics.SourceGenius,
			wantPrimary:   1,
			wantSecondary: 1,
		},
		{
			name:          "fallback failure propagates",
			source:        lyrics.SourceMusixmatch,
			fallback:      true,
			primaryErr:    lyrics.ErrRestricted,
			fallbackErr:   lyrics.ErrDecoding,
			wantErr:       lyrics.ErrDecoding,
			wantPrimary:   1,
			wantSecondary: 1,
		},
		{
			name:          "selected source is the fallback",
			source:        lyrics.SourceGenius,
			fallback:      true,
			fallbackErr:   lyrics.ErrSongNotFound,
			wantErr:       lyrics.ErrSongNotFound,
			wantSecondary: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &mockProvider{name: "Musixmatch", result: syncedResult(), err: tt.primaryErr}
			secondary := &mockProvider{name: "Genius", result: lyrics.PlainResult([]string{"plain"}), err: tt.fallbackErr}

			m := NewManager(map[lyrics.Source]LyricsAPI{
				lyrics.SourceMusixmatch: primary,
				lyrics.SourceGenius:     secondary,
			})

			env, err := m.Resolve(context.Background(), testTrack, lyrics.Options{
				Source:       tt.source,
				Fallback:     tt.fallback,
				Romanization: true,
			}, nil)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				if env != nil {
					t.Errorf("Resolve() envelope = %+v, want nil", env)
				}
			} else {
				if err != nil {
					t.Fatalf("Resolve() unexpected error: %v", err)
				}
				if env.Source != tt.wantSource {
					t.Errorf("Source = %q, want %q", env.Source, tt.wantSource)
				}
			}

			if primary.calls != tt.wantPrimary {
				t.Errorf("primary calls = %d, want %d", primary.calls, tt.wantPrimary)
			}
			if secondary.calls != tt.wantSecondary {
				t.Errorf("fallback calls = %d, want %d", secondary.calls, tt.wantSecondary)
			}
			if total := primary.calls + secondary.calls; total > 2 {
				t.Errorf("total attempts = %d, want at most 2", total)
			}
		})
	}
}

func TestResolveFallbackKeepsOptions(t *testing.T) {
	primary := &mockProvider{name: "Musixmatch", err: lyrics.ErrSongNotFound}
	secondary := &mockProvider{name: "Genius", result: lyrics.PlainResult([]string{"plain"})}
	m := NewManager(map[lyrics.Source]LyricsAPI{
		lyrics.SourceMusixmatch: primary,
		lyrics.SourceGenius:     secondary,
	})

	opts := lyrics.Options{Source: lyrics.SourceMusixmatch, Fallback: true, Romanization: true}
	if _, err := m.Resolve(context.Background(), testTrack, opts, nil); err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if len(secondary.opts) != 1 || !secondary.opts[0].Romanization {
		t.Errorf("fallback options = %+v, want romanization enabled", secondary.opts)
	}
}

func TestResolveInvalidTokenNotifiesOnce(t *testing.T) {
	tests := []struct {
		name        string
		fallback    bool
		fallbackErr error
		wantErr     error
	}{
		{name: "no fallback", fallback: false, wantErr: lyrics.ErrInvalidToken},
		{name: "fallback succeeds", fallback: true},
		{name: "fallback also invalid", fallback: true, fallbackErr: lyrics.ErrInvalidToken, wantErr: lyrics.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &mockProvider{name: "Musixmatch", err: lyrics.ErrInvalidToken}
			secondary := &mockProvider{name: "Genius", result: lyrics.PlainResult([]string{"plain"}), err: tt.fallbackErr}

			notifier := &recordingNotifier{}
			m := NewManager(map[lyrics.Source]LyricsAPI{
				lyrics.SourceMusixmatch: primary,
				lyrics.SourceGenius:     secondary,
			}, WithNotifier(notifier))

			_, err := m.Resolve(context.Background(), testTrack, lyrics.Options{
				Source:   lyrics.SourceMusixmatch,
				Fallback: tt.fallback,
			}, nil)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Resolve() unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
			}

			if len(notifier.notices) != 1 || notifier.notices[0] != lyrics.SourceMusixmatch {
				t.Errorf("notices = %v, want exactly one for musixmatch", notifier.notices)
			}
		})
	}
}

func TestResolveNoActiveTrack(t *testing.T) {
	primary := &mockProvider{name: "Musixmatch", result: syncedResult()}
	m := NewManager(map[lyrics.Source]LyricsAPI{lyrics.SourceMusixmatch: primary})

	_, err := m.Resolve(context.Background(), Track{}, lyrics.Options{Source: lyrics.SourceMusixmatch}, nil)
	if !errors.Is(err, lyrics.ErrNoActiveTrack) {
		t.Fatalf("Resolve() error = %v, want ErrNoActiveTrack", err)
	}
	if primary.calls != 0 {
		t.Errorf("provider calls = %d, want 0", primary.calls)
	}
}

func TestResolveUnknownSource(t *testing.T) {
	m := NewManager(map[lyrics.Source]LyricsAPI{})

	_, err := m.Resolve(context.Background(), testTrack, lyrics.Options{Source: lyrics.SourceNetEase}, nil)
	if !errors.Is(err, lyrics.ErrUnknownSource) {
		t.Fatalf("Resolve() error = %v, want ErrUnknownSource", err)
	}
}

func TestResolvePresentation(t *testing.T) {
	primary := &mockProvider{name: "Musixmatch", result: syncedResult()}
	m := NewManager(map[lyrics.Source]LyricsAPI{lyrics.SourceMusixmatch: primary})
	opts := lyrics.Options{Source: lyrics.SourceMusixmatch}

	env, err := m.Resolve(context.Background(), testTrack, opts, nil)
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if want := PresentationFromArtwork(testTrack.ArtworkColor); env.Presentation != want {
		t.Errorf("Presentation = %+v, want %+v", env.Presentation, want)
	}

	prev := Presentation{BackgroundColor: 0x123456, LineColor: 0xabcdef, ActiveLineColor: 0xfedcba}
	track := testTrack
	track.ArtworkColor = "#ff0000"
	env, err = m.Resolve(context.Background(), track, opts, &prev)
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if env.Presentation != prev {
		t.Errorf("Presentation = %+v, want previous %+v", env.Presentation, prev)
	}
	if len(env.Result.Lines) != 2 || !env.Result.TimeSynced {
		t.Errorf("Result = %+v, want the provider result", env.Result)
	}
}

func TestResolveObserver(t *testing.T) {
	primary := &mockProvider{name: "Musixmatch", err: lyrics.ErrSongNotFound}
	secondary := &mockProvider{name: "Genius", result: lyrics.PlainResult([]string{"plain"})}
	obs := newRecordingObserver()
	m := NewManager(map[lyrics.Source]LyricsAPI{
		lyrics.SourceMusixmatch: primary,
		lyrics.SourceGenius:     secondary,
	}, WithObserver(obs))

	if _, err := m.Resolve(context.Background(), testTrack, lyrics.Options{Source: lyrics.SourceMusixmatch, Fallback: true}, nil); err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if obs.attempts[lyrics.SourceMusixmatch] != 1 || obs.failures[lyrics.SourceMusixmatch] != 1 {
		t.Errorf("musixmatch attempts/failures = %d/%d, want 1/1",
			obs.attempts[lyrics.SourceMusixmatch], obs.failures[lyrics.SourceMusixmatch])
	}
	if obs.attempts[lyrics.SourceGenius] != 1 || obs.failures[lyrics.SourceGenius] != 0 {
		t.Errorf("genius attempts/failures = %d/%d, want 1/0",
			obs.attempts[lyrics.SourceGenius], obs.failures[lyrics.SourceGenius])
	}
	if obs.fallbacks != 1 {
		t.Errorf("fallbacks = %d, want 1", obs.fallbacks)
	}
}

func TestWithFallbackSource(t *testing.T) {
	primary := &mockProvider{name: "Musixmatch", err: lyrics.ErrSongNotFound}
	lrclib := &mockProvider{name: "LRCLIB", result: syncedResult()}
	m := NewManager(map[lyrics.Source]LyricsAPI{
		lyrics.SourceMusixmatch: primary,
		lyrics.SourceLRCLib:     lrclib,
	}, WithFallbackSource(lyrics.SourceLRCLib))

	env, err := m.Resolve(context.Background(), testTrack, lyrics.Options{Source: lyrics.SourceMusixmatch, Fallback: true}, nil)
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if env.Source != lyrics.SourceLRCLib {
		t.Errorf("Source = %q, want %q", env.Source, lyrics.SourceLRCLib)
	}
}

func TestGetProviderNames(t *testing.T) {
	m := NewManager(map[lyrics.Source]LyricsAPI{
		lyrics.SourceMusixmatch: &mockProvider{name: "Musixmatch"},
		lyrics.SourceGenius:     &mockProvider{name: "Genius"},
	})

	names := m.GetProviderNames()
	if len(names) != 2 || names[lyrics.SourceGenius] != "Genius" {
		t.Errorf("GetProviderNames() = %v", names)
	}
}

// 确保所有提供商都实现了LyricsAPI接口
func TestProvidersImplementInterface(t *testing.T) {
	cfg := ProviderConfig{Musixmatch: musixmatch.Config{Token: "test-token"}}
	for _, source := range lyrics.Sources() {
		p, err := CreateProvider(source, cfg)
		if err != nil {
			t.Fatalf("CreateProvider(%q) error: %v", source, err)
		}
		var _ LyricsAPI = p
		if p.GetProviderName() == "" {
			t.Errorf("provider %q has empty name", source)
		}
	}
}
