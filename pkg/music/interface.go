package music

import (
	"context"
	"time"

	"github.com/Camel-bot/Spotilife/pkg/lyrics"
)

// LyricsAPI 歌词提供商通用接口
type LyricsAPI interface {
	// GetLyrics 获取并解析歌词
	GetLyrics(ctx context.Context, query lyrics.Query, opts lyrics.Options) (*lyrics.Result, error)

	// GetProviderName 获取提供商名称
	GetProviderName() string
}

// Notifier surfaces the invalid-token notice to the user. Only the decision
// of when to call it belongs here.
type Notifier interface {
	InvalidToken(source lyrics.Source)
}

// Observer receives per-attempt outcomes, e.g. for metrics.
type Observer interface {
	ObserveAttempt(source lyrics.Source, err error, elapsed time.Duration)
	ObserveFallback(from, to lyrics.Source)
}

// Track 当前播放的歌曲信息
type Track struct {
	Title        string
	Artist       string
	TrackID      string
	ArtworkColor string // hex, e.g. "#1db954"; may be empty
}

// Query returns the provider query for the track.
func (t Track) Query() lyrics.Query {
	return lyrics.Query{Title: t.Title, Artist: t.Artist, TrackID: t.TrackID}
}

func (t Track) empty() bool {
	return t.Title == "" && t.Artist == "" && t.TrackID == ""
}
