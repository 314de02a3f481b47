package music

import (
	"fmt"

	"github.com/Camel-bot/Spotilife/pkg/genius"
	"github.com/Camel-bot/Spotilife/pkg/lrclib"
	"github.com/Camel-bot/Spotilife/pkg/lyrics"
	"github.com/Camel-bot/Spotilife/pkg/musixmatch"
	"github.com/Camel-bot/Spotilife/pkg/netease"
)

// ProviderConfig carries the per-provider settings.
type ProviderConfig struct {
	Musixmatch musixmatch.Config
	Genius     genius.Config
	LRCLibURL  string
	NetEase    netease.Config
}

// CreateProvider 创建歌词提供商客户端
func CreateProvider(source lyrics.Source, cfg ProviderConfig) (LyricsAPI, error) {
	switch source {
	case lyrics.SourceMusixmatch:
		if cfg.Musixmatch.Token == "" {
			logger().Warn().Msg("Musixmatch token is empty, requests will be rejected")
		}
		return musixmatch.NewClient(cfg.Musixmatch), nil
	case lyrics.SourceGenius:
		return genius.NewClient(cfg.Genius), nil
	case lyrics.SourceLRCLib:
		return lrclib.NewClient(cfg.LRCLibURL), nil
	case lyrics.SourceNetEase:
		return netease.NewClient(cfg.NetEase), nil
	default:
		return nil, fmt.Errorf("%w: %s", lyrics.ErrUnknownSource, source)
	}
}

// CreateDefaultManager 创建包含所有提供商的歌词管理器
func CreateDefaultManager(cfg ProviderConfig, opts ...Option) (*Manager, error) {
	providers := make(map[lyrics.Source]LyricsAPI)
	for _, source := range lyrics.Sources() {
		provider, err := CreateProvider(source, cfg)
		if err != nil {
			logger().Warn().Err(err).Str("provider", string(source)).Msg("Failed to create provider")
			continue
		}
		providers[source] = provider
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no lyrics providers available")
	}
	return NewManager(providers, opts...), nil
}
