package lrclib

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Camel-bot/Spotilife/pkg/lyrics"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://lrclib.net/api"

// Client LRCLib客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Response LRCLib API响应结构
type Response struct {
	ID           int     `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

func logger() *zerolog.Logger {
	l := log.With().Str("component", "lrclib").Logger()
	return &l
}

// NewClient 创建新的LRCLib客户端
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// GetProviderName 返回提供商名称
func (c *Client) GetProviderName() string {
	return "LRCLib"
}

// GetLyrics searches LRCLib by title and artist. Synced lyrics are preferred
// over plain ones.
func (c *Client) GetLyrics(ctx context.Context, query lyrics.Query, _ lyrics.Options) (*lyrics.Result, error) {
	params := url.Values{}
	params.Set("track_name", query.Title)
	if query.Artist != "" {
		params.Set("artist_name", query.Artist)
	}
	searchURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "lyrics-backend/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, lyrics.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, lyrics.Transportf("lrclib search returned status %d", resp.StatusCode)
	}

	var results []Response
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: lrclib search: %v", lyrics.ErrDecoding, err)
	}

	logger().Debug().Int("results", len(results)).Str("title", query.Title).Str("artist", query.Artist).Msg("Search finished")

	best := findBestMatch(results, query.Title, query.Artist)
	if best == nil {
		return nil, fmt.Errorf("%w: no lrclib results for '%s - %s'", lyrics.ErrSongNotFound, query.Title, query.Artist)
	}

	switch {
	case best.SyncedLyrics != "":
		lines := lyrics.ParseLRC(best.SyncedLyrics)
		if len(lines) > 0 {
			return &lyrics.Result{Lines: lines, TimeSynced: true}, nil
		}
		if best.PlainLyrics == "" {
			return nil, fmt.Errorf("%w: unparseable synced lyrics", lyrics.ErrDecoding)
		}
		fallthrough
	case best.PlainLyrics != "":
		return lyrics.PlainResult(lyrics.SplitPlain(best.PlainLyrics)), nil
	case best.Instrumental:
		return lyrics.PlainResult([]string{lyrics.NoLyricsNote}), nil
	}
	return nil, fmt.Errorf("%w: selected result has no lyrics", lyrics.ErrSongNotFound)
}

// findBestMatch 从搜索结果中找到最佳匹配的歌词
func findBestMatch(results []Response, title, artist string) *Response {
	if len(results) == 0 {
		return nil
	}

	var titleMatch *Response
	for i := range results {
		r := &results[i]
		if !lyrics.ContainsFold(r.TrackName, title) {
			continue
		}
		if lyrics.ContainsFold(r.ArtistName, artist) {
			return r
		}
		if titleMatch == nil {
			titleMatch = r
		}
	}
	if titleMatch != nil {
		return titleMatch
	}
	return &results[0]
}
