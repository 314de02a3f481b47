package netease

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Camel-bot/Spotilife/pkg/lyrics"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://music.163.com"

// searchResponse 网易云搜索API响应
type searchResponse struct {
	Code   int `json:"code"`
	Result struct {
		Songs []struct {
			ID      int    `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"songs"`
	} `json:"result"`
}

// lyricResponse 网易云歌词API响应
type lyricResponse struct {
	Code        int  `json:"code"`
	NoLyric     bool `json:"nolyric"`
	Uncollected bool `json:"uncollected"`
	Lrc         struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`
}

// Config 网易云客户端配置
type Config struct {
	BaseURL string
	Cookie  string
}

// Client 网易云音乐客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
	cookie     string
}

func logger() *zerolog.Logger {
	l := log.With().Str("component", "netease").Logger()
	return &l
}

// NewClient 创建新的网易云音乐客户端
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		cookie:     cfg.Cookie,
	}
}

// GetProviderName 获取提供商名称
func (c *Client) GetProviderName() string {
	return "NetEase Cloud Music"
}

// GetLyrics searches for the song and fetches its LRC lyrics.
func (c *Client) GetLyrics(ctx context.Context, query lyrics.Query, _ lyrics.Options) (*lyrics.Result, error) {
	songID, err := c.searchSong(ctx, query.Title, query.Artist)
	if err != nil {
		return nil, err
	}

	var lr lyricResponse
	lyricURL := fmt.Sprintf("%s/api/song/lyric?os=pc&id=%s&lv=-1&kv=-1&tv=-1", c.baseURL, songID)
	if err := c.getJSON(ctx, lyricURL, &lr); err != nil {
		return nil, err
	}

	if lr.NoLyric || lr.Uncollected || strings.TrimSpace(lr.Lrc.Lyric) == "" {
		return nil, fmt.Errorf("%w: netease song %s has no lyrics", lyrics.ErrSongNotFound, songID)
	}

	if lines := lyrics.ParseLRC(lr.Lrc.Lyric); len(lines) > 0 {
		return &lyrics.Result{Lines: lines, TimeSynced: true}, nil
	}
	return lyrics.PlainResult(lyrics.SplitPlain(lr.Lrc.Lyric)), nil
}

// searchSong 搜索歌曲
func (c *Client) searchSong(ctx context.Context, title, artist string) (string, error) {
	keywords := strings.TrimSpace(title + " " + artist)
	searchURL := fmt.Sprintf("%s/api/search/get/web?s=%s&type=1&limit=30", c.baseURL, url.QueryEscape(keywords))

	var sr searchResponse
	if err := c.getJSON(ctx, searchURL, &sr); err != nil {
		return "", err
	}

	if len(sr.Result.Songs) == 0 {
		return "", fmt.Errorf("%w: no netease songs for '%s'", lyrics.ErrSongNotFound, keywords)
	}

	for _, song := range sr.Result.Songs {
		if !lyrics.ContainsFold(song.Name, title) {
			continue
		}
		for _, a := range song.Artists {
			if lyrics.ContainsFold(a.Name, artist) {
				logger().Debug().Int("song_id", song.ID).Str("name", song.Name).Msg("Found matching song")
				return strconv.Itoa(song.ID), nil
			}
		}
	}

	// 如果没有找到完全匹配的，返回第一个匹配标题的
	if first := sr.Result.Songs[0]; lyrics.ContainsFold(first.Name, title) {
		logger().Debug().Int("song_id", first.ID).Str("name", first.Name).Msg("Using first title match")
		return strconv.Itoa(first.ID), nil
	}
	return "", fmt.Errorf("%w: no netease match for '%s - %s'", lyrics.ErrSongNotFound, title, artist)
}

func (c *Client) getJSON(ctx context.Context, reqURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create netease request: %w", err)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return lyrics.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return lyrics.Transportf("netease %s returned status %d", req.URL.Path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: netease %s: %v", lyrics.ErrDecoding, req.URL.Path, err)
	}
	return nil
}
