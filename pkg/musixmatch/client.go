package musixmatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/Camel-bot/Spotilife/pkg/lyrics"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "https://apic.musixmatch.com"

	subtitlesPath    = "/ws/1.1/macro.subtitles.get"
	translationsPath = "/ws/1.1/crowd.track.translations.get"

	statusUnauthorized = 401
	statusNotFound     = 404
)

// DeviceClass selects which of the two app identifiers is sent.
type DeviceClass string

const (
	DevicePhone  DeviceClass = "phone"
	DeviceTablet DeviceClass = "tablet"
)

// AppID returns the Musixmatch application identifier for the device class.
func (d DeviceClass) AppID() string {
	if d == DeviceTablet {
		return "mac-ios-ipad-v1.0"
	}
	return "mac-ios-v2.0"
}

// Config Musixmatch客户端配置
type Config struct {
	Token       string
	DeviceClass DeviceClass
	BaseURL     string
}

// Client Musixmatch客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	appID      string
	romanizer  *Romanizer
}

// logger derives from the global logger at call time so it picks up the
// output configured by the app.
func logger() *zerolog.Logger {
	l := log.With().Str("component", "musixmatch").Logger()
	return &l
}

// NewClient 创建新的Musixmatch客户端
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		token:      cfg.Token,
		appID:      cfg.DeviceClass.AppID(),
	}
	c.romanizer = &Romanizer{client: c}
	return c
}

// GetProviderName 获取提供商名称
func (c *Client) GetProviderName() string {
	return "Musixmatch"
}

// perform issues one authenticated GET and returns the raw body.
func (c *Client) perform(ctx context.Context, path string, params url.Values) ([]byte, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("usertoken", c.token)
	query.Set("app_id", c.appID)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create musixmatch request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, lyrics.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, lyrics.Transportf("musixmatch %s returned status %d", path, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, lyrics.Transport(err)
	}
	return data, nil
}

// GetLyrics fetches subtitles for the track, falling back to plain lyrics
// when the track has no usable subtitles.
func (c *Client) GetLyrics(ctx context.Context, query lyrics.Query, opts lyrics.Options) (*lyrics.Result, error) {
	data, err := c.perform(ctx, subtitlesPath, url.Values{
		"track_spotify_id": {query.TrackID},
		"subtitle_format":  {"mxm"},
		"q_track":          {" "},
	})
	if err != nil {
		return nil, err
	}

	var resp macroResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", lyrics.ErrDecoding, err)
	}
	calls := resp.Message.Body.MacroCalls
	if calls == nil {
		return nil, fmt.Errorf("%w: missing macro_calls", lyrics.ErrDecoding)
	}

	if resp.Message.Header.StatusCode == statusUnauthorized {
		return nil, lyrics.ErrInvalidToken
	}

	raw, language, synced, err := parseMacroCalls(calls)
	if err != nil {
		return nil, err
	}

	logger().Debug().
		Str("track_id", query.TrackID).
		Bool("synced", synced).
		Int("lines", len(raw)).
		Str("language", language).
		Msg("Parsed musixmatch response")

	if opts.Romanization {
		raw = c.romanizer.Enrich(ctx, raw, language, query, synced)
	}

	lines := make([]lyrics.Line, len(raw))
	for i, line := range raw {
		lines[i] = lyrics.Line{Content: lyrics.NoteIfEmpty(line.Content), OffsetMs: line.OffsetMs}
	}
	return &lyrics.Result{Lines: lines, TimeSynced: synced}, nil
}

// parseMacroCalls extracts raw (not yet note-substituted) lines from the
// subtitles sub-call, or from the plain lyrics sub-call when the former has
// nothing usable. The returned language is the one of the sub-call used.
func parseMacroCalls(calls *macroCalls) ([]lyrics.Line, string, bool, error) {
	if sub := calls.Subtitles; sub != nil && sub.Message.Header != nil {
		if sub.Message.Header.StatusCode == statusNotFound {
			return nil, "", false, lyrics.ErrSongNotFound
		}

		var body subtitlesBody
		if decodeBody(sub.Message.Body, &body) && len(body.SubtitleList) > 0 && body.SubtitleList[0].Subtitle != nil {
			st := body.SubtitleList[0].Subtitle
			if st.Restricted {
				return nil, "", false, lyrics.ErrRestricted
			}
			if st.Body != nil {
				lines, err := parseSubtitleBody(*st.Body)
				if err != nil {
					return nil, "", false, err
				}
				return lines, st.Language, true, nil
			}
		}
	}

	if lc := calls.Lyrics; lc != nil && lc.Message.Header != nil {
		if lc.Message.Header.StatusCode == statusNotFound {
			return nil, "", false, lyrics.ErrSongNotFound
		}

		var body lyricsBody
		if decodeBody(lc.Message.Body, &body) && body.Lyrics != nil && body.Lyrics.Body != nil {
			if body.Lyrics.Restricted {
				return nil, "", false, lyrics.ErrRestricted
			}
			parts := lyrics.SplitPlain(*body.Lyrics.Body)
			lines := make([]lyrics.Line, len(parts))
			for i, p := range parts {
				lines[i] = lyrics.Line{Content: p}
			}
			return lines, body.Lyrics.Language, false, nil
		}
	}

	return nil, "", false, fmt.Errorf("%w: no usable subtitles or lyrics", lyrics.ErrDecoding)
}

// parseSubtitleBody decodes the embedded subtitle array and drops the
// trailing sentinel entry the provider always appends.
func parseSubtitleBody(body string) ([]lyrics.Line, error) {
	var entries []subtitleEntry
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		return nil, fmt.Errorf("%w: subtitle body: %v", lyrics.ErrDecoding, err)
	}
	if len(entries) > 0 {
		entries = entries[:len(entries)-1]
	}

	lines := make([]lyrics.Line, len(entries))
	for i, e := range entries {
		lines[i] = lyrics.Line{
			Content:  e.Text,
			OffsetMs: int64(math.Round(e.Time.Total * 1000)),
		}
	}
	return lines, nil
}
