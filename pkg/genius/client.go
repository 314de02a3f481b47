package genius

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Camel-bot/Spotilife/pkg/lyrics"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

const DefaultBaseURL = "https://genius.com"

// searchResponse Genius搜索API响应
type searchResponse struct {
	Response struct {
		Hits []struct {
			Type   string `json:"type"`
			Result song   `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

type song struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	ArtistNames   string `json:"artist_names"`
	Path          string `json:"path"`
	PrimaryArtist struct {
		Name string `json:"name"`
	} `json:"primary_artist"`
}

// Config Genius客户端配置
type Config struct {
	BaseURL string
	Token   string
}

// Client Genius客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func logger() *zerolog.Logger {
	l := log.With().Str("component", "genius").Logger()
	return &l
}

// NewClient 创建新的Genius客户端
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		baseURL: baseURL,
		token:   cfg.Token,
	}
}

// GetProviderName 获取提供商名称
func (c *Client) GetProviderName() string {
	return "Genius"
}

// GetLyrics searches Genius for the track and scrapes its lyrics page.
// Genius only has plain lyrics, so results are never time-synced.
func (c *Client) GetLyrics(ctx context.Context, query lyrics.Query, _ lyrics.Options) (*lyrics.Result, error) {
	s, err := c.searchSong(ctx, query.Title, query.Artist)
	if err != nil {
		return nil, err
	}
	logger().Debug().
		Int("song_id", s.ID).
		Str("title", s.Title).
		Str("artist", s.ArtistNames).
		Msg("Matched song")

	page, err := c.get(ctx, c.baseURL+s.Path)
	if err != nil {
		return nil, err
	}

	text, err := extractLyrics(page)
	if err != nil {
		return nil, err
	}
	return lyrics.PlainResult(text), nil
}

func (c *Client) searchSong(ctx context.Context, title, artist string) (*song, error) {
	q := strings.TrimSpace(title + " " + artist)
	if q == "" {
		return nil, fmt.Errorf("%w: empty search query", lyrics.ErrSongNotFound)
	}

	data, err := c.get(ctx, fmt.Sprintf("%s/api/search?q=%s", c.baseURL, url.QueryEscape(q)))
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: genius search: %v", lyrics.ErrDecoding, err)
	}

	var songs []*song
	for i := range resp.Response.Hits {
		hit := &resp.Response.Hits[i]
		if hit.Type == "" || hit.Type == "song" {
			songs = append(songs, &hit.Result)
		}
	}
	if best := findBestMatch(songs, title, artist); best != nil {
		return best, nil
	}
	return nil, fmt.Errorf("%w: no genius match for '%s - %s'", lyrics.ErrSongNotFound, title, artist)
}

// findBestMatch prefers a hit matching both title and artist, then the first
// hit matching the title.
func findBestMatch(songs []*song, title, artist string) *song {
	var titleMatch *song
	for _, s := range songs {
		if s.Path == "" || !lyrics.ContainsFold(s.Title, title) {
			continue
		}
		if lyrics.ContainsFold(s.ArtistNames, artist) || lyrics.ContainsFold(s.PrimaryArtist.Name, artist) {
			return s
		}
		if titleMatch == nil {
			titleMatch = s
		}
	}
	return titleMatch
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create genius request: %w", err)
	}
	req.Header.Set("User-Agent", "lyrics-backend/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, lyrics.Transport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", lyrics.ErrSongNotFound, req.URL.Path)
	case resp.StatusCode != http.StatusOK:
		return nil, lyrics.Transportf("genius request failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, lyrics.Transport(err)
	}
	return data, nil
}

// extractLyrics pulls the text of every lyrics container out of a song page.
// <br> becomes a line break; annotations marked as excluded from selection
// are dropped.
func extractLyrics(page []byte) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(string(page)))
	if err != nil {
		return nil, fmt.Errorf("%w: genius page: %v", lyrics.ErrDecoding, err)
	}

	var (
		sb         strings.Builder
		containers int
		instrument bool
	)

	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "br" {
				sb.WriteByte('\n')
				return
			}
			if attr(n, "data-exclude-from-selection") == "true" {
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr(n, "data-lyrics-container") == "true" {
				if containers > 0 {
					sb.WriteByte('\n')
				}
				containers++
				collect(n)
				return
			}
			if strings.Contains(attr(n, "class"), "LyricsPlaceholder") || strings.Contains(attr(n, "class"), "Lyrics__Instrumental") {
				instrument = true
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if containers == 0 {
		if instrument {
			return []string{lyrics.NoLyricsNote}, nil
		}
		return nil, fmt.Errorf("%w: no lyrics container on genius page", lyrics.ErrDecoding)
	}

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
