// Package lyrics holds the provider-independent lyrics model shared by every
// provider client and by the orchestrator in pkg/music.
package lyrics

import (
	"fmt"
	"strings"
)

// Source 歌词来源
type Source string

const (
	SourceMusixmatch Source = "musixmatch"
	SourceGenius     Source = "genius"
	SourceLRCLib     Source = "lrclib"
	SourceNetEase    Source = "netease"

	// FallbackSource is the provider tried when the selected one fails.
	FallbackSource = SourceGenius
)

// NoLyricsNote replaces lines that would otherwise be empty.
const NoLyricsNote = "♪"

// ParseSource 根据名称获取歌词来源
func ParseSource(name string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "musixmatch", "mxm":
		return SourceMusixmatch, nil
	case "genius":
		return SourceGenius, nil
	case "lrclib":
		return SourceLRCLib, nil
	case "netease", "网易云", "163":
		return SourceNetEase, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
}

// Sources 所有可选的歌词来源
func Sources() []Source {
	return []Source{SourceMusixmatch, SourceGenius, SourceLRCLib, SourceNetEase}
}

// Query identifies the track to fetch lyrics for.
type Query struct {
	Title   string
	Artist  string
	TrackID string
}

// Options is a read-only snapshot of the user's lyrics preferences.
type Options struct {
	Source       Source
	Romanization bool
	Fallback     bool
}

// Line 歌词行
type Line struct {
	Content  string
	OffsetMs int64 // only meaningful when the owning Result is time-synced
}

// Result is a normalized provider response.
type Result struct {
	Lines      []Line
	TimeSynced bool
}

// NoteIfEmpty returns the no-lyrics marker for blank content.
func NoteIfEmpty(content string) string {
	if strings.TrimSpace(content) == "" {
		return NoLyricsNote
	}
	return content
}

// PlainResult builds a non-synced result, one line per entry.
func PlainResult(contents []string) *Result {
	lines := make([]Line, len(contents))
	for i, c := range contents {
		lines[i] = Line{Content: NoteIfEmpty(c)}
	}
	return &Result{Lines: lines}
}

// SplitPlain splits plain lyrics on "\n" and drops the single empty segment
// produced by a terminating newline. Carriage returns stay in the content.
func SplitPlain(text string) []string {
	parts := strings.Split(text, "\n")
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}
