package musixmatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Camel-bot/Spotilife/pkg/lyrics"
)

// TranslationMap maps an original substring to its romanized replacement.
type TranslationMap map[string]string

// Apply substitutes every entry in s, longer keys first so the order is
// stable across runs.
func (m TranslationMap) Apply(s string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		s = strings.ReplaceAll(s, k, m[k])
	}
	return s
}

// Romanizer overlays Musixmatch's crowd romanizations onto parsed lines.
type Romanizer struct {
	client *Client
}

// RomanizedLanguage returns the provider's code for the romanized variant of
// language: "r" followed by the first character of the language code.
func RomanizedLanguage(language string) string {
	for _, r := range language {
		return "r" + string(r)
	}
	return "r"
}

// Enrich returns lines with romanizations applied. It never fails: on any
// error the input lines are returned untouched.
func (r *Romanizer) Enrich(ctx context.Context, lines []lyrics.Line, language string, query lyrics.Query, synced bool) []lyrics.Line {
	if language == "" {
		logger().Debug().Str("track_id", query.TrackID).Msg("No language reported, skipping romanization")
		return lines
	}

	translations, err := r.fetchTranslations(ctx, query.TrackID, RomanizedLanguage(language), synced)
	if err != nil {
		logger().Debug().Err(err).Str("track_id", query.TrackID).Msg("Romanization failed, keeping original lines")
		return lines
	}
	if len(translations) == 0 {
		return lines
	}

	enriched := make([]lyrics.Line, len(lines))
	for i, line := range lines {
		enriched[i] = lyrics.Line{Content: translations.Apply(line.Content), OffsetMs: line.OffsetMs}
	}

	logger().Debug().
		Str("track_id", query.TrackID).
		Int("translations", len(translations)).
		Msg("Applied romanization")
	return enriched
}

func (r *Romanizer) fetchTranslations(ctx context.Context, trackID, language string, synced bool) (TranslationMap, error) {
	data, err := r.client.perform(ctx, translationsPath, url.Values{
		"track_spotify_id":  {trackID},
		"selected_language": {language},
	})
	if err != nil {
		return nil, err
	}

	var resp translationsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: translations: %v", lyrics.ErrDecoding, err)
	}
	if resp.Message.Body.TranslationsList == nil {
		return nil, fmt.Errorf("%w: missing translations_list", lyrics.ErrDecoding)
	}

	translations := make(TranslationMap)
	for _, item := range *resp.Message.Body.TranslationsList {
		tr := item.Translation
		if tr == nil || tr.Description == nil {
			continue
		}
		match := tr.MatchedLine
		if synced {
			match = tr.SubtitleMatchedLine
		}
		if match == nil || *match == "" || *match == *tr.Description {
			continue
		}
		translations[*match] = *tr.Description
	}
	return translations, nil
}
