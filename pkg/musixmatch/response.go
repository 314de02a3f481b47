package musixmatch

import (
	"bytes"
	"encoding/json"
)

// header is the status block every Musixmatch message carries. The HTTP
// status is almost always 200; the real outcome lives here.
type header struct {
	StatusCode int `json:"status_code"`
}

// macroResponse is the envelope of macro.subtitles.get.
type macroResponse struct {
	Message struct {
		Header header `json:"header"`
		Body   struct {
			MacroCalls *macroCalls `json:"macro_calls"`
		} `json:"body"`
	} `json:"message"`
}

type macroCalls struct {
	Subtitles *subCall `json:"track.subtitles.get"`
	Lyrics    *subCall `json:"track.lyrics.get"`
}

// subCall is one nested call of a macro response. Its body is an object on
// success but an empty string or array on failure, so it is decoded lazily.
type subCall struct {
	Message struct {
		Header *header         `json:"header"`
		Body   json.RawMessage `json:"body"`
	} `json:"message"`
}

type subtitlesBody struct {
	SubtitleList []struct {
		Subtitle *subtitle `json:"subtitle"`
	} `json:"subtitle_list"`
}

type subtitle struct {
	Body       *string `json:"subtitle_body"`
	Language   string  `json:"subtitle_language"`
	Restricted flag    `json:"restricted"`
}

// subtitleEntry is one element of the JSON array embedded in subtitle_body.
type subtitleEntry struct {
	Text string `json:"text"`
	Time struct {
		Total float64 `json:"total"`
	} `json:"time"`
}

type lyricsBody struct {
	Lyrics *struct {
		Body       *string `json:"lyrics_body"`
		Language   string  `json:"lyrics_language"`
		Restricted flag    `json:"restricted"`
	} `json:"lyrics"`
}

type translationsResponse struct {
	Message struct {
		Header header `json:"header"`
		Body   struct {
			TranslationsList *[]struct {
				Translation *struct {
					SubtitleMatchedLine *string `json:"subtitle_matched_line"`
					MatchedLine         *string `json:"matched_line"`
					Description         *string `json:"description"`
				} `json:"translation"`
			} `json:"translations_list"`
		} `json:"body"`
	} `json:"message"`
}

// flag accepts both JSON booleans and the 0/1 integers Musixmatch uses for
// the same fields depending on the endpoint.
type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true":
		*f = true
		return nil
	case "false", "null", `""`:
		*f = false
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = n != 0
	return nil
}

// decodeBody decodes a lazily kept sub-call body into v. Empty strings and
// arrays (the provider's "nothing here") report false without error.
func decodeBody(raw json.RawMessage, v any) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
