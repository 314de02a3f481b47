package ipc

import (
	"encoding/json"

	"github.com/Camel-bot/Spotilife/pkg/lyrics"
	"github.com/Camel-bot/Spotilife/pkg/music"
)

// Message types pushed to clients.
const (
	TypeLyrics = "lyrics"
	TypeLine   = "line"
	TypeNotice = "notice"
)

// NoticeInvalidToken asks the user to refresh a provider token.
const NoticeInvalidToken = "invalid_token"

// Message is one newline-delimited JSON frame.
type Message struct {
	Type     string          `json:"type"`
	Envelope *music.Envelope `json:"envelope,omitempty"`
	Line     *LineEvent      `json:"line,omitempty"`
	Notice   *Notice         `json:"notice,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// LineEvent marks the currently active synced line.
type LineEvent struct {
	Index int    `json:"index"`
	Words string `json:"words"`
}

// Notice is a user-facing notice the GUI decides how to show.
type Notice struct {
	Kind   string        `json:"kind"`
	Source lyrics.Source `json:"source"`
}

// LyricsMessage 新歌词
func LyricsMessage(env *music.Envelope) Message {
	return Message{Type: TypeLyrics, Envelope: env}
}

// LyricsErrorMessage reports a failed resolve so clients can clear the view.
func LyricsErrorMessage(err error) Message {
	return Message{Type: TypeLyrics, Error: err.Error()}
}

// LineMessage 当前歌词行
func LineMessage(index int, words string) Message {
	return Message{Type: TypeLine, Line: &LineEvent{Index: index, Words: words}}
}

// InvalidTokenMessage token失效提醒
func InvalidTokenMessage(source lyrics.Source) Message {
	return Message{Type: TypeNotice, Notice: &Notice{Kind: NoticeInvalidToken, Source: source}}
}

// Encode returns the frame with its trailing newline.
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Publisher receives every message the app emits.
type Publisher interface {
	Broadcast(msg Message)
}

// Publishers fans a message out to several publishers.
type Publishers []Publisher

func (p Publishers) Broadcast(msg Message) {
	for _, pub := range p {
		pub.Broadcast(msg)
	}
}
