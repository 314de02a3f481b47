package ipc

import (
	"bufio"
	"encoding/json"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Camel-bot/Spotilife/pkg/lyrics"
	"github.com/Camel-bot/Spotilife/pkg/music"
)

func testEnvelope() *music.Envelope {
	env := music.Assemble(&lyrics.Result{
		TimeSynced: true,
		Lines: []lyrics.Line{
			{Content: "hello", OffsetMs: 1000},
			{Content: lyrics.NoLyricsNote, OffsetMs: 4000},
		},
	}, music.PresentationFromArtwork("#224466"))
	env.Source = lyrics.SourceMusixmatch
	return env
}

// shortTempDir keeps unix socket paths under the platform length limit.
func shortTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "ipc")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// decodedFrame is the decoded form of a Message; the envelope stays raw.
type decodedFrame struct {
	Type     string          `json:"type"`
	Envelope json.RawMessage `json:"envelope"`
	Line     *LineEvent      `json:"line"`
	Notice   *Notice         `json:"notice"`
}

func readMessage(t *testing.T, r *bufio.Reader) decodedFrame {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var f decodedFrame
	if err := json.Unmarshal([]byte(line), &f); err != nil {
		t.Fatalf("decode frame %q: %v", line, err)
	}
	return f
}

func TestMessageEncode(t *testing.T) {
	frame, err := LyricsMessage(testEnvelope()).Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if !strings.HasSuffix(string(frame), "\n") || strings.Count(string(frame), "\n") != 1 {
		t.Errorf("frame is not a single line: %q", frame)
	}
	if !strings.Contains(string(frame), `"startTimeMs":1000`) || !strings.Contains(string(frame), `"provider":"musixmatch"`) {
		t.Errorf("frame missing envelope fields: %s", frame)
	}

	frame, _ = InvalidTokenMessage(lyrics.SourceMusixmatch).Encode()
	want := `{"type":"notice","notice":{"kind":"invalid_token","source":"musixmatch"}}` + "\n"
	if string(frame) != want {
		t.Errorf("notice frame = %q, want %q", frame, want)
	}
}

func TestServerBroadcast(t *testing.T) {
	dir := shortTempDir(t)
	s := NewServer(filepath.Join(dir, "l.sock"))
	statusPath := filepath.Join(dir, "status")
	s.SetStatusPath(statusPath)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Close()

	s.Broadcast(LyricsMessage(testEnvelope()))
	s.Broadcast(LineMessage(0, "hello"))

	conn, err := net.Dial("unix", filepath.Join(dir, "l.sock"))
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	r := bufio.NewReader(conn)

	// 新客户端先收到最近的歌词和当前行
	if msg := readMessage(t, r); msg.Type != TypeLyrics || len(msg.Envelope) == 0 {
		t.Errorf("first replayed = %+v, want lyrics", msg)
	}
	if msg := readMessage(t, r); msg.Type != TypeLine || msg.Line == nil || msg.Line.Words != "hello" {
		t.Errorf("second replayed = %+v, want line hello", msg)
	}

	status, err := os.ReadFile(statusPath)
	if err != nil {
		t.Fatalf("read status file: %v", err)
	}
	if string(status) != "hello\n" {
		t.Errorf("status file = %q, want %q", status, "hello\n")
	}

	// 重放时连接已经注册
	s.Broadcast(InvalidTokenMessage(lyrics.SourceMusixmatch))
	msg := readMessage(t, r)
	if msg.Type != TypeNotice || msg.Notice == nil || msg.Notice.Kind != NoticeInvalidToken {
		t.Errorf("live message = %+v, want invalid token notice", msg)
	}
}

func TestServerSecondInstanceFails(t *testing.T) {
	dir := shortTempDir(t)
	path := filepath.Join(dir, "l.sock")

	first := NewServer(path)
	if err := first.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer first.Close()

	second := NewServer(path)
	if err := second.Start(); err == nil {
		second.Close()
		t.Fatal("second Start() succeeded, want lock error")
	}
}

func TestHubReplaysLastEnvelope(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewMux(hub, nil))
	defer srv.Close()

	env := testEnvelope()
	hub.Broadcast(LyricsMessage(env))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	t.Run("json", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("Dial() error: %v", err)
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))

		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error: %v", err)
		}
		if kind != websocket.TextMessage {
			t.Errorf("message kind = %d, want text", kind)
		}
		if !strings.Contains(string(data), `"type":"lyrics"`) || !strings.Contains(string(data), `"words":"hello"`) {
			t.Errorf("unexpected payload: %s", data)
		}
	})

	t.Run("proto", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?format=proto", nil)
		if err != nil {
			t.Fatalf("Dial() error: %v", err)
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))

		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error: %v", err)
		}
		if kind != websocket.BinaryMessage {
			t.Fatalf("message kind = %d, want binary", kind)
		}
		var got music.Envelope
		if err := got.UnmarshalBinary(data); err != nil {
			t.Fatalf("UnmarshalBinary() error: %v", err)
		}
		if got.Presentation != env.Presentation || len(got.Result.Lines) != 2 || got.Result.Lines[0].OffsetMs != 1000 {
			t.Errorf("decoded envelope = %+v", got)
		}
	})
}

func TestMuxHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMux(NewHub(), nil).ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
