package genius

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/Camel-bot/Spotilife/pkg/lyrics"
)

const searchBody = `{"response":{"hits":[
	{"type":"song","result":{"id":1,"title":"Hello (Cover)","artist_names":"Somebody Else","path":"/cover-lyrics"}},
	{"type":"song","result":{"id":2,"title":"Hello","artist_names":"Adele","path":"/Adele-hello-lyrics"}}
]}}`

const pageBody = `<html><body>
<div data-lyrics-container="true"><div data-exclude-from-selection="true">5 Contributors</div>[Verse 1]<br>Hello, it's me<br><br><a href="#"><span>I was wondering</span></a></div>
<div data-lyrics-container="true">If after all these years<br>You'd like to meet</div>
</body></html>`

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL})
}

func TestGetLyrics(t *testing.T) {
	var searched string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/search":
			searched = r.URL.Query().Get("q")
			w.Write([]byte(searchBody))
		case "/Adele-hello-lyrics":
			w.Write([]byte(pageBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	res, err := c.GetLyrics(context.Background(), lyrics.Query{Title: "Hello", Artist: "Adele"}, lyrics.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if searched != "Hello Adele" {
		t.Errorf("search query = %q", searched)
	}

	want := []lyrics.Line{
		{Content: "[Verse 1]"},
		{Content: "Hello, it's me"},
		{Content: lyrics.NoLyricsNote},
		{Content: "I was wondering"},
		{Content: "If after all these years"},
		{Content: "You'd like to meet"},
	}
	if res.TimeSynced {
		t.Error("genius lyrics must not be time-synced")
	}
	if !reflect.DeepEqual(res.Lines, want) {
		t.Errorf("lines = %+v, want %+v", res.Lines, want)
	}
}

func TestGetLyricsErrors(t *testing.T) {
	tests := []struct {
		name    string
		search  string
		page    string
		status  int
		wantErr error
	}{
		{
			name:    "no hits",
			search:  `{"response":{"hits":[]}}`,
			wantErr: lyrics.ErrSongNotFound,
		},
		{
			name:    "no title match",
			search:  `{"response":{"hits":[{"type":"song","result":{"title":"Goodbye","path":"/x"}}]}}`,
			wantErr: lyrics.ErrSongNotFound,
		},
		{
			name:    "bad search json",
			search:  `[]`,
			wantErr: lyrics.ErrDecoding,
		},
		{
			name:    "page without container",
			search:  searchBody,
			page:    `<html><body><p>nothing here</p></body></html>`,
			wantErr: lyrics.ErrDecoding,
		},
		{
			name:    "server error",
			status:  http.StatusServiceUnavailable,
			wantErr: lyrics.ErrTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
					return
				}
				if r.URL.Path == "/api/search" {
					w.Write([]byte(tt.search))
					return
				}
				w.Write([]byte(tt.page))
			})

			_, err := c.GetLyrics(context.Background(), lyrics.Query{Title: "Hello", Artist: "Adele"}, lyrics.Options{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInstrumentalPage(t *testing.T) {
	lines, err := extractLyrics([]byte(`<div class="LyricsPlaceholder__Message">This song is an instrumental</div>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 || lines[0] != lyrics.NoLyricsNote {
		t.Errorf("lines = %q", lines)
	}
}
