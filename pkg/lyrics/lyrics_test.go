package lyrics

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSplitPlain(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"terminating newline", "one\ntwo\n", []string{"one", "two"}},
		{"no terminating newline", "one\ntwo", []string{"one", "two"}},
		{"blank line kept", "one\n\ntwo\n", []string{"one", "", "two"}},
		{"crlf kept in content", "one\r\ntwo\r\n", []string{"one\r", "two\r"}},
		{"only newline", "\n", []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitPlain(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitPlain(%q) = %q, want %q", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitPlainRoundTrip(t *testing.T) {
	texts := []string{
		"first\nsecond\n\nthird\n",
		"a\nb\nc\n",
		"single\n",
		"windows\r\nline endings\r\n",
	}
	for _, text := range texts {
		joined := strings.Join(SplitPlain(text), "\n") + "\n"
		if joined != text {
			t.Errorf("round trip of %q gave %q", text, joined)
		}
	}
}

func TestPlainResultReplacesEmptyLines(t *testing.T) {
	res := PlainResult([]string{"hello", "", "  ", "world"})
	if res.TimeSynced {
		t.Fatal("plain result must not be time-synced")
	}
	want := []string{"hello", NoLyricsNote, NoLyricsNote, "world"}
	for i, line := range res.Lines {
		if line.Content != want[i] {
			t.Errorf("line %d = %q, want %q", i, line.Content, want[i])
		}
		if line.OffsetMs != 0 {
			t.Errorf("line %d has offset %d on a plain result", i, line.OffsetMs)
		}
	}
}

func TestParseLRC(t *testing.T) {
	lrc := "[ar:Someone]\n[00:12.30]second\n[00:01.5]first\n[01:02.345]third\n[00:20.00]\nno timestamp"
	lines := ParseLRC(lrc)

	want := []Line{
		{Content: "first", OffsetMs: 1500},
		{Content: "second", OffsetMs: 12300},
		{Content: NoLyricsNote, OffsetMs: 20000},
		{Content: "third", OffsetMs: 62345},
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %+v", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %+v, want %+v", i, lines[i], want[i])
		}
	}
}

func TestParseLRCRepeatedTimestamps(t *testing.T) {
	lines := ParseLRC("[00:10.00][00:30.00]chorus")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].OffsetMs != 10000 || lines[1].OffsetMs != 30000 {
		t.Errorf("unexpected offsets: %+v", lines)
	}
}

func TestTransportError(t *testing.T) {
	err := Transport(io.ErrUnexpectedEOF)

	if !errors.Is(err, ErrTransport) {
		t.Error("expected errors.Is(err, ErrTransport)")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected transport error to unwrap to its cause")
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatal("expected *TransportError")
	}
	if errors.Is(err, ErrDecoding) {
		t.Error("transport error must not match ErrDecoding")
	}
	if Transport(nil) != nil {
		t.Error("Transport(nil) should be nil")
	}
}

func TestParseSource(t *testing.T) {
	for _, s := range Sources() {
		got, err := ParseSource(string(s))
		if err != nil || got != s {
			t.Errorf("ParseSource(%q) = %q, %v", s, got, err)
		}
	}
	if _, err := ParseSource("kugou"); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold("Beyoncé", "beyonce") {
		t.Error("accents should fold")
	}
	if !ContainsFold("Let It Be (Remastered)", "let it be") {
		t.Error("expected containment")
	}
	if ContainsFold("Yesterday", "Help") {
		t.Error("unrelated titles should not match")
	}
}
