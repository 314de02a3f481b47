package music

import (
	"encoding/json"
	"fmt"

	"github.com/Camel-bot/Spotilife/pkg/lyrics"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope is the final output of a resolve: lyrics plus presentation.
type Envelope struct {
	Presentation Presentation
	Result       lyrics.Result
	Source       lyrics.Source
}

// Assemble wraps a result and a presentation. The presentation is taken as is.
func Assemble(result *lyrics.Result, presentation Presentation) *Envelope {
	env := &Envelope{Presentation: presentation}
	if result != nil {
		env.Result = lyrics.Result{
			Lines:      append([]lyrics.Line(nil), result.Lines...),
			TimeSynced: result.TimeSynced,
		}
	}
	return env
}

type colorsJSON struct {
	Background string `json:"background"`
	Line       string `json:"line"`
	ActiveLine string `json:"activeLine"`
}

type lineJSON struct {
	Words       string `json:"words"`
	StartTimeMs *int64 `json:"startTimeMs,omitempty"`
}

type envelopeJSON struct {
	Colors   colorsJSON `json:"colors"`
	Synced   bool       `json:"synced"`
	Provider string     `json:"provider,omitempty"`
	Lines    []lineJSON `json:"lines"`
}

// MarshalJSON encodes the envelope for IPC clients. Offsets are only present
// on time-synced results.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	out := envelopeJSON{
		Colors: colorsJSON{
			Background: e.Presentation.BackgroundColor.Hex(),
			Line:       e.Presentation.LineColor.Hex(),
			ActiveLine: e.Presentation.ActiveLineColor.Hex(),
		},
		Synced:   e.Result.TimeSynced,
		Provider: string(e.Source),
		Lines:    make([]lineJSON, len(e.Result.Lines)),
	}
	for i, line := range e.Result.Lines {
		out.Lines[i].Words = line.Content
		if e.Result.TimeSynced {
			offset := line.OffsetMs
			out.Lines[i].StartTimeMs = &offset
		}
	}
	return json.Marshal(out)
}

// Protobuf field numbers of the binary envelope.
const (
	fieldColors   protowire.Number = 1
	fieldData     protowire.Number = 2
	fieldProvider protowire.Number = 3

	fieldBackground protowire.Number = 1
	fieldLine       protowire.Number = 2
	fieldActiveLine protowire.Number = 3

	fieldSynced protowire.Number = 1
	fieldLines  protowire.Number = 2

	fieldStartTime protowire.Number = 1
	fieldWords     protowire.Number = 2
)

// MarshalBinary encodes the envelope in protobuf wire format.
func (e *Envelope) MarshalBinary() ([]byte, error) {
	var colors []byte
	colors = appendVarint(colors, fieldBackground, uint64(e.Presentation.BackgroundColor))
	colors = appendVarint(colors, fieldLine, uint64(e.Presentation.LineColor))
	colors = appendVarint(colors, fieldActiveLine, uint64(e.Presentation.ActiveLineColor))

	var data []byte
	data = appendVarint(data, fieldSynced, protowire.EncodeBool(e.Result.TimeSynced))
	for _, line := range e.Result.Lines {
		var msg []byte
		if e.Result.TimeSynced {
			msg = appendVarint(msg, fieldStartTime, uint64(line.OffsetMs))
		}
		msg = protowire.AppendTag(msg, fieldWords, protowire.BytesType)
		msg = protowire.AppendString(msg, line.Content)

		data = protowire.AppendTag(data, fieldLines, protowire.BytesType)
		data = protowire.AppendBytes(data, msg)
	}

	var b []byte
	b = protowire.AppendTag(b, fieldColors, protowire.BytesType)
	b = protowire.AppendBytes(b, colors)
	b = protowire.AppendTag(b, fieldData, protowire.BytesType)
	b = protowire.AppendBytes(b, data)
	if e.Source != "" {
		b = protowire.AppendTag(b, fieldProvider, protowire.BytesType)
		b = protowire.AppendString(b, string(e.Source))
	}
	return b, nil
}

// UnmarshalBinary decodes an envelope produced by MarshalBinary. Unknown
// fields are skipped.
func (e *Envelope) UnmarshalBinary(b []byte) error {
	*e = Envelope{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch {
		case num == fieldColors && typ == protowire.BytesType:
			return walkFields(v, func(num protowire.Number, typ protowire.Type, _ []byte, n uint64) error {
				switch num {
				case fieldBackground:
					e.Presentation.BackgroundColor = RGB(n)
				case fieldLine:
					e.Presentation.LineColor = RGB(n)
				case fieldActiveLine:
					e.Presentation.ActiveLineColor = RGB(n)
				}
				return nil
			})
		case num == fieldData && typ == protowire.BytesType:
			return e.unmarshalData(v)
		case num == fieldProvider && typ == protowire.BytesType:
			e.Source = lyrics.Source(v)
		}
		return nil
	})
}

func (e *Envelope) unmarshalData(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch {
		case num == fieldSynced && typ == protowire.VarintType:
			e.Result.TimeSynced = protowire.DecodeBool(n)
		case num == fieldLines && typ == protowire.BytesType:
			var line lyrics.Line
			err := walkFields(v, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
				switch {
				case num == fieldStartTime && typ == protowire.VarintType:
					line.OffsetMs = int64(n)
				case num == fieldWords && typ == protowire.BytesType:
					line.Content = string(v)
				}
				return nil
			})
			if err != nil {
				return err
			}
			e.Result.Lines = append(e.Result.Lines, line)
		}
		return nil
	})
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// walkFields calls fn for each field in b. Varint fields pass their value in
// n; length-delimited fields pass their payload in v.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error) error {
	for len(b) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(b)
		if tagLen < 0 {
			return fmt.Errorf("invalid envelope tag: %w", protowire.ParseError(tagLen))
		}
		b = b[tagLen:]

		var (
			v      []byte
			n      uint64
			valLen int
		)
		switch typ {
		case protowire.VarintType:
			n, valLen = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			v, valLen = protowire.ConsumeBytes(b)
		default:
			valLen = protowire.ConsumeFieldValue(num, typ, b)
		}
		if valLen < 0 {
			return fmt.Errorf("invalid envelope field %d: %w", num, protowire.ParseError(valLen))
		}
		b = b[valLen:]

		if err := fn(num, typ, v, n); err != nil {
			return err
		}
	}
	return nil
}
