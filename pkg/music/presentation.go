package music

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is a packed 0xRRGGBB color.
type RGB uint32

const (
	Black RGB = 0x000000
	White RGB = 0xffffff

	// DefaultBackground is used when the artwork color is missing or invalid.
	DefaultBackground RGB = 0x3a3a3a

	// maxBackgroundLightness keeps white active lines readable.
	maxBackgroundLightness = 0.45
)

// Hex formats the color as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xffffff)
}

func rgbFromColor(c colorful.Color) RGB {
	r, g, b := c.Clamped().RGB255()
	return RGB(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// Presentation holds the colors the lyrics view is drawn with.
type Presentation struct {
	BackgroundColor RGB
	LineColor       RGB
	ActiveLineColor RGB
}

// PresentationFromArtwork derives a presentation from the artwork's dominant
// color: the background is the normalized artwork color, lines are black and
// the active line white.
func PresentationFromArtwork(hex string) Presentation {
	return Presentation{
		BackgroundColor: normalizeBackground(hex),
		LineColor:       Black,
		ActiveLineColor: White,
	}
}

// normalizeBackground caps the lightness of the artwork color.
func normalizeBackground(hex string) RGB {
	hex = strings.TrimSpace(hex)
	if hex == "" {
		return DefaultBackground
	}
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return DefaultBackground
	}

	if h, s, l := c.Hsl(); l > maxBackgroundLightness {
		c = colorful.Hsl(h, s, maxBackgroundLightness)
	}
	return rgbFromColor(c)
}
