package channel

import (
	"image"
	"image/color"
)

// Mode names a carrier's colour layout the way image tools usually report it.
type Mode string

const (
	ModeL       Mode = "L"
	ModeRGB     Mode = "RGB"
	ModeRGBA    Mode = "RGBA"
	ModeBilevel Mode = "1"
	ModePalette Mode = "P"
	ModeUnknown Mode = ""
)

// Channel identifies one colour component of a pixel.
type Channel int

const (
	Y Channel = iota
	R
	G
	B
)

func (c Channel) String() string {
	switch c {
	case Y:
		return "Y"
	case R:
		return "R"
	case G:
		return "G"
	case B:
		return "B"
	}
	return "?"
}

// Slots returns the per-pixel channel order used for embedding. Alpha never
// carries data.
func (m Mode) Slots() []Channel {
	switch m {
	case ModeL:
		return []Channel{Y}
	case ModeRGB, ModeRGBA:
		return []Channel{R, G, B}
	}
	return nil
}

// Channels is the number of writable channels per pixel.
func (m Mode) Channels() int {
	return len(m.Slots())
}

// Supported reports whether bits can be embedded in m.
func (m Mode) Supported() bool {
	return m.Channels() > 0
}

func (m Mode) String() string {
	if m == ModeUnknown {
		return "unknown"
	}
	return string(m)
}

// ModeOf inspects the concrete image type returned by a decoder.
// Grayscale palettes (as written by BMP encoders) count as L, and a
// black/white two-entry palette counts as bilevel.
func ModeOf(img image.Image) Mode {
	switch m := img.(type) {
	case *image.Gray:
		return ModeL
	case *image.NRGBA:
		return ModeRGBA
	case *image.RGBA:
		if m.Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	case *image.YCbCr:
		return ModeRGB
	case *image.Paletted:
		return paletteMode(m.Palette)
	}
	return ModeUnknown
}

func paletteMode(p color.Palette) Mode {
	for _, c := range p {
		r, g, b, a := c.RGBA()
		if r != g || g != b || a != 0xffff {
			return ModePalette
		}
	}
	if len(p) <= 2 {
		return ModeBilevel
	}
	return ModeL
}
