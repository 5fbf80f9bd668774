// Package channel maps a bitstream onto the channel slots of a carrier
// image and reads it back.
//
// Traversal is row-major (top to bottom, left to right) and, within a pixel,
// follows Mode.Slots. Nothing else synchronises the writer and the reader, so
// Embed and Read must walk the image identically.
package channel

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/Beastly713/steg/pkg/bitcodec"
)

// ErrUnsupportedMode indicates a colour mode that cannot carry bits.
var ErrUnsupportedMode = errors.New("unsupported image mode")

// ErrBitsExhausted indicates the bit source ran out before every slot was
// written. Capacity-aware padding makes this a programming error.
var ErrBitsExhausted = errors.New("bitstream exhausted before the last channel slot")

// Embed returns a new image of the same size as src whose slots carry the
// bits pulled from cur. L carriers produce *image.Gray, RGB and RGBA
// carriers produce *image.NRGBA with alpha copied through.
func Embed(src image.Image, mode Mode, cur *bitcodec.Cursor) (image.Image, error) {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	rect := image.Rect(0, 0, width, height)

	next := func(x, y int, ch Channel) (uint8, error) {
		bit, ok := cur.Next()
		if !ok {
			return 0, fmt.Errorf("%w: pixel (%d,%d) channel %s", ErrBitsExhausted, x, y, ch)
		}
		return bit, nil
	}

	switch mode {
	case ModeL:
		output := image.NewGray(rect)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				bit, err := next(x, y, Y)
				if err != nil {
					return nil, err
				}
				v := grayAt(src, bounds.Min.X+x, bounds.Min.Y+y)
				output.SetGray(x, y, color.Gray{Y: bitcodec.SetLSB(v, bit)})
			}
		}
		return output, nil

	case ModeRGB, ModeRGBA:
		output := image.NewNRGBA(rect)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := nrgbaAt(src, bounds.Min.X+x, bounds.Min.Y+y)
				for _, ch := range mode.Slots() {
					bit, err := next(x, y, ch)
					if err != nil {
						return nil, err
					}
					p := component(&c, ch)
					*p = bitcodec.SetLSB(*p, bit)
				}
				output.SetNRGBA(x, y, c)
			}
		}
		return output, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
}

// Read collects the least significant bit of every slot of img, in the
// same order Embed writes them.
func Read(img image.Image, mode Mode) (*bitcodec.Stream, error) {
	if !mode.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}

	bounds := img.Bounds()
	w := bitcodec.NewWriter()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if mode == ModeL {
				if err := w.WriteBit(grayAt(img, x, y)); err != nil {
					return nil, err
				}
				continue
			}

			c := nrgbaAt(img, x, y)
			for _, ch := range mode.Slots() {
				if err := w.WriteBit(*component(&c, ch)); err != nil {
					return nil, err
				}
			}
		}
	}

	return w.Stream()
}

func component(c *color.NRGBA, ch Channel) *uint8 {
	switch ch {
	case R:
		return &c.R
	case G:
		return &c.G
	default:
		return &c.B
	}
}

func grayAt(img image.Image, x, y int) uint8 {
	if g, ok := img.(*image.Gray); ok {
		return g.GrayAt(x, y).Y
	}
	return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
}

func nrgbaAt(img image.Image, x, y int) color.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n.NRGBAAt(x, y)
	}
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}
