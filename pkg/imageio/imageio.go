// Package imageio loads carrier images, works out their colour mode and
// writes stego images back out in the carrier's container format.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Beastly713/steg/pkg/channel"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ErrUnsupportedOutput indicates the carrier's extension has no output format.
var ErrUnsupportedOutput = errors.New("unsupported output image type")

// Format is an output container. Its value doubles as the output file
// extension.
type Format string

const (
	FormatPNG  Format = "png"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "TIFF"
	// FormatJPEG is accepted for parity with older tooling. Re-compression
	// destroys the embedded bits.
	FormatJPEG Format = "jpeg"
)

// FileName is the fixed stego output name for f.
func (f Format) FileName() string {
	return "new." + string(f)
}

// ContentType is the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	case FormatJPEG:
		return "image/jpeg"
	}
	return "application/octet-stream"
}

// Lossy reports whether f destroys least significant bits on save.
func (f Format) Lossy() bool {
	return f == FormatJPEG
}

// OutputFormat derives the output container from a carrier file name.
func OutputFormat(name string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "png":
		return FormatPNG, nil
	case "bmp":
		return FormatBMP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedOutput, ext)
}

// Carrier is a decoded image together with what the embedder needs to know
// about it.
type Carrier struct {
	Image image.Image
	Mode  channel.Mode

	// Format is the name of the decoder that read the image.
	Format string
}

// Width returns the carrier width in pixels.
func (c *Carrier) Width() int {
	return c.Image.Bounds().Dx()
}

// Height returns the carrier height in pixels.
func (c *Carrier) Height() int {
	return c.Image.Bounds().Dy()
}

// Load reads and decodes the carrier at path.
func Load(path string) (*Carrier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode decodes an in-memory carrier.
func Decode(data []byte) (*Carrier, error) {
	bilevel := sniffBilevel(data)

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if bilevel {
			return nil, fmt.Errorf("%w: %s", channel.ErrUnsupportedMode, channel.ModeBilevel)
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	mode := channel.ModeOf(img)
	if bilevel {
		mode = channel.ModeBilevel
	}

	return &Carrier{Image: img, Mode: mode, Format: format}, nil
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 100})
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedOutput, string(f))
}

// Save encodes img fully in memory and then writes it to path, replacing any
// existing file. A failed encode leaves nothing on disk.
func Save(path string, img image.Image, f Format) error {
	var buf bytes.Buffer
	if err := Encode(&buf, img, f); err != nil {
		return fmt.Errorf("failed to encode %s: %w", f, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// sniffBilevel reports 1-bit grayscale PNGs and 1-bit BMPs. Go's decoders
// widen those to 8-bit gray or palette images, which would hide the mode.
func sniffBilevel(data []byte) bool {
	switch {
	case bytes.HasPrefix(data, pngMagic) && len(data) > 25:
		// IHDR is always the first chunk: bit depth at 24, colour type at 25.
		return data[24] == 1 && data[25] == 0
	case bytes.HasPrefix(data, []byte("BM")) && len(data) > 29:
		return data[28] == 1 && data[29] == 0
	}
	return false
}
