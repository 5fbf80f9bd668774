package stego

import (
	"bytes"
	"image"
	"image/color"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/Beastly713/steg/pkg/channel"
	"github.com/Beastly713/steg/pkg/frame"
	"github.com/Beastly713/steg/pkg/imageio"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	return New(Options{OutputDir: dir, Logger: zerolog.Nop()}), dir
}

func noisyCarrier(w, h int, mode channel.Mode) image.Image {
	switch mode {
	case channel.ModeL:
		img := image.NewGray(image.Rect(0, 0, w, h))
		for i := range img.Pix {
			img.Pix[i] = uint8(rand.IntN(256))
		}
		return img
	default:
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		for i := range img.Pix {
			img.Pix[i] = uint8(rand.IntN(256))
			if i%4 == 3 && mode == channel.ModeRGB {
				img.Pix[i] = 255
			}
		}
		return img
	}
}

func writeCarrier(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	format, err := imageio.OutputFormat(name)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, imageio.Save(path, img, format))
	return path
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestHelloWorldScenario(t *testing.T) {
	engine, out := newEngine(t)
	in := t.TempDir()

	carrier := writeCarrier(t, in, "carrier.png", noisyCarrier(64, 64, channel.ModeRGB))
	payload := writeFile(t, in, "message.txt", []byte("hello world"))

	hidden, err := engine.Hide(carrier, payload)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "new.png"), hidden.OutputPath)
	assert.Equal(t, channel.ModeRGB, hidden.Mode)
	assert.Equal(t, 64*64*3, hidden.CapacityBits)
	assert.Equal(t, StateDone, engine.State())
	assert.FileExists(t, hidden.OutputPath)

	extracted, err := engine.Extract(hidden.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "hidden_file.txt"), extracted.OutputPath)
	assert.Equal(t, "txt", extracted.Payload.Extension)

	content, err := os.ReadFile(extracted.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
}

func TestRoundTripAcrossFormatsAndModes(t *testing.T) {
	cases := []struct {
		name    string
		carrier string
		mode    channel.Mode
		w, h    int
	}{
		{"png L", "c.png", channel.ModeL, 80, 60},
		{"png RGB", "c.png", channel.ModeRGB, 40, 40},
		{"png RGBA", "c.png", channel.ModeRGBA, 40, 40},
		{"bmp RGB", "c.bmp", channel.ModeRGB, 41, 37},
		{"bmp L", "c.bmp", channel.ModeL, 90, 50},
		{"bmp RGBA", "c.bmp", channel.ModeRGBA, 41, 37},
		{"tiff L", "c.tif", channel.ModeL, 90, 50},
		{"tiff RGB", "c.tif", channel.ModeRGB, 40, 40},
		{"tiff RGBA", "c.tiff", channel.ModeRGBA, 40, 40},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, _ := newEngine(t)
			in := t.TempDir()

			data := make([]byte, 64)
			for i := range data {
				data[i] = byte(rand.IntN(256))
			}

			carrier := writeCarrier(t, in, tc.carrier, noisyCarrier(tc.w, tc.h, tc.mode))
			payload := writeFile(t, in, "blob.bin", data)

			hidden, err := engine.Hide(carrier, payload)
			require.NoError(t, err)

			extracted, err := engine.Extract(hidden.OutputPath)
			require.NoError(t, err)
			assert.Equal(t, "bin", extracted.Payload.Extension)
			assert.True(t, bytes.Equal(data, extracted.Payload.Data))
		})
	}
}

func TestHideKeepsUpperBitsAndAlpha(t *testing.T) {
	engine, _ := newEngine(t)
	src := noisyCarrier(32, 32, channel.ModeRGBA).(*image.NRGBA)

	embedded, err := engine.HideImage(&imageio.Carrier{Image: src, Mode: channel.ModeRGBA}, Payload{Data: []byte("x"), Extension: "txt"})
	require.NoError(t, err)

	dst := embedded.Image.(*image.NRGBA)
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			a, b := src.NRGBAAt(x, y), dst.NRGBAAt(x, y)
			require.Equal(t, a.R>>1, b.R>>1)
			require.Equal(t, a.G>>1, b.G>>1)
			require.Equal(t, a.B>>1, b.B>>1)
			require.Equal(t, a.A, b.A)
		}
	}
	assert.Greater(t, embedded.PSNR, 40.0)
}

func TestCapacityBoundary(t *testing.T) {
	in := t.TempDir()
	carrier := writeCarrier(t, in, "c.png", noisyCarrier(64, 64, channel.ModeRGB))

	// 64*64*3 = 12288 bits = 2 * 768 * 8.
	engine, out := newEngine(t)
	tooBig := writeFile(t, in, "big.txt", bytes.Repeat([]byte{'a'}, 768))
	_, err := engine.Hide(carrier, tooBig)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, StateFailed, engine.State())
	assert.NoFileExists(t, filepath.Join(out, "new.png"))

	engine, out = newEngine(t)
	fits := writeFile(t, in, "fits.txt", bytes.Repeat([]byte{'a'}, 767))
	hidden, err := engine.Hide(carrier, fits)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "new.png"), hidden.OutputPath)

	extracted, err := engine.Extract(hidden.OutputPath)
	require.NoError(t, err)
	assert.Len(t, extracted.Payload.Data, 767)
}

func TestTinyCarrierRejectedBeforeSentinelsAreLost(t *testing.T) {
	engine, out := newEngine(t)
	in := t.TempDir()

	// 20x20 RGB passes the 2x ratio for 11 bytes but cannot hold the frame.
	carrier := writeCarrier(t, in, "c.png", noisyCarrier(20, 20, channel.ModeRGB))
	payload := writeFile(t, in, "m.txt", []byte("hello world"))

	_, err := engine.Hide(carrier, payload)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.NoFileExists(t, filepath.Join(out, "new.png"))
}

func TestBilevelCarrierRejected(t *testing.T) {
	engine, out := newEngine(t)
	in := t.TempDir()

	bw := image.NewPaletted(image.Rect(0, 0, 64, 64), color.Palette{color.Black, color.White})
	carrier := writeCarrier(t, in, "bw.png", bw)
	payload := writeFile(t, in, "m.txt", []byte("hello"))

	_, err := engine.Hide(carrier, payload)
	require.ErrorIs(t, err, ErrUnsupportedMode)
	assert.Equal(t, StateFailed, engine.State())
	assert.NoFileExists(t, filepath.Join(out, "new.png"))

	_, err = engine.Extract(carrier)
	require.ErrorIs(t, err, ErrUnsupportedMode)
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestColourPaletteRejected(t *testing.T) {
	engine, _ := newEngine(t)
	pal := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.RGBA{200, 10, 10, 255}, color.White})

	_, err := engine.HideImage(&imageio.Carrier{Image: pal, Mode: channel.ModeOf(pal)}, Payload{Data: []byte("x")})
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestUnsupportedOutputFormat(t *testing.T) {
	engine, out := newEngine(t)
	in := t.TempDir()

	// Any readable image with an extension we cannot write back.
	carrier := filepath.Join(in, "c.ico")
	var buf bytes.Buffer
	require.NoError(t, imageio.Encode(&buf, noisyCarrier(64, 64, channel.ModeRGB), imageio.FormatPNG))
	require.NoError(t, os.WriteFile(carrier, buf.Bytes(), 0644))
	payload := writeFile(t, in, "m.txt", []byte("hello"))

	_, err := engine.Hide(carrier, payload)
	require.ErrorIs(t, err, ErrWrite)
	require.ErrorIs(t, err, imageio.ErrUnsupportedOutput)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileAccessErrors(t *testing.T) {
	engine, _ := newEngine(t)
	in := t.TempDir()

	_, err := engine.Hide(filepath.Join(in, "missing.png"), filepath.Join(in, "m.txt"))
	assert.ErrorIs(t, err, ErrFileAccess)
	assert.ErrorIs(t, err, os.ErrNotExist)

	carrier := writeCarrier(t, in, "c.png", noisyCarrier(64, 64, channel.ModeRGB))
	_, err = engine.Hide(carrier, filepath.Join(in, "missing.txt"))
	assert.ErrorIs(t, err, ErrFileAccess)

	garbage := writeFile(t, in, "garbage.png", []byte("not a png"))
	_, err = engine.Extract(garbage)
	assert.ErrorIs(t, err, ErrFileAccess)
}

func TestExtractFromCleanImage(t *testing.T) {
	engine, out := newEngine(t)
	in := t.TempDir()

	// All LSBs zero: every group decodes to NUL, which is not hex.
	carrier := writeCarrier(t, in, "clean.png", image.NewGray(image.Rect(0, 0, 50, 50)))
	_, err := engine.Extract(carrier)
	require.ErrorIs(t, err, ErrDecode)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractRejectsPathLikeExtension(t *testing.T) {
	engine, _ := newEngine(t)
	src := noisyCarrier(64, 64, channel.ModeRGB)

	// Frame the bits by hand; the engine refuses to hide such an extension.
	bits, err := frame.Encode([]byte("x"), "../evil", 64*64*3)
	require.NoError(t, err)
	img, err := channel.Embed(src, channel.ModeRGB, bits.Cursor())
	require.NoError(t, err)

	_, err = engine.ExtractImage(&imageio.Carrier{Image: img, Mode: channel.ModeRGB})
	assert.ErrorIs(t, err, ErrUnknownExtension)
	assert.Equal(t, StateFailed, engine.State())
}

func TestHideRejectsExtensionsThatCannotBeExtracted(t *testing.T) {
	in := t.TempDir()
	carrier := writeCarrier(t, in, "c.png", noisyCarrier(64, 64, channel.ModeRGB))

	for _, name := range []string{"notes.tüt", `notes.a\b`} {
		t.Run(name, func(t *testing.T) {
			engine, out := newEngine(t)
			payload := writeFile(t, in, name, []byte("hello world"))

			_, err := engine.Hide(carrier, payload)
			require.ErrorIs(t, err, ErrUnknownExtension)
			require.ErrorIs(t, err, frame.ErrUnknownExtension)
			assert.Equal(t, StateFailed, engine.State())
			assert.NoFileExists(t, filepath.Join(out, "new.png"))
		})
	}

	engine, _ := newEngine(t)
	_, err := engine.HideImage(
		&imageio.Carrier{Image: noisyCarrier(64, 64, channel.ModeRGB), Mode: channel.ModeRGB},
		Payload{Data: []byte("x"), Extension: "a/b"},
	)
	assert.ErrorIs(t, err, ErrUnknownExtension)
}

func TestValidExtensionAcceptsPlainText(t *testing.T) {
	for _, ext := range []string{"txt", "", "tar gz", "a\tb"} {
		assert.NoError(t, validExtension(ext), ext)
	}
}

func TestExtensionOf(t *testing.T) {
	cases := map[string]string{
		"notes.txt":          "txt",
		"dir/archive.tar.gz": "gz",
		"dir.d/README":       "README",
		".bashrc":            "bashrc",
	}
	for path, want := range cases {
		assert.Equal(t, want, ExtensionOf(path), path)
	}
	assert.Equal(t, "hidden_file.txt", HiddenFileName("txt"))
}
