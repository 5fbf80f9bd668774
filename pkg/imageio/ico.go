package imageio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/Beastly713/steg/pkg/channel"
	"golang.org/x/image/bmp"
)

// ICO files are a directory of PNG or headerless BMP (DIB) images. Only the
// largest entry is decoded.

var errInvalidICO = errors.New("ico: invalid format")

const (
	icoDirSize   = 6
	icoEntrySize = 16
	bmpFileHdr   = 14
)

func init() {
	image.RegisterFormat("ico", "\x00\x00\x01\x00", decodeICO, decodeICOConfig)
}

type icoEntry struct {
	width, height int
	bitCount      uint16
	size, offset  uint32
}

func (e icoEntry) area() int {
	return e.width * e.height
}

func readICOEntries(data []byte) ([]icoEntry, error) {
	if len(data) < icoDirSize {
		return nil, errInvalidICO
	}
	if binary.LittleEndian.Uint16(data[0:]) != 0 || binary.LittleEndian.Uint16(data[2:]) != 1 {
		return nil, errInvalidICO
	}
	count := int(binary.LittleEndian.Uint16(data[4:]))
	if count == 0 || len(data) < icoDirSize+count*icoEntrySize {
		return nil, errInvalidICO
	}

	entries := make([]icoEntry, 0, count)
	for i := 0; i < count; i++ {
		raw := data[icoDirSize+i*icoEntrySize:]
		e := icoEntry{
			width:    int(raw[0]),
			height:   int(raw[1]),
			bitCount: binary.LittleEndian.Uint16(raw[6:]),
			size:     binary.LittleEndian.Uint32(raw[8:]),
			offset:   binary.LittleEndian.Uint32(raw[12:]),
		}
		// A zero dimension means 256.
		if e.width == 0 {
			e.width = 256
		}
		if e.height == 0 {
			e.height = 256
		}
		if uint64(e.offset)+uint64(e.size) > uint64(len(data)) {
			return nil, fmt.Errorf("%w: entry %d out of range", errInvalidICO, i)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func largestICOEntry(data []byte) ([]byte, error) {
	entries, err := readICOEntries(data)
	if err != nil {
		return nil, err
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if e.area() > best.area() || (e.area() == best.area() && e.bitCount > best.bitCount) {
			best = e
		}
	}
	return data[best.offset : best.offset+best.size], nil
}

// dibToBMP prepends a BITMAPFILEHEADER to an icon DIB and halves its height,
// which in icons also counts the trailing AND mask rows.
func dibToBMP(dib []byte) ([]byte, error) {
	if len(dib) < 40 {
		return nil, fmt.Errorf("%w: short DIB header", errInvalidICO)
	}
	hdrSize := binary.LittleEndian.Uint32(dib[0:])
	height := int32(binary.LittleEndian.Uint32(dib[8:]))
	bitCount := binary.LittleEndian.Uint16(dib[14:])
	colorsUsed := binary.LittleEndian.Uint32(dib[32:])
	if colorsUsed == 0 && bitCount <= 8 {
		colorsUsed = 1 << bitCount
	}

	out := make([]byte, bmpFileHdr+len(dib))
	copy(out[bmpFileHdr:], dib)
	binary.LittleEndian.PutUint32(out[bmpFileHdr+8:], uint32(height/2))

	out[0], out[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(out[2:], uint32(len(out)))
	binary.LittleEndian.PutUint32(out[10:], bmpFileHdr+hdrSize+colorsUsed*4)
	return out, nil
}

// bilevelICOEntry reports 1-bit entries, either a 1-bit grayscale PNG or a
// DIB with a bit count of 1.
func bilevelICOEntry(blob []byte) bool {
	if bytes.HasPrefix(blob, pngMagic) {
		return sniffBilevel(blob)
	}
	return len(blob) >= 16 && binary.LittleEndian.Uint16(blob[14:]) == 1
}

func decodeICO(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	blob, err := largestICOEntry(data)
	if err != nil {
		return nil, err
	}
	if bilevelICOEntry(blob) {
		return nil, fmt.Errorf("%w: 1-bit icon entry", channel.ErrUnsupportedMode)
	}
	if bytes.HasPrefix(blob, pngMagic) {
		return png.Decode(bytes.NewReader(blob))
	}
	bmpData, err := dibToBMP(blob)
	if err != nil {
		return nil, err
	}
	return bmp.Decode(bytes.NewReader(bmpData))
}

func decodeICOConfig(r io.Reader) (image.Config, error) {
	img, err := decodeICO(r)
	if err != nil {
		return image.Config{}, err
	}
	b := img.Bounds()
	return image.Config{ColorModel: img.ColorModel(), Width: b.Dx(), Height: b.Dy()}, nil
}
