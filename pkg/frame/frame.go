// Package frame builds and parses the sentinel-delimited message that is
// spread across a carrier's channel slots.
//
// A frame is laid out as
//
//	payload TAB START TAB extension TAB END
//
// hex-encoded, with every hex digit written as a 7-bit group and the result
// padded with random hex digits up to the carrier's capacity. Nothing about
// the payload length is stored; decoding relies on the sentinels alone.
package frame

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/Beastly713/steg/pkg/bitcodec"
)

// SentinelLen is the length of both sentinel runs.
const SentinelLen = 49

var (
	// ErrDecode indicates the recovered characters were not valid hex.
	ErrDecode = errors.New("recovered bitstream is not valid hex")

	// ErrFrameNotFound indicates the start sentinel is missing.
	ErrFrameNotFound = errors.New("failed to find message buffer")

	// ErrUnknownExtension indicates the end sentinel is missing or the
	// extension between the sentinels is unusable.
	ErrUnknownExtension = errors.New("unknown file type in extracted message")
)

// Config holds the framing constants. The zero value is not usable; callers
// normally rely on the package-level Encode and Decode.
type Config struct {
	Start     []byte
	End       []byte
	Separator byte

	// TrimChars is the number of trailing hex characters discarded before
	// hex decoding. It absorbs the parity filler and the ragged padding tail.
	TrimChars int

	// ParityFiller is appended when the recovered character count is odd.
	ParityFiller byte

	// PadAlphabet supplies the random padding digits.
	PadAlphabet string
}

var std = Config{
	Start:        bytes.Repeat([]byte{'E'}, SentinelLen),
	End:          bytes.Repeat([]byte{'F'}, SentinelLen),
	Separator:    '\t',
	TrimChars:    10,
	ParityFiller: 'A',
	PadAlphabet:  "abcdef",
}

// DefaultConfig returns a copy of the framing constants used by Encode and
// Decode.
func DefaultConfig() Config {
	c := std
	c.Start = bytes.Clone(std.Start)
	c.End = bytes.Clone(std.End)
	return c
}

// TrimBits is the number of trailing bits the decoder throws away.
func (c Config) TrimBits() int {
	return c.TrimChars * bitcodec.GroupSize
}

// Build returns the raw (unencoded) frame bytes.
func (c Config) Build(payload []byte, ext string) []byte {
	sep := []byte{c.Separator}
	frame := make([]byte, 0, len(payload)+len(c.Start)+len(c.End)+len(ext)+3)
	frame = append(frame, payload...)
	frame = append(frame, sep...)
	frame = append(frame, c.Start...)
	frame = append(frame, sep...)
	frame = append(frame, ext...)
	frame = append(frame, sep...)
	frame = append(frame, c.End...)
	return frame
}

// MessageBits is the length of the unpadded bitstream for a payload of
// payloadLen bytes and an extension of extLen bytes.
func (c Config) MessageBits(payloadLen, extLen int) int {
	frameLen := payloadLen + len(c.Start) + len(c.End) + extLen + 3
	return frameLen * 2 * bitcodec.GroupSize
}

// Encode frames payload and returns a bitstream at least targetBits long.
// The padding loop works in whole groups, so the result may exceed
// targetBits by up to six bits. The target is assumed to be feasible.
func (c Config) Encode(payload []byte, ext string, targetBits int) (*bitcodec.Stream, error) {
	digits := hex.EncodeToString(c.Build(payload, ext))

	w := bitcodec.NewWriter()
	for i := 0; i < len(digits); i++ {
		if err := w.WriteGroup(digits[i]); err != nil {
			return nil, fmt.Errorf("failed to encode hex digit %d: %w", i, err)
		}
	}

	for w.Len() < targetBits {
		pad := c.PadAlphabet[rand.IntN(len(c.PadAlphabet))]
		if err := w.WriteGroup(pad); err != nil {
			return nil, fmt.Errorf("failed to write padding: %w", err)
		}
	}

	return w.Stream()
}

// Decode recovers the payload and its extension from a bitstream read back
// out of a carrier.
func (c Config) Decode(s *bitcodec.Stream) ([]byte, string, error) {
	chars, err := s.Groups()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if len(chars)%2 != 0 {
		chars = append(chars, c.ParityFiller)
	}
	if len(chars) > c.TrimChars {
		chars = chars[:len(chars)-c.TrimChars]
	} else {
		chars = chars[:0]
	}

	raw := make([]byte, hex.DecodedLen(len(chars)))
	if _, err := hex.Decode(raw, chars); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}

	start := bytes.Index(raw, c.Start)
	if start == -1 {
		return nil, "", ErrFrameNotFound
	}

	payloadEnd := start
	if start > 0 && raw[start-1] == c.Separator {
		payloadEnd--
	}

	extStart := start + len(c.Start) + 1
	if extStart > len(raw) {
		return nil, "", ErrUnknownExtension
	}
	end := bytes.Index(raw[extStart:], c.End)
	if end == -1 {
		return nil, "", ErrUnknownExtension
	}
	extEnd := max(extStart+end-1, extStart)

	ext := raw[extStart:extEnd]
	for _, b := range ext {
		if b > 0x7f {
			return nil, "", fmt.Errorf("%w: extension is not ASCII", ErrUnknownExtension)
		}
	}

	return raw[:payloadEnd], string(ext), nil
}

// Encode frames payload with the default configuration.
func Encode(payload []byte, ext string, targetBits int) (*bitcodec.Stream, error) {
	return std.Encode(payload, ext, targetBits)
}

// Decode parses a bitstream with the default configuration.
func Decode(s *bitcodec.Stream) ([]byte, string, error) {
	return std.Decode(s)
}

// MessageBits reports the unpadded bitstream length under the default
// configuration.
func MessageBits(payloadLen, extLen int) int {
	return std.MessageBits(payloadLen, extLen)
}

// TrimBits reports the decoder's trailing trim under the default
// configuration.
func TrimBits() int {
	return std.TrimBits()
}
