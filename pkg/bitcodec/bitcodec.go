// Package bitcodec holds the bit-level primitives shared by the frame codec
// and the channel mapper: 7-bit group conversion, LSB substitution and a
// packed, MSB-first bit stream.
package bitcodec

import (
	"errors"
	"fmt"
	"strconv"
)

// GroupSize is the width of one encoded character. Hex digits are ASCII
// codes below 128, so seven bits always suffice.
const GroupSize = 7

// ErrNotSevenBit is returned when a value does not fit in a 7-bit group.
var ErrNotSevenBit = errors.New("value does not fit in 7 bits")

// ErrMalformedGroup is returned when a textual group is not 7 binary digits.
var ErrMalformedGroup = errors.New("malformed 7-bit group")

func checkGroup(v byte) error {
	if v > 0x7f {
		return fmt.Errorf("%w: %d", ErrNotSevenBit, v)
	}
	return nil
}

// Bits7 returns the zero-padded 7-character binary form of v.
func Bits7(v byte) (string, error) {
	if err := checkGroup(v); err != nil {
		return "", err
	}
	return fmt.Sprintf("%07b", v), nil
}

// ParseBits7 is the inverse of Bits7.
func ParseBits7(s string) (byte, error) {
	if len(s) != GroupSize {
		return 0, fmt.Errorf("%w: %q has length %d", ErrMalformedGroup, s, len(s))
	}
	v, err := strconv.ParseUint(s, 2, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedGroup, s)
	}
	return byte(v), nil
}

// SetLSB replaces the least significant bit of v with the low bit of bit.
func SetLSB(v uint8, bit uint8) uint8 {
	return (v &^ 1) | (bit & 1)
}
