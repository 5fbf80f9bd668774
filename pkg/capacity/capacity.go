// Package capacity decides whether a payload fits a carrier.
package capacity

import (
	"errors"
	"fmt"

	"github.com/Beastly713/steg/pkg/channel"
	"github.com/Beastly713/steg/pkg/frame"
)

// ErrCapacityExceeded indicates the payload is too large for the carrier.
var ErrCapacityExceeded = errors.New("attempting to hide a message that is too large for the carrier")

// Margin is the fixed ratio between carrier capacity and raw payload bits.
const Margin = 2

// Bits returns the number of channel slots of a width x height carrier.
func Bits(width, height int, mode channel.Mode) int {
	return width * height * mode.Channels()
}

// EstimatedFrameBits is the raw payload size in bits.
func EstimatedFrameBits(payloadLen int) int {
	return payloadLen * 8
}

// CheckFits rejects payloads unless the capacity is strictly more than
// Margin times the raw payload bits.
func CheckFits(capBits, payloadLen int) error {
	need := Margin * EstimatedFrameBits(payloadLen)
	if capBits <= need {
		return fmt.Errorf("%w: capacity %d bits, need more than %d", ErrCapacityExceeded, capBits, need)
	}
	return nil
}

// CheckFrame rejects carriers that cannot hold the whole encoded frame plus
// the tail the decoder trims. Small payloads pass CheckFits long before the
// sentinels fit.
func CheckFrame(capBits, payloadLen, extLen int) error {
	need := frame.MessageBits(payloadLen, extLen) + frame.TrimBits()
	if capBits < need {
		return fmt.Errorf("%w: capacity %d bits, encoded frame needs %d", ErrCapacityExceeded, capBits, need)
	}
	return nil
}

// Check applies both CheckFits and CheckFrame.
func Check(capBits, payloadLen, extLen int) error {
	if err := CheckFits(capBits, payloadLen); err != nil {
		return err
	}
	return CheckFrame(capBits, payloadLen, extLen)
}

// MaxPayload returns the largest payload, in bytes, that passes Check for
// the given capacity and extension length. It returns 0 when nothing fits.
func MaxPayload(capBits, extLen int) int {
	byRatio := (capBits - 1) / (Margin * 8)

	// Each payload byte costs two hex digits of GroupSize bits each.
	perByte := frame.MessageBits(1, 0) - frame.MessageBits(0, 0)
	byFrame := (capBits - frame.MessageBits(0, extLen) - frame.TrimBits()) / perByte

	n := min(byRatio, byFrame)
	if n < 0 {
		return 0
	}
	return n
}
