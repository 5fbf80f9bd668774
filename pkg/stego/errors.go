package stego

import (
	"errors"
	"fmt"

	"github.com/Beastly713/steg/pkg/capacity"
	"github.com/Beastly713/steg/pkg/channel"
	"github.com/Beastly713/steg/pkg/frame"
	"github.com/Beastly713/steg/pkg/imageio"
)

// Error kinds. Every error returned by Engine wraps exactly one of these,
// plus the underlying cause.
var (
	ErrFileAccess       = errors.New("file access error")
	ErrUnsupportedMode  = errors.New("unsupported image mode")
	ErrCapacityExceeded = errors.New("payload exceeds carrier capacity")
	ErrDecode           = errors.New("failed to decode hidden bitstream")
	ErrFrameNotFound    = errors.New("no hidden message found")
	ErrUnknownExtension = errors.New("unknown file type in extracted message")
	ErrWrite            = errors.New("failed to write output")
)

// kindOf maps a lower-level sentinel onto its error kind.
func kindOf(err error) error {
	switch {
	case errors.Is(err, capacity.ErrCapacityExceeded):
		return ErrCapacityExceeded
	case errors.Is(err, channel.ErrUnsupportedMode):
		return ErrUnsupportedMode
	case errors.Is(err, frame.ErrDecode):
		return ErrDecode
	case errors.Is(err, frame.ErrFrameNotFound):
		return ErrFrameNotFound
	case errors.Is(err, frame.ErrUnknownExtension):
		return ErrUnknownExtension
	case errors.Is(err, imageio.ErrUnsupportedOutput):
		return ErrWrite
	}
	return nil
}

// wrap attaches a kind and the attempted operation to err. A kind already
// implied by err wins over fallback.
func wrap(fallback error, op, path string, err error) error {
	kind := kindOf(err)
	if kind == nil {
		kind = fallback
	}
	if path == "" {
		return fmt.Errorf("%w: %s: %w", kind, op, err)
	}
	return fmt.Errorf("%w: %s %s: %w", kind, op, path, err)
}
