// Package stego hides a payload file inside the least significant bits of a
// lossless carrier image and extracts it again.
//
// Hiding runs the carrier through capacity checks, frames the payload,
// spreads the framed bitstream over every channel slot and saves the result
// as new.<format>. Extraction reads the same slots back and writes
// hidden_file.<extension>.
package stego

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/Beastly713/steg/pkg/capacity"
	"github.com/Beastly713/steg/pkg/channel"
	"github.com/Beastly713/steg/pkg/frame"
	"github.com/Beastly713/steg/pkg/imageio"
	"github.com/Beastly713/steg/pkg/quality"
	"github.com/rs/zerolog"
)

// HiddenFilePrefix is the base name of every extracted payload.
const HiddenFilePrefix = "hidden_file"

// Payload is the file being hidden: its bytes and its extension without the
// leading dot.
type Payload struct {
	Data      []byte
	Extension string
}

// ExtensionOf returns the text after the last dot of path's base name, or
// the whole base name when there is no dot.
func ExtensionOf(path string) string {
	base := filepath.Base(path)
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		return base[i+1:]
	}
	return base
}

// validExtension rejects extensions that could not come back out of a
// carrier intact or would place hidden_file.<ext> outside the output
// directory.
func validExtension(ext string) error {
	if strings.ContainsAny(ext, `/\`+"\x00") {
		return fmt.Errorf("%w: %q is not a plain extension", frame.ErrUnknownExtension, ext)
	}
	for i := 0; i < len(ext); i++ {
		if ext[i] > 0x7f {
			return fmt.Errorf("%w: %q is not ASCII", frame.ErrUnknownExtension, ext)
		}
	}
	return nil
}

// HiddenFileName is the output name for an extracted payload.
func HiddenFileName(ext string) string {
	return HiddenFilePrefix + "." + ext
}

// Options configures an Engine.
type Options struct {
	// OutputDir receives new.<format> and hidden_file.<ext>. Empty means the
	// current directory.
	OutputDir string

	Logger zerolog.Logger
}

// Engine runs hide and extract operations. It is not safe for concurrent
// use; its state reflects the most recent call.
type Engine struct {
	opts    Options
	log     zerolog.Logger
	state   State
	framing frame.Config
}

// New returns an Engine in the Idle state.
func New(opts Options) *Engine {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return &Engine{
		opts:    opts,
		log:     opts.Logger,
		state:   StateIdle,
		framing: frame.DefaultConfig(),
	}
}

// State reports where the last operation stopped.
func (e *Engine) State() State {
	return e.state
}

func (e *Engine) transition(s State) {
	e.log.Debug().Stringer("from", e.state).Stringer("to", s).Msg("state change")
	e.state = s
}

func (e *Engine) fail(err error) error {
	e.transition(StateFailed)
	return err
}

// Embedded is the in-memory outcome of hiding a payload.
type Embedded struct {
	Image        image.Image
	Mode         channel.Mode
	CapacityBits int
	MessageBits  int
	PSNR         float64
}

// HideResult describes a completed Hide.
type HideResult struct {
	Embedded
	OutputPath string
	Format     imageio.Format
}

// ExtractResult describes a completed Extract.
type ExtractResult struct {
	Payload    Payload
	OutputPath string
}

// analyze loads the carrier and rejects modes that cannot carry bits.
func (e *Engine) analyze(path string) (*imageio.Carrier, error) {
	e.transition(StateAnalyzing)

	carrier, err := imageio.Load(path)
	if err != nil {
		return nil, wrap(ErrFileAccess, "analyze image", path, err)
	}
	if err := checkMode(carrier.Mode); err != nil {
		return nil, wrap(ErrUnsupportedMode, "analyze image", path, err)
	}

	e.log.Debug().
		Str("path", path).
		Str("format", carrier.Format).
		Stringer("mode", carrier.Mode).
		Int("width", carrier.Width()).
		Int("height", carrier.Height()).
		Msg("carrier analyzed")
	return carrier, nil
}

func checkMode(m channel.Mode) error {
	if m == channel.ModeBilevel {
		return fmt.Errorf("%w: cannot use an image with a mode of '1'", channel.ErrUnsupportedMode)
	}
	if !m.Supported() {
		return fmt.Errorf("%w: %s", channel.ErrUnsupportedMode, m)
	}
	return nil
}

// Hide embeds the file at payloadPath into the carrier at carrierPath and
// writes new.<format> into the output directory.
func (e *Engine) Hide(carrierPath, payloadPath string) (*HideResult, error) {
	carrier, err := e.analyze(carrierPath)
	if err != nil {
		return nil, e.fail(err)
	}

	format, err := imageio.OutputFormat(carrierPath)
	if err != nil {
		return nil, e.fail(wrap(ErrWrite, "resolve output format for", carrierPath, err))
	}
	if format.Lossy() {
		e.log.Warn().Str("format", string(format)).Msg("lossy output format will destroy the hidden data")
	}

	data, err := os.ReadFile(payloadPath)
	if err != nil {
		return nil, e.fail(wrap(ErrFileAccess, "open payload", payloadPath, err))
	}
	payload := Payload{Data: data, Extension: ExtensionOf(payloadPath)}

	e.transition(StateHiding)
	embedded, err := e.embed(carrier, payload)
	if err != nil {
		return nil, e.fail(err)
	}

	out := filepath.Join(e.opts.OutputDir, format.FileName())
	if err := imageio.Save(out, embedded.Image, format); err != nil {
		return nil, e.fail(wrap(ErrWrite, "save image", out, err))
	}

	e.transition(StateDone)
	e.log.Info().Str("path", out).Float64("psnr", embedded.PSNR).Msg("stego image created")
	return &HideResult{Embedded: *embedded, OutputPath: out, Format: format}, nil
}

// HideImage embeds payload into an already decoded carrier without touching
// the filesystem.
func (e *Engine) HideImage(carrier *imageio.Carrier, payload Payload) (*Embedded, error) {
	e.transition(StateAnalyzing)
	if err := checkMode(carrier.Mode); err != nil {
		return nil, e.fail(wrap(ErrUnsupportedMode, "analyze image", "", err))
	}

	e.transition(StateHiding)
	embedded, err := e.embed(carrier, payload)
	if err != nil {
		return nil, e.fail(err)
	}
	e.transition(StateDone)
	return embedded, nil
}

func (e *Engine) embed(carrier *imageio.Carrier, payload Payload) (*Embedded, error) {
	if err := validExtension(payload.Extension); err != nil {
		return nil, wrap(ErrUnknownExtension, "check payload extension", "", err)
	}

	capBits := capacity.Bits(carrier.Width(), carrier.Height(), carrier.Mode)
	if err := capacity.Check(capBits, len(payload.Data), len(payload.Extension)); err != nil {
		return nil, wrap(ErrCapacityExceeded, "check capacity", "", err)
	}

	bits, err := e.framing.Encode(payload.Data, payload.Extension, capBits)
	if err != nil {
		return nil, wrap(ErrCapacityExceeded, "encode frame", "", err)
	}

	cur := bits.Cursor()
	img, err := channel.Embed(carrier.Image, carrier.Mode, cur)
	if err != nil {
		return nil, wrap(ErrWrite, "embed bits", "", err)
	}

	msgBits := e.framing.MessageBits(len(payload.Data), len(payload.Extension))
	psnr := quality.PSNR(carrier.Image, img)
	e.log.Debug().
		Int("capacity_bits", capBits).
		Int("message_bits", msgBits).
		Int("stream_bits", bits.Len()).
		Int("unused_bits", cur.Remaining()).
		Float64("psnr", psnr).
		Msg("payload embedded")

	return &Embedded{
		Image:        img,
		Mode:         carrier.Mode,
		CapacityBits: capBits,
		MessageBits:  msgBits,
		PSNR:         psnr,
	}, nil
}

// Extract recovers the payload hidden in the image at carrierPath and writes
// it as hidden_file.<ext> into the output directory.
func (e *Engine) Extract(carrierPath string) (*ExtractResult, error) {
	carrier, err := e.analyze(carrierPath)
	if err != nil {
		return nil, e.fail(err)
	}

	e.transition(StateExtracting)
	payload, err := e.readPayload(carrier)
	if err != nil {
		return nil, e.fail(wrap(ErrDecode, "extract message from", carrierPath, err))
	}

	out := filepath.Join(e.opts.OutputDir, HiddenFileName(payload.Extension))
	if err := os.WriteFile(out, payload.Data, 0644); err != nil {
		return nil, e.fail(wrap(ErrWrite, "write extracted file", out, err))
	}

	e.transition(StateDone)
	e.log.Info().Str("path", out).Int("bytes", len(payload.Data)).Msg("payload extracted")
	return &ExtractResult{Payload: *payload, OutputPath: out}, nil
}

// ExtractImage recovers the payload from an already decoded carrier.
func (e *Engine) ExtractImage(carrier *imageio.Carrier) (*Payload, error) {
	e.transition(StateAnalyzing)
	if err := checkMode(carrier.Mode); err != nil {
		return nil, e.fail(wrap(ErrUnsupportedMode, "analyze image", "", err))
	}

	e.transition(StateExtracting)
	payload, err := e.readPayload(carrier)
	if err != nil {
		return nil, e.fail(wrap(ErrDecode, "extract message", "", err))
	}
	e.transition(StateDone)
	return payload, nil
}

func (e *Engine) readPayload(carrier *imageio.Carrier) (*Payload, error) {
	bits, err := channel.Read(carrier.Image, carrier.Mode)
	if err != nil {
		return nil, err
	}

	data, ext, err := e.framing.Decode(bits)
	if err != nil {
		return nil, err
	}
	if err := validExtension(ext); err != nil {
		return nil, err
	}

	e.log.Debug().Int("stream_bits", bits.Len()).Str("extension", ext).Msg("frame decoded")
	return &Payload{Data: data, Extension: ext}, nil
}
