package bitcodec

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/icza/bitio"
)

// Stream is a finite sequence of bits packed MSB-first into bytes.
type Stream struct {
	data []byte
	n    int
}

// Len returns the number of bits in the stream.
func (s *Stream) Len() int {
	return s.n
}

// Bit returns the i-th bit (0 or 1).
func (s *Stream) Bit(i int) uint8 {
	return (s.data[i/8] >> (7 - uint(i%8))) & 1
}

// Groups splits the stream into consecutive 7-bit values. A trailing
// remainder shorter than GroupSize is ignored.
func (s *Stream) Groups() ([]byte, error) {
	count := s.n / GroupSize
	out := make([]byte, 0, count)

	r := bitio.NewReader(bytes.NewReader(s.data))
	for i := 0; i < count; i++ {
		v, err := r.ReadBits(GroupSize)
		if err != nil {
			return nil, fmt.Errorf("failed to read group %d: %w", i, err)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

// String renders the stream as '0'/'1' characters.
func (s *Stream) String() string {
	var sb strings.Builder
	sb.Grow(s.n)
	for i := 0; i < s.n; i++ {
		sb.WriteByte('0' + s.Bit(i))
	}
	return sb.String()
}

// Cursor returns a pull-based reader positioned at the first bit.
func (s *Stream) Cursor() *Cursor {
	return &Cursor{s: s}
}

// ParseStream builds a Stream from '0'/'1' text.
func ParseStream(text string) (*Stream, error) {
	w := NewWriter()
	for i, c := range text {
		switch c {
		case '0', '1':
			if err := w.WriteBit(uint8(c - '0')); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("invalid bit %q at offset %d", c, i)
		}
	}
	return w.Stream()
}

// Cursor walks a Stream one bit at a time.
type Cursor struct {
	s   *Stream
	pos int
}

// Next returns the next bit. ok is false once the stream is exhausted.
func (c *Cursor) Next() (bit uint8, ok bool) {
	if c.pos >= c.s.n {
		return 0, false
	}
	bit = c.s.Bit(c.pos)
	c.pos++
	return bit, true
}

// Remaining reports how many bits have not been consumed yet.
func (c *Cursor) Remaining() int {
	return c.s.n - c.pos
}

// Writer accumulates bits into a Stream.
type Writer struct {
	buf *bytes.Buffer
	bw  *bitio.Writer
	n   int
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	buf := new(bytes.Buffer)
	return &Writer{buf: buf, bw: bitio.NewWriter(buf)}
}

// WriteGroup appends v as a 7-bit group.
func (w *Writer) WriteGroup(v byte) error {
	if err := checkGroup(v); err != nil {
		return err
	}
	if err := w.bw.WriteBits(uint64(v), GroupSize); err != nil {
		return err
	}
	w.n += GroupSize
	return nil
}

// WriteBit appends a single bit.
func (w *Writer) WriteBit(bit uint8) error {
	if err := w.bw.WriteBool(bit&1 == 1); err != nil {
		return err
	}
	w.n++
	return nil
}

// Len returns the number of bits written so far.
func (w *Writer) Len() int {
	return w.n
}

// Stream flushes pending bits and returns the result. The Writer must not be
// used afterwards.
func (w *Writer) Stream() (*Stream, error) {
	if err := w.bw.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush bit writer: %w", err)
	}
	return &Stream{data: w.buf.Bytes(), n: w.n}, nil
}
