package psd

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

func mathFloat64frombits(v uint64) float64 { return math.Float64frombits(v) }

func mathFloat64bits(v float64) uint64 { return math.Float64bits(v) }

func mathFloat32frombits(v uint32) float32 { return math.Float32frombits(v) }

// decodeUTF16BE decodes big-endian UTF-16 code units into a Go string.
// A lone surrogate does not fail the decode, but a Go string cannot hold
// one: the final string([]rune) conversion turns it into U+FFFD, so such
// a code unit is not preserved and does not survive a read/write round
// trip.
func decodeUTF16BE(units []uint16) string {
	runes := make([]rune, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u >= 0xD800 && u <= 0xDBFF && i+1 < len(units) && units[i+1] >= 0xDC00 && units[i+1] <= 0xDFFF:
			hi, lo := rune(u), rune(units[i+1])
			runes = append(runes, ((hi-0xD800)<<10|(lo-0xDC00))+0x10000)
			i++
		default:
			runes = append(runes, rune(u))
		}
	}
	return string(runes)
}

// encodeUTF16BE is the write-side inverse of decodeUTF16BE.
func encodeUTF16BE(s string) []uint16 {
	units := make([]uint16, 0, len(s))
	for _, r := range s {
		if r <= 0xFFFF {
			units = append(units, uint16(r))
			continue
		}
		r -= 0x10000
		units = append(units, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
	}
	return units
}

// Writer is the write-side counterpart of Reader: typed big-endian
// primitives plus the length-block placeholder/rewrite pattern used by
// every section that prefixes its body with a byte count it cannot know
// until the body has been written.
type Writer struct {
	w   io.WriteSeeker
	pos int64
}

func NewWriter(w io.WriteSeeker) *Writer {
	pos, _ := w.Seek(0, io.SeekCurrent)
	return &Writer{w: w, pos: pos}
}

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.pos += int64(n)
	return n, err
}

func (w *Writer) Tell() int64 { return w.pos }

func (w *Writer) WriteByte(b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func (w *Writer) WriteBool(b bool) error {
	if b {
		return w.WriteByte(1)
	}
	return w.WriteByte(0)
}

func (w *Writer) WriteUint16(v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func (w *Writer) WriteInt16(v int16) error { return w.WriteUint16(uint16(v)) }

func (w *Writer) WriteUint32(v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func (w *Writer) WriteInt32(v int32) error { return w.WriteUint32(uint32(v)) }

func (w *Writer) WriteUint64(v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func (w *Writer) WriteFloat64(v float64) error { return w.WriteUint64(mathFloat64bits(v)) }

// WriteLength writes v as a 32-bit or 64-bit field depending on big.
func (w *Writer) WriteLength(big bool, v uint64) error {
	if big {
		return w.WriteUint64(v)
	}
	return w.WriteUint32(uint32(v))
}

func (w *Writer) WritePad(n int) error {
	if n <= 0 {
		return nil
	}
	_, err := w.Write(make([]byte, n))
	return err
}

func (w *Writer) WritePascalString(s string, padMultiple int) error {
	raw := encodeMacRoman(s)
	if len(raw) > 255 {
		raw = raw[:255]
	}
	if err := w.WriteByte(byte(len(raw))); err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if padMultiple > 1 {
		total := 1 + len(raw)
		if rem := total % padMultiple; rem != 0 {
			return w.WritePad(padMultiple - rem)
		}
	}
	return nil
}

func (w *Writer) WriteUnicodeString(s string) error {
	units := encodeUTF16BE(s)
	if err := w.WriteUint32(uint32(len(units))); err != nil {
		return err
	}
	for _, u := range units {
		if err := w.WriteUint16(u); err != nil {
			return err
		}
	}
	return nil
}

// LengthBlock reserves space for a length field, runs fn to write the
// block body, then seeks back and rewrites the placeholder with the
// actual body size. This is the "scoped guard" pattern every
// length-prefixed section in the container needs (image resources,
// layer records, tagged blocks, the layer-and-mask section itself).
func (w *Writer) LengthBlock(big bool, fn func() error) error {
	lenOffset := w.Tell()
	if err := w.WriteLength(big, 0); err != nil {
		return err
	}
	bodyStart := w.Tell()
	if err := fn(); err != nil {
		return err
	}
	bodyEnd := w.Tell()
	size := uint64(bodyEnd - bodyStart)

	seeker, ok := w.w.(io.WriteSeeker)
	if !ok {
		return nil
	}
	if _, err := seeker.Seek(lenOffset, io.SeekStart); err != nil {
		return err
	}
	savedPos := w.pos
	w.pos = lenOffset
	if err := w.WriteLength(big, size); err != nil {
		return err
	}
	if _, err := seeker.Seek(bodyEnd, io.SeekStart); err != nil {
		return err
	}
	w.pos = savedPos
	return nil
}

// bufferWriter is an in-memory io.WriteSeeker. bytes.Buffer has no Seek,
// but every self-contained body built with Writer (tagged-block bodies
// for layer effects, patterns, linked layers) needs LengthBlock's
// seek-back-and-rewrite, so callers building standalone byte slices use
// this instead of wrapping a bytes.Buffer directly.
type bufferWriter struct {
	buf []byte
	pos int64
}

func newBufferWriter() *bufferWriter { return &bufferWriter{} }

func (b *bufferWriter) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.buf)) {
		grown := make([]byte, end)
		copy(grown, b.buf)
		b.buf = grown
	}
	copy(b.buf[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

func (b *bufferWriter) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.pos + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, errors.New("bufferWriter: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("bufferWriter: negative seek position")
	}
	b.pos = abs
	return abs, nil
}

func (b *bufferWriter) Bytes() []byte { return b.buf }
