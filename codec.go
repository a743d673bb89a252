package psd

import (
	"bufio"
	"encoding/binary"
	"io"

	"golang.org/x/text/encoding/charmap"
)

// Reader wraps an io.ReadSeeker with the typed big-endian primitives every
// section of the container is built from (component A of the design). It
// generalizes the teacher's ad hoc *File type into something both the
// header/resource/layer readers and the new descriptor/engine-data readers
// share.
type Reader struct {
	rs  io.ReadSeeker
	buf *bufio.Reader
	pos int64
}

// NewReader wraps rs. The stream position is assumed to start at rs's
// current offset.
func NewReader(rs io.ReadSeeker) *Reader {
	pos, _ := rs.Seek(0, io.SeekCurrent)
	return &Reader{rs: rs, buf: bufio.NewReader(rs), pos: pos}
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := io.ReadFull(r.buf, p)
	r.pos += int64(n)
	return n, err
}

// Tell returns the logical offset of the next unread byte.
func (r *Reader) Tell() int64 { return r.pos }

// Seek repositions the stream, flushing the internal buffer. Used sparingly
// (jumping past an unsupported block); sequential reads are preferred.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	pos, err := r.rs.Seek(offset, whence)
	if err != nil {
		return pos, err
	}
	r.buf.Reset(r.rs)
	r.pos = pos
	return pos, nil
}

// Skip advances n bytes forward.
func (r *Reader) Skip(n int64) error {
	if n == 0 {
		return nil
	}
	_, err := r.Seek(n, io.SeekCurrent)
	return err
}

func (r *Reader) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := r.Read(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

func (r *Reader) ReadUint16() (uint16, error) {
	var buf [2]byte
	if _, err := r.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	var buf [4]byte
	if _, err := r.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	var buf [8]byte
	if _, err := r.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return float64FromBits(v), err
}

// ReadLength reads a 32-bit or 64-bit length field depending on big. The
// "big key" selection rule itself lives in tagged_block.go; this is the
// mechanical read once the caller has decided which width applies.
func (r *Reader) ReadLength(big bool) (uint64, error) {
	if big {
		return r.ReadUint64()
	}
	v, err := r.ReadUint32()
	return uint64(v), err
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadPascalString reads a 1-byte-length-prefixed Mac Roman string, then
// pads the whole record (length byte + bytes) up to a multiple of
// padMultiple. padMultiple of 0 or 1 disables padding.
func (r *Reader) ReadPascalString(padMultiple int) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	raw, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	if padMultiple > 1 {
		total := 1 + int(n)
		if rem := total % padMultiple; rem != 0 {
			if err := r.Skip(int64(padMultiple - rem)); err != nil {
				return "", err
			}
		}
	}
	return decodeMacRoman(raw), nil
}

// ReadUnicodeString reads a PSD unicode string: u32 rune count followed by
// that many UTF-16BE code units. Lone surrogates are accepted rather than
// rejected, which is why this is hand-rolled instead of using
// x/text/encoding/unicode; each one comes back as U+FFFD (see
// decodeUTF16BE), not as its original code unit.
func (r *Reader) ReadUnicodeString() (string, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	units := make([]uint16, n)
	for i := range units {
		u, err := r.ReadUint16()
		if err != nil {
			return "", err
		}
		units[i] = u
	}
	return decodeUTF16BE(units), nil
}

// decodeMacRoman decodes raw bytes using the Mac Roman code page. Pascal
// strings in practice are almost always ASCII, but resource/layer names
// can contain accented characters under legacy encodings.
func decodeMacRoman(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	out, err := charmap.Macintosh.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func encodeMacRoman(s string) []byte {
	out, err := charmap.Macintosh.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}

func float64FromBits(v uint64) float64 {
	return mathFloat64frombits(v)
}
