package memory

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
)

// Reader is a position-tracking cursor over an immutable byte slice.
type Reader struct {
	data []byte
	pos  int
	base int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos returns the current offset relative to the start of the reader.
func (r *Reader) Pos() int {
	return r.pos
}

// Offset returns the current offset relative to the outermost buffer, for
// error messages.
func (r *Reader) Offset() int {
	return r.base + r.pos
}

func (r *Reader) Len() int {
	return len(r.data)
}

func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return fmt.Errorf("seek to %d of %d: %w", pos, len(r.data), ErrTruncated)
	}
	r.pos = pos
	return nil
}

func (r *Reader) Skip(n int) error {
	return r.Seek(r.pos + n)
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, fmt.Errorf("need %d bytes at offset %d, have %d: %w", n, r.Offset(), r.Remaining(), ErrTruncated)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Bytes returns a copy of the next n bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// Rest returns a copy of everything left in the reader.
func (r *Reader) Rest() []byte {
	b, _ := r.Bytes(r.Remaining())
	return b
}

// Sub returns a reader clamped to the next n bytes and advances past them.
// Reads on the sub reader can never cross into the parent's following data.
func (r *Reader) Sub(n int) (*Reader, error) {
	base := r.Offset()
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	return &Reader{data: b, base: base}, nil
}

func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) I8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

func (r *Reader) U64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	return math.Float64frombits(v), err
}

// FString reads an Unreal length-prefixed string. A positive length counts
// narrow bytes, a negative one counts UTF-16 code units; both include the
// trailing NUL.
func (r *Reader) FString() (string, error) {
	s, _, err := r.FStringEncoded()
	return s, err
}

// FStringEncoded is FString that also reports the stored width. It returns
// Canonical when Writer.FString would reproduce the same bytes.
func (r *Reader) FStringEncoded() (string, StringEncoding, error) {
	size, err := r.I32()
	if err != nil {
		return "", Canonical, err
	}

	switch {
	case size == 0:
		return "", Canonical, nil

	case size > 0:
		b, err := r.take(int(size))
		if err != nil {
			return "", Canonical, err
		}
		s := string(b[:size-1])
		if s == "" || !isASCII(s) {
			return s, Narrow, nil
		}
		return s, Canonical, nil

	default:
		if size == math.MinInt32 {
			return "", Canonical, fmt.Errorf("string length %d at offset %d: %w", size, r.Offset(), ErrTruncated)
		}
		units := int(-size)
		b, err := r.take(units * 2)
		if err != nil {
			return "", Canonical, err
		}
		codes := make([]uint16, units-1)
		for i := range codes {
			codes[i] = binary.LittleEndian.Uint16(b[i*2:])
		}
		s := string(utf16.Decode(codes))
		if s == "" || isASCII(s) || !sameUTF16(s, codes) {
			return s, Wide, nil
		}
		return s, Canonical, nil
	}
}

// sameUTF16 reports whether s re-encodes to exactly codes. Unpaired
// surrogates decode to U+FFFD and do not.
func sameUTF16(s string, codes []uint16) bool {
	again := utf16.Encode([]rune(s))
	if len(again) != len(codes) {
		return false
	}
	for i := range codes {
		if again[i] != codes[i] {
			return false
		}
	}
	return true
}
