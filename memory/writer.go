package memory

import (
	"encoding/binary"
	"math"
	"unicode/utf16"
)

// Writer accumulates little-endian output. Writes never fail.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Write(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) I8(v int8) {
	w.U8(uint8(v))
}

func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) I16(v int16) {
	w.U16(uint16(v))
}

func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

func (w *Writer) U64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) I64(v int64) {
	w.U64(uint64(v))
}

func (w *Writer) F32(v float32) {
	w.U32(math.Float32bits(v))
}

func (w *Writer) F64(v float64) {
	w.U64(math.Float64bits(v))
}

// PatchU64 overwrites eight bytes at pos, used to back-fill payload sizes.
func (w *Writer) PatchU64(pos int, v uint64) {
	binary.LittleEndian.PutUint64(w.buf[pos:], v)
}

// StringEncoding is the stored width of an FString.
type StringEncoding uint8

const (
	// Canonical is the width FString picks on its own.
	Canonical StringEncoding = iota
	// Narrow is a positive length followed by bytes, including "" stored as
	// a lone NUL.
	Narrow
	// Wide is a negative length followed by UTF-16 code units.
	Wide
)

// FString writes s narrow when it is pure ASCII and as UTF-16 otherwise.
// The empty string is written as a bare zero length.
func (w *Writer) FString(s string) {
	w.FStringEncoded(s, Canonical)
}

// FStringEncoded writes s with the given width. Narrow bytes are written as
// they are, so a narrow string need not be ASCII.
func (w *Writer) FStringEncoded(s string, enc StringEncoding) {
	if enc == Canonical {
		switch {
		case s == "":
			w.I32(0)
			return
		case isASCII(s):
			enc = Narrow
		default:
			enc = Wide
		}
	}

	if enc == Narrow {
		w.I32(int32(len(s) + 1))
		w.buf = append(w.buf, s...)
		w.U8(0)
		return
	}

	codes := utf16.Encode([]rune(s))
	w.I32(-int32(len(codes) + 1))
	for _, c := range codes {
		w.U16(c)
	}
	w.U16(0)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
