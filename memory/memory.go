package memory

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrTruncated is returned by every read that runs past the end of its buffer.
var ErrTruncated = errors.New("truncated")

type Int interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64
}

// ReadInt reads one little-endian fixed-width integer from r. Short reads
// are reported as ErrTruncated.
func ReadInt[T Int](r io.Reader) (T, error) {
	var value T
	err := binary.Read(r, binary.LittleEndian, &value)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, ErrTruncated
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}
