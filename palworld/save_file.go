package palworld

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zlib"

	"palworld-save-edit/gvas"
	"palworld-save-edit/memory"
)

// Magic opens every compressed save container.
var Magic = [4]byte{'P', 'l', 'Z', 0}

type CompressionKind uint8

const (
	CompressionNone       CompressionKind = 0
	CompressionZlib       CompressionKind = 1
	CompressionDoubleZlib CompressionKind = 2
)

func (k CompressionKind) String() string {
	switch k {
	case CompressionNone:
		return "none"
	case CompressionZlib:
		return "zlib"
	case CompressionDoubleZlib:
		return "double-zlib"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseCompressionKind accepts the names printed by CompressionKind.String.
func ParseCompressionKind(s string) (CompressionKind, error) {
	switch s {
	case "none":
		return CompressionNone, nil
	case "", "zlib":
		return CompressionZlib, nil
	case "double-zlib", "double":
		return CompressionDoubleZlib, nil
	}
	return 0, fmt.Errorf("unknown compression kind %q", s)
}

// ContainerHeader is the 13 byte prefix of a save file. For double zlib,
// CompressedSize is the size of the inner stream.
type ContainerHeader struct {
	Magic            [4]byte
	UncompressedSize uint32
	CompressedSize   uint32
	Kind             CompressionKind
}

const headerSize = 13

// maxUncompressedSize bounds the allocation a forged header can request.
const maxUncompressedSize = 1 << 30

// ReadContainerHeader reads and checks the container prefix from r.
func ReadContainerHeader(r io.Reader) (ContainerHeader, error) {
	header := ContainerHeader{}
	truncated := func(err error) error {
		return gvas.NewError(gvas.Truncated, "", fmt.Errorf("failed to read container header: %w", err))
	}

	if _, err := io.ReadFull(r, header.Magic[:]); err != nil {
		return header, truncated(gvas.ErrTruncated)
	}
	if header.Magic != Magic {
		return header, gvas.NewError(gvas.BadMagic, "", fmt.Errorf("container magic %q", header.Magic[:]))
	}

	var err error
	if header.UncompressedSize, err = memory.ReadInt[uint32](r); err != nil {
		return header, truncated(err)
	}
	if header.CompressedSize, err = memory.ReadInt[uint32](r); err != nil {
		return header, truncated(err)
	}
	kind, err := memory.ReadInt[uint8](r)
	if err != nil {
		return header, truncated(err)
	}
	header.Kind = CompressionKind(kind)
	return header, nil
}

func inflate(data []byte, limit uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, gvas.NewError(gvas.Truncated, "", fmt.Errorf("zlib header: %w", gvas.ErrTruncated))
		}
		return nil, fmt.Errorf("failed to open zlib stream: %w", err)
	}
	defer zr.Close()

	// One byte over the limit exposes streams longer than declared.
	lr := io.LimitReader(zr, int64(limit)+1)

	var buf bytes.Buffer
	buf.Grow(int(min(limit, 64<<20)))
	if _, err = io.Copy(&buf, lr); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, gvas.NewError(gvas.Truncated, "", fmt.Errorf("zlib stream: %w", gvas.ErrTruncated))
		}
		return nil, fmt.Errorf("failed to inflate: %w", err)
	}
	return buf.Bytes(), nil
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sizeMismatch(what string, got int, want uint32) error {
	return gvas.NewError(gvas.SizeMismatch, "", fmt.Errorf("%s is %d bytes, header declares %d", what, got, want))
}

// checkLength compares a stored body with its declared size. A short body
// was cut and is Truncated; any other difference is SizeMismatch.
func checkLength(what string, got int, want uint32) error {
	switch {
	case uint32(got) < want:
		return gvas.NewError(gvas.Truncated, "", fmt.Errorf("%s is %d bytes, header declares %d: %w", what, got, want, gvas.ErrTruncated))
	case uint32(got) != want:
		return sizeMismatch(what, got, want)
	}
	return nil
}

// Decompress unwraps a save container into its GVAS stream.
func Decompress(data []byte) ([]byte, error) {
	header, err := ReadContainerHeader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if header.UncompressedSize > maxUncompressedSize {
		return nil, gvas.NewError(gvas.SizeMismatch, "", fmt.Errorf("header declares %d uncompressed bytes, limit is %d", header.UncompressedSize, maxUncompressedSize))
	}

	body := data[headerSize:]

	switch header.Kind {
	case CompressionNone:
		if err := checkLength("stored body", len(body), header.UncompressedSize); err != nil {
			return nil, err
		}
		return body, nil

	case CompressionZlib:
		if err := checkLength("compressed body", len(body), header.CompressedSize); err != nil {
			return nil, err
		}

	case CompressionDoubleZlib:
		// The outer stream has no recorded size; the inner one does.
		inner, err := inflate(body, maxUncompressedSize)
		if err != nil {
			return nil, err
		}
		if uint32(len(inner)) != header.CompressedSize {
			return nil, sizeMismatch("inner stream", len(inner), header.CompressedSize)
		}
		body = inner

	default:
		return nil, gvas.NewError(gvas.BadMagic, "", fmt.Errorf("unknown compression kind %d", header.Kind))
	}

	raw, err := inflate(body, header.UncompressedSize)
	if err != nil {
		return nil, err
	}
	if uint32(len(raw)) != header.UncompressedSize {
		return nil, sizeMismatch("decompressed stream", len(raw), header.UncompressedSize)
	}
	return raw, nil
}

// Compress wraps a GVAS stream into a save container.
func Compress(raw []byte, kind CompressionKind) ([]byte, error) {
	header := ContainerHeader{
		Magic:            Magic,
		UncompressedSize: uint32(len(raw)),
		Kind:             kind,
	}

	var body []byte
	switch kind {
	case CompressionNone:
		body = raw
		header.CompressedSize = uint32(len(raw))
	case CompressionZlib, CompressionDoubleZlib:
		compressed, err := deflate(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to compress: %w", err)
		}
		body = compressed
		header.CompressedSize = uint32(len(compressed))
		if kind == CompressionDoubleZlib {
			if body, err = deflate(compressed); err != nil {
				return nil, fmt.Errorf("failed to compress outer stream: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("unknown compression kind %d", kind)
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(body))
	if err := binary.Write(&buf, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// ReadFile opens a save container and returns the GVAS stream inside it.
func ReadFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, gvas.NewError(gvas.IoError, "", err)
	}
	raw, err := Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return raw, nil
}

// OpenDocument reads, decompresses and decodes a save file.
func OpenDocument(filePath string, opts ...gvas.Option) (*gvas.Document, error) {
	raw, err := ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	doc, err := gvas.Decode(raw, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return doc, nil
}

// WriteDocument encodes doc and writes it as a save container. The file is
// replaced atomically.
func WriteDocument(filePath string, doc *gvas.Document, kind CompressionKind, opts ...gvas.Option) error {
	raw, err := gvas.Encode(doc, opts...)
	if err != nil {
		return err
	}
	data, err := Compress(raw, kind)
	if err != nil {
		return err
	}

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return gvas.NewError(gvas.IoError, "", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return gvas.NewError(gvas.IoError, "", err)
	}
	return nil
}
