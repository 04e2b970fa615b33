package gvas

import (
	"errors"
	"fmt"

	"palworld-save-edit/memory"
)

type ErrorKind string

const (
	BadMagic             ErrorKind = "bad magic"
	SizeMismatch         ErrorKind = "size mismatch"
	Truncated            ErrorKind = "truncated"
	UnknownPropertyType  ErrorKind = "unknown property type"
	UnknownStructLayout  ErrorKind = "unknown struct layout"
	MissingRequiredField ErrorKind = "missing required field"
	IoError              ErrorKind = "io error"
)

var (
	ErrBadMagic             = errors.New(string(BadMagic))
	ErrSizeMismatch         = errors.New(string(SizeMismatch))
	ErrTruncated            = memory.ErrTruncated
	ErrUnknownPropertyType  = errors.New(string(UnknownPropertyType))
	ErrUnknownStructLayout  = errors.New(string(UnknownStructLayout))
	ErrMissingRequiredField = errors.New(string(MissingRequiredField))
	ErrIo                   = errors.New(string(IoError))
)

var kindSentinels = map[ErrorKind]error{
	BadMagic:             ErrBadMagic,
	SizeMismatch:         ErrSizeMismatch,
	Truncated:            ErrTruncated,
	UnknownPropertyType:  ErrUnknownPropertyType,
	UnknownStructLayout:  ErrUnknownStructLayout,
	MissingRequiredField: ErrMissingRequiredField,
	IoError:              ErrIo,
}

// FormatError describes why a save could not be (fully) decoded. Path is the
// dotted property path, empty at container and header level.
type FormatError struct {
	Kind   ErrorKind
	Path   string
	Offset int
	Tag    string
	Err    error
}

func (e *FormatError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := "gvas: " + string(e.Kind)
	if e.Tag != "" {
		msg += fmt.Sprintf(" %q", e.Tag)
	}
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Offset > 0 {
		msg += fmt.Sprintf(" (offset %d)", e.Offset)
	}
	if e.Err != nil && !errors.Is(kindSentinels[e.Kind], e.Err) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches both the kind sentinel and the wrapped error.
func (e *FormatError) Is(target error) bool {
	if e == nil {
		return false
	}
	return kindSentinels[e.Kind] == target
}

func NewError(kind ErrorKind, path string, err error) *FormatError {
	return &FormatError{Kind: kind, Path: path, Err: err}
}

// KindOf reports the kind of the first FormatError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	if errors.Is(err, memory.ErrTruncated) {
		return Truncated, true
	}
	return "", false
}

// classify turns a low level read error into a FormatError, leaving
// existing FormatErrors untouched.
func classify(err error, path string, offset int) error {
	if err == nil {
		return nil
	}
	var fe *FormatError
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, memory.ErrTruncated) {
		return &FormatError{Kind: Truncated, Path: path, Offset: offset, Err: err}
	}
	return err
}
