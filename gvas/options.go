package gvas

import (
	"io"
	"log"
)

// Option configures Decode and Encode.
type Option func(*options)

type options struct {
	registry *Registry
	hints    map[string]string
	rawPaths map[string]bool
	logger   *log.Logger
	sink     func(*FormatError)
}

// DefaultTypeHints name the struct types of map keys and values, which the
// stream itself does not record. Unhinted struct keys are read as Guid and
// unhinted struct values as generic property lists.
var DefaultTypeHints = map[string]string{
	".worldSaveData.CharacterSaveParameterMap.Key":   StructProperty,
	".worldSaveData.CharacterSaveParameterMap.Value": StructProperty,
	".worldSaveData.ItemContainerSaveData.Key":       StructProperty,
	".worldSaveData.CharacterContainerSaveData.Key":  StructProperty,
	".worldSaveData.GroupSaveDataMap.Key":            "Guid",
	".worldSaveData.GroupSaveDataMap.Value":          StructProperty,
	".worldSaveData.BaseCampSaveData.Key":            "Guid",
	".worldSaveData.BaseCampSaveData.Value":          StructProperty,
}

func newOptions(opts []Option) *options {
	o := &options{
		registry: defaultRegistry,
		hints:    DefaultTypeHints,
		rawPaths: map[string]bool{},
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func WithRegistry(r *Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithTypeHints merges hints over DefaultTypeHints.
func WithTypeHints(hints map[string]string) Option {
	return func(o *options) {
		merged := make(map[string]string, len(o.hints)+len(hints))
		for k, v := range o.hints {
			merged[k] = v
		}
		for k, v := range hints {
			merged[k] = v
		}
		o.hints = merged
	}
}

// WithRawPaths keeps the payloads of struct, array, map and set properties at
// the given paths verbatim instead of decoding them.
func WithRawPaths(paths ...string) Option {
	return func(o *options) {
		for _, p := range paths {
			o.rawPaths[p] = true
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDiagnostics passes every contained UnknownStructLayout failure to fn
// as it is found. DecodeProperties reports them only this way.
func WithDiagnostics(fn func(*FormatError)) Option {
	return func(o *options) {
		o.sink = fn
	}
}
