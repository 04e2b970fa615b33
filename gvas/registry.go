package gvas

import (
	"fmt"
	"sync"

	"palworld-save-edit/memory"
	"palworld-save-edit/ue"
)

// StructCodec decodes and encodes one fixed-layout struct type.
type StructCodec struct {
	Read  func(r *memory.Reader) (any, error)
	Write func(w *memory.Writer, v any) error
}

// Registry maps struct type names to fixed-layout codecs. Types missing from
// the registry are decoded as generic property lists.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]StructCodec
	raw    map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: map[string]StructCodec{},
		raw:    map[string]bool{},
	}
}

// DefaultRegistry returns a fresh registry holding the built-in types.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("Guid", fixed(ue.ReadGuid, ue.WriteGuid))
	r.Register("Vector", fixed(ue.ReadFVector, ue.WriteFVector))
	r.Register("Rotator", fixed(ue.ReadFRotator, ue.WriteFRotator))
	r.Register("Quat", fixed(ue.ReadFQuat, ue.WriteFQuat))
	r.Register("LinearColor", fixed(ue.ReadFLinearColor, ue.WriteFLinearColor))
	r.Register("IntPoint", fixed(ue.ReadFIntPoint, ue.WriteFIntPoint))
	r.Register("Vector2D", fixed(ue.ReadFVector2D, ue.WriteFVector2D))
	r.Register("DateTime", fixed(
		func(r *memory.Reader) (ue.FDateTime, error) {
			v, err := r.I64()
			return ue.FDateTime(v), err
		},
		func(w *memory.Writer, v ue.FDateTime) { w.I64(int64(v)) },
	))
	r.Register("Timespan", fixed(
		func(r *memory.Reader) (ue.FTimespan, error) {
			v, err := r.I64()
			return ue.FTimespan(v), err
		},
		func(w *memory.Writer, v ue.FTimespan) { w.I64(int64(v)) },
	))
	return r
}

var defaultRegistry = DefaultRegistry()

// RegisterStruct adds a codec to the registry used when no WithRegistry
// option is given.
func RegisterStruct(name string, codec StructCodec) {
	defaultRegistry.Register(name, codec)
}

func (r *Registry) Register(name string, codec StructCodec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[name] = codec
}

// RegisterRaw marks a struct type whose payload is always kept verbatim.
func (r *Registry) RegisterRaw(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raw[name] = true
}

func (r *Registry) Lookup(name string) (StructCodec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codec, ok := r.codecs[name]
	return codec, ok
}

func (r *Registry) IsRaw(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.raw[name]
}

// Clone copies the registry so callers can extend it without touching the
// original.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := NewRegistry()
	for name, codec := range r.codecs {
		out.codecs[name] = codec
	}
	for name := range r.raw {
		out.raw[name] = true
	}
	return out
}

func fixed[T any](read func(*memory.Reader) (T, error), write func(*memory.Writer, T)) StructCodec {
	return StructCodec{
		Read: func(r *memory.Reader) (any, error) {
			return read(r)
		},
		Write: func(w *memory.Writer, v any) error {
			typed, ok := v.(T)
			if !ok {
				var zero T
				return fmt.Errorf("expected %T, got %T", zero, v)
			}
			write(w, typed)
			return nil
		},
	}
}
