package gvas

import (
	"bytes"
	"encoding/json"
	"strings"

	"palworld-save-edit/ue"
)

// Tree is an ordered property list. Set keeps names unique; a decoded tree
// keeps repeated names in stream order and Get returns the first.
type Tree struct {
	Properties []*Property
}

func NewTree(props ...*Property) *Tree {
	t := &Tree{}
	for _, p := range props {
		t.Set(p)
	}
	return t
}

func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Properties)
}

func (t *Tree) Names() []string {
	names := make([]string, 0, t.Len())
	for _, p := range t.Properties {
		names = append(names, p.Name)
	}
	return names
}

func (t *Tree) Get(name string) *Property {
	if t == nil {
		return nil
	}
	for _, p := range t.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (t *Tree) Value(name string) (Value, bool) {
	p := t.Get(name)
	if p == nil {
		return nil, false
	}
	return p.Value, true
}

// Set replaces the property with the same name in place, or appends it.
func (t *Tree) Set(p *Property) {
	for i, existing := range t.Properties {
		if existing.Name == p.Name {
			t.Properties[i] = p
			return
		}
	}
	t.Properties = append(t.Properties, p)
}

func (t *Tree) Delete(name string) bool {
	for i, p := range t.Properties {
		if p.Name == name {
			t.Properties = append(t.Properties[:i], t.Properties[i+1:]...)
			return true
		}
	}
	return false
}

// Lookup follows a dotted path through nested generic structs.
func (t *Tree) Lookup(path string) (*Property, bool) {
	current := t
	parts := strings.Split(strings.TrimPrefix(path, "."), ".")
	for i, part := range parts {
		p := current.Get(part)
		if p == nil {
			return nil, false
		}
		if i == len(parts)-1 {
			return p, true
		}
		sub, ok := StructTree(p.Value)
		if !ok {
			return nil, false
		}
		current = sub
	}
	return nil, false
}

// StructTree returns the field tree of a generic struct value.
func StructTree(v Value) (*Tree, bool) {
	s, ok := v.(*Struct)
	if !ok {
		return nil, false
	}
	tree, ok := s.Data.(*Tree)
	return tree, ok && tree != nil
}

// AsGuid accepts a Guid struct, as found in both properties and map keys.
func AsGuid(v Value) (ue.FGuid, bool) {
	s, ok := v.(*Struct)
	if !ok {
		return ue.FGuid{}, false
	}
	g, ok := s.Data.(ue.FGuid)
	return g, ok
}

func AsString(v Value) (string, bool) {
	switch x := v.(type) {
	case Str:
		return string(x), true
	case EncodedStr:
		return x.Value, true
	case Enum:
		return x.Value, true
	case Byte:
		if x.IsEnum() {
			return x.Name, true
		}
	case *Text:
		if x.History == 0 {
			return x.Source, true
		}
		return x.Invariant, x.HasInvariant
	}
	return "", false
}

// AsInt widens any integer value, including a raw ByteProperty.
func AsInt(v Value) (int64, bool) {
	switch x := v.(type) {
	case Int8:
		return int64(x), true
	case Int16:
		return int64(x), true
	case Int32:
		return int64(x), true
	case Int64:
		return int64(x), true
	case UInt16:
		return int64(x), true
	case UInt32:
		return int64(x), true
	case UInt64:
		return int64(x), true
	case Byte:
		if !x.IsEnum() {
			return int64(x.Raw), true
		}
	}
	return 0, false
}

func AsBool(v Value) (bool, bool) {
	switch x := v.(type) {
	case Bool:
		return bool(x), true
	case BoolByte:
		return x != 0, true
	}
	return false, false
}

func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range t.Properties {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		entry := map[string]any{
			"type":  p.Type,
			"value": jsonValue(p.Value),
		}
		if p.Guid != nil {
			entry["id"] = p.Guid.String()
		}
		body, err := json.Marshal(entry)
		if err != nil {
			return nil, err
		}
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func jsonValue(v Value) any {
	switch x := v.(type) {
	case *Struct:
		out := map[string]any{"struct_type": x.Type, "value": x.Data}
		if !x.Guid.IsZero() {
			out["struct_id"] = x.Guid.String()
		}
		if raw, ok := x.Data.(RawStruct); ok {
			out["value"] = []byte(raw)
			out["raw"] = true
		}
		return out
	case *Array:
		out := map[string]any{"array_type": x.ElementType}
		switch {
		case x.Raw != nil:
			out["raw"] = x.Raw
		case x.ElementType == ByteProperty:
			out["values"] = x.Bytes
		default:
			values := make([]any, len(x.Elements))
			for i, e := range x.Elements {
				values[i] = jsonValue(e)
			}
			out["values"] = values
		}
		return out
	case *Map:
		out := map[string]any{"key_type": x.KeyType, "value_type": x.ValueType}
		if x.Raw != nil {
			out["raw"] = x.Raw
			return out
		}
		entries := make([]map[string]any, len(x.Entries))
		for i, e := range x.Entries {
			entries[i] = map[string]any{"key": jsonValue(e.Key), "value": jsonValue(e.Value)}
		}
		out["entries"] = entries
		return out
	case *Set:
		out := map[string]any{"set_type": x.ElementType}
		if x.Raw != nil {
			out["raw"] = x.Raw
			return out
		}
		values := make([]any, len(x.Elements))
		for i, e := range x.Elements {
			values[i] = jsonValue(e)
		}
		out["values"] = values
		return out
	case EncodedStr:
		return x.Value
	case BoolByte:
		return x != 0
	default:
		return v
	}
}
