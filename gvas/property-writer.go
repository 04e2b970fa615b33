package gvas

import (
	"fmt"

	"palworld-save-edit/memory"
	"palworld-save-edit/ue"
)

type encoder struct {
	opts *options
}

// Encode serializes a document. Payload sizes are recomputed from the
// values, so an unmodified tree re-encodes to the bytes it was decoded from.
func Encode(doc *Document, opts ...Option) ([]byte, error) {
	if doc == nil || doc.Root == nil {
		return nil, fmt.Errorf("encode: empty document")
	}
	e := &encoder{opts: newOptions(opts)}
	w := memory.NewWriter()

	writeHeader(w, doc.Header)
	if err := e.writeProperties(w, doc.Root, ""); err != nil {
		return nil, err
	}
	w.Write(doc.Trailer)
	return w.Bytes(), nil
}

// EncodeProperties serializes a bare property list followed by the None
// sentinel.
func EncodeProperties(tree *Tree, path string, opts ...Option) ([]byte, error) {
	e := &encoder{opts: newOptions(opts)}
	w := memory.NewWriter()
	if err := e.writeProperties(w, tree, path); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func writeHeader(w *memory.Writer, h Header) {
	magic := h.Magic
	if magic == 0 {
		magic = gvasMagic
	}
	w.U32(magic)
	w.I32(h.SaveGameVersion)
	w.I32(h.PackageVersionUE4)
	if h.SaveGameVersion >= 3 {
		w.I32(h.PackageVersionUE5)
	}
	w.U16(h.Engine.Major)
	w.U16(h.Engine.Minor)
	w.U16(h.Engine.Patch)
	w.U32(h.Engine.Changelist)
	w.FString(h.Engine.Branch)
	w.I32(h.CustomVersionFormat)
	w.U32(uint32(len(h.CustomVersions)))
	for _, cv := range h.CustomVersions {
		ue.WriteGuid(w, cv.ID)
		w.I32(cv.Version)
	}
	w.FString(h.SaveGameClassName)
}

func (e *encoder) writeProperties(w *memory.Writer, tree *Tree, path string) error {
	if tree != nil {
		for _, p := range tree.Properties {
			if err := e.writeProperty(w, p, path+"."+p.Name); err != nil {
				return err
			}
		}
	}
	w.FString(NoneName)
	return nil
}

func (e *encoder) writeProperty(w *memory.Writer, p *Property, path string) error {
	w.FString(p.Name)
	w.FString(p.Type)
	sizePos := w.Len()
	w.U64(0)

	mismatch := func() error {
		return fmt.Errorf("writeProperty %s: %T does not fit %s", path, p.Value, p.Type)
	}

	var start int
	switch p.Type {
	case BoolProperty:
		value, ok := boolByte(p.Value)
		if !ok {
			return mismatch()
		}
		w.U8(value)
		writeOptionalGuid(w, p.Guid)
		return nil

	case StructProperty:
		value, ok := p.Value.(*Struct)
		if !ok {
			return mismatch()
		}
		w.FString(value.Type)
		ue.WriteGuid(w, value.Guid)
		writeOptionalGuid(w, p.Guid)
		start = w.Len()
		if err := e.writeStructBody(w, value.Type, value.Data, path); err != nil {
			return err
		}

	case ArrayProperty:
		value, ok := p.Value.(*Array)
		if !ok {
			return mismatch()
		}
		w.FString(value.ElementType)
		writeOptionalGuid(w, p.Guid)
		start = w.Len()
		if err := e.writeArray(w, value, p.Name, path); err != nil {
			return err
		}

	case MapProperty:
		value, ok := p.Value.(*Map)
		if !ok {
			return mismatch()
		}
		w.FString(value.KeyType)
		w.FString(value.ValueType)
		writeOptionalGuid(w, p.Guid)
		start = w.Len()
		if err := e.writeMap(w, value, path); err != nil {
			return err
		}

	case SetProperty:
		value, ok := p.Value.(*Set)
		if !ok {
			return mismatch()
		}
		w.FString(value.ElementType)
		writeOptionalGuid(w, p.Guid)
		start = w.Len()
		if err := e.writeSet(w, value, path); err != nil {
			return err
		}

	case ByteProperty:
		value, ok := p.Value.(Byte)
		if !ok {
			return mismatch()
		}
		if value.IsEnum() {
			w.FString(value.EnumType)
		} else {
			w.FString(NoneName)
		}
		writeOptionalGuid(w, p.Guid)
		start = w.Len()
		if value.IsEnum() {
			w.FString(value.Name)
		} else {
			w.U8(value.Raw)
		}

	case EnumProperty:
		value, ok := p.Value.(Enum)
		if !ok {
			return mismatch()
		}
		w.FString(value.EnumType)
		writeOptionalGuid(w, p.Guid)
		start = w.Len()
		w.FString(value.Value)

	case TextProperty:
		value, ok := p.Value.(*Text)
		if !ok {
			return mismatch()
		}
		writeOptionalGuid(w, p.Guid)
		start = w.Len()
		writeText(w, value)

	default:
		if !scalarTags[p.Type] {
			return &FormatError{Kind: UnknownPropertyType, Path: path, Tag: p.Type}
		}
		writeOptionalGuid(w, p.Guid)
		start = w.Len()
		if err := writeScalar(w, p.Type, p.Value); err != nil {
			return fmt.Errorf("writeProperty %s: %w", path, err)
		}
	}

	w.PatchU64(sizePos, uint64(w.Len()-start))
	return nil
}

func (e *encoder) writeStructBody(w *memory.Writer, structType string, data any, path string) error {
	switch value := data.(type) {
	case RawStruct:
		w.Write(value)
		return nil
	case *Tree:
		return e.writeProperties(w, value, path)
	}

	codec, ok := e.opts.registry.Lookup(structType)
	if !ok {
		return &FormatError{Kind: UnknownStructLayout, Path: path, Tag: structType, Err: fmt.Errorf("no codec for %T", data)}
	}
	if err := codec.Write(w, data); err != nil {
		return fmt.Errorf("writeStruct %s (%s): %w", path, structType, err)
	}
	return nil
}

func (e *encoder) writeArray(w *memory.Writer, a *Array, name, path string) error {
	if a.Raw != nil {
		w.Write(a.Raw)
		return nil
	}

	switch a.ElementType {
	case ByteProperty:
		w.U32(uint32(len(a.Bytes)))
		w.Write(a.Bytes)
		return nil

	case StructProperty:
		header := a.Header
		if header == nil {
			header = &ArrayStructHeader{Name: name, Type: StructProperty}
			if len(a.Elements) > 0 {
				if first, ok := a.Elements[0].(*Struct); ok {
					header.StructType = first.Type
				}
			}
		}
		w.U32(uint32(len(a.Elements)))
		w.FString(header.Name)
		w.FString(header.Type)
		sizePos := w.Len()
		w.U64(0)
		w.FString(header.StructType)
		ue.WriteGuid(w, header.Guid)
		w.U8(header.HasGuid)
		start := w.Len()
		for i, element := range a.Elements {
			s, ok := element.(*Struct)
			if !ok {
				return fmt.Errorf("writeArray %s: element %d is %T", path, i, element)
			}
			if err := e.writeStructBody(w, header.StructType, s.Data, path); err != nil {
				return err
			}
		}
		w.PatchU64(sizePos, uint64(w.Len()-start))
		return nil
	}

	w.U32(uint32(len(a.Elements)))
	for _, element := range a.Elements {
		if err := e.writeRawValue(w, a.ElementType, element, path); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) writeMap(w *memory.Writer, m *Map, path string) error {
	if m.Raw != nil {
		w.Write(m.Raw)
		return nil
	}

	w.U32(m.Removed)
	w.U32(uint32(len(m.Entries)))
	for _, entry := range m.Entries {
		if err := e.writeRawValue(w, m.KeyType, entry.Key, path+".Key"); err != nil {
			return err
		}
		if err := e.writeRawValue(w, m.ValueType, entry.Value, path+".Value"); err != nil {
			return err
		}
	}
	return nil
}

// writeSet drops elements whose encoding repeats an earlier one.
func (e *encoder) writeSet(w *memory.Writer, s *Set, path string) error {
	if s.Raw != nil {
		w.Write(s.Raw)
		return nil
	}

	seen := make(map[string]bool, len(s.Elements))
	var encoded [][]byte
	for _, element := range s.Elements {
		ew := memory.NewWriter()
		if err := e.writeRawValue(ew, s.ElementType, element, path); err != nil {
			return err
		}
		key := string(ew.Bytes())
		if seen[key] {
			continue
		}
		seen[key] = true
		encoded = append(encoded, ew.Bytes())
	}

	w.U32(s.Removed)
	w.U32(uint32(len(encoded)))
	for _, b := range encoded {
		w.Write(b)
	}
	return nil
}

func (e *encoder) writeRawValue(w *memory.Writer, tag string, v Value, path string) error {
	switch tag {
	case StructProperty:
		s, ok := v.(*Struct)
		if !ok {
			return fmt.Errorf("writeRawValue %s: %T is not a struct", path, v)
		}
		return e.writeStructBody(w, s.Type, s.Data, path)

	case EnumProperty:
		value, ok := v.(Enum)
		if !ok {
			return fmt.Errorf("writeRawValue %s: %T is not an enum", path, v)
		}
		w.FString(value.Value)
		return nil

	case ByteProperty:
		value, ok := v.(Byte)
		if !ok {
			return fmt.Errorf("writeRawValue %s: %T is not a byte", path, v)
		}
		w.U8(value.Raw)
		return nil

	case BoolProperty:
		value, ok := boolByte(v)
		if !ok {
			return fmt.Errorf("writeRawValue %s: %T is not a bool", path, v)
		}
		w.U8(value)
		return nil

	case TextProperty:
		value, ok := v.(*Text)
		if !ok {
			return fmt.Errorf("writeRawValue %s: %T is not text", path, v)
		}
		writeText(w, value)
		return nil
	}

	if err := writeScalar(w, tag, v); err != nil {
		return fmt.Errorf("writeRawValue %s: %w", path, err)
	}
	return nil
}

func boolByte(v Value) (uint8, bool) {
	switch x := v.(type) {
	case Bool:
		if x {
			return 1, true
		}
		return 0, true
	case BoolByte:
		return uint8(x), true
	}
	return 0, false
}

func writeScalar(w *memory.Writer, tag string, v Value) error {
	ok := true
	switch tag {
	case Int8Property:
		var x Int8
		if x, ok = v.(Int8); ok {
			w.I8(int8(x))
		}
	case Int16Property:
		var x Int16
		if x, ok = v.(Int16); ok {
			w.I16(int16(x))
		}
	case IntProperty:
		var x Int32
		if x, ok = v.(Int32); ok {
			w.I32(int32(x))
		}
	case Int64Property:
		var x Int64
		if x, ok = v.(Int64); ok {
			w.I64(int64(x))
		}
	case UInt16Property:
		var x UInt16
		if x, ok = v.(UInt16); ok {
			w.U16(uint16(x))
		}
	case UInt32Property:
		var x UInt32
		if x, ok = v.(UInt32); ok {
			w.U32(uint32(x))
		}
	case UInt64Property:
		var x UInt64
		if x, ok = v.(UInt64); ok {
			w.U64(uint64(x))
		}
	case FloatProperty:
		var x Float32
		if x, ok = v.(Float32); ok {
			w.F32(float32(x))
		}
	case DoubleProperty:
		var x Float64
		if x, ok = v.(Float64); ok {
			w.F64(float64(x))
		}
	case StrProperty, NameProperty, ObjectProperty, SoftObjectProperty:
		switch x := v.(type) {
		case Str:
			w.FString(string(x))
		case EncodedStr:
			w.FStringEncoded(x.Value, x.Encoding)
		default:
			ok = false
		}
	default:
		return &FormatError{Kind: UnknownPropertyType, Tag: tag}
	}
	if !ok {
		return fmt.Errorf("%T does not fit %s", v, tag)
	}
	return nil
}

func writeText(w *memory.Writer, t *Text) {
	w.U32(t.Flags)
	w.I8(t.History)
	switch t.History {
	case -1:
		if t.HasInvariant {
			w.U32(1)
			w.FString(t.Invariant)
		} else {
			w.U32(0)
		}
	case 0:
		w.FString(t.Namespace)
		w.FString(t.Key)
		w.FString(t.Source)
	default:
		w.Write(t.Raw)
	}
}

func writeOptionalGuid(w *memory.Writer, g *ue.FGuid) {
	if g == nil {
		w.U8(0)
		return
	}
	w.U8(1)
	ue.WriteGuid(w, *g)
}
