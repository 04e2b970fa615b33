package gvas

import (
	"fmt"
	"strings"

	"palworld-save-edit/memory"
	"palworld-save-edit/ue"
)

const gvasMagic = 0x53415647 // "GVAS"

var scalarTags = map[string]bool{
	Int8Property:       true,
	Int16Property:      true,
	IntProperty:        true,
	Int64Property:      true,
	UInt16Property:     true,
	UInt32Property:     true,
	UInt64Property:     true,
	FloatProperty:      true,
	DoubleProperty:     true,
	StrProperty:        true,
	NameProperty:       true,
	ObjectProperty:     true,
	SoftObjectProperty: true,
}

type decoder struct {
	opts        *options
	diagnostics []*FormatError
}

// Decode parses a decompressed GVAS stream. Truncation, unknown property
// tags and payload size mismatches abort the decode; struct payloads that
// do not parse are kept as RawStruct and listed in Document.Diagnostics.
func Decode(data []byte, opts ...Option) (*Document, error) {
	d := &decoder{opts: newOptions(opts)}
	r := memory.NewReader(data)

	header, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", classify(err, "", r.Offset()))
	}

	root, err := d.readProperties(r, "")
	if err != nil {
		return nil, err
	}

	return &Document{
		Header:      header,
		Root:        root,
		Trailer:     r.Rest(),
		Diagnostics: d.diagnostics,
	}, nil
}

// DecodeProperties parses a bare property list such as the payload embedded
// in a byte array. It returns the bytes following the None sentinel.
// Contained struct failures go to the WithDiagnostics callback.
func DecodeProperties(data []byte, path string, opts ...Option) (*Tree, []byte, error) {
	d := &decoder{opts: newOptions(opts)}
	r := memory.NewReader(data)
	tree, err := d.readProperties(r, path)
	if err != nil {
		return nil, nil, err
	}
	return tree, r.Rest(), nil
}

func readHeader(r *memory.Reader) (Header, error) {
	var h Header
	var err error

	if h.Magic, err = r.U32(); err != nil {
		return h, err
	}
	if h.Magic != gvasMagic {
		return h, &FormatError{Kind: BadMagic, Err: fmt.Errorf("header magic %#08x", h.Magic)}
	}
	if h.SaveGameVersion, err = r.I32(); err != nil {
		return h, err
	}
	if h.PackageVersionUE4, err = r.I32(); err != nil {
		return h, err
	}
	if h.SaveGameVersion >= 3 {
		if h.PackageVersionUE5, err = r.I32(); err != nil {
			return h, err
		}
	}

	if h.Engine.Major, err = r.U16(); err != nil {
		return h, err
	}
	if h.Engine.Minor, err = r.U16(); err != nil {
		return h, err
	}
	if h.Engine.Patch, err = r.U16(); err != nil {
		return h, err
	}
	if h.Engine.Changelist, err = r.U32(); err != nil {
		return h, err
	}
	if h.Engine.Branch, err = r.FString(); err != nil {
		return h, err
	}

	if h.CustomVersionFormat, err = r.I32(); err != nil {
		return h, err
	}
	count, err := r.U32()
	if err != nil {
		return h, err
	}
	h.CustomVersions = make([]CustomVersion, 0, min(int(count), r.Remaining()/20))
	for i := uint32(0); i < count; i++ {
		id, err := ue.ReadGuid(r)
		if err != nil {
			return h, err
		}
		version, err := r.I32()
		if err != nil {
			return h, err
		}
		h.CustomVersions = append(h.CustomVersions, CustomVersion{ID: id, Version: version})
	}

	h.SaveGameClassName, err = r.FString()
	return h, err
}

func (d *decoder) readProperties(r *memory.Reader, path string) (*Tree, error) {
	tree := &Tree{}
	for {
		property, err := d.readProperty(r, path)
		if err != nil {
			return nil, err
		}
		if property == nil {
			return tree, nil
		}
		tree.Properties = append(tree.Properties, property)
	}
}

func (d *decoder) readProperty(r *memory.Reader, path string) (*Property, error) {
	offset := r.Offset()
	name, err := r.FString()
	if err != nil {
		return nil, classify(err, path, offset)
	}
	if name == NoneName {
		return nil, nil
	}

	propPath := path + "." + name
	tag, err := r.FString()
	if err != nil {
		return nil, classify(err, propPath, offset)
	}
	size, err := r.U64()
	if err != nil {
		return nil, classify(err, propPath, offset)
	}

	property := &Property{Name: name, Type: tag, Size: size}
	if err := d.readPropertyValue(r, property, propPath); err != nil {
		return nil, classify(err, propPath, offset)
	}
	return property, nil
}

func (d *decoder) readPropertyValue(r *memory.Reader, p *Property, path string) error {
	var err error

	switch p.Type {
	case BoolProperty:
		// The value sits before the guid flag, outside the declared payload.
		value, err := r.U8()
		if err != nil {
			return err
		}
		if p.Guid, err = readOptionalGuid(r); err != nil {
			return err
		}
		if p.Size != 0 {
			return &FormatError{Kind: SizeMismatch, Path: path, Tag: p.Type, Err: fmt.Errorf("bool declares %d payload bytes", p.Size)}
		}
		p.Value = boolValue(value)
		return nil

	case StructProperty:
		structType, err := r.FString()
		if err != nil {
			return err
		}
		structGuid, err := ue.ReadGuid(r)
		if err != nil {
			return err
		}
		payload, err := d.payload(r, p)
		if err != nil {
			return err
		}
		p.Value = d.readStruct(payload, structType, structGuid, path)
		return nil

	case ArrayProperty:
		elementType, err := r.FString()
		if err != nil {
			return err
		}
		payload, err := d.payload(r, p)
		if err != nil {
			return err
		}
		array, err := d.readArray(payload, elementType, p.Name, path)
		if err = d.finish(payload, err, path, p.Type); err != nil {
			if elementType != StructProperty {
				return err
			}
			array = &Array{ElementType: elementType, Raw: d.contain(payload, path, elementType, err)}
		}
		p.Value = array
		return nil

	case MapProperty:
		keyType, err := r.FString()
		if err != nil {
			return err
		}
		valueType, err := r.FString()
		if err != nil {
			return err
		}
		payload, err := d.payload(r, p)
		if err != nil {
			return err
		}
		m, err := d.readMap(payload, keyType, valueType, path)
		if err = d.finish(payload, err, path, p.Type); err != nil {
			if keyType != StructProperty && valueType != StructProperty {
				return err
			}
			m = &Map{KeyType: keyType, ValueType: valueType, Raw: d.contain(payload, path, keyType+"/"+valueType, err)}
		}
		p.Value = m
		return nil

	case SetProperty:
		elementType, err := r.FString()
		if err != nil {
			return err
		}
		payload, err := d.payload(r, p)
		if err != nil {
			return err
		}
		set, err := d.readSet(payload, elementType, path)
		if err = d.finish(payload, err, path, p.Type); err != nil {
			if elementType != StructProperty {
				return err
			}
			set = &Set{ElementType: elementType, Raw: d.contain(payload, path, elementType, err)}
		}
		p.Value = set
		return nil

	case ByteProperty:
		enumType, err := r.FString()
		if err != nil {
			return err
		}
		payload, err := d.payload(r, p)
		if err != nil {
			return err
		}
		value := Byte{EnumType: enumType}
		if value.IsEnum() {
			value.Name, err = payload.FString()
		} else {
			value.Raw, err = payload.U8()
		}
		p.Value = value
		return d.finish(payload, err, path, p.Type)

	case EnumProperty:
		enumType, err := r.FString()
		if err != nil {
			return err
		}
		payload, err := d.payload(r, p)
		if err != nil {
			return err
		}
		value, err := payload.FString()
		p.Value = Enum{EnumType: enumType, Value: value}
		return d.finish(payload, err, path, p.Type)

	case TextProperty:
		payload, err := d.payload(r, p)
		if err != nil {
			return err
		}
		p.Value, err = readText(payload, true)
		return d.finish(payload, err, path, p.Type)
	}

	if !scalarTags[p.Type] {
		return &FormatError{Kind: UnknownPropertyType, Path: path, Tag: p.Type, Offset: r.Offset()}
	}
	payload, err := d.payload(r, p)
	if err != nil {
		return err
	}
	p.Value, err = readScalar(payload, p.Type)
	return d.finish(payload, err, path, p.Type)
}

// payload reads the optional property guid and clamps a reader to the
// declared payload size.
func (d *decoder) payload(r *memory.Reader, p *Property) (*memory.Reader, error) {
	var err error
	if p.Guid, err = readOptionalGuid(r); err != nil {
		return nil, err
	}
	if p.Size > uint64(r.Remaining()) {
		return nil, fmt.Errorf("payload of %d bytes at offset %d, %d left: %w", p.Size, r.Offset(), r.Remaining(), memory.ErrTruncated)
	}
	return r.Sub(int(p.Size))
}

// finish reports an under-read of the declared payload as a size mismatch.
func (d *decoder) finish(payload *memory.Reader, err error, path, tag string) error {
	if err != nil {
		return err
	}
	if payload.Remaining() != 0 {
		return &FormatError{
			Kind:   SizeMismatch,
			Path:   path,
			Tag:    tag,
			Offset: payload.Offset(),
			Err:    fmt.Errorf("%d of %d payload bytes unread", payload.Remaining(), payload.Len()),
		}
	}
	return nil
}

// contain records a struct-bearing payload that failed to parse and returns
// its bytes for verbatim re-encoding.
func (d *decoder) contain(payload *memory.Reader, path, structType string, cause error) []byte {
	diagnostic := &FormatError{
		Kind:   UnknownStructLayout,
		Path:   path,
		Tag:    structType,
		Offset: payload.Offset() - payload.Pos(),
		Err:    cause,
	}
	d.diagnostics = append(d.diagnostics, diagnostic)
	if d.opts.sink != nil {
		d.opts.sink(diagnostic)
	}
	d.opts.logger.Printf("[readStruct] keeping %s (%s) raw, %d bytes: %v", path, structType, payload.Len(), cause)

	_ = payload.Seek(0)
	return payload.Rest()
}

func (d *decoder) readStruct(payload *memory.Reader, structType string, guid ue.FGuid, path string) *Struct {
	result := &Struct{Type: structType, Guid: guid}
	if d.opts.rawPaths[path] || d.opts.registry.IsRaw(structType) {
		result.Data = RawStruct(payload.Rest())
		return result
	}

	data, err := d.readStructBody(payload, structType, path)
	if err = d.finish(payload, err, path, structType); err != nil {
		result.Data = RawStruct(d.contain(payload, path, structType, err))
		return result
	}
	result.Data = data
	return result
}

func (d *decoder) readStructBody(r *memory.Reader, structType, path string) (any, error) {
	if codec, ok := d.opts.registry.Lookup(structType); ok {
		return codec.Read(r)
	}
	return d.readProperties(r, path)
}

func (d *decoder) readArray(r *memory.Reader, elementType, name, path string) (*Array, error) {
	array := &Array{ElementType: elementType}
	if d.opts.rawPaths[path] {
		array.Raw = r.Rest()
		return array, nil
	}

	count, err := r.U32()
	if err != nil {
		return nil, err
	}

	switch elementType {
	case ByteProperty:
		array.Bytes, err = r.Bytes(int(count))
		return array, err

	case StructProperty:
		header := &ArrayStructHeader{}
		if header.Name, err = r.FString(); err != nil {
			return nil, err
		}
		if header.Type, err = r.FString(); err != nil {
			return nil, err
		}
		size, err := r.U64()
		if err != nil {
			return nil, err
		}
		if header.StructType, err = r.FString(); err != nil {
			return nil, err
		}
		if header.Guid, err = ue.ReadGuid(r); err != nil {
			return nil, err
		}
		if header.HasGuid, err = r.U8(); err != nil {
			return nil, err
		}
		if size > uint64(r.Remaining()) {
			return nil, fmt.Errorf("array %s declares %d element bytes, %d left: %w", name, size, r.Remaining(), memory.ErrTruncated)
		}
		elements, err := r.Sub(int(size))
		if err != nil {
			return nil, err
		}
		array.Header = header
		array.Elements = make([]Value, 0, min(int(count), elements.Remaining()))
		for i := uint32(0); i < count; i++ {
			data, err := d.readStructBody(elements, header.StructType, path)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			array.Elements = append(array.Elements, &Struct{Type: header.StructType, Guid: header.Guid, Data: data})
		}
		return array, d.finish(elements, nil, path, header.StructType)
	}

	array.Elements = make([]Value, 0, min(int(count), r.Remaining()))
	for i := uint32(0); i < count; i++ {
		value, err := d.readRawValue(r, elementType, path)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		array.Elements = append(array.Elements, value)
	}
	return array, nil
}

func (d *decoder) readMap(r *memory.Reader, keyType, valueType, path string) (*Map, error) {
	m := &Map{KeyType: keyType, ValueType: valueType}
	if d.opts.rawPaths[path] {
		m.Raw = r.Rest()
		return m, nil
	}

	var err error
	if m.Removed, err = r.U32(); err != nil {
		return nil, err
	}
	count, err := r.U32()
	if err != nil {
		return nil, err
	}

	keyPath, valuePath := path+".Key", path+".Value"
	m.Entries = make([]MapEntry, 0, min(int(count), r.Remaining()/2))
	for i := uint32(0); i < count; i++ {
		key, err := d.readRawValue(r, keyType, keyPath)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		value, err := d.readRawValue(r, valueType, valuePath)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		m.Entries = append(m.Entries, MapEntry{Key: key, Value: value})
	}
	return m, nil
}

func (d *decoder) readSet(r *memory.Reader, elementType, path string) (*Set, error) {
	set := &Set{ElementType: elementType}
	if d.opts.rawPaths[path] {
		set.Raw = r.Rest()
		return set, nil
	}

	var err error
	if set.Removed, err = r.U32(); err != nil {
		return nil, err
	}
	count, err := r.U32()
	if err != nil {
		return nil, err
	}

	set.Elements = make([]Value, 0, min(int(count), r.Remaining()))
	for i := uint32(0); i < count; i++ {
		value, err := d.readRawValue(r, elementType, path)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		set.Elements = append(set.Elements, value)
	}
	return set, nil
}

// structHint resolves the struct type of a map key, map value or set
// element from the configured hints.
func (d *decoder) structHint(path string) string {
	if hint, ok := d.opts.hints[path]; ok {
		return hint
	}
	if strings.HasSuffix(path, ".Value") {
		return StructProperty
	}
	return "Guid"
}

// readRawValue reads a container element, which carries no tag, size or
// guid flag of its own.
func (d *decoder) readRawValue(r *memory.Reader, tag, path string) (Value, error) {
	switch tag {
	case StructProperty:
		structType := d.structHint(path)
		data, err := d.readStructBody(r, structType, path)
		if err != nil {
			return nil, err
		}
		return &Struct{Type: structType, Data: data}, nil

	case EnumProperty:
		value, err := r.FString()
		return Enum{Value: value}, err

	case ByteProperty:
		value, err := r.U8()
		return Byte{Raw: value}, err

	case BoolProperty:
		value, err := r.U8()
		return boolValue(value), err

	case TextProperty:
		return readText(r, false)
	}

	if !scalarTags[tag] {
		return nil, &FormatError{Kind: UnknownPropertyType, Path: path, Tag: tag, Offset: r.Offset()}
	}
	return readScalar(r, tag)
}

func readScalar(r *memory.Reader, tag string) (Value, error) {
	switch tag {
	case Int8Property:
		v, err := r.I8()
		return Int8(v), err
	case Int16Property:
		v, err := r.I16()
		return Int16(v), err
	case IntProperty:
		v, err := r.I32()
		return Int32(v), err
	case Int64Property:
		v, err := r.I64()
		return Int64(v), err
	case UInt16Property:
		v, err := r.U16()
		return UInt16(v), err
	case UInt32Property:
		v, err := r.U32()
		return UInt32(v), err
	case UInt64Property:
		v, err := r.U64()
		return UInt64(v), err
	case FloatProperty:
		v, err := r.F32()
		return Float32(v), err
	case DoubleProperty:
		v, err := r.F64()
		return Float64(v), err
	case StrProperty, NameProperty, ObjectProperty, SoftObjectProperty:
		v, enc, err := r.FStringEncoded()
		if enc != memory.Canonical {
			return EncodedStr{Value: v, Encoding: enc}, err
		}
		return Str(v), err
	default:
		return nil, &FormatError{Kind: UnknownPropertyType, Tag: tag, Offset: r.Offset()}
	}
}

// readText decodes the none and base text histories. Other histories can
// only be kept when the payload is bounded.
func readText(r *memory.Reader, bounded bool) (*Text, error) {
	text := &Text{}
	var err error

	if text.Flags, err = r.U32(); err != nil {
		return nil, err
	}
	if text.History, err = r.I8(); err != nil {
		return nil, err
	}

	switch text.History {
	case -1:
		has, err := r.U32()
		if err != nil {
			return nil, err
		}
		text.HasInvariant = has != 0
		if text.HasInvariant {
			if text.Invariant, err = r.FString(); err != nil {
				return nil, err
			}
		}
	case 0:
		if text.Namespace, err = r.FString(); err != nil {
			return nil, err
		}
		if text.Key, err = r.FString(); err != nil {
			return nil, err
		}
		if text.Source, err = r.FString(); err != nil {
			return nil, err
		}
	default:
		if !bounded {
			return nil, &FormatError{Kind: UnknownPropertyType, Tag: fmt.Sprintf("TextProperty history %d", text.History), Offset: r.Offset()}
		}
		text.Raw = r.Rest()
	}
	return text, nil
}

func boolValue(b uint8) Value {
	if b > 1 {
		return BoolByte(b)
	}
	return Bool(b == 1)
}

func readOptionalGuid(r *memory.Reader) (*ue.FGuid, error) {
	flag, err := r.U8()
	if err != nil {
		return nil, err
	}
	if flag == 0 {
		return nil, nil
	}
	guid, err := ue.ReadGuid(r)
	if err != nil {
		return nil, err
	}
	return &guid, nil
}
