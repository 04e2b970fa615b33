package gvas

import (
	"palworld-save-edit/memory"
	"palworld-save-edit/ue"
)

// Property type tags. The vocabulary is closed: any other tag fails decoding
// with UnknownPropertyType.
const (
	Int8Property       = "Int8Property"
	Int16Property      = "Int16Property"
	IntProperty        = "IntProperty"
	Int64Property      = "Int64Property"
	UInt16Property     = "UInt16Property"
	UInt32Property     = "UInt32Property"
	UInt64Property     = "UInt64Property"
	FloatProperty      = "FloatProperty"
	DoubleProperty     = "DoubleProperty"
	BoolProperty       = "BoolProperty"
	ByteProperty       = "ByteProperty"
	EnumProperty       = "EnumProperty"
	StrProperty        = "StrProperty"
	NameProperty       = "NameProperty"
	TextProperty       = "TextProperty"
	ObjectProperty     = "ObjectProperty"
	SoftObjectProperty = "SoftObjectProperty"
	StructProperty     = "StructProperty"
	ArrayProperty      = "ArrayProperty"
	MapProperty        = "MapProperty"
	SetProperty        = "SetProperty"

	// NoneName terminates a property list.
	NoneName = "None"
)

// Value is one decoded property payload. The concrete types below are the
// complete set.
type Value interface {
	isValue()
}

type (
	Bool    bool
	Int8    int8
	Int16   int16
	Int32   int32
	Int64   int64
	UInt16  uint16
	UInt32  uint32
	UInt64  uint64
	Float32 float32
	Float64 float64
	// Str carries StrProperty, NameProperty, ObjectProperty and
	// SoftObjectProperty payloads; the tag tells them apart.
	Str string
	// BoolByte is a bool stored as a byte other than 0 or 1.
	BoolByte uint8
)

// EncodedStr is a string-valued payload whose stored width differs from the
// one Str encodes to, such as narrow UTF-8 or wide ASCII. Decode produces
// it only for those strings; new values should use Str.
type EncodedStr struct {
	Value    string
	Encoding memory.StringEncoding
}

// Enum is an EnumProperty value. EnumType is empty for enum elements inside
// arrays, maps and sets, where the stream does not repeat it.
type Enum struct {
	EnumType string
	Value    string
}

// Byte is a ByteProperty value: either a raw byte (EnumType "None") or the
// name of an enum entry.
type Byte struct {
	EnumType string
	Raw      uint8
	Name     string
}

func (b Byte) IsEnum() bool {
	return b.EnumType != "" && b.EnumType != NoneName
}

// Text is a TextProperty value. Histories other than none (-1) and base (0)
// keep their body in Raw.
type Text struct {
	Flags        uint32
	History      int8
	Namespace    string
	Key          string
	Source       string
	HasInvariant bool
	Invariant    string
	Raw          []byte
}

// Struct is a StructProperty value. Data is a *Tree for generic structs,
// a RawStruct when the layout could not be decoded, or the fixed value
// produced by a registered struct codec (ue.FVector, ue.FGuid, ...).
type Struct struct {
	Type string
	Guid ue.FGuid
	Data any
}

// RawStruct keeps the payload of a struct whose layout is unknown, byte for
// byte.
type RawStruct []byte

// ArrayStructHeader is the single struct header shared by every element of
// an array of structs.
type ArrayStructHeader struct {
	Name       string
	Type       string
	StructType string
	Guid       ue.FGuid
	HasGuid    uint8
}

// Array is an ArrayProperty value. Byte arrays keep their elements in Bytes.
// Raw is set instead of elements when the payload was captured verbatim.
type Array struct {
	ElementType string
	Header      *ArrayStructHeader
	Elements    []Value
	Bytes       []byte
	Raw         []byte
}

func (a *Array) Len() int {
	if a.ElementType == ByteProperty {
		return len(a.Bytes)
	}
	return len(a.Elements)
}

type MapEntry struct {
	Key   Value
	Value Value
}

type Map struct {
	KeyType   string
	ValueType string
	Removed   uint32
	Entries   []MapEntry
	Raw       []byte
}

// Set preserves decode order; Encode drops duplicate elements.
type Set struct {
	ElementType string
	Removed     uint32
	Elements    []Value
	Raw         []byte
}

func (Bool) isValue()       {}
func (Int8) isValue()       {}
func (Int16) isValue()      {}
func (Int32) isValue()      {}
func (Int64) isValue()      {}
func (UInt16) isValue()     {}
func (UInt32) isValue()     {}
func (UInt64) isValue()     {}
func (Float32) isValue()    {}
func (Float64) isValue()    {}
func (Str) isValue()        {}
func (BoolByte) isValue()   {}
func (EncodedStr) isValue() {}
func (Enum) isValue()       {}
func (Byte) isValue()       {}
func (*Text) isValue()      {}
func (*Struct) isValue()    {}
func (*Array) isValue()     {}
func (*Map) isValue()       {}
func (*Set) isValue()       {}

// Property is one named entry of a property list.
type Property struct {
	Name string
	Type string
	// Size is the payload size declared on disk. Encode recomputes it from
	// the value; for an unmodified tree both agree.
	Size uint64
	// Guid is the optional per-property guid, nil when the flag byte was 0.
	Guid  *ue.FGuid
	Value Value
}

// EngineVersion is the FEngineVersion block of the GVAS header.
type EngineVersion struct {
	Major      uint16
	Minor      uint16
	Patch      uint16
	Changelist uint32
	Branch     string
}

type CustomVersion struct {
	ID      ue.FGuid
	Version int32
}

type Header struct {
	Magic               uint32
	SaveGameVersion     int32
	PackageVersionUE4   int32
	PackageVersionUE5   int32
	Engine              EngineVersion
	CustomVersionFormat int32
	CustomVersions      []CustomVersion
	SaveGameClassName   string
}

// Document is one decoded GVAS stream.
type Document struct {
	Header Header
	Root   *Tree
	// Trailer holds whatever follows the root None sentinel.
	Trailer []byte
	// Diagnostics lists contained UnknownStructLayout failures.
	Diagnostics []*FormatError
}
