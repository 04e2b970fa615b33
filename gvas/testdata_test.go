package gvas

import (
	"io"
	"log"

	"palworld-save-edit/memory"
	"palworld-save-edit/ue"
)

var (
	testGuidA = ue.FGuid{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff, 0x01}
	testGuidB = ue.FGuid{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
)

func testHeader() Header {
	return Header{
		Magic:             gvasMagic,
		SaveGameVersion:   3,
		PackageVersionUE4: 522,
		PackageVersionUE5: 1008,
		Engine: EngineVersion{
			Major:      5,
			Minor:      1,
			Patch:      1,
			Changelist: 0,
			Branch:     "++UE5+Release-5.1",
		},
		CustomVersionFormat: 3,
		CustomVersions: []CustomVersion{
			{ID: testGuidA, Version: 17},
			{ID: testGuidB, Version: -2},
		},
		SaveGameClassName: "/Script/Pal.PalWorldSaveGame",
	}
}

// writeRawHeader writes testHeader without going through the encoder.
func writeRawHeader(w *memory.Writer) {
	w.Write([]byte("GVAS"))
	w.I32(3)
	w.I32(522)
	w.I32(1008)
	w.U16(5)
	w.U16(1)
	w.U16(1)
	w.U32(0)
	w.FString("++UE5+Release-5.1")
	w.I32(3)
	w.U32(2)
	w.Write(testGuidA[:])
	w.I32(17)
	w.Write(testGuidB[:])
	w.I32(-2)
	w.FString("/Script/Pal.PalWorldSaveGame")
}

func prop(name, tag string, value Value) *Property {
	return &Property{Name: name, Type: tag, Value: value}
}

// sampleDocument exercises every value kind the codec knows.
func sampleDocument() *Document {
	propGuid := testGuidB

	inner := NewTree(
		prop("NickName", StrProperty, Str("Whiskers")),
		prop("Level", ByteProperty, Byte{EnumType: NoneName, Raw: 5}),
		prop("CharacterID", NameProperty, Str("Cattiva")),
		prop("Gender", EnumProperty, Enum{EnumType: "EPalGenderType", Value: "EPalGenderType::Female"}),
		prop("Location", StructProperty, &Struct{Type: "Vector", Data: ue.FVector{X: 1.5, Y: -2, Z: 7088.5}}),
	)

	return &Document{
		Header: testHeader(),
		Root: NewTree(
			prop("Version", IntProperty, Int32(42)),
			prop("Exp", Int64Property, Int64(-9000000000)),
			prop("Small", Int8Property, Int8(-3)),
			prop("Short", Int16Property, Int16(-300)),
			prop("Port", UInt16Property, UInt16(8211)),
			prop("Flags", UInt32Property, UInt32(0xdeadbeef)),
			prop("Ticks", UInt64Property, UInt64(1<<60)),
			prop("Stomach", FloatProperty, Float32(300)),
			prop("Ratio", DoubleProperty, Float64(0.125)),
			prop("IsPlayer", BoolProperty, Bool(true)),
			prop("Hidden", BoolProperty, Bool(false)),
			prop("Title", StrProperty, Str("Pokémon ワールド")),
			&Property{Name: "Tagged", Type: IntProperty, Guid: &propGuid, Value: Int32(7)},
			prop("Mode", ByteProperty, Byte{EnumType: "EPalMode", Name: "EPalMode::Hard"}),
			prop("Display", TextProperty, &Text{Flags: 2, History: 0, Namespace: "ns", Key: "k1", Source: "Hello"}),
			prop("Invariant", TextProperty, &Text{History: -1, HasInvariant: true, Invariant: "inv"}),
			prop("Empty", TextProperty, &Text{History: -1}),
			prop("Owner", StructProperty, &Struct{Type: "Guid", Data: testGuidA}),
			prop("Saved", StructProperty, &Struct{Type: "DateTime", Data: ue.FDateTime(638412345678901234)}),
			prop("Color", StructProperty, &Struct{Type: "LinearColor", Data: ue.FLinearColor{R: 1, G: 0.5, B: 0.25, A: 1}}),
			prop("SaveParameter", StructProperty, &Struct{Type: "PalIndividualCharacterSaveParameter", Data: inner}),
			prop("Levels", ArrayProperty, &Array{ElementType: IntProperty, Elements: []Value{Int32(1), Int32(2), Int32(3)}}),
			prop("Passives", ArrayProperty, &Array{ElementType: NameProperty, Elements: []Value{Str("Rare"), Str("Legend")}}),
			prop("Waza", ArrayProperty, &Array{ElementType: EnumProperty, Elements: []Value{Enum{Value: "EPalWazaID::Unique"}}}),
			prop("RawData", ArrayProperty, &Array{ElementType: ByteProperty, Bytes: []byte{9, 8, 7, 6}}),
			prop("OldOwners", ArrayProperty, &Array{
				ElementType: StructProperty,
				Header:      &ArrayStructHeader{Name: "OldOwners", Type: StructProperty, StructType: "Guid"},
				Elements: []Value{
					&Struct{Type: "Guid", Data: testGuidA},
					&Struct{Type: "Guid", Data: testGuidB},
				},
			}),
			prop("StatusPoints", ArrayProperty, &Array{
				ElementType: StructProperty,
				Header:      &ArrayStructHeader{Name: "StatusPoints", Type: StructProperty, StructType: "PalGotStatusPoint", Guid: testGuidA},
				Elements: []Value{
					&Struct{Type: "PalGotStatusPoint", Guid: testGuidA, Data: NewTree(
						prop("StatusName", NameProperty, Str("HP")),
						prop("StatusPoint", IntProperty, Int32(10)),
					)},
				},
			}),
			prop("Members", MapProperty, &Map{
				KeyType:   StructProperty,
				ValueType: StructProperty,
				Entries: []MapEntry{
					{
						Key:   &Struct{Type: "Guid", Data: testGuidB},
						Value: &Struct{Type: StructProperty, Data: NewTree(prop("Rank", IntProperty, Int32(3)))},
					},
				},
			}),
			prop("Counts", MapProperty, &Map{
				KeyType:   NameProperty,
				ValueType: IntProperty,
				Removed:   0,
				Entries: []MapEntry{
					{Key: Str("Lamball"), Value: Int32(4)},
					{Key: Str("Chikipi"), Value: Int32(1)},
				},
			}),
			prop("Unlocked", SetProperty, &Set{ElementType: NameProperty, Elements: []Value{Str("A"), Str("B")}}),
		),
		Trailer: []byte{0, 0, 0, 0},
	}
}

func mustEncode(doc *Document) []byte {
	b, err := Encode(doc)
	if err != nil {
		panic(err)
	}
	return b
}

func newTestLogger(w io.Writer) *log.Logger {
	return log.New(w, "", 0)
}
