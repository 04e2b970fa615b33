package palworld

import (
	"testing"

	"palworld-save-edit/gvas"
	"palworld-save-edit/ue"
)

func guid(b byte) ue.FGuid {
	var g ue.FGuid
	for i := range g {
		g[i] = b + byte(i)
	}
	return g
}

var (
	uidTristan = guid(0x10)
	uidZoe     = guid(0x20)
	groupGuid  = guid(0xa0)
)

func testHeader() gvas.Header {
	return gvas.Header{
		SaveGameVersion:   3,
		PackageVersionUE4: 522,
		PackageVersionUE5: 1008,
		Engine: gvas.EngineVersion{
			Major:  5,
			Minor:  1,
			Patch:  1,
			Branch: "++UE5+Release-5.1",
		},
		CustomVersionFormat: 3,
		SaveGameClassName:   "/Script/Pal.PalWorldSaveGame",
	}
}

func guidProp(name string, g ue.FGuid) *gvas.Property {
	return &gvas.Property{Name: name, Type: gvas.StructProperty, Value: &gvas.Struct{Type: "Guid", Data: g}}
}

func strProp(name, value string) *gvas.Property {
	return &gvas.Property{Name: name, Type: gvas.StrProperty, Value: gvas.Str(value)}
}

func nameProp(name, value string) *gvas.Property {
	return &gvas.Property{Name: name, Type: gvas.NameProperty, Value: gvas.Str(value)}
}

func levelProp(level uint8) *gvas.Property {
	return &gvas.Property{Name: "Level", Type: gvas.ByteProperty, Value: gvas.Byte{EnumType: gvas.NoneName, Raw: level}}
}

func boolProp(name string, value bool) *gvas.Property {
	return &gvas.Property{Name: name, Type: gvas.BoolProperty, Value: gvas.Bool(value)}
}

// rawDataBytes encodes SaveParameter the way the game embeds it in RawData.
func rawDataBytes(t *testing.T, params ...*gvas.Property) []byte {
	t.Helper()
	embedded := gvas.NewTree(&gvas.Property{
		Name:  "SaveParameter",
		Type:  gvas.StructProperty,
		Value: &gvas.Struct{Type: "PalIndividualCharacterSaveParameter", Data: gvas.NewTree(params...)},
	})
	data, err := gvas.EncodeProperties(embedded, "")
	if err != nil {
		t.Fatalf("encode raw data: %v", err)
	}
	data = append(data, 0, 0, 0, 0)
	return append(data, groupGuid[:]...)
}

func characterEntry(t *testing.T, playerUID, instanceID ue.FGuid, params ...*gvas.Property) gvas.MapEntry {
	t.Helper()
	key := gvas.NewTree(guidProp("PlayerUId", playerUID), guidProp("InstanceId", instanceID))
	value := gvas.NewTree(&gvas.Property{
		Name:  "RawData",
		Type:  gvas.ArrayProperty,
		Value: &gvas.Array{ElementType: gvas.ByteProperty, Bytes: rawDataBytes(t, params...)},
	})
	return gvas.MapEntry{
		Key:   &gvas.Struct{Type: gvas.StructProperty, Data: key},
		Value: &gvas.Struct{Type: gvas.StructProperty, Data: value},
	}
}

func worldDocument(entries ...gvas.MapEntry) *gvas.Document {
	world := gvas.NewTree(&gvas.Property{
		Name: "CharacterSaveParameterMap",
		Type: gvas.MapProperty,
		Value: &gvas.Map{
			KeyType:   gvas.StructProperty,
			ValueType: gvas.StructProperty,
			Entries:   entries,
		},
	})
	return &gvas.Document{
		Header: testHeader(),
		Root: gvas.NewTree(
			&gvas.Property{Name: "Version", Type: gvas.IntProperty, Value: gvas.Int32(100)},
			&gvas.Property{Name: "worldSaveData", Type: gvas.StructProperty, Value: &gvas.Struct{Type: "PalWorldSaveData", Data: world}},
		),
		Trailer: []byte{0, 0, 0, 0},
	}
}

// sampleWorld has two players, three owned pals, one wild pal and one
// broken entry.
func sampleWorld(t *testing.T) *gvas.Document {
	var zero ue.FGuid
	return worldDocument(
		characterEntry(t, uidTristan, guid(0x11),
			boolProp("IsPlayer", true), strProp("NickName", "Tristan"), levelProp(15)),
		characterEntry(t, zero, guid(0x30),
			nameProp("CharacterID", "SheepBall"), strProp("NickName", "Fluffy"), levelProp(5), guidProp("OwnerPlayerUId", uidTristan)),
		characterEntry(t, uidZoe, guid(0x21),
			boolProp("IsPlayer", true), strProp("NickName", "Zoe")),
		characterEntry(t, zero, guid(0x40),
			nameProp("CharacterID", "PinkCat"), levelProp(22), guidProp("OwnerPlayerUId", uidZoe)),
		characterEntry(t, zero, guid(0x50),
			nameProp("CharacterID", "ChickenPal"), levelProp(3)),
		characterEntry(t, zero, guid(0x60),
			levelProp(9), guidProp("OwnerPlayerUId", uidZoe)),
		characterEntry(t, zero, guid(0x70),
			nameProp("CharacterID", "Anubis"), guidProp("OwnerPlayerUId", uidTristan)),
	)
}

// decoded pushes doc through the encoder and decoder.
func decoded(t *testing.T, doc *gvas.Document) *gvas.Document {
	t.Helper()
	data, err := gvas.Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := gvas.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return out
}
