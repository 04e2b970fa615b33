package config

import (
	"os"
	"path/filepath"
	"testing"

	"palworld-save-edit/gvas"
	"palworld-save-edit/palworld"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Entities != palworld.DefaultPaths() {
		t.Errorf("entities = %+v", cfg.Entities)
	}
	if kind, _ := cfg.CompressionKind(); kind != palworld.CompressionZlib {
		t.Errorf("compression = %v", kind)
	}
	if len(cfg.DecodeOptions()) != 0 {
		t.Error("defaults produced decode options")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palsave.yaml")
	err := os.WriteFile(path, []byte(`
addr: 127.0.0.1:9000
database: /tmp/pals.db
compression: double-zlib
type_hints:
  .worldSaveData.MapObjectSaveData.Key: Guid
raw_structs:
  - PalMapObjectSaveData
raw_paths:
  - .worldSaveData.FoliageGridSaveDataMap
entities:
  table: worldSaveData.CharacterSaveParameterMap
  nickname: NickName
`), 0644)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database != "/tmp/pals.db" || cfg.TypeHints[".worldSaveData.MapObjectSaveData.Key"] != "Guid" {
		t.Errorf("cfg = %+v", cfg)
	}
	if ADDR == "" && cfg.Addr != "127.0.0.1:9000" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if kind, _ := cfg.CompressionKind(); kind != palworld.CompressionDoubleZlib {
		t.Errorf("compression = %v", kind)
	}
	if cfg.Entities.CharacterID != "CharacterID" {
		t.Errorf("unset entity paths not defaulted: %+v", cfg.Entities)
	}
	if got := len(cfg.DecodeOptions()); got != 3 {
		t.Errorf("decode options = %d", got)
	}
}

func TestRawStructsApplyToDecode(t *testing.T) {
	cfg := Default()
	cfg.RawStructs = []string{"Vector"}

	tree := gvas.NewTree(&gvas.Property{
		Name:  "Where",
		Type:  gvas.StructProperty,
		Value: &gvas.Struct{Type: "Vector", Data: make(gvas.RawStruct, 24)},
	})
	data, err := gvas.EncodeProperties(tree, "")
	if err != nil {
		t.Fatal(err)
	}
	decoded, _, err := gvas.DecodeProperties(data, "", cfg.DecodeOptions()...)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := decoded.Value("Where")
	if _, ok := v.(*gvas.Struct).Data.(gvas.RawStruct); !ok {
		t.Errorf("Where = %#v", v)
	}
}

func TestLoadRejectsBadCompression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palsave.yaml")
	if err := os.WriteFile(path, []byte("compression: brotli\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("brotli accepted")
	}
}
