package utils

import (
	"os"
	"path/filepath"
	"testing"

	"palworld-save-edit/config"
)

func TestSaveToFile(t *testing.T) {
	OutputDir = t.TempDir()
	defer func() { OutputDir = "." }()

	jsonFlag, binFlag := config.DEBUG_SAVE_JSON, config.DEBUG_SAVE_BINARY
	defer func() { config.DEBUG_SAVE_JSON, config.DEBUG_SAVE_BINARY = jsonFlag, binFlag }()

	config.DEBUG_SAVE_JSON, config.DEBUG_SAVE_BINARY = false, false
	if err := SaveToFile("Level", "tree", "json", map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(OutputDir, "json")); !os.IsNotExist(err) {
		t.Error("dump written with the flag off")
	}

	config.DEBUG_SAVE_JSON, config.DEBUG_SAVE_BINARY = true, true
	if err := SaveToFile("Level", "tree", "json", map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if err := SaveToFile("Level", "gvas", "bin", []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(OutputDir, "binary", "Level", "gvas.bin"))
	if err != nil || len(b) != 3 {
		t.Errorf("binary dump = %v, %v", b, err)
	}
	if _, err := os.Stat(filepath.Join(OutputDir, "json", "Level", "tree.json")); err != nil {
		t.Error(err)
	}

	if err := SaveToFile("Level", "x", "yaml", nil); err == nil {
		t.Error("unknown data type accepted")
	}
	if err := SaveToFile("Level", "x", "bin", "not bytes"); err == nil {
		t.Error("non-byte binary dump accepted")
	}
}
