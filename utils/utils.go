package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"palworld-save-edit/config"
)

var OutputDir = "."

func saveJSON(foldername string, name string, data []byte) error {
	combinedPath := filepath.Join(OutputDir, "json", foldername)
	if err := os.MkdirAll(combinedPath, os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(combinedPath, name+".json"), data, 0644)
}

func saveBinary(foldername string, name string, data []byte) error {
	combinedPath := filepath.Join(OutputDir, "binary", foldername)
	if err := os.MkdirAll(combinedPath, os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(combinedPath, name+".bin"), data, 0644)
}

// SaveToFile writes a debug dump when the matching DEBUG_SAVE_* flag is set.
func SaveToFile(foldername string, name string, dataType string, data interface{}) error {
	switch dataType {
	case "json":
		if config.DEBUG_SAVE_JSON {
			jsonObject, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return err
			}
			return saveJSON(foldername, name, jsonObject)
		}
	case "bin":
		if config.DEBUG_SAVE_BINARY || config.DEBUG_SAVE_DECRYPTED {
			b, ok := data.([]byte)
			if !ok {
				return fmt.Errorf("binary dump of %T", data)
			}
			return saveBinary(foldername, name, b)
		}
	default:
		return fmt.Errorf("unknown file dataType: %s", dataType)
	}
	return nil
}
