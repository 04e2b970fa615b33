package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"palworld-save-edit/gvas"
	"palworld-save-edit/palworld"
)

var (
	DEBUG                = os.Getenv("DEBUG") != ""
	DEBUG_SAVE_DECRYPTED = os.Getenv("DEBUG_SAVE_DECRYPTED") != ""
	DEBUG_SAVE_BINARY    = os.Getenv("DEBUG_SAVE_BINARY") != ""
	DEBUG_SAVE_JSON      = os.Getenv("DEBUG_SAVE_JSON") != ""

	CONFIG_PATH = os.Getenv("PALSAVE_CONFIG")
	ADDR        = os.Getenv("PALSAVE_ADDR")
)

// Config is the optional YAML file named by PALSAVE_CONFIG.
type Config struct {
	Addr        string            `yaml:"addr"`
	Database    string            `yaml:"database"`
	Compression string            `yaml:"compression"`
	TypeHints   map[string]string `yaml:"type_hints"`
	RawStructs  []string          `yaml:"raw_structs"`
	RawPaths    []string          `yaml:"raw_paths"`
	Entities    palworld.Paths    `yaml:"entities"`
}

func Default() *Config {
	return &Config{
		Addr:        ":8211",
		Database:    "palworld.db",
		Compression: palworld.CompressionZlib.String(),
		Entities:    palworld.DefaultPaths(),
	}
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults; PALSAVE_ADDR overrides the listen address.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if ADDR != "" {
		cfg.Addr = ADDR
	}
	cfg.Entities = cfg.Entities.WithDefaults()
	if _, err := cfg.CompressionKind(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) CompressionKind() (palworld.CompressionKind, error) {
	return palworld.ParseCompressionKind(c.Compression)
}

// DecodeOptions turns the codec settings into gvas options. Raw structs are
// registered on a copy of the default registry.
func (c *Config) DecodeOptions() []gvas.Option {
	var opts []gvas.Option
	if len(c.TypeHints) > 0 {
		opts = append(opts, gvas.WithTypeHints(c.TypeHints))
	}
	if len(c.RawStructs) > 0 {
		registry := gvas.DefaultRegistry()
		for _, name := range c.RawStructs {
			registry.RegisterRaw(name)
		}
		opts = append(opts, gvas.WithRegistry(registry))
	}
	if len(c.RawPaths) > 0 {
		opts = append(opts, gvas.WithRawPaths(c.RawPaths...))
	}
	return opts
}
