package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/arbor/pkg/stages"
)

// DefaultPath is the configuration file read when --config is not given.
const DefaultPath = "arbor.yaml"

// Source types.
const (
	SourceFile  = "file"
	SourceLoam  = "loam"
	SourceRedis = "redis"
)

// Config represents the structure of arbor.yaml.
type Config struct {
	Source SourceConfig  `yaml:"source" json:"source"`
	Popup  bool          `yaml:"popup" json:"popup"`
	Stages []stages.Spec `yaml:"stages" json:"stages"`
	HTTP   HTTPConfig    `yaml:"http" json:"http"`
	Log    LogConfig     `yaml:"log" json:"log"`
}

// SourceConfig selects where bookmarks are read from.
type SourceConfig struct {
	// Type is one of file, loam or redis.
	Type string `yaml:"type" json:"type"`
	// Path is the bookmarks file (file) or the document directory (loam).
	// Relative paths are resolved against the configuration file.
	Path  string      `yaml:"path" json:"path"`
	Redis RedisConfig `yaml:"redis" json:"redis"`
}

// RedisConfig configures the redis source.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	// Lock serializes refreshes across replicas with a redis lock.
	Lock bool `yaml:"lock" json:"lock"`
}

// HTTPConfig configures arbor serve.
type HTTPConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Source: SourceConfig{
			Type: SourceFile,
			Path: "bookmarks.yaml",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Log:  LogConfig{Level: "info"},
	}
}

// Load reads a configuration file (YAML, or JSON by extension) over the defaults.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	if cfg.Source.Path != "" && !filepath.IsAbs(cfg.Source.Path) {
		cfg.Source.Path = filepath.Join(filepath.Dir(path), cfg.Source.Path)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Validate checks the fields that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Source.Type {
	case SourceFile, SourceLoam:
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for %s sources", c.Source.Type)
		}
	case SourceRedis:
		if c.Source.Redis.Addr == "" {
			return fmt.Errorf("source.redis.addr is required")
		}
	default:
		return fmt.Errorf("unknown source type %q", c.Source.Type)
	}
	if _, err := stages.Build(c.Stages); err != nil {
		return err
	}
	return nil
}
