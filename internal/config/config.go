package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/macho715/tr-dash/internal/publish"
)

// EnvPrefix namespaces environment overrides. TRFLOW_REFLOW__ACTOR maps to reflow.actor.
const EnvPrefix = "TRFLOW_"

type Config struct {
	Database DatabaseConfig `json:"database"`
	Reflow   ReflowConfig   `json:"reflow"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  MetricsConfig  `json:"metrics"`
	MQTT     publish.Config `json:"mqtt"`
}

// DatabaseConfig selects where the live snapshot is kept.
type DatabaseConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `json:"driver"`
	// Path is the SQLite file; defaults to ~/.trflow/trflow.db.
	Path string `json:"path"`
}

func (c *DatabaseConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.Path == "" && c.Driver == "sqlite" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Path = filepath.Join(home, ".trflow", "trflow.db")
		} else {
			c.Path = "trflow.db"
		}
	}
}

func (c DatabaseConfig) Validate() error {
	switch c.Driver {
	case "sqlite":
		if c.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Driver)
	}
	return nil
}

// ReflowConfig holds defaults applied to reflow and detection requests.
type ReflowConfig struct {
	// Actor is recorded on history events when a request names none.
	Actor string `json:"actor"`
	// Baseline is the baseline compared on every run: an id, "latest" or "none".
	Baseline string `json:"baseline"`
	// BaselineToleranceMin is the drift ignored by the baseline differ.
	BaselineToleranceMin int `json:"baseline_tolerance_min"`
	// BaselineMajorAfterMin escalates drift beyond this to major.
	BaselineMajorAfterMin int `json:"baseline_major_after_min"`
}

func (c *ReflowConfig) SetDefaults() {
	if c.Actor == "" {
		c.Actor = "trflow"
	}
	if c.Baseline == "" {
		c.Baseline = "latest"
	}
	if c.BaselineMajorAfterMin == 0 {
		c.BaselineMajorAfterMin = 240
	}
}

func (c ReflowConfig) Validate() error {
	if c.BaselineToleranceMin < 0 {
		return fmt.Errorf("reflow.baseline_tolerance_min must not be negative")
	}
	if c.BaselineMajorAfterMin < 0 {
		return fmt.Errorf("reflow.baseline_major_after_min must not be negative")
	}
	return nil
}

func (c ReflowConfig) Tolerance() time.Duration {
	return time.Duration(c.BaselineToleranceMin) * time.Minute
}

func (c ReflowConfig) MajorAfter() time.Duration {
	return time.Duration(c.BaselineMajorAfterMin) * time.Minute
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	// Level is a zerolog level name.
	Level string `json:"level"`
	// Format is "json" or "console".
	Format string `json:"format"`
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
		if strings.EqualFold(os.Getenv("TRFLOW_ENV"), "dev") {
			c.Format = "console"
		}
	}
}

func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("unknown log level %s", c.Level)
	}
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("unknown log format %s", c.Format)
	}
	return nil
}

// MetricsConfig enables the Prometheus textfile dump written after each command.
type MetricsConfig struct {
	TextfilePath string `json:"textfile_path"`
}

// Load reads path (yaml or json) when given, then applies TRFLOW_ environment
// overrides, defaults and validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) SetDefaults() {
	c.Database.SetDefaults()
	c.Reflow.SetDefaults()
	c.Logging.SetDefaults()
	c.MQTT.SetDefaults()
}

func (c Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Reflow.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return c.MQTT.Validate()
}
