package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "trflow.yaml", `
database:
  driver: sqlite
  path: /tmp/trflow-test.db
reflow:
  actor: planner
  baseline: none
  baseline_tolerance_min: 15
logging:
  level: debug
mqtt:
  enabled: true
  broker: tcp://broker:1883
  qos: 1
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/trflow-test.db", cfg.Database.Path)
	assert.Equal(t, "planner", cfg.Reflow.Actor)
	assert.Equal(t, "none", cfg.Reflow.Baseline)
	assert.Equal(t, 15*time.Minute, cfg.Reflow.Tolerance())
	assert.Equal(t, 4*time.Hour, cfg.Reflow.MajorAfter(), "default applies")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "trflow", cfg.MQTT.TopicPrefix)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "trflow.json", `{"database": {"driver": "memory"}, "metrics": {"textfile_path": "/tmp/trflow.prom"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Empty(t, cfg.Database.Path)
	assert.Equal(t, "/tmp/trflow.prom", cfg.Metrics.TextfilePath)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.NotEmpty(t, cfg.Database.Path)
	assert.Equal(t, "trflow", cfg.Reflow.Actor)
	assert.Equal(t, "latest", cfg.Reflow.Baseline)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.MQTT.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRFLOW_REFLOW__ACTOR", "night-shift")
	t.Setenv("TRFLOW_REFLOW__BASELINE_TOLERANCE_MIN", "30")
	t.Setenv("TRFLOW_DATABASE__DRIVER", "memory")
	path := writeFile(t, "trflow.yaml", "reflow:\n  actor: planner\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "night-shift", cfg.Reflow.Actor)
	assert.Equal(t, 30*time.Minute, cfg.Reflow.Tolerance())
	assert.Equal(t, "memory", cfg.Database.Driver)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"unsupported format", "trflow.toml", "x = 1"},
		{"unknown driver", "bad.yaml", "database:\n  driver: postgres\n"},
		{"bad log level", "bad.yaml", "logging:\n  level: chatty\n"},
		{"negative tolerance", "bad.yaml", "reflow:\n  baseline_tolerance_min: -5\n"},
		{"mqtt without broker", "bad.yaml", "mqtt:\n  enabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
