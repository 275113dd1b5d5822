package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.FPS != DefaultFPS || cfg.Server.Port != DefaultPort {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
width: 1920
height: 1080
fps: 60
stats: true
server:
  port: 9000
store:
  backend: sqlite
mqtt:
  broker: tcp://localhost:1883
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Width != 1920 || cfg.Height != 1080 || cfg.FPS != 60 || !cfg.ShowStats {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.LogLevel != DefaultLogLevel {
		t.Errorf("unset yaml keys should keep defaults, log level = %q", cfg.Server.LogLevel)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" || cfg.MQTT.Topic == "" {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(env(map[string]string{
		"SCENE2VIDEO_FPS":       "25",
		"SCENE2VIDEO_PORT":      "8080",
		"SCENE2VIDEO_STORE":     "mongo",
		"SCENE2VIDEO_MONGO_URI": "mongodb://localhost:27017",
		"SCENE2VIDEO_STATS":     "true",
		"SCENE2VIDEO_LOG_LEVEL": "",
	}))
	if err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}
	if cfg.FPS != 25 || cfg.Server.Port != 8080 || cfg.Store.Backend != StoreMongo || !cfg.ShowStats {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.Server.LogLevel != DefaultLogLevel {
		t.Errorf("empty variable should be ignored, got %q", cfg.Server.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestApplyEnvInvalidNumber(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(env(map[string]string{"SCENE2VIDEO_WIDTH": "wide"}))
	if err == nil || !strings.Contains(err.Error(), "SCENE2VIDEO_WIDTH") {
		t.Fatalf("expected error naming the variable, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero fps", func(c *Config) { c.FPS = 0 }},
		{"odd width", func(c *Config) { c.Width = 1281 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"unknown store", func(c *Config) { c.Store.Backend = "redis" }},
		{"mongo without uri", func(c *Config) { c.Store.Backend = StoreMongo }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDBPath(t *testing.T) {
	cfg := Default()
	cfg.Server.DataDir = "/tmp/data"
	if got := cfg.DBPath(); got != filepath.Join("/tmp/data", DBFilename) {
		t.Errorf("DBPath() = %q", got)
	}
}
