package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWidth    = 1280
	DefaultHeight   = 720
	DefaultFPS      = 30
	DefaultQuality  = 23
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 8787
	DefaultLogLevel = "info"
	DefaultDataDir  = ".scene2video"
	DefaultOutput   = "output.mp4"
	DefaultDPI      = 150

	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"

	DBFilename = "scene2video.db"

	// EnvPrefix начинает имена всех переменных окружения.
	EnvPrefix = "SCENE2VIDEO_"
)

type Config struct {
	InputPath    string  `yaml:"input"`
	OutputVideo  string  `yaml:"output"`
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	FPS          int     `yaml:"fps"`
	Workers      int     `yaml:"workers"`
	DPI          int     `yaml:"dpi"`
	AudioPath    string  `yaml:"audio"`
	AudioVolume  float64 `yaml:"audio_volume"`
	FitAudio     bool    `yaml:"fit_audio"`
	VideoEncoder string  `yaml:"encoder"`
	Quality      int     `yaml:"quality"`
	ShowStats    bool    `yaml:"stats"`
	AssetsRoot   string  `yaml:"assets"`
	ShowQR       bool    `yaml:"qr"`
	BuildVersion string  `yaml:"-"`

	Server Server `yaml:"server"`
	Store  Store  `yaml:"store"`
	MQTT   MQTT   `yaml:"mqtt"`
}

type Server struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	DataDir  string `yaml:"data_dir"`
}

type Store struct {
	Backend       string `yaml:"backend"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

type MQTT struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default возвращает конфигурацию без внешних источников.
func Default() *Config {
	return &Config{
		OutputVideo: DefaultOutput,
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		FPS:         DefaultFPS,
		DPI:         DefaultDPI,
		AudioVolume: 1.0,
		Quality:     DefaultQuality,
		Server: Server{
			Host:     DefaultHost,
			Port:     DefaultPort,
			LogLevel: DefaultLogLevel,
			DataDir:  DefaultDataDir,
		},
		Store: Store{
			Backend:       StoreSQLite,
			MongoDatabase: "scene2video",
		},
		MQTT: MQTT{
			Topic:    "scene2video/progress",
			ClientID: "scene2video",
		},
	}
}

// Load собирает конфигурацию: значения по умолчанию, YAML файл (если path
// не пуст), .env из текущей директории и переменные SCENE2VIDEO_*.
// Флаги командной строки применяются вызывающим кодом поверх результата.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env не обязателен
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("OUTPUT", &c.OutputVideo)
	str("ENCODER", &c.VideoEncoder)
	str("ASSETS", &c.AssetsRoot)
	str("HOST", &c.Server.Host)
	str("LOG_LEVEL", &c.Server.LogLevel)
	str("DATA_DIR", &c.Server.DataDir)
	str("STORE", &c.Store.Backend)
	str("MONGO_URI", &c.Store.MongoURI)
	str("MONGO_DATABASE", &c.Store.MongoDatabase)
	str("MQTT_BROKER", &c.MQTT.Broker)
	str("MQTT_TOPIC", &c.MQTT.Topic)
	str("MQTT_USERNAME", &c.MQTT.Username)
	str("MQTT_PASSWORD", &c.MQTT.Password)

	for name, dst := range map[string]*int{
		"WIDTH":   &c.Width,
		"HEIGHT":  &c.Height,
		"FPS":     &c.FPS,
		"WORKERS": &c.Workers,
		"QUALITY": &c.Quality,
		"PORT":    &c.Server.Port,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvPrefix + "STATS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sSTATS: %w", EnvPrefix, err)
		}
		c.ShowStats = b
	}
	return nil
}

// Validate проверяет значения после применения всех источников.
func (c *Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid resolution %dx%d", c.Width, c.Height))
	}
	if c.Width%2 != 0 || c.Height%2 != 0 {
		errs = append(errs, fmt.Errorf("resolution %dx%d must be even for yuv420p", c.Width, c.Height))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("invalid fps %d", c.FPS))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("invalid workers %d", c.Workers))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Server.Port))
	}
	switch strings.ToLower(c.Store.Backend) {
	case StoreSQLite:
	case StoreMongo:
		if c.Store.MongoURI == "" {
			errs = append(errs, errors.New("mongo store requires a mongo uri"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	return errors.Join(errs...)
}

// DBPath returns the sqlite file inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.Server.DataDir, DBFilename)
}
