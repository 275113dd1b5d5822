package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/scene2video/internal/config"
	"github.com/ivlev/scene2video/internal/logging"
	"github.com/ivlev/scene2video/internal/notify"
	"github.com/ivlev/scene2video/internal/scene"
	"github.com/ivlev/scene2video/internal/source"
)

// Version подставляется при сборке через -ldflags "-X main.Version=..."
var Version = "dev"

const (
	compositionsDir = "compositions"
	outputDir       = "output"
	pdfDir          = "input/pdf"
	audioDir        = "input/audio"
)

func usage() {
	fmt.Fprintf(os.Stderr, `scene2video %s: декларативные сцены в видео

Использование:
  scene2video <команда> [флаги] [файл]

Команды:
  render    отрисовать композицию в MP4
  duration  посчитать длительность композиции
  frame     состояние или PNG одного кадра
  extract   извлечь сцены из (незавершённого) JSON вывода модели
  scaffold  черновик композиции из PDF или папки с изображениями
  serve     HTTP API с предпросмотром, хранилищем и экспортом
  version   версия сборки

Флаги команды: scene2video <команда> -h
`, Version)
}

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "render", "export":
		runRender(args)
	case "duration":
		runDuration(args)
	case "frame":
		runFrame(args)
	case "extract":
		runExtract(args)
	case "scaffold":
		runScaffold(args)
	case "serve":
		runServe(args)
	case "version":
		fmt.Println(Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "[-] Неизвестная команда: %s\n\n", cmd)
		usage()
		os.Exit(2)
	}
}

// configFromArgs загружает конфигурацию до разбора флагов, чтобы значения
// из файла и окружения стали значениями флагов по умолчанию.
func configFromArgs(args []string) (*config.Config, string) {
	path := ""
	for i, arg := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || name != "config" {
			continue
		}
		if hasValue {
			path = value
		} else if i+1 < len(args) {
			path = args[i+1]
		}
		break
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}
	cfg.BuildVersion = Version
	return cfg, path
}

func newFlagSet(name string, cfg *config.Config, configPath string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.String("config", configPath, "Путь к YAML конфигурации (переменные SCENE2VIDEO_* и .env применяются поверх)")
	return fs
}

// resolveComposition читает композицию из файла или берёт самую свежую из
// compositions/. Пустые размеры и FPS берутся из конфигурации.
func resolveComposition(path string, cfg *config.Config) (*scene.Composition, string) {
	if path == "" {
		latest, err := scene.FindLatestComposition(compositionsDir)
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Укажите файл композиции", err)
		}
		path = latest
		fmt.Printf("[*] Выбран файл: %s\n", path)
	}

	comp, err := scene.ReadComposition(path)
	if err != nil {
		log.Fatalf("[-] Ошибка чтения композиции: %v", err)
	}
	if comp.Meta.Width <= 0 {
		comp.Meta.Width = cfg.Width
	}
	if comp.Meta.Height <= 0 {
		comp.Meta.Height = cfg.Height
	}
	if comp.Meta.FPS <= 0 {
		comp.Meta.FPS = cfg.FPS
	}
	return comp, path
}

// imageLoader резолвит src изображений относительно assets или папки композиции.
func imageLoader(cfg *config.Config, compositionPath string) source.Loader {
	root := cfg.AssetsRoot
	if root == "" && compositionPath != "" {
		root = filepath.Dir(compositionPath)
	}
	return source.NewCachedLoader(&source.FileLoader{Root: root, DPI: cfg.DPI})
}

// buildNotifier подключается к MQTT, если брокер задан; иначе события
// пишутся в лог.
func buildNotifier(cfg *config.Config, logger *slog.Logger) notify.Publisher {
	if cfg.MQTT.Broker == "" {
		return &notify.LogPublisher{Logger: logging.WithComponent(logger, "notify")}
	}
	pub, err := notify.NewMQTTPublisher(notify.MQTTOptions{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		Topic:    cfg.MQTT.Topic,
		QoS:      1,
		Timeout:  5 * time.Second,
	})
	if err != nil {
		log.Printf("[!] MQTT недоступен, события только в лог: %v", err)
		return &notify.LogPublisher{Logger: logging.WithComponent(logger, "notify")}
	}
	fmt.Printf("[*] События экспорта публикуются в %s (%s)\n", cfg.MQTT.Broker, cfg.MQTT.Topic)
	return pub
}

func timestampedName(base, ext string) string {
	clean := strings.ReplaceAll(strings.TrimSuffix(filepath.Base(base), filepath.Ext(base)), " ", "_")
	if clean == "" || clean == "." {
		clean = "scene2video"
	}
	return fmt.Sprintf("%s_%s%s", clean, time.Now().Format("2006-01-02_15-04-05"), ext)
}
