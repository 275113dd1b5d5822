package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ivlev/scene2video/internal/config"
	"github.com/ivlev/scene2video/internal/engine"
	"github.com/ivlev/scene2video/internal/logging"
	"github.com/ivlev/scene2video/internal/notify"
	"github.com/ivlev/scene2video/internal/raster"
	"github.com/ivlev/scene2video/internal/system"
	"github.com/ivlev/scene2video/internal/video"
)

func runRender(args []string) {
	cfg, configPath := configFromArgs(args)
	fs := newFlagSet("render", cfg, configPath)

	if cfg.OutputVideo == config.DefaultOutput {
		cfg.OutputVideo = ""
	}
	fs.StringVar(&cfg.OutputVideo, "output", cfg.OutputVideo, "Путь к видео (если пусто, генерируется автоматически в output/)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Потоки отрисовки (0 - по числу ядер и свободной памяти)")
	fs.StringVar(&cfg.AudioPath, "audio", cfg.AudioPath, "Путь к аудио дорожке (auto - самый свежий файл в input/audio/)")
	fs.Float64Var(&cfg.AudioVolume, "audio-volume", cfg.AudioVolume, "Громкость аудио (1.0 - без изменений)")
	fs.BoolVar(&cfg.FitAudio, "fit-audio", cfg.FitAudio, "Растянуть сцены под длительность аудио")
	fs.StringVar(&cfg.VideoEncoder, "encoder", cfg.VideoEncoder, "Энкодер ffmpeg (по умолчанию: лучший доступный H.264)")
	fs.IntVar(&cfg.Quality, "quality", cfg.Quality, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	fs.IntVar(&cfg.DPI, "dpi", cfg.DPI, "DPI для страниц PDF в элементах image")
	fs.StringVar(&cfg.AssetsRoot, "assets", cfg.AssetsRoot, "Папка, относительно которой ищутся изображения (по умолчанию: папка композиции)")
	fs.BoolVar(&cfg.ShowStats, "stats", cfg.ShowStats, "Показать отчёт о производительности и дописать его в benchmark.log")
	fs.Parse(args)

	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	comp, inputPath := resolveComposition(fs.Arg(0), cfg)
	cfg.InputPath = inputPath

	if cfg.OutputVideo == "" {
		os.MkdirAll(outputDir, 0755)
		cfg.OutputVideo = filepath.Join(outputDir, timestampedName(inputPath, ".mp4"))
	}

	if cfg.AudioPath == "auto" {
		cfg.AudioPath = ""
		if latest, err := system.FindLatestAudio(audioDir); err == nil {
			cfg.AudioPath = latest
			fmt.Printf("[*] Выбрано аудио: %s\n", latest)
		} else {
			log.Printf("[!] Аудио не найдено: %v", err)
		}
	}

	if cfg.VideoEncoder == "" {
		encoderName, _ := system.GetBestH264Encoder()
		if encoderName != "libx264" {
			fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", encoderName)
		}
		cfg.VideoEncoder = encoderName
	}
	if cfg.Quality <= 0 {
		cfg.Quality = autoQuality(cfg.VideoEncoder)
	}

	logger := logging.NewLoggerTo(os.Stderr, cfg.Server.LogLevel)
	var pub notify.Publisher
	if cfg.MQTT.Broker != "" {
		pub = buildNotifier(cfg, logger)
		defer pub.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := raster.New(comp.Meta.Width, comp.Meta.Height, imageLoader(cfg, inputPath))
	project := engine.NewExportProject(cfg, comp, r, &video.FFmpegEncoder{}, pub)
	project.CompositionID = comp.Meta.Title
	project.Logger = logger

	if _, err := project.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Fatalf("[-] Экспорт прерван")
		}
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputVideo)
}

func autoQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75 // Хорошее качество для VideoToolbox
	case "h264_nvenc":
		return 28 // Эквивалент CRF для NVENC
	default:
		return 23 // Стандартный CRF для x264
	}
}
