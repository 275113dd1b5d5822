package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/ivlev/scene2video/internal/api"
	"github.com/ivlev/scene2video/internal/config"
	"github.com/ivlev/scene2video/internal/engine"
	"github.com/ivlev/scene2video/internal/logging"
	"github.com/ivlev/scene2video/internal/source"
	"github.com/ivlev/scene2video/internal/store"
	"github.com/ivlev/scene2video/internal/system"
	"github.com/ivlev/scene2video/internal/video"
)

func runServe(args []string) {
	cfg, configPath := configFromArgs(args)
	fs := newFlagSet("serve", cfg, configPath)
	fs.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Адрес HTTP сервера")
	fs.IntVar(&cfg.Server.Port, "port", cfg.Server.Port, "Порт HTTP сервера")
	fs.StringVar(&cfg.Server.DataDir, "data", cfg.Server.DataDir, "Папка для базы и готовых видео")
	fs.StringVar(&cfg.Store.Backend, "store", cfg.Store.Backend, "Хранилище композиций: sqlite или mongo")
	fs.StringVar(&cfg.AssetsRoot, "assets", cfg.AssetsRoot, "Папка, относительно которой ищутся изображения")
	fs.StringVar(&cfg.VideoEncoder, "encoder", cfg.VideoEncoder, "Энкодер ffmpeg для экспорта")
	fs.BoolVar(&cfg.ShowQR, "qr", cfg.ShowQR, "Показать QR-код с адресом сервера")
	fs.Parse(args)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}
	system.InitResourceLimits()

	if err := os.MkdirAll(cfg.Server.DataDir, 0755); err != nil {
		log.Fatalf("[-] Не удалось создать папку данных: %v", err)
	}
	exportDir := filepath.Join(cfg.Server.DataDir, "exports")
	if err := os.MkdirAll(exportDir, 0755); err != nil {
		log.Fatalf("[-] Не удалось создать папку экспорта: %v", err)
	}

	if cfg.VideoEncoder == "" {
		cfg.VideoEncoder, _ = system.GetBestH264Encoder()
	}
	if cfg.Quality <= 0 {
		cfg.Quality = autoQuality(cfg.VideoEncoder)
	}

	logger := logging.NewLogger(cfg.Server.LogLevel)
	logger.Info("starting scene2video",
		"version", Version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"data_dir", cfg.Server.DataDir,
		"store", cfg.Store.Backend,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := store.Open(ctx, cfg.Store.Backend, cfg.DBPath(), cfg.Store.MongoURI, cfg.Store.MongoDatabase, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	notifier := buildNotifier(cfg, logger)
	defer notifier.Close()

	// Кэш живёт, пока живёт сервер
	images := source.NewCachedLoader(&source.FileLoader{Root: cfg.AssetsRoot, DPI: cfg.DPI})

	runner := engine.NewRunner(repo, cfg, &video.FFmpegEncoder{}, notifier, images, logger)
	go runner.Start(ctx)

	server := api.NewServer(api.ServerConfig{
		Host:       cfg.Server.Host,
		Port:       cfg.Server.Port,
		Repository: repo,
		Runner:     runner,
		Images:     images,
		ExportDir:  exportDir,
		Logger:     logger,
		StartTime:  time.Now(),
		Version:    Version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	url := "http://" + previewHost(cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("[>] Ready: %s\n", url)
	if cfg.ShowQR {
		printQR(url)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig)
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("scene2video stopped")
}

// previewHost подставляет адрес машины в сети, если сервер слушает все интерфейсы.
func previewHost(host string, port int) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		if ip := outboundIP(); ip != "" {
			host = ip
		} else {
			host = config.DefaultHost
		}
	}
	return net.JoinHostPort(host, fmt.Sprint(port))
}

func outboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return ""
}

func printQR(url string) {
	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		log.Printf("[!] Не удалось построить QR-код: %v", err)
		return
	}
	fmt.Println(q.ToSmallString(false))
}
