package main

import (
	"fmt"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/ivlev/scene2video/internal/api"
	"github.com/ivlev/scene2video/internal/director"
	"github.com/ivlev/scene2video/internal/extract"
	"github.com/ivlev/scene2video/internal/raster"
	"github.com/ivlev/scene2video/internal/scene"
	"github.com/ivlev/scene2video/internal/source"
	"github.com/ivlev/scene2video/internal/system"
	"github.com/ivlev/scene2video/internal/timeline"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("[-] Ошибка сериализации: %v", err)
	}
	fmt.Println(string(data))
}

func runDuration(args []string) {
	cfg, configPath := configFromArgs(args)
	fs := newFlagSet("duration", cfg, configPath)
	asJSON := fs.Bool("json", false, "Вывести результат в JSON")
	fs.Parse(args)

	comp, _ := resolveComposition(fs.Arg(0), cfg)
	if err := scene.Validate(comp); err != nil {
		log.Printf("[!] Композиция содержит ошибки:\n%v", err)
	}

	total := timeline.TotalFrames(comp.Scenes)
	res := api.DurationResponse{
		TotalFrames: total,
		Seconds:     timeline.Seconds(total, comp.Meta.FPS),
		FPS:         comp.Meta.FPS,
	}
	if *asJSON {
		printJSON(res)
		return
	}
	fmt.Printf("[*] Сцен: %d, кадров: %d, %.2f сек при %d FPS\n", len(comp.Scenes), res.TotalFrames, res.Seconds, res.FPS)
}

func runFrame(args []string) {
	cfg, configPath := configFromArgs(args)
	fs := newFlagSet("frame", cfg, configPath)
	n := fs.Int("n", 0, "Номер кадра композиции")
	pngPath := fs.String("png", "", "Сохранить кадр в PNG вместо вывода состояния")
	fs.StringVar(&cfg.AssetsRoot, "assets", cfg.AssetsRoot, "Папка, относительно которой ищутся изображения")
	fs.IntVar(&cfg.DPI, "dpi", cfg.DPI, "DPI для страниц PDF")
	fs.Parse(args)

	comp, path := resolveComposition(fs.Arg(0), cfg)
	if err := scene.Validate(comp); err != nil {
		log.Fatalf("[-] Композиция некорректна:\n%v", err)
	}

	if *pngPath == "" {
		res, ok := api.FrameToResponse(comp, *n)
		if !ok {
			log.Fatalf("[-] Композиция не содержит кадров")
		}
		printJSON(res)
		return
	}

	r := raster.New(comp.Meta.Width, comp.Meta.Height, imageLoader(cfg, path))
	img, err := r.Frame(comp, *n)
	if err != nil {
		log.Printf("[!] Кадр %d отрисован с ошибками: %v", *n, err)
	}
	defer system.PutImage(img)

	f, err := os.Create(*pngPath)
	if err != nil {
		log.Fatalf("[-] Ошибка создания файла: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		log.Fatalf("[-] Ошибка записи PNG: %v", err)
	}
	fmt.Printf("[+++] Кадр %d сохранён: %s\n", *n, *pngPath)
}

// runExtract читает (возможно оборванный) ответ модели из файла или stdin.
func runExtract(args []string) {
	cfg, configPath := configFromArgs(args)
	fs := newFlagSet("extract", cfg, configPath)
	final := fs.Bool("final", false, "Текст завершён: разобрать целиком, при ошибке перейти к построчному поиску")
	out := fs.String("o", "", "Сохранить сцены как композицию (JSON или YAML по расширению)")
	title := fs.String("title", "", "Название композиции при сохранении")
	fs.Parse(args)

	var (
		data []byte
		err  error
	)
	if name := fs.Arg(0); name != "" && name != "-" {
		data, err = os.ReadFile(name)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		log.Fatalf("[-] Ошибка чтения: %v", err)
	}

	scenes := extract.Extract(string(data), *final)
	if *out == "" {
		printJSON(api.ScenesToResponse(scenes))
		return
	}
	if len(scenes) == 0 {
		log.Fatalf("[-] Не найдено ни одной завершённой сцены")
	}

	comp := &scene.Composition{
		Meta:   scene.Meta{Title: *title, Width: cfg.Width, Height: cfg.Height, FPS: cfg.FPS},
		Scenes: scenes,
	}
	if err := scene.Validate(comp); err != nil {
		log.Printf("[!] Извлечённые сцены содержат ошибки:\n%v", err)
	}
	if err := scene.WriteComposition(comp, *out); err != nil {
		log.Fatalf("[-] Ошибка сохранения: %v", err)
	}
	fmt.Printf("[+++] Сцен: %d. Композиция сохранена: %s\n", len(scenes), *out)
}

func runScaffold(args []string) {
	cfg, configPath := configFromArgs(args)
	fs := newFlagSet("scaffold", cfg, configPath)
	pageSeconds := fs.Float64("page-duration", 5, "Время показа страницы (сек)")
	highlights := fs.Int("highlights", 6, "Максимум подсвечиваемых блоков на странице (0 - без подсветки)")
	out := fs.String("o", "", "Путь к композиции (если пусто, генерируется в compositions/)")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "Ширина видео")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "Высота видео")
	fs.IntVar(&cfg.FPS, "fps", cfg.FPS, "Кадров в секунду")
	fs.Parse(args)

	input := fs.Arg(0)
	if input == "" {
		latest, err := system.FindLatestFile(pdfDir, ".pdf")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Укажите PDF или папку с изображениями", err)
		}
		input = latest
		fmt.Printf("[*] Выбран файл: %s\n", input)
	}

	// Страницы из папки с изображениями ссылаются на файлы по абсолютному пути
	if abs, err := filepath.Abs(input); err == nil {
		input = abs
	}
	src, err := source.Open(input)
	if err != nil {
		log.Fatalf("[-] Ошибка открытия источника: %v", err)
	}
	defer src.Close()

	d := director.NewDirector(cfg.Width, cfg.Height, cfg.FPS)
	d.PageSeconds = *pageSeconds
	d.MaxRegions = *highlights

	fmt.Printf("[*] Анализ %d страниц...\n", src.PageCount())

	if *out == "" {
		os.MkdirAll(compositionsDir, 0755)
		*out = scene.GenerateCompositionPath(compositionsDir)
	}

	// PDF указывается относительно композиции
	ref := input
	if absOut, err := filepath.Abs(*out); err == nil {
		if rel, err := filepath.Rel(filepath.Dir(absOut), input); err == nil {
			ref = rel
		}
	}
	comp, err := d.Compose(src, ref)
	if err != nil {
		log.Fatalf("[-] Ошибка построения композиции: %v", err)
	}
	if err := scene.WriteComposition(comp, *out); err != nil {
		log.Fatalf("[-] Ошибка сохранения: %v", err)
	}

	total := timeline.TotalFrames(comp.Scenes)
	fmt.Printf("[+++] Сцен: %d, %.1f сек. Композиция сохранена: %s\n", len(comp.Scenes), timeline.Seconds(total, comp.Meta.FPS), *out)
}
