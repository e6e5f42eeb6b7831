package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ivlev/bouncegif/internal/config"
	"github.com/ivlev/bouncegif/internal/engine"
	"github.com/ivlev/bouncegif/internal/source"
	"github.com/ivlev/bouncegif/internal/stage"
	"github.com/ivlev/bouncegif/internal/system"
)

var version = "dev"

func main() {
	configPtr := flag.String("config", "", "Файл конфигурации (.yaml или .toml)")
	ratioPtr := flag.String("ratio", "16:9", "Формат: 9:16, 1:1, 16:9")
	widthPtr := flag.Int("width", 0, "Ширина (вместе с -height заменяет формат)")
	heightPtr := flag.Int("height", 0, "Высота")
	logoPtr := flag.String("logo", "", "Логотип: png, jpg, gif или pdf (по умолчанию: самый свежий файл в input/logo/)")
	qrPtr := flag.String("qr", "", "Текст или ссылка для QR-логотипа")
	sizePtr := flag.String("size", "medium", "Размер логотипа: small, medium, large")
	speedPtr := flag.Float64("speed", 3, "Скорость, пикселей за тик")
	colorsPtr := flag.String("colors", "hue", "Смена цвета при ударе: hue, palette, random")
	qualityPtr := flag.String("quality", "medium", "Качество: high (25 fps), medium (15 fps), low (10 fps)")
	durationPtr := flag.Float64("duration", 10, "Длительность GIF в секундах (1-30)")
	warmupPtr := flag.Float64("warmup", 0, "Прогрев перед записью, секунд")
	loopClosePtr := flag.Bool("loop-close", true, "Возвращать логотип в начальную точку в конце записи")
	outputPtr := flag.String("output", "output", "Директория для результата")
	namePtr := flag.String("name", "bouncing-logo", "Префикс имени файла")
	offlinePtr := flag.Bool("offline", false, "Виртуальные часы: запись быстрее реального времени")
	dialogPtr := flag.Bool("dialog", false, "Показать системный диалог сохранения")
	debugPtr := flag.Bool("debug", false, "Рисовать отладочную информацию в кадрах")
	statsPtr := flag.Bool("stats", false, "Показать статистику производительности")
	seedPtr := flag.Int64("seed", 0, "Seed генератора (0 - случайный)")

	flag.Parse()

	cfg := config.Default()
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка чтения конфигурации: %v", err)
		}
		cfg = loaded
		fmt.Printf("[*] Конфигурация: %s\n", *configPtr)
	}

	// флаги переопределяют файл только если заданы явно
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ratio":
			cfg.AspectRatio = *ratioPtr
		case "width":
			cfg.Width = *widthPtr
		case "height":
			cfg.Height = *heightPtr
		case "logo":
			cfg.LogoPath = *logoPtr
		case "qr":
			cfg.QRText = *qrPtr
		case "size":
			cfg.LogoSize = *sizePtr
		case "speed":
			cfg.Speed = *speedPtr
		case "colors":
			cfg.ColorMode = *colorsPtr
		case "quality":
			cfg.Quality = *qualityPtr
		case "duration":
			cfg.Duration = *durationPtr
		case "warmup":
			cfg.WarmupDuration = *warmupPtr
		case "loop-close":
			cfg.LoopClose = *loopClosePtr
		case "output":
			cfg.OutputDir = *outputPtr
		case "name":
			cfg.Name = *namePtr
		case "offline":
			cfg.Offline = *offlinePtr
		case "dialog":
			cfg.SaveDialog = *dialogPtr
		case "debug":
			cfg.Debug = *debugPtr
		case "stats":
			cfg.ShowStats = *statsPtr
		case "seed":
			cfg.Seed = *seedPtr
		}
	})
	cfg.BuildVersion = version

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] %v", err)
	}

	if cfg.LogoPath == "" && cfg.QRText == "" {
		if latest, err := system.FindLatestLogo("input/logo"); err == nil {
			cfg.LogoPath = latest
			fmt.Printf("[*] Выбран логотип: %s\n", cfg.LogoPath)
		}
	}

	st, err := stage.New(cfg)
	if err != nil {
		log.Fatalf("[-] Ошибка инициализации сцены: %v", err)
	}

	switch {
	case cfg.LogoPath != "":
		logo, err := source.LoadLogo(cfg.LogoPath, cfg.MaxLogoBytes)
		if err != nil {
			// сцена остается с градиентным кругом
			log.Printf("[!] Логотип отклонен: %v", err)
		} else {
			st.SetCustomImage(logo)
		}
	case cfg.QRText != "":
		logo, err := source.QRLogo(cfg.QRText, cfg.LogoPixels())
		if err != nil {
			log.Printf("[!] Не удалось построить QR-код: %v", err)
		} else {
			st.SetCustomImage(logo)
		}
	}

	lastReported := -1
	pipeline, err := engine.NewPipeline(cfg, st, engine.WithObserver(func(s engine.Status) {
		if s.Progress/10 == lastReported/10 || s.Phase == engine.PhaseIdle {
			return
		}
		lastReported = s.Progress
		fmt.Printf("[>] %s: %d%% (кадров: %d)\n", s.Label(), s.Progress, s.Frames)
	}))
	if err != nil {
		log.Fatalf("[-] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		pipeline.CancelExport()
	}()

	fmt.Printf("[*] Запись %s, %v, качество %s (%.0f fps)\n",
		cfg.RatioLabel(), cfg.CaptureDuration(), cfg.Quality, cfg.QualityPreset().FPS())
	res, err := pipeline.Export(ctx, cfg.Quality, cfg.Duration)
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Println("[-] Экспорт отменен")
		os.Exit(130)
	case err != nil:
		log.Fatalf("[-] Ошибка экспорта: %v", err)
	}

	if res.Fallback {
		fmt.Printf("[!] GIF не получен, сохранен статичный кадр: %s\n", res.Path)
		return
	}
	fmt.Printf("[+++] Успех! Результат: %s (%d кадров, %d КБ)\n", res.Path, res.Frames, res.Bytes/1024)
}
