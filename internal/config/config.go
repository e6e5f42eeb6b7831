package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("некорректная конфигурация")

type Config struct {
	Name        string `yaml:"name" toml:"name"`
	AspectRatio string `yaml:"aspect_ratio" toml:"aspect_ratio"`
	// Width/Height > 0 заменяют пресет (полноэкранный режим)
	Width  int `yaml:"width" toml:"width"`
	Height int `yaml:"height" toml:"height"`

	LogoPath     string `yaml:"logo" toml:"logo"`
	QRText       string `yaml:"qr" toml:"qr"`
	LogoSize     string `yaml:"logo_size" toml:"logo_size"`
	MaxLogoBytes int64  `yaml:"max_logo_bytes" toml:"max_logo_bytes"`

	Speed      float64     `yaml:"speed" toml:"speed"`
	TickRate   int         `yaml:"tick_rate" toml:"tick_rate"`
	ColorMode  string      `yaml:"color_mode" toml:"color_mode"`
	Palette    []ColorSpec `yaml:"palette" toml:"palette"`
	Background string      `yaml:"background" toml:"background"`
	Initial    ColorSpec   `yaml:"initial_color" toml:"initial_color"`
	Seed       int64       `yaml:"seed" toml:"seed"`

	Quality         string  `yaml:"quality" toml:"quality"`
	Duration        float64 `yaml:"duration" toml:"duration"`
	WarmupDuration  float64 `yaml:"warmup" toml:"warmup"`
	LoopClose       bool    `yaml:"loop_close" toml:"loop_close"`
	LoopCloseWindow float64 `yaml:"loop_close_window" toml:"loop_close_window"`
	BatchSize       int     `yaml:"batch_size" toml:"batch_size"`
	CaptureTimeout  float64 `yaml:"capture_timeout" toml:"capture_timeout"`
	EncodeTimeout   float64 `yaml:"encode_timeout" toml:"encode_timeout"`

	OutputDir    string `yaml:"output_dir" toml:"output_dir"`
	Offline      bool   `yaml:"offline" toml:"offline"`
	SaveDialog   bool   `yaml:"save_dialog" toml:"save_dialog"`
	Debug        bool   `yaml:"debug" toml:"debug"`
	ShowStats    bool   `yaml:"stats" toml:"stats"`
	BuildVersion string `yaml:"-" toml:"-"`
}

// ColorSpec - двухточечный градиент в hex-нотации.
type ColorSpec struct {
	Start string `yaml:"start" toml:"start"`
	End   string `yaml:"end" toml:"end"`
}

type QualityPreset struct {
	SampleInterval time.Duration
	// EncoderQuality - шаг выборки пикселей при построении палитры (1 - лучшее)
	EncoderQuality int
	Workers        int
}

func (q QualityPreset) FPS() float64 {
	return float64(time.Second) / float64(q.SampleInterval)
}

var Qualities = map[string]QualityPreset{
	"high":   {SampleInterval: 40 * time.Millisecond, EncoderQuality: 1, Workers: 4},
	"medium": {SampleInterval: 66 * time.Millisecond, EncoderQuality: 10, Workers: 2},
	"low":    {SampleInterval: 100 * time.Millisecond, EncoderQuality: 20, Workers: 2},
}

type Dimensions struct {
	Width, Height int
}

var AspectRatios = map[string]Dimensions{
	"9:16": {Width: 300, Height: 534},
	"1:1":  {Width: 500, Height: 500},
	"16:9": {Width: 800, Height: 450},
}

var LogoSizes = map[string]int{
	"small":  48,
	"medium": 72,
	"large":  96,
}

var DefaultPalette = []ColorSpec{
	{Start: "#ec4899", End: "#eab308"},
	{Start: "#4ade80", End: "#3b82f6"},
	{Start: "#c084fc", End: "#ec4899"},
	{Start: "#eab308", End: "#ef4444"},
	{Start: "#3b82f6", End: "#6366f1"},
}

const (
	MaxDuration = 30.0
	MinDuration = 1.0
)

func Default() *Config {
	palette := make([]ColorSpec, len(DefaultPalette))
	copy(palette, DefaultPalette)
	return &Config{
		Name:            "bouncing-logo",
		AspectRatio:     "16:9",
		LogoSize:        "medium",
		MaxLogoBytes:    5 << 20,
		Speed:           3,
		TickRate:        60,
		ColorMode:       "hue",
		Palette:         palette,
		Background:      "#ffffff",
		Initial:         ColorSpec{Start: "#4361ee", End: "#3a0ca3"},
		Quality:         "medium",
		Duration:        10,
		LoopClose:       true,
		LoopCloseWindow: 2,
		BatchSize:       5,
		CaptureTimeout:  30,
		EncodeTimeout:   120,
		OutputDir:       "output",
	}
}

// Load читает конфигурацию поверх значений по умолчанию.
// Формат определяется по расширению: .yaml/.yml или .toml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: неизвестный формат файла %s", ErrInvalid, path)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, ok := Qualities[c.Quality]; !ok {
		return fmt.Errorf("%w: качество %q (high, medium, low)", ErrInvalid, c.Quality)
	}
	if c.Width <= 0 || c.Height <= 0 {
		if _, ok := AspectRatios[c.AspectRatio]; !ok {
			return fmt.Errorf("%w: формат %q (9:16, 1:1, 16:9)", ErrInvalid, c.AspectRatio)
		}
	}
	if _, ok := LogoSizes[c.LogoSize]; !ok {
		return fmt.Errorf("%w: размер логотипа %q (small, medium, large)", ErrInvalid, c.LogoSize)
	}
	if c.Duration < MinDuration || c.Duration > MaxDuration {
		return fmt.Errorf("%w: длительность %.1fs вне диапазона [%.0f, %.0f]", ErrInvalid, c.Duration, MinDuration, MaxDuration)
	}
	if c.Speed <= 0 {
		return fmt.Errorf("%w: скорость должна быть положительной", ErrInvalid)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("%w: tick_rate должен быть положительным", ErrInvalid)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size должен быть положительным", ErrInvalid)
	}
	switch c.ColorMode {
	case "hue", "palette", "random":
	default:
		return fmt.Errorf("%w: режим цвета %q (hue, palette, random)", ErrInvalid, c.ColorMode)
	}
	if c.ColorMode != "hue" && len(c.Palette) == 0 {
		return fmt.Errorf("%w: пустая палитра для режима %s", ErrInvalid, c.ColorMode)
	}
	return nil
}

// Viewport возвращает размер области анимации с учетом пресета.
func (c *Config) Viewport() Dimensions {
	if c.Width > 0 && c.Height > 0 {
		return Dimensions{Width: c.Width, Height: c.Height}
	}
	return AspectRatios[c.AspectRatio]
}

// RatioLabel - метка формата для имени файла.
func (c *Config) RatioLabel() string {
	if c.Width > 0 && c.Height > 0 {
		return fmt.Sprintf("%dx%d", c.Width, c.Height)
	}
	return c.AspectRatio
}

func (c *Config) QualityPreset() QualityPreset {
	return Qualities[c.Quality]
}

func (c *Config) LogoPixels() int {
	return LogoSizes[c.LogoSize]
}

func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c *Config) CaptureDuration() time.Duration { return seconds(c.Duration) }

func (c *Config) Warmup() time.Duration { return seconds(c.WarmupDuration) }

func (c *Config) LoopWindow() time.Duration { return seconds(c.LoopCloseWindow) }

func (c *Config) CaptureTimeoutDur() time.Duration { return seconds(c.CaptureTimeout) }

func (c *Config) EncodeTimeoutDur() time.Duration { return seconds(c.EncodeTimeout) }
