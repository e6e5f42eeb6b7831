package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}

	vp := cfg.Viewport()
	if vp.Width != 800 || vp.Height != 450 {
		t.Errorf("Expected 800x450 viewport, got %dx%d", vp.Width, vp.Height)
	}
	if cfg.LogoPixels() != 72 {
		t.Errorf("Expected medium logo 72px, got %d", cfg.LogoPixels())
	}
}

func TestQualityPresets(t *testing.T) {
	tests := []struct {
		quality string
		fps     float64
		workers int
	}{
		{"high", 25, 4},
		{"low", 10, 2},
	}

	for _, tt := range tests {
		t.Run(tt.quality, func(t *testing.T) {
			q := Qualities[tt.quality]
			if q.FPS() != tt.fps {
				t.Errorf("Expected %.0f fps, got %.2f", tt.fps, q.FPS())
			}
			if q.Workers != tt.workers {
				t.Errorf("Expected %d workers, got %d", tt.workers, q.Workers)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"bad quality", func(c *Config) { c.Quality = "ultra" }},
		{"bad ratio", func(c *Config) { c.AspectRatio = "4:3" }},
		{"too long", func(c *Config) { c.Duration = 60 }},
		{"zero speed", func(c *Config) { c.Speed = 0 }},
		{"bad size", func(c *Config) { c.LogoSize = "huge" }},
		{"empty palette", func(c *Config) { c.ColorMode = "palette"; c.Palette = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestCustomViewportOverridesPreset(t *testing.T) {
	cfg := Default()
	cfg.AspectRatio = "nonsense"
	cfg.Width, cfg.Height = 1920, 1080

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Custom viewport should bypass ratio preset: %v", err)
	}
	if cfg.RatioLabel() != "1920x1080" {
		t.Errorf("Unexpected label %s", cfg.RatioLabel())
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bounce.yaml")
	data := "quality: low\nduration: 2\naspect_ratio: \"1:1\"\ncolor_mode: palette\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Quality != "low" || cfg.Duration != 2 || cfg.AspectRatio != "1:1" {
		t.Errorf("Values not loaded: %+v", cfg)
	}
	// не указанные в файле поля остаются по умолчанию
	if cfg.Speed != 3 || len(cfg.Palette) != len(DefaultPalette) {
		t.Errorf("Defaults lost: speed=%v palette=%d", cfg.Speed, len(cfg.Palette))
	}
	if cfg.CaptureDuration() != 2*time.Second {
		t.Errorf("Expected 2s capture, got %v", cfg.CaptureDuration())
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bounce.toml")
	data := "quality = \"high\"\nwarmup = 4.0\n\n[initial_color]\nstart = \"#000000\"\nend = \"#ffffff\"\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Quality != "high" || cfg.Warmup() != 4*time.Second {
		t.Errorf("Values not loaded: quality=%s warmup=%v", cfg.Quality, cfg.Warmup())
	}
	if cfg.Initial.Start != "#000000" {
		t.Errorf("Initial color not loaded: %+v", cfg.Initial)
	}
}

func TestLoadUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bounce.ini")
	os.WriteFile(path, []byte("x=1"), 0644)

	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}
}
