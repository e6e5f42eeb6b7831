package gifenc

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"
	"time"
)

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func drain(t *testing.T, events <-chan Event) (progress []float64, last Event) {
	t.Helper()
	terminal := 0
	for ev := range events {
		switch ev.Kind {
		case EventProgress:
			progress = append(progress, ev.Progress)
		default:
			terminal++
			last = ev
		}
	}
	if terminal != 1 {
		t.Fatalf("Expected exactly one terminal event, got %d", terminal)
	}
	return progress, last
}

func TestGIFEncoderRoundTrip(t *testing.T) {
	enc := NewGIFEncoder()
	if err := enc.Configure(32, 16, Params{Quality: 10, Workers: 2, Background: color.White}, 0); err != nil {
		t.Fatal(err)
	}

	colors := []color.RGBA{{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255}}
	for _, c := range colors {
		if err := enc.AddFrame(solidFrame(32, 16, c), 100*time.Millisecond); err != nil {
			t.Fatalf("AddFrame failed: %v", err)
		}
	}

	progress, last := drain(t, enc.Render(context.Background()))
	if last.Kind != EventFinished {
		t.Fatalf("Expected Finished, got %+v", last)
	}
	if len(progress) != len(colors) {
		t.Errorf("Expected %d progress events, got %d", len(colors), len(progress))
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Errorf("Progress went backwards: %v", progress)
		}
	}

	g, err := gif.DecodeAll(bytes.NewReader(last.Data))
	if err != nil {
		t.Fatalf("Output is not a valid GIF: %v", err)
	}
	if len(g.Image) != len(colors) {
		t.Fatalf("Expected %d frames, got %d", len(colors), len(g.Image))
	}
	if g.LoopCount != 0 {
		t.Errorf("Expected infinite loop, got %d", g.LoopCount)
	}
	for i, c := range colors {
		if g.Delay[i] != 10 {
			t.Errorf("Frame %d: expected delay 10cs, got %d", i, g.Delay[i])
		}
		r, gg, b, _ := g.Image[i].At(5, 5).RGBA()
		if uint8(r>>8) != c.R || uint8(gg>>8) != c.G || uint8(b>>8) != c.B {
			t.Errorf("Frame %d: color order not preserved", i)
		}
	}
}

func TestGIFDelayRounding(t *testing.T) {
	tests := []struct {
		name  string
		delay time.Duration
		want  int
	}{
		{"15fps", 66 * time.Millisecond, 7},
		{"10fps", 100 * time.Millisecond, 10},
		{"round up", 15 * time.Millisecond, 2},
		{"round down", 14 * time.Millisecond, 1},
		{"tiny", 2 * time.Millisecond, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := NewGIFEncoder()
			if err := enc.Configure(8, 8, Params{Quality: 10, Workers: 1}, 0); err != nil {
				t.Fatal(err)
			}
			if err := enc.AddFrame(solidFrame(8, 8, color.RGBA{200, 10, 10, 255}), tt.delay); err != nil {
				t.Fatal(err)
			}
			_, last := drain(t, enc.Render(context.Background()))
			if last.Kind != EventFinished {
				t.Fatalf("Expected Finished, got %+v", last)
			}
			g, err := gif.DecodeAll(bytes.NewReader(last.Data))
			if err != nil {
				t.Fatal(err)
			}
			if g.Delay[0] != tt.want {
				t.Errorf("Delay %v: expected %dcs, got %d", tt.delay, tt.want, g.Delay[0])
			}
		})
	}
}

func TestRenderWithoutFrames(t *testing.T) {
	enc := NewGIFEncoder()
	enc.Configure(8, 8, Params{}, 0)

	_, last := drain(t, enc.Render(context.Background()))
	if last.Kind != EventFailed || !errors.Is(last.Err, ErrNoFrames) {
		t.Errorf("Expected ErrNoFrames, got %+v", last)
	}
}

func TestAddFrameValidation(t *testing.T) {
	enc := NewGIFEncoder()
	if err := enc.AddFrame(solidFrame(8, 8, color.RGBA{}), 0); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}

	enc.Configure(8, 8, Params{}, 0)
	if err := enc.AddFrame(solidFrame(4, 4, color.RGBA{}), 0); err == nil {
		t.Error("Expected size mismatch error")
	}
}

func TestRenderCancelled(t *testing.T) {
	enc := NewGIFEncoder()
	enc.Configure(8, 8, Params{Workers: 1}, 0)
	for i := 0; i < 10; i++ {
		enc.AddFrame(solidFrame(8, 8, color.RGBA{A: 255}), 0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, last := drain(t, enc.Render(ctx))
	if last.Kind != EventFailed || !errors.Is(last.Err, context.Canceled) {
		t.Errorf("Expected cancellation failure, got %+v", last)
	}
}

func TestQuantizeLimitsPalette(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: uint8(x ^ y), A: 255})
		}
	}

	p := Quantize(img, 1, color.White)
	if len(p.Palette) > 256 {
		t.Errorf("Palette too large: %d", len(p.Palette))
	}
	if p.Palette[0] != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("Background must be the first palette entry, got %v", p.Palette[0])
	}
}

func TestEncodeStill(t *testing.T) {
	data, err := EncodeStill(solidFrame(4, 4, color.RGBA{R: 9, A: 255}))
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Invalid PNG: %v", err)
	}
	if img.Bounds().Dx() != 4 {
		t.Errorf("Unexpected bounds %v", img.Bounds())
	}

	if _, err := EncodeStill(nil); !errors.Is(err, ErrNoFrames) {
		t.Errorf("Expected ErrNoFrames, got %v", err)
	}
}
