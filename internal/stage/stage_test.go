package stage

import (
	"image"
	"testing"
	"time"

	"github.com/ivlev/bouncegif/internal/config"
	"github.com/ivlev/bouncegif/internal/raster"
)

func newTestStage(t *testing.T) *Stage {
	t.Helper()
	cfg := config.Default()
	cfg.Seed = 11
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestNewStage(t *testing.T) {
	s := newTestStage(t)
	scene := s.Snapshot()

	if scene.Width != 800 || scene.Height != 450 || scene.Label != "16:9" {
		t.Errorf("Unexpected viewport %dx%d %s", scene.Width, scene.Height, scene.Label)
	}
	if !s.Ready() {
		t.Fatal("Stage should be ready with a measured viewport")
	}
	if _, ok := scene.Visual.(raster.GradientCircle); !ok {
		t.Errorf("Expected gradient visual, got %T", scene.Visual)
	}
	if scene.State.Size != 72 {
		t.Errorf("Expected size 72, got %.0f", scene.State.Size)
	}
}

func TestSetAspectRatioResets(t *testing.T) {
	s := newTestStage(t)
	for i := 0; i < 100; i++ {
		s.Tick(16 * time.Millisecond)
	}

	if err := s.SetAspectRatio("9:16"); err != nil {
		t.Fatal(err)
	}
	scene := s.Snapshot()
	if scene.Width != 300 || scene.Height != 534 || scene.Label != "9:16" {
		t.Errorf("Preset not applied: %dx%d %s", scene.Width, scene.Height, scene.Label)
	}
	if scene.State.Direction.X != 1 || scene.State.Direction.Y != 1 {
		t.Errorf("Direction should reset to (1,1), got %+v", scene.State.Direction)
	}
	p := scene.State.Position
	if p.X < 0 || p.X > 228 || p.Y < 0 || p.Y > 462 {
		t.Errorf("Position outside new viewport: %+v", p)
	}

	if err := s.SetAspectRatio("4:3"); err == nil {
		t.Error("Expected error for unknown preset")
	}
}

func TestResizeNotifiesSimulator(t *testing.T) {
	s := newTestStage(t)
	s.sim.State.Position.X = 700

	calls := 0
	s.Viewport.OnResize(func(w, h int) { calls++ })
	s.Resize(400, 300)
	s.Resize(400, 300)

	if calls != 1 {
		t.Errorf("Expected one notification for an actual change, got %d", calls)
	}
	if s.Snapshot().State.Position.X != 328 {
		t.Errorf("Expected x clamped to 328, got %.1f", s.Snapshot().State.Position.X)
	}
}

func TestSetCustomImage(t *testing.T) {
	s := newTestStage(t)
	s.SetCustomImage(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if _, ok := s.Snapshot().Visual.(raster.CustomImage); !ok {
		t.Errorf("Expected custom visual, got %T", s.Snapshot().Visual)
	}

	s.SetCustomImage(nil)
	if _, ok := s.Snapshot().Visual.(raster.GradientCircle); !ok {
		t.Errorf("Expected gradient after reset, got %T", s.Snapshot().Visual)
	}
}

func TestExportSimulatorIsIndependent(t *testing.T) {
	s := newTestStage(t)
	live := s.Snapshot().State.Position

	a, err := s.ExportSimulator()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := s.ExportSimulator()
	if a.State.Position != live {
		t.Errorf("Export should start at live position %+v, got %+v", live, a.State.Position)
	}

	for i := 0; i < 500; i++ {
		a.Tick(16 * time.Millisecond)
		b.Tick(16 * time.Millisecond)
	}
	if a.State != b.State {
		t.Error("Export simulators from the same stage should be identical")
	}
	if s.Snapshot().State.Position != live {
		t.Error("Export ticks moved the live logo")
	}
}

func TestUnmeasuredViewport(t *testing.T) {
	cfg := config.Default()
	cfg.Width, cfg.Height = 0, 0
	cfg.AspectRatio = "1:1"
	s, _ := New(cfg)
	s.Resize(0, 0)

	if s.Ready() {
		t.Fatal("Stage should not be ready with zero viewport")
	}
	s.Tick(16 * time.Millisecond)

	s.Resize(200, 200)
	if !s.Ready() {
		t.Error("Stage should become ready after measuring")
	}
}
