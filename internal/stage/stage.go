package stage

import (
	"fmt"
	"image"
	"math/rand"
	"time"

	"github.com/ivlev/bouncegif/internal/config"
	"github.com/ivlev/bouncegif/internal/motion"
	"github.com/ivlev/bouncegif/internal/raster"
)

// Scene is a read-only copy of everything needed to draw one frame.
type Scene struct {
	Width, Height int
	Label         string
	State         motion.State
	Visual        raster.Visual
}

// Stage owns the viewport, the simulator and the logo visual. It is not
// safe for concurrent use; ticks and mutations happen on one goroutine.
type Stage struct {
	Viewport *Viewport
	sim      *motion.Simulator
	size     float64
	visual   raster.Visual

	speed     float64
	colorMode string
	palette   []motion.ColorPair
	def       motion.State
	seed      int64
}

// DefaultState builds the initial direction and gradient from config.
func DefaultState(cfg *config.Config) (motion.State, error) {
	c, err := motion.ParseColorPair(cfg.Initial.Start, cfg.Initial.End)
	if err != nil {
		return motion.State{}, fmt.Errorf("начальный цвет: %w", err)
	}
	return motion.State{
		Direction: motion.Vec{X: 1, Y: 1},
		Color:     c,
		Size:      float64(cfg.LogoPixels()),
	}, nil
}

// Palette converts the configured palette.
func Palette(cfg *config.Config) ([]motion.ColorPair, error) {
	palette := make([]motion.ColorPair, 0, len(cfg.Palette))
	for _, spec := range cfg.Palette {
		c, err := motion.ParseColorPair(spec.Start, spec.End)
		if err != nil {
			return nil, fmt.Errorf("палитра: %w", err)
		}
		palette = append(palette, c)
	}
	return palette, nil
}

func New(cfg *config.Config) (*Stage, error) {
	def, err := DefaultState(cfg)
	if err != nil {
		return nil, err
	}
	palette, err := Palette(cfg)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	colors, err := motion.NewColorPolicy(cfg.ColorMode, palette, rng)
	if err != nil {
		return nil, err
	}

	vp := cfg.Viewport()
	s := &Stage{
		Viewport:  NewViewport(vp.Width, vp.Height, cfg.RatioLabel()),
		sim:       motion.NewSimulator(cfg.Speed, colors, def, rng),
		size:      def.Size,
		visual:    raster.GradientCircle{},
		speed:     cfg.Speed,
		colorMode: cfg.ColorMode,
		palette:   palette,
		def:       def,
		seed:      seed,
	}
	s.Viewport.OnResize(func(w, h int) {
		s.sim.Resize(float64(w), float64(h))
	})
	s.reset()
	return s, nil
}

func (s *Stage) reset() {
	w, h := s.Viewport.Size()
	s.sim.Initialize(float64(w), float64(h), s.size)
}

// SetAspectRatio switches to a preset and restarts the animation.
func (s *Stage) SetAspectRatio(label string) error {
	d, ok := config.AspectRatios[label]
	if !ok {
		return fmt.Errorf("%w: формат %q", config.ErrInvalid, label)
	}
	s.Viewport.setPreset(d.Width, d.Height, label)
	s.reset()
	return nil
}

// SetCustomImage replaces the gradient with an image (nil restores the
// gradient) and restarts the animation.
func (s *Stage) SetCustomImage(img image.Image) {
	if img == nil {
		s.visual = raster.GradientCircle{}
	} else {
		s.visual = raster.CustomImage{Image: img}
	}
	s.reset()
}

func (s *Stage) Resize(w, h int) {
	s.Viewport.Resize(w, h)
}

func (s *Stage) Tick(elapsed time.Duration) motion.Axis {
	return s.sim.Tick(elapsed)
}

func (s *Stage) Ready() bool {
	return s.sim.Ready()
}

func (s *Stage) Snapshot() Scene {
	w, h := s.Viewport.Size()
	return Scene{
		Width:  w,
		Height: h,
		Label:  s.Viewport.Label(),
		State:  s.sim.State,
		Visual: s.visual,
	}
}

// ExportSimulator returns an independent simulator for a recording. It
// starts where the live logo currently is, with the default direction and
// gradient, so the export does not disturb the live animation. Two calls
// on an unchanged stage yield identical simulations.
func (s *Stage) ExportSimulator() (*motion.Simulator, error) {
	rng := rand.New(rand.NewSource(s.seed + 1))
	colors, err := motion.NewColorPolicy(s.colorMode, s.palette, rng)
	if err != nil {
		return nil, err
	}
	sim := motion.NewSimulator(s.speed, colors, s.def, rng)

	w, h := s.Viewport.Size()
	st := s.def
	st.Position = s.sim.State.Position
	sim.Place(float64(w), float64(h), st)
	return sim, nil
}
