package motion

import (
	"math/rand"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// Vec is a 2D vector in viewport pixels.
type Vec struct {
	X, Y float64
}

// ColorPair is a two-stop gradient.
type ColorPair struct {
	Start colorful.Color
	End   colorful.Color
}

// Equal reports whether both stops match exactly.
func (c ColorPair) Equal(o ColorPair) bool {
	return c.Start == o.Start && c.End == o.End
}

// Blend mixes two gradients stop by stop, t in [0, 1].
func (c ColorPair) Blend(to ColorPair, t float64) ColorPair {
	return ColorPair{
		Start: c.Start.BlendRgb(to.Start, t).Clamped(),
		End:   c.End.BlendRgb(to.End, t).Clamped(),
	}
}

// ParseColorPair parses two hex colors ("#4361ee").
func ParseColorPair(start, end string) (ColorPair, error) {
	s, err := colorful.Hex(start)
	if err != nil {
		return ColorPair{}, err
	}
	e, err := colorful.Hex(end)
	if err != nil {
		return ColorPair{}, err
	}
	return ColorPair{Start: s, End: e}, nil
}

// State is the mutable motion state of the logo box.
// Position is the top-left corner; Direction components are -1 or +1.
type State struct {
	Position  Vec
	Direction Vec
	Color     ColorPair
	Size      float64
}

// Axis is a bitmask of the axes that hit a boundary on a tick.
type Axis uint8

const (
	AxisX Axis = 1 << iota
	AxisY
)

const AxisNone Axis = 0

func (a Axis) Has(b Axis) bool { return a&b != 0 }

// Step advances the state by one tick inside a w x h viewport.
// An axis collides only when the box would extend strictly past an edge;
// that axis is inverted and the position clamped to the edge.
func Step(st State, w, h, speed float64) (State, Axis) {
	var hit Axis

	x, dx, collided := stepAxis(st.Position.X, st.Direction.X, w-st.Size, speed)
	if collided {
		hit |= AxisX
	}
	y, dy, collided := stepAxis(st.Position.Y, st.Direction.Y, h-st.Size, speed)
	if collided {
		hit |= AxisY
	}

	st.Position = Vec{X: x, Y: y}
	st.Direction = Vec{X: dx, Y: dy}
	return st, hit
}

func stepAxis(pos, dir, limit, speed float64) (float64, float64, bool) {
	next := pos + dir*speed
	if next < 0 || next > limit {
		return clamp(next, limit), -dir, true
	}
	return next, dir, false
}

// clamp keeps pos in [0, limit]; a negative limit (box larger than
// viewport) pins the box to 0.
func clamp(pos, limit float64) float64 {
	if pos > limit {
		pos = limit
	}
	if pos < 0 {
		pos = 0
	}
	return pos
}

// Simulator owns a single State and is ticked from one goroutine only.
type Simulator struct {
	State   State
	Width   float64
	Height  float64
	Speed   float64
	Colors  ColorPolicy
	Default State

	rng   *rand.Rand
	clock time.Duration
	ready bool
}

// NewSimulator creates a simulator. def supplies the default direction and
// color used on every (re)initialization.
func NewSimulator(speed float64, colors ColorPolicy, def State, rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{
		Speed:   speed,
		Colors:  colors,
		Default: def,
		rng:     rng,
	}
}

// Initialize places the box at a uniformly random position inside the
// viewport. If the viewport is not measured yet the simulator stays idle
// until a positive Resize.
func (s *Simulator) Initialize(w, h, size float64) State {
	s.Width, s.Height = w, h
	s.State = State{
		Direction: s.Default.Direction,
		Color:     s.Default.Color,
		Size:      size,
	}
	s.clock = 0

	if w <= 0 || h <= 0 {
		s.ready = false
		return s.State
	}

	s.State.Position = Vec{
		X: s.randomOffset(w - size),
		Y: s.randomOffset(h - size),
	}
	s.ready = true
	return s.State
}

// Place puts the simulator into a known state inside a w x h viewport,
// clamping the position into bounds.
func (s *Simulator) Place(w, h float64, st State) {
	s.Width, s.Height = w, h
	s.State = st
	s.clock = 0
	s.ready = w > 0 && h > 0
	if s.ready {
		s.State.Position.X = clamp(st.Position.X, w-st.Size)
		s.State.Position.Y = clamp(st.Position.Y, h-st.Size)
	}
}

func (s *Simulator) randomOffset(limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return s.rng.Float64() * limit
}

// Ready reports whether the box has been placed and the viewport is
// currently measured.
func (s *Simulator) Ready() bool {
	return s.ready && s.Width > 0 && s.Height > 0
}

// Tick advances the simulation; elapsed feeds the color clock.
func (s *Simulator) Tick(elapsed time.Duration) Axis {
	if !s.ready || s.Width <= 0 || s.Height <= 0 {
		return AxisNone
	}
	s.clock += elapsed

	next, hit := Step(s.State, s.Width, s.Height, s.Speed)
	if hit != AxisNone && s.Colors != nil {
		next.Color = s.Colors.Next(next.Color, s.clock)
	}
	s.State = next
	return hit
}

// Resize moves the box back inside new bounds. The first positive
// size after an unmeasured viewport performs the initial placement.
func (s *Simulator) Resize(w, h float64) {
	if !s.ready {
		s.Initialize(w, h, s.State.Size)
		return
	}
	s.Width, s.Height = w, h
	if w <= 0 || h <= 0 {
		return
	}
	s.State.Position.X = clamp(s.State.Position.X, w-s.State.Size)
	s.State.Position.Y = clamp(s.State.Position.Y, h-s.State.Size)
}

// Clock returns accumulated simulated time.
func (s *Simulator) Clock() time.Duration {
	return s.clock
}
