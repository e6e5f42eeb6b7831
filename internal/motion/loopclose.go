package motion

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// LoopCloser drives a State back to a target pose over a fixed window so
// that the last frame of a recording lines up with the first one.
type LoopCloser struct {
	target State
	from   ColorPair
	window time.Duration
	x, y   *gween.Tween
}

// NewLoopCloser starts the return from `from` to `target`. fn may be nil
// for linear motion.
func NewLoopCloser(from, target State, window time.Duration, fn ease.TweenFunc) *LoopCloser {
	if fn == nil {
		fn = ease.Linear
	}
	secs := float32(window.Seconds())
	return &LoopCloser{
		target: target,
		from:   from.Color,
		window: window,
		x:      gween.New(float32(from.Position.X), float32(target.Position.X), secs, fn),
		y:      gween.New(float32(from.Position.Y), float32(target.Position.Y), secs, fn),
	}
}

// Apply writes the interpolated pose for time t since the window start.
// It reports true once the target has been reached.
func (l *LoopCloser) Apply(st *State, t time.Duration) bool {
	st.Direction = l.target.Direction

	if t >= l.window || l.window <= 0 {
		st.Position = l.target.Position
		st.Color = l.target.Color
		return true
	}

	secs := float32(t.Seconds())
	x, _ := l.x.Set(secs)
	y, _ := l.y.Set(secs)
	st.Position = Vec{X: float64(x), Y: float64(y)}
	st.Color = l.from.Blend(l.target.Color, float64(t)/float64(l.window))
	return false
}
