package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ivlev/bouncegif/internal/motion"
)

// Visual is what gets drawn inside the logo box: either a user image or
// the default gradient circle.
type Visual interface {
	isVisual()
}

// CustomImage draws a user-supplied image scaled into the box.
type CustomImage struct {
	Image image.Image
}

// GradientCircle draws a circle filled with the state's current gradient.
type GradientCircle struct{}

func (CustomImage) isVisual()    {}
func (GradientCircle) isVisual() {}

// Overlay is optional debug text drawn over a frame.
type Overlay struct {
	Frame int
	Phase string
}

// Rasterizer renders a motion State onto a Surface.
type Rasterizer struct {
	Background color.Color
	Debug      bool
}

func NewRasterizer(background color.Color, debug bool) *Rasterizer {
	if background == nil {
		background = color.White
	}
	return &Rasterizer{Background: background, Debug: debug}
}

// Render clears the surface and draws the logo at its current position.
func (r *Rasterizer) Render(s Surface, st motion.State, v Visual, ov *Overlay) {
	s.Clear(r.Background)

	box := BoxRect(st)
	switch vis := v.(type) {
	case CustomImage:
		if vis.Image != nil {
			s.DrawImage(vis.Image, box)
			break
		}
		s.DrawGradientCircle(box, st.Color.Start, st.Color.End)
	default:
		s.DrawGradientCircle(box, st.Color.Start, st.Color.End)
	}

	if r.Debug && ov != nil {
		s.DrawText(6, 16, fmt.Sprintf("#%d %s", ov.Frame, ov.Phase), color.RGBA{R: 220, A: 255})
		s.DrawText(6, 30, fmt.Sprintf("x=%.1f y=%.1f", st.Position.X, st.Position.Y), color.RGBA{R: 220, A: 255})
	}
}

// BoxRect rounds the logo bounding box to whole pixels.
func BoxRect(st motion.State) image.Rectangle {
	x := int(math.Round(st.Position.X))
	y := int(math.Round(st.Position.Y))
	size := int(math.Round(st.Size))
	return image.Rect(x, y, x+size, y+size)
}
