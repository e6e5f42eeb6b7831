package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/bouncegif/internal/system"
)

// ErrSurfaceUnavailable is returned when an offscreen surface cannot be created.
var ErrSurfaceUnavailable = errors.New("rendering surface unavailable")

// MaxSurfaceSide bounds each surface dimension.
const MaxSurfaceSide = 4096

// Surface is the drawing target the rasterizer works against.
type Surface interface {
	Bounds() image.Rectangle
	Clear(c color.Color)
	FillRect(r image.Rectangle, c color.Color)
	DrawImage(img image.Image, r image.Rectangle)
	DrawGradientCircle(r image.Rectangle, from, to colorful.Color)
	DrawText(x, y int, text string, c color.Color)
	// Snapshot copies the current pixels into a buffer owned by the caller.
	Snapshot() *image.RGBA
}

// RGBASurface implements Surface over an in-memory RGBA bitmap.
type RGBASurface struct {
	img  *image.RGBA
	pool *system.ImagePool
}

// NewSurface allocates a w x h surface. Snapshots are taken from pool
// (the shared pool when nil) and must be returned there by the caller.
func NewSurface(w, h int, pool *system.ImagePool) (*RGBASurface, error) {
	if w <= 0 || h <= 0 || w > MaxSurfaceSide || h > MaxSurfaceSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrSurfaceUnavailable, w, h)
	}
	if pool == nil {
		pool = system.DefaultPool()
	}
	return &RGBASurface{
		img:  image.NewRGBA(image.Rect(0, 0, w, h)),
		pool: pool,
	}, nil
}

func (s *RGBASurface) Bounds() image.Rectangle {
	return s.img.Rect
}

// Image exposes the backing bitmap. It is overwritten on the next draw.
func (s *RGBASurface) Image() *image.RGBA {
	return s.img
}

func (s *RGBASurface) Clear(c color.Color) {
	s.FillRect(s.img.Rect, c)
}

func (s *RGBASurface) FillRect(r image.Rectangle, c color.Color) {
	xdraw.Draw(s.img, r, image.NewUniform(c), image.Point{}, xdraw.Src)
}

func (s *RGBASurface) DrawImage(img image.Image, r image.Rectangle) {
	xdraw.CatmullRom.Scale(s.img, r, img, img.Bounds(), xdraw.Over, nil)
}

// DrawGradientCircle fills the circle inscribed in r with a linear gradient
// running along the r diagonal, top-left (from) to bottom-right (to).
func (s *RGBASurface) DrawGradientCircle(r image.Rectangle, from, to colorful.Color) {
	size := float64(r.Dx())
	if r.Dy() < r.Dx() {
		size = float64(r.Dy())
	}
	if size <= 0 {
		return
	}
	radius := size / 2
	cx := float64(r.Min.X) + radius
	cy := float64(r.Min.Y) + radius

	// 256 ступеней градиента достаточно для GIF
	var lut [256]color.RGBA
	for i := range lut {
		c := from.BlendRgb(to, float64(i)/255).Clamped()
		r8, g8, b8 := c.RGB255()
		lut[i] = color.RGBA{R: r8, G: g8, B: b8, A: 255}
	}

	clip := r.Intersect(s.img.Rect)
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		for x := clip.Min.X; x < clip.Max.X; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			dx, dy := px-cx, py-cy
			dist := math.Sqrt(dx*dx + dy*dy)
			if dist > radius+0.5 {
				continue
			}

			t := ((px - float64(r.Min.X)) + (py - float64(r.Min.Y))) / (2 * size)
			c := lut[int(clamp01(t)*255)]

			// сглаживание края на полпикселя
			if cover := radius + 0.5 - dist; cover < 1 {
				c = mix(s.img.RGBAAt(x, y), c, cover)
			}
			s.img.SetRGBA(x, y, c)
		}
	}
}

func (s *RGBASurface) DrawText(x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func (s *RGBASurface) Snapshot() *image.RGBA {
	frame := s.pool.Get(s.img.Rect)
	copy(frame.Pix, s.img.Pix)
	return frame
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func mix(bg, fg color.RGBA, a float64) color.RGBA {
	m := func(b, f uint8) uint8 {
		return uint8(float64(b)*(1-a) + float64(f)*a + 0.5)
	}
	return color.RGBA{R: m(bg.R, fg.R), G: m(bg.G, fg.G), B: m(bg.B, fg.B), A: 255}
}
