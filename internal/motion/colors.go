package motion

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorPolicy picks the gradient shown after a collision.
type ColorPolicy interface {
	Next(prev ColorPair, clock time.Duration) ColorPair
}

// PaletteCycle walks a fixed palette in order.
type PaletteCycle struct {
	Palette []ColorPair
	i       int
}

func (p *PaletteCycle) Next(prev ColorPair, _ time.Duration) ColorPair {
	if len(p.Palette) == 0 {
		return prev
	}
	c := p.Palette[p.i%len(p.Palette)]
	p.i++
	if c.Equal(prev) && len(p.Palette) > 1 {
		c = p.Palette[p.i%len(p.Palette)]
		p.i++
	}
	return c
}

// RandomPalette picks a random palette entry other than the current one.
type RandomPalette struct {
	Palette []ColorPair
	Rand    *rand.Rand
}

func (p *RandomPalette) Next(prev ColorPair, _ time.Duration) ColorPair {
	candidates := make([]ColorPair, 0, len(p.Palette))
	for _, c := range p.Palette {
		if !c.Equal(prev) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return prev
	}
	return candidates[p.Rand.Intn(len(candidates))]
}

// HueCycle derives the gradient from the simulation clock: one degree
// of hue per 50ms, second stop 60 degrees ahead.
type HueCycle struct {
	Saturation float64
	Lightness  float64
}

func (h HueCycle) Next(prev ColorPair, clock time.Duration) ColorPair {
	hue1 := math.Mod(float64(clock.Milliseconds())/50, 360)
	hue2 := math.Mod(hue1+60, 360)
	next := ColorPair{
		Start: colorful.Hsl(hue1, h.Saturation, h.Lightness),
		End:   colorful.Hsl(hue2, h.Saturation, h.Lightness),
	}
	if next.Equal(prev) {
		// тот же тик часов: сдвигаем, чтобы цвет все-таки сменился
		next = ColorPair{
			Start: colorful.Hsl(math.Mod(hue1+30, 360), h.Saturation, h.Lightness),
			End:   colorful.Hsl(math.Mod(hue2+30, 360), h.Saturation, h.Lightness),
		}
	}
	return next
}

// NewColorPolicy builds a policy by name: "hue", "palette" or "random".
func NewColorPolicy(mode string, palette []ColorPair, rng *rand.Rand) (ColorPolicy, error) {
	switch mode {
	case "hue", "":
		return HueCycle{Saturation: 0.8, Lightness: 0.6}, nil
	case "palette":
		return &PaletteCycle{Palette: palette}, nil
	case "random":
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		return &RandomPalette{Palette: palette, Rand: rng}, nil
	default:
		return nil, fmt.Errorf("unknown color mode: %s", mode)
	}
}
