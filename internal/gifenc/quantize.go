package gifenc

import (
	"image"
	"image/color"
	"sort"
)

const maxColors = 256

// Quantize maps img onto a palette of at most 256 colors. The palette is
// built from the most frequent 15-bit colors, sampling every `stride`-th
// pixel; the background color always gets a slot.
func Quantize(img image.Image, stride int, background color.Color) *image.Paletted {
	if stride < 1 {
		stride = 1
	}
	rgba := toRGBA(img)
	bounds := rgba.Rect

	var hist [1 << 15]struct {
		n       int
		r, g, b int
	}
	pix := rgba.Pix
	count := len(pix) / 4
	for i := 0; i < count; i += stride {
		r, g, b := pix[i*4], pix[i*4+1], pix[i*4+2]
		k := key(r, g, b)
		h := &hist[k]
		h.n++
		h.r += int(r)
		h.g += int(g)
		h.b += int(b)
	}

	type bucket struct {
		k int
		n int
	}
	var buckets []bucket
	for k := range hist {
		if hist[k].n > 0 {
			buckets = append(buckets, bucket{k: k, n: hist[k].n})
		}
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].n != buckets[j].n {
			return buckets[i].n > buckets[j].n
		}
		return buckets[i].k < buckets[j].k
	})

	bg := color.RGBAModel.Convert(background).(color.RGBA)
	palette := color.Palette{color.RGBA{R: bg.R, G: bg.G, B: bg.B, A: 255}}
	bgKey := key(bg.R, bg.G, bg.B)
	for _, bk := range buckets {
		if len(palette) == maxColors {
			break
		}
		if bk.k == bgKey {
			continue
		}
		h := hist[bk.k]
		palette = append(palette, color.RGBA{
			R: uint8(h.r / h.n),
			G: uint8(h.g / h.n),
			B: uint8(h.b / h.n),
			A: 255,
		})
	}

	out := image.NewPaletted(bounds, palette)

	// кэш ближайшего цвета по 15-битному ключу
	var cache [1 << 15]int16
	for i := range cache {
		cache[i] = -1
	}
	w := bounds.Dx()
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < w; x++ {
			o := y*rgba.Stride + x*4
			k := key(pix[o], pix[o+1], pix[o+2])
			idx := cache[k]
			if idx < 0 {
				idx = int16(palette.Index(color.RGBA{R: pix[o], G: pix[o+1], B: pix[o+2], A: 255}))
				cache[k] = idx
			}
			out.Pix[y*out.Stride+x] = uint8(idx)
		}
	}
	return out
}

func key(r, g, b uint8) int {
	return int(r>>3)<<10 | int(g>>3)<<5 | int(b>>3)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			rgba.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return rgba
}
