package analyzer

import "image"

// Detector finds regions with visible content in an image.
type Detector interface {
	Detect(img image.Image) ([]image.Rectangle, error)
}

// ContentBounds returns the smallest square around all detected regions,
// padded by pad pixels and clipped to the image. ok is false when nothing
// was detected and the image should be used as is.
func ContentBounds(d Detector, img image.Image, pad int) (image.Rectangle, bool) {
	regions, err := d.Detect(img)
	if err != nil || len(regions) == 0 {
		return image.Rectangle{}, false
	}

	union := regions[0]
	for _, r := range regions[1:] {
		union = union.Union(r)
	}
	union = union.Inset(-pad)

	// бокс логотипа квадратный: расширяем меньшую сторону
	side := max(union.Dx(), union.Dy())
	cx := union.Min.X + union.Dx()/2
	cy := union.Min.Y + union.Dy()/2
	square := image.Rect(cx-side/2, cy-side/2, cx-side/2+side, cy-side/2+side)

	bounds := img.Bounds()
	square = shiftInto(square, bounds)
	square = square.Intersect(bounds)
	if square.Empty() {
		return image.Rectangle{}, false
	}
	return square, true
}

// shiftInto moves r inside bounds without resizing it, when it fits.
func shiftInto(r, bounds image.Rectangle) image.Rectangle {
	var dx, dy int
	if r.Min.X < bounds.Min.X {
		dx = bounds.Min.X - r.Min.X
	} else if r.Max.X > bounds.Max.X {
		dx = bounds.Max.X - r.Max.X
	}
	if r.Min.Y < bounds.Min.Y {
		dy = bounds.Min.Y - r.Min.Y
	} else if r.Max.Y > bounds.Max.Y {
		dy = bounds.Max.Y - r.Max.Y
	}
	return r.Add(image.Pt(dx, dy))
}
