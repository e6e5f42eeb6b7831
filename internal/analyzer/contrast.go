package analyzer

import (
	"image"
	"image/color"
)

// ContrastDetector finds logo artwork on a flat page (a rendered PDF, a
// scan) by looking for edges with the Sobel operator.
type ContrastDetector struct {
	MinArea       int     // regions smaller than this are treated as noise, px²
	EdgeThreshold float64 // gradient magnitude threshold
	Dilation      int     // dilation passes joining nearby strokes
}

func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinArea:       64,
		EdgeThreshold: 30.0,
		Dilation:      2,
	}
}

func (d *ContrastDetector) Detect(img image.Image) ([]image.Rectangle, error) {
	b := img.Bounds()
	if b.Dx() < 3 || b.Dy() < 3 {
		return nil, nil
	}

	gray := toGrayscale(img)
	edges := sobelEdgeDetection(gray, d.EdgeThreshold)
	if d.Dilation > 0 {
		edges = dilate(edges, 3, d.Dilation)
	}

	var regions []image.Rectangle
	for _, rect := range findContours(edges) {
		if rect.Dx()*rect.Dy() >= d.MinArea {
			regions = append(regions, rect)
		}
	}
	return regions, nil
}

// toGrayscale flattens img onto white, so transparent pixels read as paper.
func toGrayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			white := 0xffff - a
			c := color.RGBA64{R: uint16(r + white), G: uint16(g + white), B: uint16(b + white), A: 0xffff}
			gray.SetGray(x, y, color.GrayModel.Convert(c).(color.Gray))
		}
	}

	return gray
}

// sobelEdgeDetection marks pixels whose Sobel gradient magnitude exceeds
// threshold with 255. The one-pixel border stays 0.
func sobelEdgeDetection(gray *image.Gray, threshold float64) *image.Gray {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	edges := image.NewGray(gray.Rect)
	pix, stride := gray.Pix, gray.Stride
	limit := threshold * threshold

	for y := 1; y < h-1; y++ {
		up, row, down := (y-1)*stride, y*stride, (y+1)*stride
		for x := 1; x < w-1; x++ {
			tl, tc, tr := int(pix[up+x-1]), int(pix[up+x]), int(pix[up+x+1])
			ml, mr := int(pix[row+x-1]), int(pix[row+x+1])
			bl, bc, br := int(pix[down+x-1]), int(pix[down+x]), int(pix[down+x+1])

			gx := (tr + 2*mr + br) - (tl + 2*ml + bl)
			gy := (bl + 2*bc + br) - (tl + 2*tc + tr)
			if float64(gx*gx+gy*gy) > limit {
				edges.Pix[y*edges.Stride+x] = 255
			}
		}
	}
	return edges
}

// dilate grows white areas by a square kernel, joining strokes of the
// same glyph or shape into one component.
func dilate(img *image.Gray, kernelSize, iterations int) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	half := kernelSize / 2
	src := img

	for iter := 0; iter < iterations; iter++ {
		dst := image.NewGray(img.Rect)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if src.Pix[y*src.Stride+x] == 0 {
					continue
				}
				for ky := max(y-half, 0); ky <= min(y+half, h-1); ky++ {
					row := dst.Pix[ky*dst.Stride:]
					for kx := max(x-half, 0); kx <= min(x+half, w-1); kx++ {
						row[kx] = 255
					}
				}
			}
		}
		src = dst
	}
	return src
}

// findContours returns the bounding boxes of 4-connected white components.
func findContours(img *image.Gray) []image.Rectangle {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	visited := make([]bool, w*h)
	var contours []image.Rectangle

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if img.Pix[y*img.Stride+x] > 128 && !visited[y*w+x] {
				r := floodFill(img, visited, x, y)
				contours = append(contours, r.Add(img.Rect.Min))
			}
		}
	}
	return contours
}

func floodFill(img *image.Gray, visited []bool, startX, startY int) image.Rectangle {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	bounds := image.Rect(startX, startY, startX+1, startY+1)

	stack := []image.Point{{X: startX, Y: startY}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= w || p.Y < 0 || p.Y >= h {
			continue
		}
		i := p.Y*w + p.X
		if visited[i] || img.Pix[p.Y*img.Stride+p.X] <= 128 {
			continue
		}
		visited[i] = true
		bounds = bounds.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

		stack = append(stack,
			image.Point{X: p.X + 1, Y: p.Y},
			image.Point{X: p.X - 1, Y: p.Y},
			image.Point{X: p.X, Y: p.Y + 1},
			image.Point{X: p.X, Y: p.Y - 1},
		)
	}
	return bounds
}
