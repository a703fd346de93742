package detect

import (
	"image"
	"math"
)

// lumaGrid samples a page image down to a grayscale grid so the pixel
// detectors stay cheap on large rasters. Sampling is deterministic:
// fixed stride derived from image size.
type lumaGrid struct {
	w, h int
	v    []float64
}

const maxGridDim = 256

func newLumaGrid(img image.Image) lumaGrid {
	b := img.Bounds()
	stepX := b.Dx() / maxGridDim
	if stepX < 1 {
		stepX = 1
	}
	stepY := b.Dy() / maxGridDim
	if stepY < 1 {
		stepY = 1
	}

	w := b.Dx() / stepX
	h := b.Dy() / stepY
	g := lumaGrid{w: w, h: h, v: make([]float64, 0, w*h)}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, gr, bl, _ := img.At(b.Min.X+x*stepX, b.Min.Y+y*stepY).RGBA()
			// Rec. 601 luma on 16-bit channels, scaled to 0-255.
			luma := (0.299*float64(r) + 0.587*float64(gr) + 0.114*float64(bl)) / 257.0
			g.v = append(g.v, luma)
		}
	}
	return g
}

func (g lumaGrid) at(x, y int) float64 { return g.v[y*g.w+x] }

func (g lumaGrid) meanStddev() (mean, stddev float64) {
	if len(g.v) == 0 {
		return 0, 0
	}
	for _, v := range g.v {
		mean += v
	}
	mean /= float64(len(g.v))

	var variance float64
	for _, v := range g.v {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(g.v))
	return mean, math.Sqrt(variance)
}

// laplacianVariance measures edge energy: low values indicate a blurry
// or defocused raster.
func (g lumaGrid) laplacianVariance() float64 {
	if g.w < 3 || g.h < 3 {
		return 0
	}
	var sum, sumSq float64
	n := 0
	for y := 1; y < g.h-1; y++ {
		for x := 1; x < g.w-1; x++ {
			lap := 4*g.at(x, y) - g.at(x-1, y) - g.at(x+1, y) - g.at(x, y-1) - g.at(x, y+1)
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}
