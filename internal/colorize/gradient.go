package colorize

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// DefaultPalette runs from cool shadows through warm midtones to pale highlights.
var DefaultPalette = []string{"#1b2a49", "#4a5a7a", "#8c6a55", "#d6a77a", "#f6ead2"}

// Gradient maps the luminance of every pixel onto a palette blended in
// CIE-Lab. It is deterministic and needs no model files.
type Gradient struct {
	lut       [256]color.NRGBA
	maxPixels int64
}

func NewGradient(palette []string, maxPixels int64) (*Gradient, error) {
	if len(palette) == 0 {
		palette = DefaultPalette
	}

	stops := make([]colorful.Color, 0, len(palette))
	for _, hex := range palette {
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("palette color %q: %w", hex, err)
		}
		stops = append(stops, c)
	}

	g := &Gradient{maxPixels: maxPixels}
	for i := range g.lut {
		r, gr, b := sample(stops, float64(i)/255).Clamped().RGB255()
		g.lut[i] = color.NRGBA{R: r, G: gr, B: b, A: 0xff}
	}
	return g, nil
}

func sample(stops []colorful.Color, t float64) colorful.Color {
	if len(stops) == 1 {
		return stops[0]
	}
	pos := t * float64(len(stops)-1)
	i := int(pos)
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	return stops[i].BlendLab(stops[i+1], pos-float64(i))
}

// Colorize reports progress once per row. Alpha is carried over unchanged.
func (g *Gradient) Colorize(_ context.Context, img image.Image, progress func(float64)) (image.Image, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if g.maxPixels > 0 && int64(w)*int64(h) > g.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrOutOfMemory, w, h)
	}

	src := imaging.Clone(img)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))

	report(progress, 0)
	for y := 0; y < h; y++ {
		in := src.Pix[y*src.Stride : y*src.Stride+w*4]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := 0; x < w*4; x += 4 {
			// Same weights as color.GrayModel, on 8-bit channels.
			lum := (19595*uint32(in[x]) + 38470*uint32(in[x+1]) + 7471*uint32(in[x+2]) + 1<<15) >> 16
			c := g.lut[lum]
			out[x], out[x+1], out[x+2], out[x+3] = c.R, c.G, c.B, in[x+3]
		}
		report(progress, float64(y+1)*100/float64(h))
	}
	if h == 0 {
		report(progress, 100)
	}

	return dst, nil
}
