package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

type stop struct {
	pos float64
	c   color.NRGBA
}

func rgb(r, g, b uint8) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

func rgba(r, g, b uint8, alpha float64) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(alpha * 255))}
}

func fill(dst *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Over)
}

func strokeRect(dst *image.RGBA, r image.Rectangle, c color.Color) {
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), c)
	fill(dst, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), c)
	fill(dst, image.Rect(r.Min.X, r.Min.Y+1, r.Min.X+1, r.Max.Y-1), c)
	fill(dst, image.Rect(r.Max.X-1, r.Min.Y+1, r.Max.X, r.Max.Y-1), c)
}

// fillDiagonal paints a top-left to bottom-right linear gradient.
func fillDiagonal(dst *image.RGBA, stops []stop) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	denom := float64(w*w + h*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := colorAt(stops, float64(x*w+y*h)/denom)
			i := dst.PixOffset(b.Min.X+x, b.Min.Y+y)
			dst.Pix[i+0] = c.R
			dst.Pix[i+1] = c.G
			dst.Pix[i+2] = c.B
			dst.Pix[i+3] = 255
		}
	}
}

func colorAt(stops []stop, t float64) color.NRGBA {
	if t <= stops[0].pos {
		return stops[0].c
	}
	for i := 1; i < len(stops); i++ {
		if t <= stops[i].pos {
			a, b := stops[i-1], stops[i]
			f := (t - a.pos) / (b.pos - a.pos)
			return color.NRGBA{
				R: lerp(a.c.R, b.c.R, f),
				G: lerp(a.c.G, b.c.G, f),
				B: lerp(a.c.B, b.c.B, f),
				A: 255,
			}
		}
	}
	return stops[len(stops)-1].c
}

func lerp(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*f))
}

// fillShape paints c wherever inside reports true within r.
func fillShape(dst *image.RGBA, r image.Rectangle, c color.Color, inside func(x, y int) bool) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	mask := image.NewAlpha(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if inside(x, y) {
				mask.Pix[mask.PixOffset(x, y)] = 255
			}
		}
	}
	draw.DrawMask(dst, r, image.NewUniform(c), image.Point{}, mask, r.Min, draw.Over)
}

// drawCamera draws a camera outline glyph of the given width centered on (cx, cy).
func drawCamera(dst *image.RGBA, cx, cy, size int, c color.Color) {
	s := float64(size)
	body := image.Rect(cx-size/2, cy-int(s*0.3), cx+size/2, cy+int(s*0.35))
	bump := image.Rect(cx-int(s*0.18), body.Min.Y-int(s*0.14), cx+int(s*0.18), body.Min.Y)
	lensY := float64(body.Min.Y+body.Max.Y) / 2

	fillShape(dst, body.Union(bump), c, func(x, y int) bool {
		if !image.Pt(x, y).In(body) && !image.Pt(x, y).In(bump) {
			return false
		}
		d := math.Hypot(float64(x-cx), float64(y)-lensY)
		return d < s*0.16 || d > s*0.23
	})
}

// drawStar draws a four-point star of radius r centered on (cx, cy).
func drawStar(dst *image.RGBA, cx, cy, r int, c color.Color) {
	root := math.Sqrt(float64(r))
	fillShape(dst, image.Rect(cx-r, cy-r, cx+r+1, cy+r+1), c, func(x, y int) bool {
		return math.Sqrt(math.Abs(float64(x-cx)))+math.Sqrt(math.Abs(float64(y-cy))) <= root
	})
}

// fitSize scales (w, h) to fit within maxW x maxH, preserving aspect ratio.
func fitSize(w, h, maxW, maxH int) (int, int) {
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	return scaled(w, h, scale)
}

// coverSize scales (w, h) to cover maxW x maxH, preserving aspect ratio.
func coverSize(w, h, maxW, maxH int) (int, int) {
	scale := math.Max(float64(maxW)/float64(w), float64(maxH)/float64(h))
	return scaled(w, h, scale)
}

func scaled(w, h int, scale float64) (int, int) {
	sw := int(math.Round(float64(w) * scale))
	sh := int(math.Round(float64(h) * scale))
	return max(sw, 1), max(sh, 1)
}

func drawScaled(dst *image.RGBA, r image.Rectangle, src image.Image) {
	xdraw.CatmullRom.Scale(dst, r, src, src.Bounds(), xdraw.Over, nil)
}
