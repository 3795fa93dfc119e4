package render

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

type align int

const (
	alignLeft align = iota
	alignCenter
)

type anchor int

const (
	anchorTop anchor = iota
	anchorMiddle
)

type shadow struct {
	color color.NRGBA
	blur  int
}

type textStyle struct {
	face   font.Face
	color  color.Color
	align  align
	anchor anchor
	shadow *shadow
}

// Wrap splits text into lines no wider than maxWidth, one character at a time,
// so scripts without spaces between words wrap too.
func Wrap(face font.Face, text string, maxWidth int) []string {
	text = strings.Join(strings.Fields(text), " ")

	var lines []string
	var line []rune
	for _, r := range text {
		if len(line) == 0 && r == ' ' {
			continue
		}
		if len(line) > 0 && measure(face, string(line)+string(r)) > maxWidth {
			lines = append(lines, strings.TrimRight(string(line), " "))
			line = line[:0]
			if r == ' ' {
				continue
			}
		}
		line = append(line, r)
	}
	if len(line) > 0 {
		lines = append(lines, strings.TrimRight(string(line), " "))
	}
	return lines
}

// fitLine shortens s with an ellipsis until it fits maxWidth.
func fitLine(face font.Face, s string, maxWidth int) string {
	if measure(face, s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := strings.TrimRight(string(runes), " ") + "…"
		if measure(face, candidate) <= maxWidth {
			return candidate
		}
	}
	return ""
}

func measure(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

func drawText(dst *image.RGBA, s string, x, y int, st textStyle) {
	if s == "" {
		return
	}

	width := measure(st.face, s)
	metrics := st.face.Metrics()
	ascent, descent := metrics.Ascent.Ceil(), metrics.Descent.Ceil()

	left := x
	if st.align == alignCenter {
		left = x - width/2
	}
	baseline := y + ascent
	if st.anchor == anchorMiddle {
		baseline = y + (ascent-descent)/2
	}

	if st.shadow != nil {
		drawShadow(dst, s, left, baseline, width, ascent, descent, st)
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(st.color),
		Face: st.face,
		Dot:  fixed.P(left, baseline),
	}
	d.DrawString(s)
}

func drawShadow(dst *image.RGBA, s string, left, baseline, width, ascent, descent int, st textStyle) {
	pad := st.shadow.blur + 2
	r := image.Rect(left-pad, baseline-ascent-pad, left+width+pad, baseline+descent+pad)
	mask := image.NewAlpha(r)

	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: st.face,
		Dot:  fixed.P(left, baseline),
	}
	d.DrawString(s)
	boxBlur(mask, st.shadow.blur/2)
	boxBlur(mask, st.shadow.blur/2)

	draw.DrawMask(dst, r, image.NewUniform(st.shadow.color), image.Point{}, mask, r.Min, draw.Over)
}

func boxBlur(a *image.Alpha, radius int) {
	if radius < 1 {
		return
	}
	b := a.Bounds()
	w, h := b.Dx(), b.Dy()
	tmp := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		blur1D(tmp, y*w, 1, a.Pix, y*a.Stride, 1, w, radius)
	}
	for x := 0; x < w; x++ {
		blur1D(a.Pix, x, a.Stride, tmp, x, w, h, radius)
	}
}

func blur1D(dst []uint8, dOff, dStride int, src []uint8, sOff, sStride int, n, radius int) {
	at := func(i int) int {
		if i < 0 || i >= n {
			return 0
		}
		return int(src[sOff+i*sStride])
	}

	window := 2*radius + 1
	sum := 0
	for i := -radius; i <= radius; i++ {
		sum += at(i)
	}
	for i := 0; i < n; i++ {
		dst[dOff+i*dStride] = uint8(sum / window)
		sum += at(i+radius+1) - at(i-radius)
	}
}
