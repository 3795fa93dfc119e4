package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	_ "golang.org/x/image/webp"
)

const Size = 800

type Style int

const (
	StyleClean Style = iota
	StyleLifestyle
	StylePoster
)

const (
	DefaultTitle     = "Product title"
	DefaultHighlight = "Key selling point"
)

var (
	colorWhite  = rgb(0xff, 0xff, 0xff)
	colorAccent = rgb(0xf5, 0xa6, 0x23)
	colorBlue   = rgb(0x4f, 0x6e, 0xf7)
	colorDark   = rgba(15, 17, 23, 0.9)
)

type layout struct {
	titleSize float64
	wrapWidth int
	maxLines  int
}

var layouts = map[Style]layout{
	StyleClean:     {titleSize: 36, wrapWidth: Size - 80, maxLines: 2},
	StyleLifestyle: {titleSize: 44, wrapWidth: Size/2 - 40, maxLines: 3},
	StylePoster:    {titleSize: 48, wrapWidth: Size - 160, maxLines: 2},
}

type Options struct {
	// FontRegular and FontBold hold TrueType/OpenType data for scripts the
	// bundled Go fonts do not cover. FontBold falls back to FontRegular.
	FontRegular []byte
	FontBold    []byte
}

type Renderer struct {
	regular *opentype.Font
	bold    *opentype.Font
	mono    *opentype.Font
}

func New(opts Options) (*Renderer, error) {
	regularTTF, boldTTF := goregular.TTF, gobold.TTF
	if len(opts.FontRegular) > 0 {
		regularTTF, boldTTF = opts.FontRegular, opts.FontRegular
		if len(opts.FontBold) > 0 {
			boldTTF = opts.FontBold
		}
	}

	regular, err := opentype.Parse(regularTTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(boldTTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	mono, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse mono font: %w", err)
	}

	return &Renderer{regular: regular, bold: bold, mono: mono}, nil
}

var defaultRenderer = sync.OnceValue(func() *Renderer {
	r, err := New(Options{})
	if err != nil {
		panic(err)
	}
	return r
})

func Default() *Renderer {
	return defaultRenderer()
}

// Render draws with the bundled Go fonts.
func Render(photo []byte, title, highlight string, style Style) *image.RGBA {
	return Default().Render(photo, title, highlight, style)
}

func TitleLines(style Style, title string) []string {
	return Default().TitleLines(style, title)
}

// Render composes a Size x Size image. Photos that are missing or fail to
// decode get the placeholder treatment; it never fails.
func (r *Renderer) Render(photo []byte, title, highlight string, style Style) *image.RGBA {
	title = orDefault(title, DefaultTitle)
	highlight = orDefault(highlight, DefaultHighlight)
	src := decodePhoto(photo)

	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))
	switch style {
	case StyleLifestyle:
		r.drawLifestyle(dst, src, title, highlight)
	case StylePoster:
		r.drawPoster(dst, src, title, highlight)
	default:
		r.drawClean(dst, src, title, highlight)
	}
	return dst
}

// TitleLines returns the wrapped title lines the style draws, capped to its line limit.
func (r *Renderer) TitleLines(style Style, title string) []string {
	l, ok := layouts[style]
	if !ok {
		l = layouts[StyleClean]
	}
	return r.titleLines(r.face(r.bold, l.titleSize), l, orDefault(title, DefaultTitle))
}

func (r *Renderer) titleLines(face font.Face, l layout, title string) []string {
	lines := Wrap(face, title, l.wrapWidth)
	if len(lines) > l.maxLines {
		lines = lines[:l.maxLines]
	}
	return lines
}

func (r *Renderer) drawClean(dst *image.RGBA, src image.Image, title, highlight string) {
	const photoH = Size - 200

	fill(dst, dst.Bounds(), rgb(0xf5, 0xf5, 0xf5))

	if src != nil {
		iw, ih := fitSize(src.Bounds().Dx(), src.Bounds().Dy(), Size-80, photoH)
		x, y := (Size-iw)/2, (photoH-ih)/2+20
		drawScaled(dst, image.Rect(x, y, x+iw, y+ih), src)
	} else {
		fill(dst, image.Rect(100, 80, Size-100, Size-220), rgb(0xe8, 0xe8, 0xe8))
		drawCamera(dst, Size/2, photoH/2+20, 72, rgb(0xcc, 0xcc, 0xcc))
	}

	fill(dst, image.Rect(0, Size-160, Size, Size), colorDark)

	l := layouts[StyleClean]
	titleFace := r.face(r.bold, l.titleSize)
	for i, line := range r.titleLines(titleFace, l, title) {
		drawText(dst, line, Size/2, Size-145+i*44, textStyle{face: titleFace, color: colorWhite, align: alignCenter})
	}

	hlFace := r.face(r.regular, 24)
	drawText(dst, fitLine(hlFace, highlight, Size-80), Size/2, Size-50, textStyle{face: hlFace, color: colorAccent, align: alignCenter})
}

func (r *Renderer) drawLifestyle(dst *image.RGBA, src image.Image, title, highlight string) {
	fillDiagonal(dst, []stop{{0, rgb(0x1a, 0x1d, 0x27)}, {1, rgb(0x2a, 0x1a, 0x3e)}})

	if src != nil {
		iw, ih := fitSize(src.Bounds().Dx(), src.Bounds().Dy(), 450, 600)
		x, y := Size-iw-30, (Size-ih)/2
		drawScaled(dst, image.Rect(x, y, x+iw, y+ih), src)
	} else {
		drawCamera(dst, Size-30-225, Size/2, 96, rgba(255, 255, 255, 0.15))
	}

	fill(dst, image.Rect(50, 180, 55, 300), colorBlue)

	sh := &shadow{color: rgba(0, 0, 0, 0.5), blur: 8}
	l := layouts[StyleLifestyle]
	titleFace := r.face(r.bold, l.titleSize)
	lines := r.titleLines(titleFace, l, title)
	for i, line := range lines {
		drawText(dst, line, 70, 190+i*54, textStyle{face: titleFace, color: colorWhite, shadow: sh})
	}

	y := 190 + len(lines)*54 + 20
	hlFace := r.face(r.regular, 28)
	ascent := hlFace.Metrics().Ascent.Ceil()
	drawStar(dst, 80, y+ascent/2+2, 10, colorAccent)
	drawText(dst, fitLine(hlFace, highlight, Size/2-40-28), 98, y, textStyle{face: hlFace, color: colorAccent, shadow: sh})
}

func (r *Renderer) drawPoster(dst *image.RGBA, src image.Image, title, highlight string) {
	if src != nil {
		iw, ih := coverSize(src.Bounds().Dx(), src.Bounds().Dy(), Size, Size)
		x, y := (Size-iw)/2, (Size-ih)/2
		drawScaled(dst, image.Rect(x, y, x+iw, y+ih), src)
	} else {
		fillDiagonal(dst, []stop{
			{0, rgb(0x0f, 0x11, 0x17)},
			{0.5, rgb(0x22, 0x26, 0x3a)},
			{1, rgb(0x1a, 0x1d, 0x27)},
		})
		drawCamera(dst, Size/2, Size/2-150, 80, rgba(255, 255, 255, 0.12))
	}

	fill(dst, dst.Bounds(), rgba(15, 17, 23, 0.6))
	strokeRect(dst, image.Rect(60, 60, Size-60, Size-60), rgba(255, 255, 255, 0.2))

	sh := &shadow{color: rgba(0, 0, 0, 0.6), blur: 12}
	l := layouts[StylePoster]
	titleFace := r.face(r.bold, l.titleSize)
	lines := r.titleLines(titleFace, l, title)
	startY := Size/2 - len(lines)*58/2 - 30
	for i, line := range lines {
		drawText(dst, line, Size/2, startY+i*58, textStyle{face: titleFace, color: colorWhite, align: alignCenter, anchor: anchorMiddle, shadow: sh})
	}

	hlFace := r.face(r.regular, 26)
	drawText(dst, fitLine(hlFace, highlight, Size-160), Size/2, startY+len(lines)*58+30,
		textStyle{face: hlFace, color: colorAccent, align: alignCenter, anchor: anchorMiddle, shadow: sh})

	captionFace := r.face(r.mono, 18)
	drawText(dst, "800 × 800", Size/2, Size-40, textStyle{face: captionFace, color: rgba(255, 255, 255, 0.4), align: alignCenter, anchor: anchorMiddle})
}

func (r *Renderer) face(f *opentype.Font, size float64) font.Face {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

// maxPhotoPixels caps what the header may claim before any pixel buffer is allocated.
const maxPhotoPixels = 40_000_000

func decodePhoto(photo []byte) image.Image {
	if len(photo) == 0 {
		return nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(photo))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPhotoPixels {
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(photo))
	if err != nil || img.Bounds().Empty() {
		return nil
	}
	return img
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}
