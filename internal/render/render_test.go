package render

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// fixedFace gives every rune the same advance so widths are predictable.
type fixedFace struct {
	font.Face
}

func (fixedFace) GlyphAdvance(rune) (fixed.Int26_6, bool) { return fixed.I(7), true }

func (fixedFace) Kern(_, _ rune) fixed.Int26_6 { return 0 }

var allStyles = []Style{StyleClean, StyleLifestyle, StylePoster}

func pixel(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func samplePhoto(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRenderWithoutPhotoAllStyles(t *testing.T) {
	for _, style := range allStyles {
		img := Render(nil, "Ceramic Mug", "Keeps heat", style)
		require.NotNil(t, img)
		assert.Equal(t, image.Rect(0, 0, Size, Size), img.Bounds())
	}
}

func TestRenderCleanPlaceholder(t *testing.T) {
	img := Render(nil, "Ceramic Mug", "Keeps heat", StyleClean)

	assert.Equal(t, color.RGBA{0xf5, 0xf5, 0xf5, 0xff}, pixel(img, 20, 20))
	assert.Equal(t, color.RGBA{0xe8, 0xe8, 0xe8, 0xff}, pixel(img, 110, 90))
	assert.Equal(t, color.RGBA{0xcc, 0xcc, 0xcc, 0xff}, pixel(img, Size/2-30, 320+15))

	bar := pixel(img, 5, Size-5)
	assert.Less(t, bar.R, uint8(40))
}

func TestRenderUndecodablePhotoMatchesNoPhoto(t *testing.T) {
	for _, style := range allStyles {
		want := Render(nil, "Mug", "Hot", style)
		got := Render([]byte("definitely not an image"), "Mug", "Hot", style)
		assert.Equal(t, want.Pix, got.Pix, "style %d", style)
	}
}

// pngHeader is a PNG that claims w×h RGBA pixels but carries no pixel data.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := func(kind string, data []byte) {
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
		body := append([]byte(kind), data...)
		buf.Write(body)
		_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(body))
	}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8], ihdr[9] = 8, 6
	chunk("IHDR", ihdr)
	chunk("IDAT", nil)
	chunk("IEND", nil)
	return buf.Bytes()
}

func TestRenderOversizedPhotoFallsBackToPlaceholder(t *testing.T) {
	huge := pngHeader(40000, 40000)

	cfg, err := png.DecodeConfig(bytes.NewReader(huge))
	require.NoError(t, err)
	require.Equal(t, 40000, cfg.Width)

	for _, style := range allStyles {
		want := Render(nil, "Mug", "Hot", style)
		got := Render(huge, "Mug", "Hot", style)
		require.NotNil(t, got)
		assert.Equal(t, image.Rect(0, 0, Size, Size), got.Bounds())
		assert.Equal(t, want.Pix, got.Pix, "style %d", style)
	}
}

func TestRenderEmptyDimensionPhotoFallsBackToPlaceholder(t *testing.T) {
	want := Render(nil, "Mug", "Hot", StyleClean)
	got := Render(pngHeader(0, 10), "Mug", "Hot", StyleClean)
	assert.Equal(t, want.Pix, got.Pix)
}

func TestRenderUsesPhoto(t *testing.T) {
	photo := samplePhoto(t, 40, 40, color.RGBA{0xff, 0, 0, 0xff})

	clean := pixel(Render(photo, "Mug", "Hot", StyleClean), Size/2, 300)
	assert.Greater(t, clean.R, uint8(250))
	assert.Less(t, clean.G, uint8(5))

	lifestyle := pixel(Render(photo, "Mug", "Hot", StyleLifestyle), Size-30-225, Size/2)
	assert.Greater(t, lifestyle.R, uint8(250))
	assert.Less(t, lifestyle.B, uint8(5))

	poster := Render(photo, "Mug", "Hot", StylePoster)
	corner := pixel(poster, 5, 5)
	assert.Greater(t, corner.R, corner.G)
	assert.Greater(t, corner.R, uint8(60))
}

func TestRenderUnknownStyleFallsBackToClean(t *testing.T) {
	assert.Equal(t, Render(nil, "Mug", "Hot", StyleClean).Pix, Render(nil, "Mug", "Hot", Style(7)).Pix)
}

func TestRenderIsDeterministic(t *testing.T) {
	for _, style := range allStyles {
		a := Render(nil, "同款 Mug", "Hot", style)
		b := Render(nil, "同款 Mug", "Hot", style)
		assert.Equal(t, a.Pix, b.Pix)
	}
}

func TestTitleLinesCapPerStyle(t *testing.T) {
	long := strings.Repeat("Stoneware mug with double wall insulation ", 10)
	caps := map[Style]int{StyleClean: 2, StyleLifestyle: 3, StylePoster: 2}

	for style, limit := range caps {
		lines := TitleLines(style, long)
		assert.Len(t, lines, limit, "style %d", style)
	}

	short := TitleLines(StyleClean, "Mug")
	assert.Equal(t, []string{"Mug"}, short)
	assert.Equal(t, []string{DefaultTitle}, TitleLines(StylePoster, "  "))
}

func TestWrapIsCharacterGranular(t *testing.T) {
	face := fixedFace{Face: basicfont.Face7x13}

	lines := Wrap(face, "abcdefghij", 7*4)
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, lines)

	cjk := Wrap(face, "超轻透气飞织运动鞋", 7*3)
	assert.Equal(t, []string{"超轻透", "气飞织", "运动鞋"}, cjk)

	spaced := Wrap(face, "ab  cd ef", 7*3)
	assert.Equal(t, []string{"ab", "cd", "ef"}, spaced)

	assert.Empty(t, Wrap(face, "   ", 100))
	assert.Equal(t, []string{"a", "b"}, Wrap(face, "ab", 1))
}

func TestFitLine(t *testing.T) {
	face := fixedFace{Face: basicfont.Face7x13}
	assert.Equal(t, "short", fitLine(face, "short", 100))

	got := fitLine(face, "a very long highlight", 7*6)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, measure(face, got), 7*6)
}

func TestEncodePNG(t *testing.T) {
	img := Render(nil, "Mug", "Hot", StylePoster)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, FormatPNG))

	decoded, format, err := image.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)

	f, err = ParseFormat(" WebP ")
	require.NoError(t, err)
	assert.Equal(t, FormatWebP, f)
	assert.Equal(t, "image/webp", f.ContentType())

	_, err = ParseFormat("bmp")
	assert.Error(t, err)
}

func TestNewRejectsBadFont(t *testing.T) {
	_, err := New(Options{FontRegular: []byte("not a font")})
	assert.Error(t, err)
}
