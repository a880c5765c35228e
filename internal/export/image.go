package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultImageQuality is the JPEG quality used when none is configured.
const DefaultImageQuality = 92

// Rasterizer renders a document into an image.
type Rasterizer interface {
	Rasterize(ctx context.Context, src Source) (image.Image, error)
}

// RasterizerFunc adapts a function to Rasterizer.
type RasterizerFunc func(ctx context.Context, src Source) (image.Image, error)

// Rasterize implements Rasterizer.
func (f RasterizerFunc) Rasterize(ctx context.Context, src Source) (image.Image, error) {
	return f(ctx, src)
}

// TextRasterizer draws the document source as monospaced text, wrapping long
// lines at the image width.
type TextRasterizer struct {
	Width      int
	Padding    int
	TabWidth   int
	Face       font.Face
	Foreground color.Color
	Background color.Color
}

// NewTextRasterizer returns a rasterizer using the 7x13 bitmap face on a
// white page.
func NewTextRasterizer() *TextRasterizer {
	return &TextRasterizer{
		Width:      800,
		Padding:    24,
		TabWidth:   4,
		Face:       basicfont.Face7x13,
		Foreground: color.RGBA{R: 0x1f, G: 0x23, B: 0x28, A: 0xff},
		Background: color.White,
	}
}

// Rasterize implements Rasterizer.
func (r *TextRasterizer) Rasterize(ctx context.Context, src Source) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metrics := r.Face.Metrics()
	lineHeight := metrics.Height.Ceil()
	advance, _ := r.Face.GlyphAdvance('M')
	charWidth := advance.Ceil()
	if charWidth <= 0 {
		charWidth = 1
	}

	columns := (r.Width - 2*r.Padding) / charWidth
	if columns < 1 {
		columns = 1
	}
	lines := wrapLines(src.Content, columns, r.TabWidth)

	height := 2*r.Padding + len(lines)*lineHeight
	img := image.NewRGBA(image.Rect(0, 0, r.Width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.Background), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(r.Foreground),
		Face: r.Face,
	}
	ascent := metrics.Ascent.Ceil()
	for i, line := range lines {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		d.Dot = fixed.P(r.Padding, r.Padding+i*lineHeight+ascent)
		d.DrawString(line)
	}
	return img, nil
}

// wrapLines splits content into display lines no wider than columns runes.
// Tabs expand to tabWidth spaces. Empty content yields a single empty line.
func wrapLines(content string, columns, tabWidth int) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if tabWidth > 0 {
		content = strings.ReplaceAll(content, "\t", strings.Repeat(" ", tabWidth))
	}
	content = strings.TrimRight(content, "\n")

	var out []string
	for _, line := range strings.Split(content, "\n") {
		for utf8.RuneCountInString(line) > columns {
			cut := byteOffset(line, columns)
			out = append(out, line[:cut])
			line = line[cut:]
		}
		out = append(out, line)
	}
	return out
}

func byteOffset(s string, runes int) int {
	n := 0
	for i := range s {
		if n == runes {
			return i
		}
		n++
	}
	return len(s)
}

// EncodeJPEG encodes img at quality, clamped to 1-100.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
