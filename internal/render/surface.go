package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Surface is the drawing-target abstraction of the pipeline: every
// render step goes through it, so the raster backend below can be
// swapped without touching layout code.
type Surface interface {
	Size() (w, h int)
	FillRect(x, y, w, h int, c color.Color)
	VerticalGradient(x, y, w, h int, top, bottom color.RGBA)
	RoundedRect(x, y, w, h, radius int, c color.Color)
	CoverImage(src image.Image)
	// DrawWrappedText greedily wraps text against maxWidth and draws it
	// line by line; it returns the y just below the last line.
	DrawWrappedText(x, y, maxWidth int, text string, scale int, c color.Color) int
	MeasureText(text string, scale int) int
	LineHeight(scale int) int
}

// rasterSurface draws onto an in-process RGBA buffer with a fixed
// bitmap face, so identical inputs yield byte-identical pixels.
type rasterSurface struct {
	img  *image.RGBA
	face font.Face
}

func newRasterSurface(w, h int) *rasterSurface {
	return &rasterSurface{
		img:  image.NewRGBA(image.Rect(0, 0, w, h)),
		face: basicfont.Face7x13,
	}
}

func (s *rasterSurface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *rasterSurface) FillRect(x, y, w, h int, c color.Color) {
	draw.Draw(s.img, image.Rect(x, y, x+w, y+h), image.NewUniform(c), image.Point{}, draw.Over)
}

func (s *rasterSurface) VerticalGradient(x, y, w, h int, top, bottom color.RGBA) {
	if h <= 0 {
		return
	}
	for row := 0; row < h; row++ {
		t := row * 255 / h
		c := color.RGBA{
			R: lerp8(top.R, bottom.R, t),
			G: lerp8(top.G, bottom.G, t),
			B: lerp8(top.B, bottom.B, t),
			A: lerp8(top.A, bottom.A, t),
		}
		draw.Draw(s.img, image.Rect(x, y+row, x+w, y+row+1), image.NewUniform(c), image.Point{}, draw.Over)
	}
}

func lerp8(a, b uint8, t int) uint8 {
	return uint8((int(a)*(255-t) + int(b)*t) / 255)
}

func (s *rasterSurface) RoundedRect(x, y, w, h, radius int, c color.Color) {
	if radius*2 > w {
		radius = w / 2
	}
	if radius*2 > h {
		radius = h / 2
	}
	uni := image.NewUniform(c)
	// Center band plus side bands, then the four quarter circles.
	draw.Draw(s.img, image.Rect(x+radius, y, x+w-radius, y+h), uni, image.Point{}, draw.Over)
	draw.Draw(s.img, image.Rect(x, y+radius, x+radius, y+h-radius), uni, image.Point{}, draw.Over)
	draw.Draw(s.img, image.Rect(x+w-radius, y+radius, x+w, y+h-radius), uni, image.Point{}, draw.Over)
	centers := [][2]int{
		{x + radius, y + radius},
		{x + w - radius - 1, y + radius},
		{x + radius, y + h - radius - 1},
		{x + w - radius - 1, y + h - radius - 1},
	}
	for ci, center := range centers {
		for dy := 1; dy <= radius; dy++ {
			for dx := 1; dx <= radius; dx++ {
				if dx*dx+dy*dy > radius*radius {
					continue
				}
				px, py := center[0], center[1]
				if ci == 0 || ci == 2 {
					px -= dx
				} else {
					px += dx
				}
				if ci == 0 || ci == 1 {
					py -= dy
				} else {
					py += dy
				}
				s.img.Set(px, py, blend(s.img.At(px, py), c))
			}
		}
	}
}

func blend(dst color.Color, src color.Color) color.Color {
	sr, sg, sb, sa := src.RGBA()
	if sa == 0xffff {
		return src
	}
	dr, dg, db, da := dst.RGBA()
	a := 0xffff - sa
	return color.RGBA64{
		R: uint16(sr + dr*a/0xffff),
		G: uint16(sg + dg*a/0xffff),
		B: uint16(sb + db*a/0xffff),
		A: uint16(sa + da*a/0xffff),
	}
}

func (s *rasterSurface) CoverImage(src image.Image) {
	b := s.img.Bounds()
	filled := imaging.Fill(src, b.Dx(), b.Dy(), imaging.Center, imaging.Lanczos)
	draw.Draw(s.img, b, filled, image.Point{}, draw.Src)
}

func (s *rasterSurface) MeasureText(text string, scale int) int {
	return font.MeasureString(s.face, text).Ceil() * scale
}

func (s *rasterSurface) LineHeight(scale int) int {
	return s.face.Metrics().Height.Ceil() * scale
}

func (s *rasterSurface) DrawWrappedText(x, y, maxWidth int, text string, scale int, c color.Color) int {
	lines := Wrap(text, maxWidth, func(candidate string) int {
		return s.MeasureText(candidate, scale)
	})
	lineHeight := s.LineHeight(scale)
	for _, line := range lines {
		s.drawLine(x, y, line, scale, c)
		y += lineHeight
	}
	return y
}

func (s *rasterSurface) drawLine(x, y int, text string, scale int, c color.Color) {
	if text == "" {
		return
	}
	w := font.MeasureString(s.face, text).Ceil()
	h := s.face.Metrics().Height.Ceil()
	ascent := s.face.Metrics().Ascent.Ceil()

	tmp := image.NewRGBA(image.Rect(0, 0, w, h))
	drawer := font.Drawer{
		Dst:  tmp,
		Src:  image.NewUniform(c),
		Face: s.face,
		Dot:  fixed.P(0, ascent),
	}
	drawer.DrawString(text)

	if scale <= 1 {
		draw.Draw(s.img, image.Rect(x, y, x+w, y+h), tmp, image.Point{}, draw.Over)
		return
	}
	// Nearest-neighbour keeps the upscale deterministic.
	scaled := imaging.Resize(tmp, w*scale, h*scale, imaging.NearestNeighbor)
	draw.Draw(s.img, image.Rect(x, y, x+w*scale, y+h*scale), scaled, image.Point{}, draw.Over)
}
