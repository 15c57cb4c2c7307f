package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/felitsch/postforge/internal/draft"
	"github.com/felitsch/postforge/pkg/errors"
)

// Quality selects the output resolution class of an export.
type Quality string

const (
	Quality1080 Quality = "1080"
	Quality2160 Quality = "2160"
)

func (q Quality) Valid() bool {
	return q == Quality1080 || q == Quality2160
}

// Scale is the integer factor applied to the base canvas.
func (q Quality) Scale() int {
	if q == Quality2160 {
		return 2
	}
	return 1
}

type dimensions struct {
	W, H int
}

var platformDims = map[draft.Platform]dimensions{
	draft.PlatformFeed:  {1080, 1080},
	draft.PlatformStory: {1080, 1920},
	draft.PlatformReel:  {1080, 1920},
}

// Dimensions returns the base canvas size for p.
func Dimensions(p draft.Platform) (w, h int, err error) {
	d, ok := platformDims[p]
	if !ok {
		return 0, 0, errors.New(errors.ErrCodeRender, "no canvas dimensions for platform "+string(p))
	}
	return d.W, d.H, nil
}

// ImageResolver turns a slide's background value into a decoded image.
// The default resolver understands base64 data URIs only, which keeps
// rendering free of I/O.
type ImageResolver func(value string) (image.Image, error)

func DataURIResolver(value string) (image.Image, error) {
	payload := value
	if idx := strings.Index(payload, ","); idx >= 0 {
		payload = payload[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode background data: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode background image: %w", err)
	}
	return img, nil
}

// Options carries everything beyond the slide itself that a render
// needs: the target platform, the resolution class, the slide's
// position in the carousel, and the arc continuity text.
type Options struct {
	Platform   draft.Platform
	Quality    Quality
	SlideIndex int
	SlideCount int
	Arc        *draft.Arc
}

// Layout constants on the 1080-wide base canvas.
const (
	marginX       = 80
	brandY        = 64
	brandPadX     = 20
	brandPadY     = 10
	recapY        = 180
	headlineScale = 4
	subheadScale  = 3
	bodyScale     = 2
	labelScale    = 2
	blockGap      = 32
	ctaHeight     = 88
	ctaRadius     = 24
)

var (
	fallbackBackground = color.RGBA{0x16, 0x32, 0x4f, 0xff}
	headlineColor      = color.RGBA{0xff, 0xff, 0xff, 0xff}
	subheadColor       = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
	bodyColor          = color.RGBA{0xee, 0xee, 0xee, 0xff}
	accentColor        = color.RGBA{0xff, 0x5a, 0x5f, 0xff}
	mutedColor         = color.RGBA{0xbb, 0xbb, 0xbb, 0xff}
	gradientTop        = color.RGBA{0, 0, 0, 0}
	gradientBottom     = color.RGBA{0, 0, 0, 180}
)

// Pipeline converts one slide into a fixed-size raster. It is pure:
// identical slide, options, brand and resolver output produce
// byte-identical pixels.
type Pipeline struct {
	brand   string
	resolve ImageResolver
}

func NewPipeline(brand string, resolve ImageResolver) *Pipeline {
	if resolve == nil {
		resolve = DataURIResolver
	}
	return &Pipeline{brand: brand, resolve: resolve}
}

// RenderSlide draws slide for the given options and returns the final
// raster, already scaled to the requested quality.
func (p *Pipeline) RenderSlide(slide draft.Slide, opts Options) (image.Image, error) {
	w, h, err := Dimensions(opts.Platform)
	if err != nil {
		return nil, err
	}

	surf := newRasterSurface(w, h)
	p.drawBackground(surf, slide)
	surf.VerticalGradient(0, 0, w, h, gradientTop, gradientBottom)
	p.drawBrandMark(surf)
	p.drawContent(surf, slide, opts)

	img := surf.img
	if scale := opts.Quality.Scale(); scale > 1 {
		return imaging.Resize(img, w*scale, h*scale, imaging.NearestNeighbor), nil
	}
	return img, nil
}

func (p *Pipeline) drawBackground(surf Surface, slide draft.Slide) {
	w, h := surf.Size()
	if slide.BackgroundType == draft.BackgroundImage && slide.BackgroundValue != "" {
		if img, err := p.resolve(slide.BackgroundValue); err == nil {
			surf.CoverImage(img)
			return
		}
	}
	surf.FillRect(0, 0, w, h, parseHexColor(slide.BackgroundValue))
}

func (p *Pipeline) drawBrandMark(surf Surface) {
	if p.brand == "" {
		return
	}
	textW := surf.MeasureText(p.brand, labelScale)
	textH := surf.LineHeight(labelScale)
	surf.RoundedRect(marginX, brandY, textW+2*brandPadX, textH+2*brandPadY, 12, accentColor)
	surf.DrawWrappedText(marginX+brandPadX, brandY+brandPadY, textW+1, p.brand, labelScale, headlineColor)
}

func (p *Pipeline) drawContent(surf Surface, slide draft.Slide, opts Options) {
	w, h := surf.Size()
	maxWidth := w - 2*marginX
	inArc := opts.Arc != nil && opts.SlideCount > 1
	first := opts.SlideIndex == 0
	last := opts.SlideIndex == opts.SlideCount-1

	if inArc && first && opts.Arc.Recap != "" {
		surf.DrawWrappedText(marginX, recapY, maxWidth, "Previously: "+opts.Arc.Recap, labelScale, mutedColor)
	}

	y := h / 3
	y = surf.DrawWrappedText(marginX, y, maxWidth, slide.Headline, headlineScale, headlineColor)
	if slide.Subheadline != "" {
		y += blockGap / 2
		y = surf.DrawWrappedText(marginX, y, maxWidth, slide.Subheadline, subheadScale, subheadColor)
	}
	if slide.BodyText != "" {
		y += blockGap
		y = surf.DrawWrappedText(marginX, y, maxWidth, slide.BodyText, bodyScale, bodyColor)
	}

	if inArc && last {
		arcY := h - 340
		if opts.Arc.Cliffhanger != "" {
			arcY = surf.DrawWrappedText(marginX, arcY, maxWidth, opts.Arc.Cliffhanger, labelScale, subheadColor)
		}
		if opts.Arc.NextHint != "" {
			surf.DrawWrappedText(marginX, arcY+blockGap/2, maxWidth, "Next: "+opts.Arc.NextHint, labelScale, mutedColor)
		}
	}

	if slide.CTAText != "" {
		ctaW := surf.MeasureText(slide.CTAText, labelScale) + 4*brandPadX
		if ctaW > maxWidth {
			ctaW = maxWidth
		}
		ctaY := h - 200
		surf.RoundedRect(marginX, ctaY, ctaW, ctaHeight, ctaRadius, accentColor)
		textY := ctaY + (ctaHeight-surf.LineHeight(labelScale))/2
		surf.DrawWrappedText(marginX+2*brandPadX, textY, ctaW, slide.CTAText, labelScale, headlineColor)
	}
}

func parseHexColor(s string) color.RGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return fallbackBackground
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return fallbackBackground
	}
	return color.RGBA{r, g, b, 0xff}
}

// EncodePNG serializes img deterministically.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRender, "failed to encode png")
	}
	return buf.Bytes(), nil
}
