// Package compositor blends a QR code into a background photo.
//
// Every call decodes both inputs, pads the QR code with a white quiet zone,
// cover-fits the background to the padded QR size, derives a threshold mask
// from the QR code and runs the recipe for the requested blend mode. The
// result depends only on the inputs and the Compositor options.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

const (
	// DefaultQuality is used when Options.Quality is zero.
	DefaultQuality = 75
	// MaskThreshold splits QR luminance into transparent (below) and opaque.
	MaskThreshold = 128
	// DefaultMaxPixels caps width*height of every decoded or padded raster.
	DefaultMaxPixels = 50_000_000
	// MaxPadding is the widest quiet zone Composite accepts.
	MaxPadding = 1000

	darkenFactor = 0.7
	lightVeil    = 50
	heavyVeil    = 150
)

type Options struct {
	Quality int
	Format  Format
	// MaxPixels <= 0 means DefaultMaxPixels.
	MaxPixels int
}

type Compositor struct {
	quality   int
	format    Format
	maxPixels int
	logger    *zap.Logger
}

// New builds a Compositor. Quality outside 1..100 falls back to
// DefaultQuality; an empty format means JPEG.
func New(opts Options, logger *zap.Logger) *Compositor {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := opts.Quality
	if q < 1 || q > 100 {
		q = DefaultQuality
	}
	f := opts.Format
	if f == "" {
		f = JPEG
	}
	limit := opts.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	return &Compositor{quality: q, format: f, maxPixels: limit, logger: logger}
}

func (c *Compositor) Format() Format { return c.format }

func (c *Compositor) Quality() int { return c.quality }

func (c *Compositor) MaxPixels() int { return c.maxPixels }

// CheckLimits reads only the headers of qr and background and reports
// ErrTooLarge when padding or a declared size is over budget. Empty or
// unreadable inputs pass; Composite reports those itself.
func (c *Compositor) CheckLimits(qr, background []byte, padding int) error {
	if padding > MaxPadding {
		return paddingTooLarge(padding)
	}
	if padding < 0 {
		padding = 0
	}
	if len(qr) > 0 {
		if w, h, err := declaredSize(qr); err == nil {
			if err := withinBudget(w+float64(2*padding), h+float64(2*padding), c.maxPixels); err != nil {
				return err
			}
		}
	}
	if len(background) > 0 {
		if w, h, err := declaredSize(background); err == nil {
			if err := withinBudget(w, h, c.maxPixels); err != nil {
				return err
			}
		}
	}
	return nil
}

func paddingTooLarge(padding int) error {
	return fmt.Errorf("%w: padding %d exceeds %d", ErrTooLarge, padding, MaxPadding)
}

// layers are the inputs every recipe works from. Both share the target size.
type layers struct {
	background *image.NRGBA
	mask       *image.NRGBA
}

type recipe func(l layers) *image.NRGBA

var recipes = map[BlendMode]recipe{
	Normal: func(l layers) *image.NRGBA {
		return blend(l.background, l.mask, operators[Add])
	},
	Dark: darkMasked,
	MultiplyDark: func(l layers) *image.NRGBA {
		return blend(veil(l.background, lightVeil), darkMasked(l), operators[Multiply])
	},
}

// passthrough handles every mode without a dedicated recipe by blending the
// darkened, masked photo onto a strongly veiled copy with op.
func passthrough(op pixelOp) recipe {
	return func(l layers) *image.NRGBA {
		return blend(veil(l.background, heavyVeil), darkMasked(l), op)
	}
}

func darkMasked(l layers) *image.NRGBA {
	return blend(darken(l.background, darkenFactor), l.mask, operators[Add])
}

func recipeFor(m BlendMode) (recipe, error) {
	if r, ok := recipes[m]; ok {
		return r, nil
	}
	if op, ok := operators[m]; ok {
		return passthrough(op), nil
	}
	return nil, &UnknownBlendError{Blend: string(m)}
}

// Composite blends qr into background using mode and returns the encoded
// result. padding <= 0 disables the quiet zone.
func (c *Compositor) Composite(ctx context.Context, qr, background []byte, mode BlendMode, padding int) ([]byte, error) {
	if len(qr) == 0 || len(background) == 0 {
		return nil, ErrEmptyInput
	}
	run, err := recipeFor(mode)
	if err != nil {
		return nil, err
	}
	if padding > MaxPadding {
		return nil, &ImageProcessingError{Op: "pad qr code", Err: paddingTooLarge(padding)}
	}

	qrImg, err := decode(qr, c.maxPixels)
	if err != nil {
		if errors.Is(err, ErrEmptyInput) {
			return nil, err
		}
		return nil, &ImageProcessingError{Op: "decode qr code", Err: err}
	}
	if b := qrImg.Bounds(); b.Empty() {
		return nil, &DimensionReadError{Width: b.Dx(), Height: b.Dy()}
	}
	if padding > 0 {
		b := qrImg.Bounds()
		if err := withinBudget(float64(b.Dx()+2*padding), float64(b.Dy()+2*padding), c.maxPixels); err != nil {
			return nil, &ImageProcessingError{Op: "pad qr code", Err: err}
		}
	}
	qrImg = pad(qrImg, padding)
	w, h := qrImg.Bounds().Dx(), qrImg.Bounds().Dy()
	c.logger.Debug("compositing qr code",
		zap.Int("width", w),
		zap.Int("height", h),
		zap.Int("quality", c.quality),
		zap.String("blend", string(mode)),
		zap.Int("padding", padding),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bgImg, err := decode(background, c.maxPixels)
	if err != nil {
		return nil, &ImageProcessingError{Op: "decode background", Err: err}
	}
	if bgImg.Bounds().Empty() {
		return nil, &ImageProcessingError{Op: "fit background", Err: errors.New("background has no pixels")}
	}
	fitted := imaging.Fill(bgImg, w, h, imaging.Center, imaging.Lanczos)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := run(layers{background: fitted, mask: thresholdMask(qrImg, MaskThreshold)})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := encode(out, c.format, c.quality)
	if err != nil {
		return nil, &ImageProcessingError{Op: "encode " + string(c.format), Err: err}
	}
	return buf, nil
}

// pad surrounds img with size opaque white pixels on every edge.
func pad(img *image.NRGBA, size int) *image.NRGBA {
	if size <= 0 {
		return img
	}
	b := img.Bounds()
	canvas := imaging.New(b.Dx()+2*size, b.Dy()+2*size, white)
	return imaging.Paste(canvas, img, image.Pt(size, size))
}

// thresholdMask flattens img onto white and maps every pixel to opaque white
// when its luminance is >= threshold, or to fully transparent otherwise.
func thresholdMask(img *image.NRGBA, threshold uint8) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			p := img.Pix[i : i+4 : i+4]
			a := uint32(p[3])
			lum := luma(flatten(p[0], a), flatten(p[1], a), flatten(p[2], a))
			if lum >= threshold {
				o := out.PixOffset(x, y)
				out.Pix[o+0] = 0xff
				out.Pix[o+1] = 0xff
				out.Pix[o+2] = 0xff
				out.Pix[o+3] = 0xff
			}
		}
	}
	return out
}

// flatten composites channel v with alpha a over white.
func flatten(v uint8, a uint32) uint8 {
	return uint8((uint32(v)*a + 255*(255-a) + 127) / 255)
}

// luma is color.GrayModel's Rec.601 weighting for an opaque pixel.
func luma(r, g, b uint8) uint8 {
	r32, g32, b32 := uint32(r)*0x101, uint32(g)*0x101, uint32(b)*0x101
	return uint8((19595*r32 + 38470*g32 + 7471*b32 + 1<<15) >> 24)
}

// darken scales every colour channel by factor, leaving alpha untouched.
func darken(img *image.NRGBA, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		scale := func(v uint8) uint8 { return uint8(math.Round(float64(v) * factor)) }
		return color.NRGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
	})
}

// veil lays a uniform white layer with the given alpha over img.
func veil(img *image.NRGBA, alpha uint8) *image.NRGBA {
	b := img.Bounds()
	layer := imaging.New(b.Dx(), b.Dy(), color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: alpha})
	return blend(img, layer, operators[Over])
}
