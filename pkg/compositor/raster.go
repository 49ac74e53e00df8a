package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Format is the encoding of the final composite.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
)

// ParseFormat accepts "jpeg", "jpg" and "png".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	}
	return "", fmt.Errorf("compositor: unsupported output format %q", s)
}

// ContentType is the MIME type written next to stored images.
func (f Format) ContentType() string {
	if f == PNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Extension includes the leading dot.
func (f Format) Extension() string {
	if f == PNG {
		return ".png"
	}
	return ".jpg"
}

// Lossy reports whether quality affects the output.
func (f Format) Lossy() bool { return f != PNG }

var white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Decode turns an encoded raster (PNG, JPEG, GIF, BMP, WEBP or SVG) into an
// NRGBA image anchored at the origin. EXIF orientation is applied. Inputs
// declaring more than DefaultMaxPixels are rejected with ErrTooLarge.
func Decode(data []byte) (*image.NRGBA, error) {
	return decode(data, DefaultMaxPixels)
}

func decode(data []byte, maxPixels int) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	if isSVG(data) {
		return rasterizeSVG(data, maxPixels)
	}
	// The header is checked before any pixel buffer is allocated.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := withinBudget(float64(cfg.Width), float64(cfg.Height), maxPixels); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	return imaging.Clone(img), nil
}

// declaredSize reads the size an input claims without rasterizing it.
func declaredSize(data []byte) (w, h float64, err error) {
	if isSVG(data) {
		icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.WarnErrorMode)
		if err != nil {
			return 0, 0, err
		}
		return icon.ViewBox.W, icon.ViewBox.H, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}

// withinBudget fails with ErrTooLarge when a w x h raster would hold more
// than maxPixels pixels. NaN and infinite sizes never fit.
func withinBudget(w, h float64, maxPixels int) error {
	limit := float64(maxPixels)
	if math.IsNaN(w) || math.IsNaN(h) || w > limit || h > limit || w*h > limit {
		return fmt.Errorf("%w: %gx%g exceeds %d pixels", ErrTooLarge, w, h, maxPixels)
	}
	return nil
}

// DetectContentType sniffs the MIME type of an encoded image.
func DetectContentType(data []byte) string {
	return mimetype.Detect(data).String()
}

func isSVG(data []byte) bool {
	return mimetype.Detect(data).Is("image/svg+xml")
}

// rasterizeSVG renders an SVG at its intrinsic viewBox size. An SVG without a
// usable viewBox yields an empty image.
func rasterizeSVG(data []byte, maxPixels int) (*image.NRGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.WarnErrorMode)
	if err != nil {
		return nil, err
	}
	if err := withinBudget(icon.ViewBox.W, icon.ViewBox.H, maxPixels); err != nil {
		return nil, err
	}
	w, h := int(icon.ViewBox.W), int(icon.ViewBox.H)
	if w <= 0 || h <= 0 {
		return &image.NRGBA{}, nil
	}
	icon.SetTarget(0, 0, float64(w), float64(h))
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return imaging.Clone(rgba), nil
}

// encode writes img in format f. JPEG output is flattened onto white first so
// transparent regions do not turn black.
func encode(img *image.NRGBA, f Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch f {
	case PNG:
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, err
		}
	default:
		b := img.Bounds()
		flat := imaging.Overlay(imaging.New(b.Dx(), b.Dy(), white), img, image.Pt(0, 0), 1.0)
		if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
