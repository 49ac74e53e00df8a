package compositor

import (
	"image"
	"math"
	"strings"
)

// BlendMode names either a user-facing compositing recipe or a raw blend
// operator applied when a recipe has no dedicated handler.
type BlendMode string

// User-facing modes.
const (
	Normal       BlendMode = "normal"
	Dark         BlendMode = "dark"
	MultiplyDark BlendMode = "multiply-dark"
	Multiply     BlendMode = "multiply"
	ColorBurn    BlendMode = "color-burn"
	Exclusion    BlendMode = "exclusion"
	HardLight    BlendMode = "hard-light"
)

// Raw operators. Over and Add are used internally for the veil and the mask.
const (
	Over       BlendMode = "over"
	Add        BlendMode = "add"
	Screen     BlendMode = "screen"
	Overlay    BlendMode = "overlay"
	Darken     BlendMode = "darken"
	Lighten    BlendMode = "lighten"
	ColorDodge BlendMode = "color-dodge"
	SoftLight  BlendMode = "soft-light"
	Difference BlendMode = "difference"
)

// userBlends keeps the order in which variants are produced for a full run.
var userBlends = []BlendMode{
	MultiplyDark,
	Multiply,
	Dark,
	Normal,
	ColorBurn,
	Exclusion,
	HardLight,
}

// Blends returns the modes offered to end users.
func Blends() []BlendMode {
	out := make([]BlendMode, len(userBlends))
	copy(out, userBlends)
	return out
}

// IsUserBlend reports whether m belongs to the user-facing set.
func IsUserBlend(m BlendMode) bool {
	for _, b := range userBlends {
		if b == m {
			return true
		}
	}
	return false
}

// ParseBlend maps a caller supplied identifier to a mode the compositor can
// execute. Identifiers are case-insensitive.
func ParseBlend(s string) (BlendMode, error) {
	m := BlendMode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := recipes[m]; ok {
		return m, nil
	}
	if _, ok := operators[m]; ok {
		return m, nil
	}
	return "", &UnknownBlendError{Blend: s}
}

func (m BlendMode) String() string { return string(m) }

// px is a non-premultiplied pixel in [0,1].
type px struct{ r, g, b, a float64 }

type pixelOp func(src, dst px) px

var operators = map[BlendMode]pixelOp{
	Over:       over,
	Add:        add,
	Multiply:   separable(func(s, d float64) float64 { return s * d }),
	Screen:     separable(screen),
	Overlay:    separable(func(s, d float64) float64 { return hardLight(d, s) }),
	Darken:     separable(math.Min),
	Lighten:    separable(math.Max),
	ColorDodge: separable(colorDodge),
	ColorBurn:  separable(colorBurn),
	HardLight:  separable(hardLight),
	SoftLight:  separable(softLight),
	Difference: separable(func(s, d float64) float64 { return math.Abs(s - d) }),
	Exclusion:  separable(func(s, d float64) float64 { return s + d - 2*s*d }),
}

func over(s, d px) px {
	a := s.a + d.a*(1-s.a)
	if a == 0 {
		return px{}
	}
	mix := func(cs, cd float64) float64 { return (cs*s.a + cd*d.a*(1-s.a)) / a }
	return px{mix(s.r, d.r), mix(s.g, d.g), mix(s.b, d.b), a}
}

// add sums premultiplied colours and clamps alpha at 1.
func add(s, d px) px {
	a := math.Min(1, s.a+d.a)
	if a == 0 {
		return px{}
	}
	mix := func(cs, cd float64) float64 { return clamp01((cs*s.a + cd*d.a) / a) }
	return px{mix(s.r, d.r), mix(s.g, d.g), mix(s.b, d.b), a}
}

// separable lifts a per-channel blend function into a full source-over
// composite.
func separable(f func(s, d float64) float64) pixelOp {
	return func(s, d px) px {
		a := s.a + d.a*(1-s.a)
		if a == 0 {
			return px{}
		}
		mix := func(cs, cd float64) float64 {
			v := (1-d.a)*s.a*cs + (1-s.a)*d.a*cd + s.a*d.a*f(cs, cd)
			return clamp01(v / a)
		}
		return px{mix(s.r, d.r), mix(s.g, d.g), mix(s.b, d.b), a}
	}
}

func screen(s, d float64) float64 { return s + d - s*d }

func hardLight(s, d float64) float64 {
	if s <= 0.5 {
		return 2 * s * d
	}
	return screen(2*s-1, d)
}

func colorDodge(s, d float64) float64 {
	switch {
	case d == 0:
		return 0
	case s >= 1:
		return 1
	default:
		return math.Min(1, d/(1-s))
	}
}

func colorBurn(s, d float64) float64 {
	switch {
	case d >= 1:
		return 1
	case s <= 0:
		return 0
	default:
		return 1 - math.Min(1, (1-d)/s)
	}
}

func softLight(s, d float64) float64 {
	if s <= 0.5 {
		return d - (1-2*s)*d*(1-d)
	}
	var dd float64
	if d <= 0.25 {
		dd = ((16*d-12)*d + 4) * d
	} else {
		dd = math.Sqrt(d)
	}
	return d + (2*s-1)*(dd-d)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// blend composites src onto dst with op. Both images must share bounds that
// start at the origin; the result is a new image.
func blend(dst, src *image.NRGBA, op pixelOp) *image.NRGBA {
	b := dst.Bounds()
	out := image.NewNRGBA(b)
	for y := 0; y < b.Dy(); y++ {
		do := y * dst.Stride
		so := y * src.Stride
		oo := y * out.Stride
		for x := 0; x < b.Dx(); x++ {
			i := x * 4
			d := load(dst.Pix[do+i : do+i+4])
			s := load(src.Pix[so+i : so+i+4])
			store(out.Pix[oo+i:oo+i+4], op(s, d))
		}
	}
	return out
}

func load(p []uint8) px {
	return px{
		r: float64(p[0]) / 255,
		g: float64(p[1]) / 255,
		b: float64(p[2]) / 255,
		a: float64(p[3]) / 255,
	}
}

func store(p []uint8, c px) {
	if c.a == 0 {
		p[0], p[1], p[2], p[3] = 0, 0, 0, 0
		return
	}
	p[0] = quantize(c.r)
	p[1] = quantize(c.g)
	p[2] = quantize(c.b)
	p[3] = quantize(c.a)
}

func quantize(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}
