package qrcode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

const (
	// DefaultScale is the pixel size of a single QR module.
	DefaultScale = 10
	// MaxContentLength is the byte capacity of a level H symbol in byte mode.
	MaxContentLength = 1273
)

var ErrEmptyContent = errors.New("qrcode: empty content")

// Level is the error correction level of the generated symbol.
type Level = qrcode.RecoveryLevel

const (
	Low     = qrcode.Low
	Medium  = qrcode.Medium
	High    = qrcode.High
	Highest = qrcode.Highest
)

// Encoder renders text into PNG QR codes.
type Encoder struct {
	level Level
	scale int
}

// NewEncoder, scale <= 0 means DefaultScale.
func NewEncoder(level Level, scale int) *Encoder {
	if scale <= 0 {
		scale = DefaultScale
	}
	return &Encoder{level: level, scale: scale}
}

// Default uses level H at ten pixels per module, which leaves enough
// redundancy for the symbol to survive being blended into a photo.
func Default() *Encoder {
	return NewEncoder(Highest, DefaultScale)
}

func (e *Encoder) Scale() int { return e.scale }

// Encode returns a PNG whose side is (modules + quiet zone) * scale pixels.
func (e *Encoder) Encode(content string) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	q, err := qrcode.New(content, e.level)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}

	// Negative size is interpreted as pixels per module.
	png, err := q.PNG(-e.scale)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code PNG: %w", err)
	}

	return png, nil
}
