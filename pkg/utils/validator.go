package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/meech-ward/qr-full-stack/pkg/compositor"
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()

	// Custom validations
	v.RegisterValidation("supported_image", validateImageType)
	v.RegisterValidation("blend", validateBlend)

	return &Validator{
		validate: v,
	}
}

func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

// SupportedImageTypes are the sniffed MIME types the compositor can decode.
var SupportedImageTypes = map[string]bool{
	"image/jpeg":    true,
	"image/png":     true,
	"image/gif":     true,
	"image/webp":    true,
	"image/bmp":     true,
	"image/svg+xml": true,
}

func validateImageType(fl validator.FieldLevel) bool {
	mimeType := fl.Field().String()
	// mimetype reports parameters for some formats, e.g. "image/svg+xml; charset=utf-8"
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return SupportedImageTypes[mimeType]
}

// Only the user facing blend set is accepted from requests.
func validateBlend(fl validator.FieldLevel) bool {
	m, err := compositor.ParseBlend(fl.Field().String())
	return err == nil && compositor.IsUserBlend(m)
}
