// Package prep validates and normalizes user images before any upload is
// attempted. The steps always run in order: type check, dimension check,
// PNG conversion.
package prep

import (
	"errors"
	"fmt"

	"github.com/reusedev/tryon-hub/tools"
)

const MinDimension = 512

var ErrInvalidType = errors.New("unsupported image type, only jpeg, jpg and png are accepted")

var validMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
}

// Validate checks the declared MIME type against the allow-list.
func Validate(mimeType string) bool {
	_, ok := validMIMETypes[mimeType]
	return ok
}

type DimensionError struct {
	Width  int
	Height int
	Min    int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("image dimensions too small, images must be at least %dx%d pixels, current size: %dx%dpx",
		e.Min, e.Min, e.Width, e.Height)
}

// CheckDimensions decodes the image and fails when either dimension is
// below MinDimension. The error reports the measured size.
func CheckDimensions(data []byte) error {
	img, _, err := tools.DecodeImage(data)
	if err != nil {
		return err
	}
	bounds := img.Bounds()
	if bounds.Dx() < MinDimension || bounds.Dy() < MinDimension {
		return &DimensionError{Width: bounds.Dx(), Height: bounds.Dy(), Min: MinDimension}
	}
	return nil
}

type ConversionError struct {
	cause error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert image to PNG: %v", e.cause)
}

func (e *ConversionError) Unwrap() error {
	return e.cause
}

// ToPNG re-encodes the input losslessly as PNG, preserving pixel
// dimensions. PNG input passes through untouched.
func ToPNG(data []byte) ([]byte, error) {
	if tools.DetectImageType(data) == tools.ImageTypePNG {
		return data, nil
	}
	img, _, err := tools.DecodeImage(data)
	if err != nil {
		return nil, &ConversionError{cause: err}
	}
	out, err := tools.EncodePNG(img)
	if err != nil {
		return nil, &ConversionError{cause: err}
	}
	return out, nil
}
