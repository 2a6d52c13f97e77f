package tools

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/webp"
)

type ImageType string

const (
	ImageTypePNG     ImageType = "png"
	ImageTypeJPEG    ImageType = "jpeg"
	ImageTypeWEBP    ImageType = "webp"
	ImageTypeUnknown ImageType = "unknown"
)

func (t ImageType) String() string {
	return string(t)
}

func (t ImageType) MIME() string {
	switch t {
	case ImageTypePNG:
		return "image/png"
	case ImageTypeJPEG:
		return "image/jpeg"
	case ImageTypeWEBP:
		return "image/webp"
	}
	return "application/octet-stream"
}

func DetectImageType(b []byte) ImageType {
	switch {
	case len(b) > 8 && bytes.Equal(b[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return ImageTypePNG
	case len(b) > 3 && bytes.Equal(b[:3], []byte{0xFF, 0xD8, 0xFF}):
		return ImageTypeJPEG
	case len(b) > 12 && bytes.Equal(b[:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return ImageTypeWEBP
	}
	return ImageTypeUnknown
}

func DecodeImage(b []byte) (image.Image, ImageType, error) {
	imageType := DetectImageType(b)
	var img image.Image
	var err error
	switch imageType {
	case ImageTypePNG:
		img, err = png.Decode(bytes.NewReader(b))
	case ImageTypeJPEG:
		img, err = jpeg.Decode(bytes.NewReader(b))
	case ImageTypeWEBP:
		img, err = webp.Decode(bytes.NewReader(b))
	default:
		return nil, imageType, fmt.Errorf("unsupported image type: %s", imageType)
	}
	if err != nil {
		return nil, imageType, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, imageType, nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	err := imaging.Encode(&buf, img, imaging.PNG)
	if err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// EnsureMinSize upscales an image so both dimensions reach min, keeping the
// aspect ratio. Returns the original bytes untouched when already large
// enough; resized output is always PNG.
func EnsureMinSize(b []byte, min int) (data []byte, resized bool, err error) {
	img, _, err := DecodeImage(b)
	if err != nil {
		return nil, false, err
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width >= min && height >= min {
		return b, false, nil
	}
	ratio := float64(width) / float64(height)
	newWidth, newHeight := width, height
	if newWidth < min {
		newWidth = min
		newHeight = int(math.Round(float64(newWidth) / ratio))
	}
	if newHeight < min {
		newHeight = min
		newWidth = int(math.Round(float64(newHeight) * ratio))
	}
	scaled := imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)
	data, err = EncodePNG(scaled)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// ParseDataURL splits a "data:<mime>;base64,<payload>" URL.
func ParseDataURL(s string) (contentType string, data []byte, err error) {
	if !strings.HasPrefix(s, "data:") {
		return "", nil, fmt.Errorf("not a data URL")
	}
	rest := strings.TrimPrefix(s, "data:")
	idx := strings.Index(rest, ";base64,")
	if idx == -1 {
		return "", nil, fmt.Errorf("invalid base64 image format")
	}
	contentType = rest[:idx]
	data, err = base64.StdEncoding.DecodeString(rest[idx+len(";base64,"):])
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 image format: %w", err)
	}
	return contentType, data, nil
}

func DataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
