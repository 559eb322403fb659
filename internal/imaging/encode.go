package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality is the fixed quality used for shareable previews.
const DefaultJPEGQuality = 90

// EncodedImage contains an encoded image as base64 text.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// ParseFormat maps "jpeg", "jpg", or "png" (any case) to an encoder format.
// The empty string selects JPEG.
func ParseFormat(name string) (imaging.Format, error) {
	switch strings.ToLower(name) {
	case "", "jpeg", "jpg":
		return imaging.JPEG, nil
	case "png":
		return imaging.PNG, nil
	default:
		return 0, fmt.Errorf("unsupported output format: %s", name)
	}
}

// Encode writes img to w. JPEG output uses the given quality (1-100).
func Encode(w io.Writer, img image.Image, format imaging.Format, quality int) error {
	if isNilImage(img) {
		return ErrNoImageLoaded
	}
	if quality < 1 || quality > 100 {
		return fmt.Errorf("jpeg quality must be 1-100, got %d", quality)
	}
	if err := imaging.Encode(w, img, format, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// EncodeBase64 encodes img and wraps the bytes in an EncodedImage.
func EncodeBase64(img image.Image, format imaging.Format, quality int) (*EncodedImage, error) {
	if isNilImage(img) {
		return nil, ErrNoImageLoaded
	}
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, quality); err != nil {
		return nil, err
	}

	mime := "image/jpeg"
	if format == imaging.PNG {
		mime = "image/png"
	}

	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    mime,
	}, nil
}

func isNilImage(img image.Image) bool {
	if img == nil {
		return true
	}
	if n, ok := img.(*image.NRGBA); ok && n == nil {
		return true
	}
	return false
}
