package storage

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultMaxSide bounds the longest side of stored images.
const DefaultMaxSide = 1600

// IsImage reports whether contentType is a raster image we normalise.
func IsImage(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/bmp", "image/tiff":
		return true
	}
	return false
}

// NormalizeImage decodes an image, applies its EXIF orientation, fits it
// within maxSide and re-encodes it (PNG stays PNG, everything else becomes JPEG).
func NormalizeImage(r io.Reader, contentType string, maxSide int) (*bytes.Buffer, string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() > maxSide || b.Dy() > maxSide {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}
	buf := new(bytes.Buffer)
	if strings.HasPrefix(strings.ToLower(contentType), "image/png") {
		if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
			return nil, "", err
		}
		return buf, ".png", nil
	}
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, "", err
	}
	return buf, ".jpg", nil
}
