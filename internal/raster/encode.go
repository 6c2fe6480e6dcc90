package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/sjc5/tessera/internal/common"
)

// Encode writes img in format. quality (0,1] applies to jpg only.
func Encode(img image.Image, format string, quality float64) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case common.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	case common.FormatJPG:
		q := int(math.Round(quality * 100))
		if q < 1 || q > 100 {
			q = int(common.DefaultQuality * 100)
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	}
	return nil, "", fmt.Errorf("unsupported image format %q", format)
}
