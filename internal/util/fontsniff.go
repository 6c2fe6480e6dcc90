package util

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/image/font/sfnt"
)

var errUnknownFontFormat = errors.New("unrecognized font format")

// SniffFont identifies a font payload by its magic bytes and returns the
// media type to inline it with. TrueType and OpenType payloads must also
// parse.
func SniffFont(content []byte) (string, error) {
	if len(content) < 4 {
		return "", errUnknownFontFormat
	}
	magic := content[:4]
	switch {
	case bytes.Equal(magic, []byte("wOF2")):
		return "font/woff2", nil
	case bytes.Equal(magic, []byte("wOFF")):
		return "font/woff", nil
	case bytes.Equal(magic, []byte("ttcf")):
		if _, err := sfnt.ParseCollection(content); err != nil {
			return "", fmt.Errorf("invalid font collection: %w", err)
		}
		return "font/collection", nil
	case bytes.Equal(magic, []byte("OTTO")):
		if _, err := sfnt.Parse(content); err != nil {
			return "", fmt.Errorf("invalid opentype font: %w", err)
		}
		return "font/otf", nil
	case bytes.Equal(magic, []byte{0x00, 0x01, 0x00, 0x00}), bytes.Equal(magic, []byte("true")):
		if _, err := sfnt.Parse(content); err != nil {
			return "", fmt.Errorf("invalid truetype font: %w", err)
		}
		return "font/ttf", nil
	}
	return "", errUnknownFontFormat
}
