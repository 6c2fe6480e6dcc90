package util

import (
	"encoding/base64"
	"mime"
	"path"
	"strings"
)

func EncodeDataURL(mimeType string, content []byte) string {
	var sb strings.Builder
	sb.Grow(len("data:;base64,") + len(mimeType) + base64.StdEncoding.EncodedLen(len(content)))
	sb.WriteString("data:")
	sb.WriteString(mimeType)
	sb.WriteString(";base64,")
	sb.WriteString(base64.StdEncoding.EncodeToString(content))
	return sb.String()
}

func IsDataURL(url string) bool {
	return strings.HasPrefix(url, "data:")
}

// GetMediaType returns the bare media type of a Content-Type header value.
func GetMediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mediaType
}

var fontExtensions = map[string]bool{
	".woff2": true,
	".woff":  true,
	".ttf":   true,
	".otf":   true,
	".ttc":   true,
	".eot":   true,
}

// LooksLikeFontURL guesses from the path extension, ignoring query/fragment.
func LooksLikeFontURL(url string) bool {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return fontExtensions[strings.ToLower(path.Ext(url))]
}
