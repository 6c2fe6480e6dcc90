// Package fonts maps a theme's @font-face declarations to the font files
// covering each codepoint, and inlines just the faces a given text needs.
package fonts

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strconv"
)

// defaultKey is the persisted key of the face used for unmapped codepoints.
const defaultKey = "default"

type Mapping struct {
	SourceID   string
	Codepoints map[rune]string
	Default    string
	SourceCSS  string
	BaseURL    string
}

// URLFor returns the font file covering r, or the default face.
func (m *Mapping) URLFor(r rune) (string, bool) {
	if url, ok := m.Codepoints[r]; ok {
		return url, true
	}
	if m.Default != "" {
		return m.Default, true
	}
	return "", false
}

// RequiredURLs lists the distinct font files needed to render text, always
// including the default face when there is one.
func (m *Mapping) RequiredURLs(text string) map[string]bool {
	required := map[string]bool{}
	if m.Default != "" {
		required[m.Default] = true
	}
	for _, r := range text {
		if url, ok := m.URLFor(r); ok {
			required[url] = true
		}
	}
	return required
}

func encodeMapping(m *Mapping) ([]byte, error) {
	toSave := make(map[string]string, len(m.Codepoints)+1)
	for r, url := range m.Codepoints {
		toSave[strconv.Itoa(int(r))] = url
	}
	if m.Default != "" {
		toSave[defaultKey] = m.Default
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(toSave); err != nil {
		return nil, fmt.Errorf("error encoding gob: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeMapping(data []byte) (map[rune]string, string, error) {
	var mapFromGob map[string]string
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&mapFromGob); err != nil {
		return nil, "", fmt.Errorf("error decoding gob: %w", err)
	}
	codepoints := make(map[rune]string, len(mapFromGob))
	var defaultURL string
	for k, url := range mapFromGob {
		if k == defaultKey {
			defaultURL = url
			continue
		}
		cp, err := strconv.Atoi(k)
		if err != nil {
			return nil, "", fmt.Errorf("invalid codepoint key %q", k)
		}
		codepoints[rune(cp)] = url
	}
	return codepoints, defaultURL, nil
}
