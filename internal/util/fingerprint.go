package util

import (
	"crypto/sha256"
	"fmt"
)

// GetFingerprint returns prefix plus a short sha256 of content, e.g.
// "inline_3f2a9c01d4be".
func GetFingerprint(content []byte, prefix string) string {
	hash := sha256.New()
	hash.Write(content)
	hashedSuffix := fmt.Sprintf("%x", hash.Sum(nil))[:12] // Short hash
	return prefix + hashedSuffix
}
