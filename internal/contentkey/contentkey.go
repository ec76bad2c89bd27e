// Package contentkey derives the stable identity used to de-duplicate
// articles and to join preference records back to stored articles.
package contentkey

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize trims surrounding whitespace and lower-cases a title.
func Normalize(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Key returns the hex SHA-256 of the normalized title. The store-write path
// and every lookup path must go through this function.
func Key(title string) string {
	sum := sha256.Sum256([]byte(Normalize(title)))
	return hex.EncodeToString(sum[:])
}
