// Package edit holds the checksum guard and the line editor used by every
// write: content is hashed at read time, re-verified before mutation and
// changed through a single line splice.
package edit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ChecksumLength is the number of hex characters kept from the SHA-256 digest.
const ChecksumLength = 12

// Checksum returns the truncated SHA-256 hex digest of content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:ChecksumLength]
}

// ChecksumString is Checksum for string content.
func ChecksumString(content string) string {
	return Checksum([]byte(content))
}

// VerifyChecksum reports whether expected names the digest of content.
// Comparison ignores surrounding whitespace and letter case.
func VerifyChecksum(content []byte, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(expected), Checksum(content))
}
