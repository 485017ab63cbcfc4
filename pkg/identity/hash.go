// Package identity derives the public tracking handle from a display name.
// The hash is a lookup key with low discoverability, not a security boundary.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashLength is the fixed length of a tracking handle.
const HashLength = 16

// ComputeHash returns the stable opaque handle for a display name. The same
// name always maps to the same handle; case and surrounding whitespace are
// ignored so admins retyping a name cannot fork the handle.
func ComputeHash(displayName string) string {
	normalized := strings.ToLower(strings.TrimSpace(displayName))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:HashLength]
}

// IsValidHash is a cheap structural check used to reject malformed lookups
// before they reach the store.
func IsValidHash(candidate string) bool {
	if len(candidate) != HashLength {
		return false
	}
	for _, r := range candidate {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
