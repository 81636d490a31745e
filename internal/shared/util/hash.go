package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// OwnerKey returns the archive namespace for an owner ID: 32 hex characters of its SHA-256.
// Archive keys therefore never carry the raw identity, and a key can be checked against an
// owner with OwnsKey.
func OwnerKey(ownerID string) string {
	sum := sha256.Sum256([]byte(ownerID))
	return hex.EncodeToString(sum[:16])
}

// OwnsKey reports whether key lives under ownerID's namespace.
func OwnsKey(ownerID, key string) bool {
	prefix := OwnerKey(ownerID) + "/"
	return strings.HasPrefix(strings.TrimLeft(key, "/"), prefix) ||
		strings.Contains(key, "/"+prefix)
}
