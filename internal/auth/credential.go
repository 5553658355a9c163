package auth

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Versioned prefix for pre-hashed credentials on the wire.
const hashPrefix = "$1$"

// CanonicalCredential normalizes a wire credential to the hashed form the
// identity service expects. Plain credentials are hashed; already-prefixed
// ones pass through unchanged.
func CanonicalCredential(credential string) string {
	if strings.HasPrefix(credential, hashPrefix) {
		return credential
	}
	sum := md5.Sum([]byte(credential))
	return hashPrefix + hex.EncodeToString(sum[:])
}
