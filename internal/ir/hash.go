package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Digest computes the SHA-256 hex digest of a value's canonical JSON.
// Two instances with the same digest bind every relation identically;
// the verdict archive and idempotence tests rely on this.
func Digest(v any) (string, error) {
	b, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("canonicalize for digest: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
