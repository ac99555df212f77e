package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex characters, enough to label a snapshot in logs.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// SpecHash fingerprints the canonical rendering of a model specification.
type SpecHash Hash

func (h SpecHash) String() string { return Hash(h).String() }
func (h SpecHash) Short() string  { return Hash(h).Short() }

// ComputeSpecHash hashes the ordered parts of a canonical model rendering.
// Parts are newline-joined so that order changes alter the hash.
func ComputeSpecHash(parts ...string) SpecHash {
	return SpecHash(NewHash([]byte(strings.Join(parts, "\n"))))
}
