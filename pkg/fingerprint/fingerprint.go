package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Separator joins row values before hashing. It is guaranteed absent from
// normalized values of the supported export formats.
const Separator = "|"

// Fingerprint is the duplicate-detection key of a normalized row: a SHA-256
// digest over its values in header order.
type Fingerprint [sha256.Size]byte

// String returns the hex form of the fingerprint.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Row computes the fingerprint of a row. Values must already be normalized
// and positioned against a single shared header; fingerprints computed
// against different headers are not comparable. Missing and empty values
// hash identically.
func Row(values []string) Fingerprint {
	return sha256.Sum256([]byte(strings.Join(values, Separator)))
}

// Set is a collection of seen fingerprints.
type Set map[Fingerprint]struct{}

// NewSet creates a set sized for n entries.
func NewSet(n int) Set {
	return make(Set, n)
}

// Add inserts a fingerprint, reporting whether it was new.
func (s Set) Add(f Fingerprint) bool {
	if _, ok := s[f]; ok {
		return false
	}
	s[f] = struct{}{}
	return true
}

// Contains reports membership.
func (s Set) Contains(f Fingerprint) bool {
	_, ok := s[f]
	return ok
}
