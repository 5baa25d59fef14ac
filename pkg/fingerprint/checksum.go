package fingerprint

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// Checksum computes a fast xxh3 (64-bit) content hash of raw bytes and
// returns it hex-encoded. Used for byte-level change detection between the
// downloaded master and the re-encoded merge output; not a dedup key.
func Checksum(data []byte) string {
	h := xxh3.Hash(data)
	return fmt.Sprintf("%016x", h)
}

// ValidateChecksum verifies data against an expected checksum.
func ValidateChecksum(data []byte, expected string) error {
	actual := Checksum(data)
	if actual != expected {
		return fmt.Errorf("checksum validation failed: expected %s, got %s", expected, actual)
	}
	return nil
}
