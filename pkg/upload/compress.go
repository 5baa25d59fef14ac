package upload

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// CompressedSuffix is appended to compressed backup names.
const CompressedSuffix = ".zst"

// Compress squeezes backup payloads with zstd before upload. Ledger CSV
// compresses well and old backups are read rarely, so the trade is
// storage for a decompress step on restore.
func Compress(input []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(input, nil), nil
}

// Decompress restores a compressed backup payload.
func Decompress(input []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer decoder.Close()

	out, err := decoder.DecodeAll(input, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress backup: %w", err)
	}
	return out, nil
}
