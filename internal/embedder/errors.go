package embedder

import "github.com/e7nd7r/gnapsis/internal/types"

const (
	// ErrCodeInvalidConfig indicates an unusable embedder configuration.
	ErrCodeInvalidConfig types.ErrorCode = "EMBEDDER_INVALID_CONFIG"

	// ErrCodeEmbedFailed indicates the provider rejected or failed an
	// embedding request.
	ErrCodeEmbedFailed types.ErrorCode = "EMBED_FAILED"

	// ErrCodeDimensionMismatch indicates a returned vector did not have
	// the configured width.
	ErrCodeDimensionMismatch types.ErrorCode = "EMBED_DIMENSION_MISMATCH"
)
