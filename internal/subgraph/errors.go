package subgraph

import "github.com/e7nd7r/gnapsis/internal/types"

const (
	// ErrCodeInvalidRequest indicates an extraction request failed
	// validation before any query executed.
	ErrCodeInvalidRequest types.ErrorCode = "EXTRACTION_INVALID_REQUEST"

	// ErrCodeRootNotFound indicates no root entity could be resolved
	// from the request.
	ErrCodeRootNotFound types.ErrorCode = "EXTRACTION_ROOT_NOT_FOUND"
)
