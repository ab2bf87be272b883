package knowledge

import "github.com/e7nd7r/gnapsis/internal/types"

const (
	// ErrCodeEntityNotFound indicates a lookup by id matched nothing.
	ErrCodeEntityNotFound types.ErrorCode = "ENTITY_NOT_FOUND"

	// ErrCodeEntityHasChildren indicates a delete was refused because
	// other entities still belong to the target.
	ErrCodeEntityHasChildren types.ErrorCode = "ENTITY_HAS_CHILDREN"

	// ErrCodeInvalidEntity indicates entity fields failed validation.
	ErrCodeInvalidEntity types.ErrorCode = "ENTITY_VALIDATION_FAILED"
)
