package graph

import "github.com/e7nd7r/gnapsis/internal/types"

// Graph query layer error codes
const (
	// Connection and pool errors
	ErrCodePoolExhausted    types.ErrorCode = "POOL_EXHAUSTED"
	ErrCodeConnectionFailed types.ErrorCode = "GRAPH_CONNECTION_FAILED"
	ErrCodeConnectionClosed types.ErrorCode = "GRAPH_CONNECTION_CLOSED"

	// Configuration errors
	ErrCodeInvalidConfig types.ErrorCode = "GRAPH_INVALID_CONFIG"

	// Query errors
	ErrCodeQueryFailed      types.ErrorCode = "GRAPH_QUERY_FAILED"
	ErrCodeShapeParseFailed types.ErrorCode = "SHAPE_PARSE_FAILED"
	ErrCodeDecodeFailed     types.ErrorCode = "VALUE_DECODE_FAILED"

	// Transaction errors
	ErrCodeTxProtocolViolation types.ErrorCode = "TX_PROTOCOL_VIOLATION"
	ErrCodeTxFinished          types.ErrorCode = "TX_FINISHED"

	// Capability errors
	ErrCodeStatementsUnsupported types.ErrorCode = "NATIVE_STATEMENTS_UNSUPPORTED"
)
