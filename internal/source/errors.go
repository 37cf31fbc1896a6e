package source

import "github.com/sentrysoftware/metricshub-sub023/internal/errors"

const (
	ErrUnknownSource       = errors.ErrorCode("source_unknown_type")
	ErrUnknownReference    = errors.ErrorCode("source_unknown_reference")
	ErrReferenceCycle      = errors.ErrorCode("source_reference_cycle")
	ErrProtocolUnavailable = errors.ErrorCode("source_protocol_unavailable")
	ErrProtocolFailed      = errors.ErrorCode("source_protocol_failed")
	ErrInvalidSource       = errors.ErrorCode("source_invalid_definition")
	ErrSerialization       = errors.ErrorCode("source_serialization_wait_failed")
)
