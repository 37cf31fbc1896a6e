package oscommand

import "github.com/sentrysoftware/metricshub-sub023/internal/errors"

const (
	ErrUnsupportedQuery = errors.ErrorCode("oscommand_unsupported_query")
	ErrRemoteExecution  = errors.ErrorCode("oscommand_remote_not_supported")
	ErrCommandFailed    = errors.ErrorCode("oscommand_failed")
	ErrCommandTimeout   = errors.ErrorCode("oscommand_timeout")
)
