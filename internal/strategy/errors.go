package strategy

import "github.com/sentrysoftware/metricshub-sub023/internal/errors"

const (
	ErrTimeout        = errors.ErrorCode("strategy_timeout")
	ErrCancelled      = errors.ErrorCode("strategy_cancelled")
	ErrStrategyFailed = errors.ErrorCode("strategy_failed")
	ErrSnapshot       = errors.ErrorCode("strategy_snapshot_failed")
)
