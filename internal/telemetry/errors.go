package telemetry

import "github.com/sentrysoftware/metricshub-sub023/internal/errors"

const (
	// Identity errors
	ErrEmptyIdentity     = errors.ErrorCode("telemetry_empty_identity")
	ErrIdentityCollision = errors.ErrorCode("telemetry_identity_collision")

	// Metric errors
	ErrInvalidNumber     = errors.ErrorCode("telemetry_invalid_number")
	ErrInvalidState      = errors.ErrorCode("telemetry_invalid_state")
	ErrMetricTypeChanged = errors.ErrorCode("telemetry_metric_type_changed")
	ErrUnknownMetricType = errors.ErrorCode("telemetry_unknown_metric_type")
)
