package connector

import "github.com/sentrysoftware/metricshub-sub023/internal/errors"

const (
	ErrReadModel           = errors.ErrorCode("connector_read_failed")
	ErrParseModel          = errors.ErrorCode("connector_parse_failed")
	ErrDuplicateConnector  = errors.ErrorCode("connector_duplicate_id")
	ErrDuplicateSource     = errors.ErrorCode("connector_duplicate_source")
	ErrUnknownReference    = errors.ErrorCode("connector_unknown_reference")
	ErrReferenceCycle      = errors.ErrorCode("connector_reference_cycle")
	ErrUnknownTranslation  = errors.ErrorCode("connector_unknown_translation_table")
	ErrInvalidMapping      = errors.ErrorCode("connector_invalid_mapping")
	ErrInvalidMetric       = errors.ErrorCode("connector_invalid_metric_definition")
	ErrUnknownConnector    = errors.ErrorCode("connector_unknown")
	ErrInvalidCollectType  = errors.ErrorCode("connector_invalid_collect_type")
)
