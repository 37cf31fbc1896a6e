package table

import "github.com/sentrysoftware/metricshub-sub023/internal/errors"

const (
	ErrInvalidSelectColumns = errors.ErrorCode("table_invalid_select_columns")
	ErrColumnOutOfRange     = errors.ErrorCode("table_column_out_of_range")
	ErrInvalidKeyType       = errors.ErrorCode("table_invalid_key_type")
)
