package compute

import "github.com/sentrysoftware/metricshub-sub023/internal/errors"

const (
	// Pipeline-fatal errors
	ErrMissingTranslationTable = errors.ErrorCode("compute_missing_translation_table")
	ErrInvalidOperator         = errors.ErrorCode("compute_invalid_operator")
	ErrUnknownCompute          = errors.ErrorCode("compute_unknown_operator")
	ErrReferenceFailed         = errors.ErrorCode("compute_reference_failed")
	ErrCancelled               = errors.ErrorCode("compute_cancelled")

	// Row-local errors, never returned by Apply
	ErrRowSkipped = errors.ErrorCode("compute_row_skipped")
)

// rowError marks a failure that only drops the offending row
type rowError struct {
	err error
}

func (e *rowError) Error() string { return e.err.Error() }
func (e *rowError) Unwrap() error { return e.err }

func skipRow(format string, args ...any) error {
	return &rowError{err: errors.New().Newf(ErrRowSkipped, format, args...)}
}
