package errors_test

import (
	"fmt"
	"testing"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	err := errFactory.New(errors.ErrTimeout)
	assert.Equal(t, "Operation timed out", err.Error())
	assert.Equal(t, errors.ErrTimeout, err.Code())

	custom := errors.ErrorCode("custom_code")
	assert.Equal(t, "custom_code", errFactory.New(custom).Error())
}

func TestWrapAndData(t *testing.T) {
	errFactory := errors.New()
	cause := fmt.Errorf("boom")

	err := errFactory.Wrap(errors.ErrOperationFailed, cause)
	assert.Equal(t, "Operation failed: boom", err.Error())
	assert.True(t, errors.Is(err, cause))

	withData := err.WithData("column 3")
	assert.Equal(t, "Operation failed: column 3", withData.Error())
	assert.Equal(t, "column 3", withData.GetData())

	assert.Equal(t, "custom: boom", err.WithMessage("custom").Error())
	assert.Equal(t, "bad 7", errFactory.Newf(errors.ErrInvalidArgument, "bad %d", 7).Error())
}

func TestHasCode(t *testing.T) {
	errFactory := errors.New()
	inner := errFactory.New(errors.ErrResourceNotFound)
	outer := errFactory.Wrap(errors.ErrOperationFailed, fmt.Errorf("context: %w", inner))

	assert.True(t, errors.HasCode(outer, errors.ErrOperationFailed))
	assert.True(t, errors.HasCode(outer, errors.ErrResourceNotFound))
	assert.False(t, errors.HasCode(outer, errors.ErrTimeout))
	assert.False(t, errors.HasCode(nil, errors.ErrTimeout))

	assert.Equal(t, errors.ErrOperationFailed, errors.CodeOf(outer))
	assert.Equal(t, errors.ErrInternal, errors.CodeOf(fmt.Errorf("plain")))
}
