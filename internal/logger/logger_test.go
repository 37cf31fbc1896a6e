package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"":        InfoLevel,
		"warning": WarnLevel,
		"warn":    WarnLevel,
		"error":   ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestComponentLogger(t *testing.T) {
	defer func() { log = zerolog.Nop() }()

	var buf bytes.Buffer
	require.NoError(t, InitWithWriter(&buf, "debug", true))

	l := New("resolver").With("host", "srv-01")
	l.Debug().Str("source", "enclosure.discovery.source(1)").Msg("resolved")

	out := buf.String()
	assert.Contains(t, out, "resolved")
	assert.Contains(t, out, "component=resolver")
	assert.Contains(t, out, "host=srv-01")

	buf.Reset()
	SetLogLevel(ErrorLevel)
	l.Warn().Msg("dropped")
	assert.Empty(t, buf.String())

	l.ErrorWithCode(errors.New().New(errors.ErrTimeout)).Msg("timeout")
	assert.Contains(t, buf.String(), "operation_timeout")
}
