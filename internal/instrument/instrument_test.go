package instrument_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sentrysoftware/metricshub-sub023/internal/compute"
	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/instrument"
	"github.com/sentrysoftware/metricshub-sub023/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	registry := prometheus.NewRegistry()
	r, err := instrument.New(registry)
	require.NoError(t, err)

	r.SourceResolved(source.KindSnmpTable, 3, nil, time.Millisecond)
	r.SourceResolved(source.KindSnmpTable, 0, nil, time.Millisecond)
	r.SourceResolved(source.KindHTTP, 0, fmt.Errorf("refused"), time.Millisecond)
	r.SourceResolved(source.KindHTTP, 0, fmt.Errorf("refused"), time.Millisecond)
	r.RowDropped(compute.KindDivide)
	r.SetMonitors(5, 2)
	r.CycleTimedOut()
	r.StrategyDone("discovery", 2*time.Second)

	expected := `
# HELP metricshub_source_resolutions_total Number of source resolutions by outcome
# TYPE metricshub_source_resolutions_total counter
metricshub_source_resolutions_total{status="empty"} 1
metricshub_source_resolutions_total{status="failure"} 2
metricshub_source_resolutions_total{status="success"} 1
# HELP metricshub_monitors Number of monitors in the telemetry stores by state
# TYPE metricshub_monitors gauge
metricshub_monitors{state="missing"} 2
metricshub_monitors{state="present"} 5
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"metricshub_source_resolutions_total", "metricshub_monitors"))

	timeouts := `
# HELP metricshub_cycle_timeouts_total Number of host cycles abandoned on deadline
# TYPE metricshub_cycle_timeouts_total counter
metricshub_cycle_timeouts_total 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(timeouts), "metricshub_cycle_timeouts_total"))

	n, err := testutil.GatherAndCount(registry, "metricshub_compute_row_errors_total", "metricshub_strategy_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecorderRegistersOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := instrument.New(registry)
	require.NoError(t, err)

	_, err = instrument.New(registry)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, instrument.ErrRegister))
}

func TestNilRecorder(t *testing.T) {
	var r *instrument.Recorder
	assert.NotPanics(t, func() {
		r.SourceResolved(source.KindHTTP, 1, nil, 0)
		r.RowDropped(compute.KindAdd)
		r.SetMonitors(1, 1)
		r.CycleTimedOut()
		r.StrategyDone("collect", time.Second)
	})
}
