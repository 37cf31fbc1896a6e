package strategy_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sentrysoftware/metricshub-sub023/internal/connector"
	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/source"
	"github.com/sentrysoftware/metricshub-sub023/internal/strategy"
	"github.com/sentrysoftware/metricshub-sub023/internal/table"
	"github.com/sentrysoftware/metricshub-sub023/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upsModel = `
translations:
  StatusTable:
    "1": ok
    "2": degraded
    default: failed
metrics:
  hw.status:
    type: stateSet
    states: [ok, degraded, failed]
  hw.battery.charge:
    type: gauge
monitors:
  battery:
    discovery:
      sources:
        source(1):
          type: snmpTable
          oid: 1.3.6.1.2.1.33.1.2
          selectColumns: "1,2"
      mapping:
        attributes:
          id: $1
          model: $2
    collect:
      sources:
        source(1):
          type: snmpTable
          oid: 1.3.6.1.2.1.33.1.3
          selectColumns: "1,2,3"
          computes:
          - type: translate
            column: 2
            translationTable: StatusTable
      mapping:
        attributes:
          id: $1
        metrics:
          hw.status: $2
          hw.battery.charge: percent2Ratio($3)
  fan:
    discovery:
      sources:
        source(1):
          type: static
          value: "fan0;\nfan1;"
      mapping:
        attributes:
          id: $1
    collect:
      type: monoInstance
      sources:
        source(1):
          type: osCommand
          commandLine: "speed ${attribute::id}"
          separators: ";"
      mapping:
        metrics:
          hw.fan.speed: $2
`

// fakeSNMP answers table walks from a mutable OID map
type fakeSNMP struct {
	mu     sync.Mutex
	tables map[string][][]string
}

func (f *fakeSNMP) set(oid string, rows [][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[oid] = rows
}

func (f *fakeSNMP) Execute(_ context.Context, _ source.Host, q source.Query) (source.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return source.TableResult(table.New(f.tables[q.(*source.SnmpTable).OID])), nil
}

var fanSpeeds = source.ClientFunc(func(_ context.Context, _ source.Host, q source.Query) (source.Result, error) {
	fan := strings.TrimPrefix(q.(*source.OsCommand).CommandLine, "speed ")
	speed := map[string]string{"fan0": "1200", "fan1": "900"}[fan]
	return source.TextResult(fan + ";" + speed), nil
})

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

func setup(t *testing.T) (*strategy.Host, *fakeSNMP) {
	t.Helper()
	c, err := connector.Parse([]byte(upsModel), "ups")
	require.NoError(t, err)

	snmp := &fakeSNMP{tables: map[string][][]string{
		"1.3.6.1.2.1.33.1.2": {{"1", "APC-1", "x"}, {"2", "APC-2", "x"}},
		"1.3.6.1.2.1.33.1.3": {{"1", "1", "85"}, {"2", "7", "40"}, {"9", "1", "100"}},
	}}
	h := strategy.NewHost(
		source.Host{Hostname: "ups-1"},
		[]*connector.Connector{c},
		telemetry.NewHostTelemetry("ups-1"),
		source.Clients{source.ProtocolSNMP: snmp, source.ProtocolOS: fanSpeeds},
	)

	return h, snmp
}

func newScheduler(h *strategy.Host) *strategy.Scheduler {
	clk := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	return strategy.NewScheduler([]*strategy.Host{h}, strategy.NewRunner(time.Minute, nil, nil), strategy.WithClock(clk.now))
}

func TestDiscoveryAndCollect(t *testing.T) {
	h, _ := setup(t)
	s := newScheduler(h)

	require.NoError(t, s.Cycle(context.Background(), h, true))

	assert.Equal(t, 4, h.Store.Len())
	b1, ok := h.Store.Find("ups", "battery", "1")
	require.True(t, ok)
	model, _ := b1.Attribute("model")
	assert.Equal(t, "APC-1", model)

	status, ok := b1.Metric("hw.status")
	require.True(t, ok)
	assert.Equal(t, "ok", status.(*telemetry.StateSetMetric).Value)

	charge, ok := b1.Metric("hw.battery.charge")
	require.True(t, ok)
	assert.Equal(t, 0.85, charge.(*telemetry.NumberMetric).Value)

	b2, _ := h.Store.Find("ups", "battery", "2")
	status, _ = b2.Metric("hw.status")
	assert.Equal(t, "failed", status.(*telemetry.StateSetMetric).Value)

	_, ok = h.Store.Find("ups", "battery", "9")
	assert.False(t, ok)

	fan1, ok := h.Store.Find("ups", "fan", "fan1")
	require.True(t, ok)
	speed, ok := fan1.Metric("hw.fan.speed")
	require.True(t, ok)
	assert.Equal(t, 900.0, speed.(*telemetry.NumberMetric).Value)
}

func TestMissingAcrossCycles(t *testing.T) {
	h, snmp := setup(t)
	s := newScheduler(h)
	ctx := context.Background()

	require.NoError(t, s.Cycle(ctx, h, true))

	snmp.set("1.3.6.1.2.1.33.1.2", [][]string{{"1", "APC-1", "x"}})
	require.NoError(t, s.Cycle(ctx, h, true))

	b2, ok := h.Store.Find("ups", "battery", "2")
	require.True(t, ok)
	assert.True(t, b2.IsMissing())
	present, _ := b2.Metric(telemetry.PresentMetric("battery"))
	assert.Equal(t, 0.0, present.(*telemetry.NumberMetric).Value)

	// collect keeps writing rows of the missing monitor without reviving it
	require.NoError(t, s.Cycle(ctx, h, false))
	assert.True(t, b2.IsMissing())

	snmp.set("1.3.6.1.2.1.33.1.2", [][]string{{"1", "APC-1", "x"}, {"2", "APC-2", "x"}})
	require.NoError(t, s.Cycle(ctx, h, true))
	assert.False(t, b2.IsMissing())

	present, _ = b2.Metric(telemetry.PresentMetric("battery"))
	assert.Equal(t, 1.0, present.(*telemetry.NumberMetric).Value)
}

func TestCollectSavesBeforeWriting(t *testing.T) {
	h, snmp := setup(t)
	s := newScheduler(h)
	ctx := context.Background()

	require.NoError(t, s.Cycle(ctx, h, true))
	snmp.set("1.3.6.1.2.1.33.1.3", [][]string{{"1", "2", "80"}})
	require.NoError(t, s.Cycle(ctx, h, false))

	b1, _ := h.Store.Find("ups", "battery", "1")
	charge, _ := b1.Metric("hw.battery.charge")
	number := charge.(*telemetry.NumberMetric)
	assert.Equal(t, 0.8, number.Value)
	assert.Equal(t, 0.85, number.PreviousValue)
	assert.True(t, number.IsUpdated())

	status, _ := b1.Metric("hw.status")
	states := status.(*telemetry.StateSetMetric)
	assert.Equal(t, "degraded", states.Value)
	assert.Equal(t, "ok", states.PreviousValue)

	// battery 2 was not collected this time
	b2, _ := h.Store.Find("ups", "battery", "2")
	charge, _ = b2.Metric("hw.battery.charge")
	assert.False(t, charge.IsUpdated())
}

type funcStrategy struct {
	name string
	run  func(ctx context.Context) error
}

func (f funcStrategy) Name() string                  { return f.name }
func (f funcStrategy) Run(ctx context.Context) error { return f.run(ctx) }

func TestRunnerTimeoutKeepsPartialResults(t *testing.T) {
	var applied, skipped atomic.Bool
	release := make(chan struct{})
	defer close(release)

	r := strategy.NewRunner(50*time.Millisecond, nil, nil)
	err := r.Run(context.Background(),
		funcStrategy{"first", func(context.Context) error { applied.Store(true); return nil }},
		funcStrategy{"stuck", func(context.Context) error { <-release; return nil }},
		funcStrategy{"never", func(context.Context) error { skipped.Store(true); return nil }},
	)

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, strategy.ErrTimeout))
	assert.True(t, applied.Load())
	assert.False(t, skipped.Load())
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := strategy.NewRunner(time.Second, nil, nil)
	err := r.Run(ctx, funcStrategy{"blocked", func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }})
	assert.True(t, errors.HasCode(err, strategy.ErrCancelled))
}

const serializedModel = `
monitors:
  disk:
    discovery:
      sources:
        source(1):
          type: wbem
          query: SELECT DeviceID FROM CIM_DiskDrive
          forceSerialization: true
      mapping:
        attributes:
          id: $1
  controller:
    discovery:
      sources:
        source(1):
          type: wbem
          query: SELECT DeviceID FROM CIM_Controller
          forceSerialization: true
      mapping:
        attributes:
          id: $1
`

func TestForceSerializationAcrossJobs(t *testing.T) {
	c, err := connector.Parse([]byte(serializedModel), "wbem")
	require.NoError(t, err)

	hosts := map[string]func(source.Clients) *strategy.Host{
		"NewHost": func(clients source.Clients) *strategy.Host {
			return strategy.NewHost(source.Host{Hostname: "srv"}, []*connector.Connector{c},
				telemetry.NewHostTelemetry("srv"), clients)
		},
		"literal": func(clients source.Clients) *strategy.Host {
			return &strategy.Host{
				Host:       source.Host{Hostname: "srv"},
				Connectors: []*connector.Connector{c},
				Store:      telemetry.NewHostTelemetry("srv"),
				Clients:    clients,
			}
		},
	}

	for name, newHost := range hosts {
		t.Run(name, func(t *testing.T) {
			var active, peak atomic.Int32
			wbem := source.ClientFunc(func(context.Context, source.Host, source.Query) (source.Result, error) {
				n := active.Add(1)
				defer active.Add(-1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(30 * time.Millisecond)
				return source.TableResult(table.SingleCell("dev0")), nil
			})

			h := newHost(source.Clients{source.ProtocolWBEM: wbem})
			require.NoError(t, strategy.NewDiscovery(strategy.NewScope(h), time.Now()).Run(context.Background()))

			assert.Equal(t, int32(1), peak.Load())
			assert.Equal(t, 2, h.Store.Len())
		})
	}
}

const sharedModel = `
pre:
  shared:
    type: snmpTable
    oid: 1.3.6.1.4.1.232.6.2
    selectColumns: "1,2"
monitors:
  fan:
    discovery:
      sources:
        source(1):
          type: static
          value: "fan0;"
      mapping:
        attributes:
          id: $1
    collect:
      sources:
        source(1):
          type: copy
          from: "%pre.shared%"
      mapping:
        attributes:
          id: $1
        metrics:
          hw.fan.speed: $2
  led:
    simple:
      sources:
        source(1):
          type: copy
          from: "%pre.shared%"
      mapping:
        attributes:
          id: $1
        metrics:
          hw.led.status: $2
`

func sharedHost(t *testing.T) (*strategy.Host, *atomic.Int32) {
	t.Helper()
	c, err := connector.Parse([]byte(sharedModel), "shared")
	require.NoError(t, err)

	var calls atomic.Int32
	snmp := source.ClientFunc(func(context.Context, source.Host, source.Query) (source.Result, error) {
		calls.Add(1)
		return source.TableResult(table.New([][]string{{"fan0", "1500"}})), nil
	})
	h := strategy.NewHost(source.Host{Hostname: "srv"}, []*connector.Connector{c},
		telemetry.NewHostTelemetry("srv"), source.Clients{source.ProtocolSNMP: snmp})

	return h, &calls
}

func TestSharedSourceResolvesOncePerCycle(t *testing.T) {
	h, calls := sharedHost(t)
	s := newScheduler(h)
	ctx := context.Background()

	require.NoError(t, s.Cycle(ctx, h, true))
	calls.Store(0)

	require.NoError(t, s.Cycle(ctx, h, false))
	assert.Equal(t, int32(1), calls.Load(), "collect and simple jobs share the pre source")

	fan0, ok := h.Store.Find("shared", "fan", "fan0")
	require.True(t, ok)
	speed, ok := fan0.Metric("hw.fan.speed")
	require.True(t, ok)
	assert.Equal(t, 1500.0, speed.(*telemetry.NumberMetric).Value)

	_, ok = h.Store.Find("shared", "led", "fan0")
	assert.True(t, ok)
}

func TestSimpleMonitorsStayPresentAcrossDiscovery(t *testing.T) {
	h, _ := sharedHost(t)
	s := newScheduler(h)
	ctx := context.Background()

	require.NoError(t, s.Cycle(ctx, h, true))
	require.NoError(t, s.Cycle(ctx, h, true))

	led, ok := h.Store.Find("shared", "led", "fan0")
	require.True(t, ok)
	assert.False(t, led.IsMissing())

	present, ok := led.Metric(telemetry.PresentMetric("led"))
	require.True(t, ok)
	number := present.(*telemetry.NumberMetric)
	assert.Equal(t, 1.0, number.Value)
	assert.Equal(t, 1.0, number.PreviousValue)
}

type sink struct {
	mu        sync.Mutex
	snapshots []telemetry.Snapshot
}

func (s *sink) Record(_ context.Context, snap telemetry.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *sink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

func TestSchedulerRun(t *testing.T) {
	h, _ := setup(t)
	out := &sink{}
	s := strategy.NewScheduler([]*strategy.Host{h}, strategy.NewRunner(time.Second, nil, nil),
		strategy.WithInterval(10*time.Millisecond),
		strategy.WithDiscoveryCycle(2),
		strategy.WithSnapshotRecorder(out),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return out.len() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	out.mu.Lock()
	defer out.mu.Unlock()
	first := out.snapshots[0]
	assert.Equal(t, "ups-1", first.Hostname)
	assert.Len(t, first.Monitors, 4)
}
