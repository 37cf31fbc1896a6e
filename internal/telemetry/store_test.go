package telemetry_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fanMapping = map[string]string{"id": "$1", "name": "Fan $1", "vendor": "$2"}

func discover(t *testing.T, f *telemetry.Factory, at time.Time, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := f.CreateOrUpdateMonitor([]string{id, "Dell"}, "fan", "linux", fanMapping, at)
		require.NoError(t, err)
	}
}

func TestDiscoveryMissingRediscovery(t *testing.T) {
	store := telemetry.NewHostTelemetry("server-1")
	f := telemetry.NewFactory(store, nil)
	t1, t2, t3 := t0, t0.Add(time.Hour), t0.Add(2*time.Hour)

	discover(t, f, t1, "0", "1")
	assert.Zero(t, store.PostDiscovery(t1, nil))

	fan1, ok := store.Find("linux", "fan", "1")
	require.True(t, ok)
	assert.Equal(t, "linux_fan_1", fan1.Key())
	assert.Equal(t, "Fan 1", mustAttr(t, fan1, "name"))
	assert.False(t, fan1.IsMissing())

	discover(t, f, t2, "0")
	assert.Equal(t, 1, store.PostDiscovery(t2, nil))
	assert.True(t, fan1.IsMissing())
	assert.Equal(t, t1, fan1.DiscoveryTime())
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 0.0, number(t, fan1, telemetry.PresentMetric("fan")))

	discover(t, f, t3, "0", "1")
	assert.False(t, fan1.IsMissing())
	assert.Equal(t, 1.0, number(t, fan1, telemetry.PresentMetric("fan")))
	assert.Zero(t, store.PostDiscovery(t3, nil))

	present, missing := store.Counts()
	assert.Equal(t, 2, present)
	assert.Zero(t, missing)
}

func TestIdentityCollisionLastRowWins(t *testing.T) {
	store := telemetry.NewHostTelemetry("server-1")
	f := telemetry.NewFactory(store, nil)

	_, err := f.CreateOrUpdateMonitor([]string{"0", "Dell"}, "fan", "linux", fanMapping, t0)
	require.NoError(t, err)
	m, err := f.CreateOrUpdateMonitor([]string{"0", "HP"}, "fan", "linux", fanMapping, t0)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, telemetry.ErrIdentityCollision))
	assert.Equal(t, "HP", mustAttr(t, m, "vendor"))
	assert.Equal(t, 1, store.Len())
}

func TestIdentityWithUnderscores(t *testing.T) {
	store := telemetry.NewHostTelemetry("server-1")
	f := telemetry.NewFactory(store, nil)
	byID := map[string]string{"id": "$1"}

	disk, err := f.CreateOrUpdateMonitor([]string{"ctrl_1"}, "disk", "c", byID, t0)
	require.NoError(t, err)
	ctrl, err := f.CreateOrUpdateMonitor([]string{"1"}, "disk_ctrl", "c", byID, t0)
	require.NoError(t, err, "same joined key, different identity")

	assert.NotSame(t, disk, ctrl)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, "disk", disk.Type())
	assert.Equal(t, "disk_ctrl", ctrl.Type())

	found, ok := store.Find("c", "disk_ctrl", "1")
	require.True(t, ok)
	assert.Same(t, ctrl, found)
	found, ok = store.Find("c", "disk", "ctrl_1")
	require.True(t, ok)
	assert.Same(t, disk, found)
}

func TestPostDiscoveryScope(t *testing.T) {
	store := telemetry.NewHostTelemetry("server-1")
	f := telemetry.NewFactory(store, nil)
	t1, t2 := t0, t0.Add(time.Hour)

	discover(t, f, t1, "0")
	led, err := f.CreateOrUpdateMonitor([]string{"led0"}, "led", "linux", map[string]string{"id": "$1"}, t1)
	require.NoError(t, err)

	onlyFans := func(_, monitorType string) bool { return monitorType == "fan" }
	assert.Equal(t, 1, store.PostDiscovery(t2, onlyFans))

	fan0, ok := store.Find("linux", "fan", "0")
	require.True(t, ok)
	assert.True(t, fan0.IsMissing())
	assert.False(t, led.IsMissing(), "types outside the scope are left alone")
	assert.Equal(t, 1.0, number(t, led, telemetry.PresentMetric("led")))
}

func TestDerivedIdentity(t *testing.T) {
	store := telemetry.NewHostTelemetry("server-1")
	f := telemetry.NewFactory(store, nil)
	mapping := map[string]string{"vendor": "$1", "model": "$2", "serial_number": "$3"}

	m, err := f.CreateOrUpdateMonitor([]string{"Dell", "R740", "ABC123"}, "enclosure", "dell", mapping, t0)
	require.NoError(t, err)
	assert.Equal(t, "Dell_R740_ABC123", m.ID())

	_, err = f.CreateOrUpdateMonitor([]string{"", "", ""}, "enclosure", "dell", mapping, t0)
	assert.True(t, errors.HasCode(err, telemetry.ErrEmptyIdentity))
}

func TestPrepareCollect(t *testing.T) {
	store := telemetry.NewHostTelemetry("server-1")
	f := telemetry.NewFactory(store, nil)
	discover(t, f, t0, "0")
	fan, _ := store.Find("linux", "fan", "0")

	c1 := t0.Add(time.Minute)
	store.PrepareCollect(c1)
	require.NoError(t, fan.SetMetric("hw.fan.speed", telemetry.Definition{}, "1200", c1, false))

	c2 := c1.Add(2 * time.Minute)
	store.PrepareCollect(c2)

	speed := metric(t, fan, "hw.fan.speed").(*telemetry.NumberMetric)
	assert.Equal(t, 1200.0, speed.PreviousValue)
	assert.Equal(t, c1, speed.PreviousCollectTime)
	assert.False(t, speed.IsUpdated())

	// discovered metrics follow the collect cycle
	present := metric(t, fan, telemetry.PresentMetric("fan"))
	assert.Equal(t, c2, present.Base().CollectTime)
	assert.True(t, present.IsUpdated())

	require.NoError(t, fan.SetMetric("hw.fan.speed", telemetry.Definition{}, "1260", c2, false))
	speed = metric(t, fan, "hw.fan.speed").(*telemetry.NumberMetric)
	rate, ok := speed.Rate()
	require.True(t, ok)
	assert.InDelta(t, 0.5, rate, 1e-9)
	assert.Equal(t, c2, fan.CollectTime())
}

func TestSetMetricErrors(t *testing.T) {
	store := telemetry.NewHostTelemetry("server-1")
	discover(t, telemetry.NewFactory(store, nil), t0, "0")
	fan, _ := store.Find("linux", "fan", "0")
	status := telemetry.Definition{Type: telemetry.StateSet, States: []string{"ok", "failed"}}

	err := fan.SetMetric("hw.fan.speed", telemetry.Definition{}, "fast", t0, false)
	assert.True(t, errors.HasCode(err, telemetry.ErrInvalidNumber))

	err = fan.SetMetric("hw.status", status, "melted", t0, false)
	assert.True(t, errors.HasCode(err, telemetry.ErrInvalidState))
	_, ok := fan.Metric("hw.status")
	assert.False(t, ok)

	require.NoError(t, fan.SetMetric("hw.status", status, "ok", t0, false))
	err = fan.SetMetric("hw.status", telemetry.Definition{Type: telemetry.Gauge}, "1", t0, false)
	assert.True(t, errors.HasCode(err, telemetry.ErrMetricTypeChanged))

	err = fan.SetMetric("hw.x", telemetry.Definition{Type: "histogram"}, "1", t0, false)
	assert.True(t, errors.HasCode(err, telemetry.ErrUnknownMetricType))
}

func TestConcurrentMonitorWrites(t *testing.T) {
	store := telemetry.NewHostTelemetry("server-1")
	f := telemetry.NewFactory(store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := f.CreateOrUpdateMonitor([]string{fmt.Sprint(i % 4), "Dell"}, "fan", "linux", fanMapping, t0.Add(time.Duration(i)))
			if assert.NoError(t, err) {
				assert.NoError(t, m.SetMetric("hw.fan.speed", telemetry.Definition{}, fmt.Sprint(i), t0, false))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, store.Len())
	snap := store.Snapshot(t0)
	require.Len(t, snap.Monitors, 4)
	assert.Equal(t, "linux_fan_0", snap.Monitors[0].Key)
}

func TestRegistry(t *testing.T) {
	r := telemetry.NewRegistry()
	a := r.Host("b-host")
	r.Host("a-host")

	assert.Same(t, a, r.Host("b-host"))
	hosts := r.Hosts()
	require.Len(t, hosts, 2)
	assert.Equal(t, "a-host", hosts[0].Hostname())
}

func mustAttr(t *testing.T, m *telemetry.Monitor, name string) string {
	t.Helper()
	v, ok := m.Attribute(name)
	require.True(t, ok, name)
	return v
}

func metric(t *testing.T, m *telemetry.Monitor, name string) telemetry.Metric {
	t.Helper()
	metric, ok := m.Metric(name)
	require.True(t, ok, name)
	return metric
}

func number(t *testing.T, m *telemetry.Monitor, name string) float64 {
	t.Helper()
	n, ok := metric(t, m, name).(*telemetry.NumberMetric)
	require.True(t, ok, name)
	return n.Value
}
