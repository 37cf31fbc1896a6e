package telemetry

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
)

// PresentMetric is the name of the presence metric of a monitor type
func PresentMetric(monitorType string) string {
	return "hw." + monitorType + ".present"
}

// MonitorKey is the display key of a monitor, as exported in snapshots
func MonitorKey(connectorID, monitorType, id string) string {
	return connectorID + "_" + monitorType + "_" + id
}

// Monitor is a discovered entity with attributes and metrics. Writes to a
// monitor are serialized by its own lock.
type Monitor struct {
	mu sync.RWMutex

	key         string
	id          string
	monitorType string
	connectorID string

	attributes    map[string]string
	metrics       map[string]Metric
	discoveryTime time.Time
	collectTime   time.Time
	missing       bool
}

func newMonitor(connectorID, monitorType, id string) *Monitor {
	return &Monitor{
		key:         MonitorKey(connectorID, monitorType, id),
		id:          id,
		monitorType: monitorType,
		connectorID: connectorID,
		attributes:  make(map[string]string),
		metrics:     make(map[string]Metric),
	}
}

func (m *Monitor) Key() string         { return m.key }

// less orders monitors by key, ties broken by their identity parts
func (m *Monitor) less(o *Monitor) bool {
	if m.key != o.key {
		return m.key < o.key
	}
	if m.connectorID != o.connectorID {
		return m.connectorID < o.connectorID
	}
	if m.monitorType != o.monitorType {
		return m.monitorType < o.monitorType
	}

	return m.id < o.id
}
func (m *Monitor) ID() string          { return m.id }
func (m *Monitor) Type() string        { return m.monitorType }
func (m *Monitor) ConnectorID() string { return m.connectorID }

// Attributes returns a copy of the monitor attributes
func (m *Monitor) Attributes() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.attributes))
	for k, v := range m.attributes {
		out[k] = v
	}

	return out
}

// Attribute returns one attribute
func (m *Monitor) Attribute(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.attributes[name]
	return v, ok
}

func (m *Monitor) DiscoveryTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.discoveryTime
}

func (m *Monitor) CollectTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectTime
}

// IsMissing reports whether the last discovery did not see the monitor
func (m *Monitor) IsMissing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.missing
}

// Metric returns a copy of a metric
func (m *Monitor) Metric(name string) (Metric, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metric, ok := m.metrics[name]
	if !ok {
		return nil, false
	}

	return metric.clone(), true
}

// MetricNames returns the metric names in lexical order
func (m *Monitor) MetricNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.metrics))
	for name := range m.metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// refresh overwrites the attributes and stamps the discovery generation.
// It reports whether the monitor was already refreshed in this generation.
func (m *Monitor) refresh(attributes map[string]string, discoveryTime time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	again := m.discoveryTime.Equal(discoveryTime)
	m.attributes = make(map[string]string, len(attributes))
	for k, v := range attributes {
		m.attributes[k] = v
	}
	m.discoveryTime = discoveryTime
	m.missing = false
	m.setNumber(PresentMetric(m.monitorType), Gauge, 1, discoveryTime, true)

	return again
}

// markMissingUnless flags the monitor missing when it was not refreshed by
// the given discovery generation. It reports whether the state changed to
// missing.
func (m *Monitor) markMissingUnless(discoveryTime time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.discoveryTime.Equal(discoveryTime) {
		return false
	}
	changed := !m.missing
	m.missing = true
	m.setNumber(PresentMetric(m.monitorType), Gauge, 0, discoveryTime, true)

	return changed
}

// prepareCollect saves every metric and moves discovered metrics to the
// collect time
func (m *Monitor) prepareCollect(collectTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, metric := range m.metrics {
		metric.Save()
		if base := metric.Base(); base.ResetMetricTime {
			base.CollectTime = collectTime
		}
	}
}

// SetMetric writes a metric sample from its text value. Discovered samples
// keep following collect cycles, see MetricBase.ResetMetricTime.
func (m *Monitor) SetMetric(name string, def Definition, raw string, t time.Time, discovered bool) error {
	errFactory := errors.New()

	m.mu.Lock()
	defer m.mu.Unlock()

	switch def.Type {
	case StateSet:
		metric, ok := m.metrics[name]
		if !ok {
			metric = &StateSetMetric{
				MetricBase:    MetricBase{Name: name, Type: StateSet},
				AllowedStates: def.States,
			}
		}
		states, ok := metric.(*StateSetMetric)
		if !ok {
			return errFactory.WithData(ErrMetricTypeChanged, name)
		}
		if !states.Set(raw, t) {
			return errFactory.WithData(ErrInvalidState, struct {
				Metric string
				State  string
			}{name, raw})
		}
		states.ResetMetricTime = discovered
		m.metrics[name] = states
	case "", Gauge, Counter:
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return errFactory.WithData(ErrInvalidNumber, struct {
				Metric string
				Value  string
			}{name, raw})
		}
		typ := def.Type
		if typ == "" {
			typ = Gauge
		}
		if err := m.checkNumber(name); err != nil {
			return err
		}
		m.setNumber(name, typ, value, t, discovered)
	default:
		return errFactory.WithData(ErrUnknownMetricType, def.Type)
	}

	if !discovered && t.After(m.collectTime) {
		m.collectTime = t
	}

	return nil
}

func (m *Monitor) checkNumber(name string) error {
	if existing, ok := m.metrics[name]; ok {
		if _, isNumber := existing.(*NumberMetric); !isNumber {
			return errors.New().WithData(ErrMetricTypeChanged, name)
		}
	}

	return nil
}

// setNumber writes a number metric; the caller holds the lock
func (m *Monitor) setNumber(name string, typ MetricType, value float64, t time.Time, discovered bool) {
	metric, ok := m.metrics[name].(*NumberMetric)
	if !ok {
		metric = &NumberMetric{MetricBase: MetricBase{Name: name, Type: typ}}
		m.metrics[name] = metric
	}
	metric.Set(value, t)
	metric.ResetMetricTime = discovered
}
