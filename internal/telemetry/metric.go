package telemetry

import (
	"strings"
	"time"
)

// MetricType is the kind of a metric
type MetricType string

const (
	Gauge    MetricType = "gauge"
	Counter  MetricType = "counter"
	StateSet MetricType = "stateSet"
)

// IsValid reports whether t is a known metric type; empty means gauge
func (t MetricType) IsValid() bool {
	switch t {
	case "", Gauge, Counter, StateSet:
		return true
	default:
		return false
	}
}

// Definition describes a metric declared by a connector
type Definition struct {
	Type        MetricType `yaml:"type"`
	Unit        string     `yaml:"unit"`
	Description string     `yaml:"description"`
	States      []string   `yaml:"states"`
}

// Metric is a named, timestamped value of a monitor. The set of variants is
// closed: *NumberMetric and *StateSetMetric.
type Metric interface {
	Base() *MetricBase
	// Save rotates the current sample into the previous one
	Save()
	// IsUpdated reports whether a sample was written since the last Save
	IsUpdated() bool
	clone() Metric
}

// MetricBase holds the fields shared by every metric
type MetricBase struct {
	Name                string
	Type                MetricType
	CollectTime         time.Time
	PreviousCollectTime time.Time
	Attributes          map[string]string
	// ResetMetricTime marks metrics produced by discovery; their collect time
	// follows the collect cycle even though no query refreshes them
	ResetMetricTime bool
}

// Base returns the shared fields
func (b *MetricBase) Base() *MetricBase { return b }

// IsUpdated reports whether CollectTime moved since the last Save
func (b *MetricBase) IsUpdated() bool {
	return !b.CollectTime.Equal(b.PreviousCollectTime)
}

func (b *MetricBase) save() {
	b.PreviousCollectTime = b.CollectTime
}

func (b MetricBase) copyBase() MetricBase {
	c := b
	if b.Attributes != nil {
		c.Attributes = make(map[string]string, len(b.Attributes))
		for k, v := range b.Attributes {
			c.Attributes[k] = v
		}
	}

	return c
}

// NumberMetric is a gauge or a counter
type NumberMetric struct {
	MetricBase
	Value         float64
	PreviousValue float64
}

// Save copies Value and CollectTime into their previous counterparts
func (m *NumberMetric) Save() {
	m.save()
	m.PreviousValue = m.Value
}

// Set writes a new sample
func (m *NumberMetric) Set(value float64, t time.Time) {
	m.Value = value
	m.CollectTime = t
}

// Delta is Value minus PreviousValue, when the metric was updated this cycle
// and a previous sample exists
func (m *NumberMetric) Delta() (float64, bool) {
	if !m.IsUpdated() || m.PreviousCollectTime.IsZero() {
		return 0, false
	}

	return m.Value - m.PreviousValue, true
}

// Rate is Delta per second
func (m *NumberMetric) Rate() (float64, bool) {
	delta, ok := m.Delta()
	if !ok {
		return 0, false
	}
	elapsed := m.CollectTime.Sub(m.PreviousCollectTime).Seconds()
	if elapsed <= 0 {
		return 0, false
	}

	return delta / elapsed, true
}

func (m *NumberMetric) clone() Metric {
	return &NumberMetric{MetricBase: m.copyBase(), Value: m.Value, PreviousValue: m.PreviousValue}
}

// StateSetMetric holds one state out of AllowedStates
type StateSetMetric struct {
	MetricBase
	Value         string
	PreviousValue string
	AllowedStates []string
}

// Save copies Value and CollectTime into their previous counterparts
func (m *StateSetMetric) Save() {
	m.save()
	m.PreviousValue = m.Value
}

// Allows reports whether state is one of AllowedStates, ignoring case. An
// empty AllowedStates accepts anything.
func (m *StateSetMetric) Allows(state string) bool {
	if len(m.AllowedStates) == 0 {
		return true
	}
	for _, s := range m.AllowedStates {
		if strings.EqualFold(s, state) {
			return true
		}
	}

	return false
}

// Set writes a new state. States outside AllowedStates are refused.
func (m *StateSetMetric) Set(state string, t time.Time) bool {
	if !m.Allows(state) {
		return false
	}
	m.Value = strings.ToLower(state)
	m.CollectTime = t

	return true
}

func (m *StateSetMetric) clone() Metric {
	c := &StateSetMetric{MetricBase: m.copyBase(), Value: m.Value, PreviousValue: m.PreviousValue}
	c.AllowedStates = append([]string(nil), m.AllowedStates...)

	return c
}
