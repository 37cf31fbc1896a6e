package telemetry

import "time"

// Snapshot is a read-only copy of a host store, handed to exporters
type Snapshot struct {
	Hostname string            `yaml:"hostname"`
	Time     time.Time         `yaml:"time"`
	Monitors []MonitorSnapshot `yaml:"monitors"`
}

// MonitorSnapshot is a copy of one monitor
type MonitorSnapshot struct {
	Key           string            `yaml:"key"`
	ID            string            `yaml:"id"`
	Type          string            `yaml:"type"`
	ConnectorID   string            `yaml:"connector"`
	Attributes    map[string]string `yaml:"attributes"`
	DiscoveryTime time.Time         `yaml:"discoveryTime"`
	CollectTime   time.Time         `yaml:"collectTime,omitempty"`
	Missing       bool              `yaml:"missing"`
	Metrics       []MetricSnapshot  `yaml:"metrics"`
}

// MetricSnapshot is a copy of one metric. Number metrics fill Value and
// PreviousValue, state sets fill State and PreviousState.
type MetricSnapshot struct {
	Name                string            `yaml:"name"`
	Type                MetricType        `yaml:"type"`
	Value               float64           `yaml:"value"`
	PreviousValue       float64           `yaml:"previousValue"`
	State               string            `yaml:"state,omitempty"`
	PreviousState       string            `yaml:"previousState,omitempty"`
	CollectTime         time.Time         `yaml:"collectTime"`
	PreviousCollectTime time.Time         `yaml:"previousCollectTime,omitempty"`
	Updated             bool              `yaml:"updated"`
	Attributes          map[string]string `yaml:"attributes,omitempty"`
}

// Snapshot copies the store content, monitors ordered by key and metrics by
// name
func (h *HostTelemetry) Snapshot(at time.Time) Snapshot {
	monitors := h.Monitors()
	snap := Snapshot{
		Hostname: h.hostname,
		Time:     at,
		Monitors: make([]MonitorSnapshot, 0, len(monitors)),
	}
	for _, m := range monitors {
		snap.Monitors = append(snap.Monitors, m.snapshot())
	}

	return snap
}

func (m *Monitor) snapshot() MonitorSnapshot {
	ms := MonitorSnapshot{
		Key:         m.key,
		ID:          m.id,
		Type:        m.monitorType,
		ConnectorID: m.connectorID,
		Attributes:  m.Attributes(),
	}

	names := m.MetricNames()

	m.mu.RLock()
	defer m.mu.RUnlock()

	ms.DiscoveryTime = m.discoveryTime
	ms.CollectTime = m.collectTime
	ms.Missing = m.missing
	ms.Metrics = make([]MetricSnapshot, 0, len(names))
	for _, name := range names {
		metric, ok := m.metrics[name]
		if !ok {
			continue
		}
		base := metric.Base()
		s := MetricSnapshot{
			Name:                base.Name,
			Type:                base.Type,
			CollectTime:         base.CollectTime,
			PreviousCollectTime: base.PreviousCollectTime,
			Updated:             metric.IsUpdated(),
			Attributes:          base.copyBase().Attributes,
		}
		switch v := metric.(type) {
		case *NumberMetric:
			s.Value = v.Value
			s.PreviousValue = v.PreviousValue
		case *StateSetMetric:
			s.State = v.Value
			s.PreviousState = v.PreviousValue
		}
		ms.Metrics = append(ms.Metrics, s)
	}

	return ms
}
