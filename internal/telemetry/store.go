// Package telemetry holds the per-host generational store of monitors and
// metrics, and the factory that fills it from instance tables.
package telemetry

import (
	"sort"
	"sync"
	"time"
)

// HostTelemetry is the monitor store of one host. The map is guarded by the
// store lock; each monitor guards its own content.
type HostTelemetry struct {
	hostname string

	mu       sync.RWMutex
	monitors map[identity]*Monitor
}

// identity locates a monitor. Connector ids, types and ids may all contain
// the key separator, so the store never indexes by the joined key.
type identity struct {
	connectorID string
	monitorType string
	id          string
}

// NewHostTelemetry creates an empty store
func NewHostTelemetry(hostname string) *HostTelemetry {
	return &HostTelemetry{
		hostname: hostname,
		monitors: make(map[identity]*Monitor),
	}
}

func (h *HostTelemetry) Hostname() string { return h.hostname }

// Len returns the number of monitors, missing ones included
func (h *HostTelemetry) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.monitors)
}

// Find returns a monitor by identity
func (h *HostTelemetry) Find(connectorID, monitorType, id string) (*Monitor, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m, ok := h.monitors[identity{connectorID, monitorType, id}]
	return m, ok
}

// Monitors returns every monitor ordered by key
func (h *HostTelemetry) Monitors() []*Monitor {
	return h.filter(func(*Monitor) bool { return true })
}

// MonitorsOf returns the monitors of one connector and type, ordered by key
func (h *HostTelemetry) MonitorsOf(connectorID, monitorType string) []*Monitor {
	return h.filter(func(m *Monitor) bool {
		return m.connectorID == connectorID && m.monitorType == monitorType
	})
}

func (h *HostTelemetry) filter(keep func(*Monitor) bool) []*Monitor {
	h.mu.RLock()
	out := make([]*Monitor, 0, len(h.monitors))
	for _, m := range h.monitors {
		if keep(m) {
			out = append(out, m)
		}
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })

	return out
}

// getOrCreate returns the monitor with the given identity, creating it when
// absent. created reports the Absent to Present transition.
func (h *HostTelemetry) getOrCreate(connectorID, monitorType, id string) (m *Monitor, created bool) {
	key := identity{connectorID, monitorType, id}

	h.mu.RLock()
	m, ok := h.monitors[key]
	h.mu.RUnlock()
	if ok {
		return m, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.monitors[key]; ok {
		return m, false
	}
	m = newMonitor(connectorID, monitorType, id)
	h.monitors[key] = m

	return m, true
}

// PostDiscovery flags missing every monitor that the discovery generation
// stamped discoveryTime did not refresh, and returns how many became missing.
// Only monitors for which discovered(connectorID, monitorType) holds are
// checked; nil checks them all. It must run after every refresh of that
// generation.
func (h *HostTelemetry) PostDiscovery(discoveryTime time.Time, discovered func(connectorID, monitorType string) bool) int {
	changed := 0
	for _, m := range h.Monitors() {
		if discovered != nil && !discovered(m.connectorID, m.monitorType) {
			continue
		}
		if m.markMissingUnless(discoveryTime) {
			changed++
		}
	}

	return changed
}

// PrepareCollect saves every metric of every monitor. It must complete
// before any metric of the collect cycle is written.
func (h *HostTelemetry) PrepareCollect(collectTime time.Time) {
	for _, m := range h.Monitors() {
		m.prepareCollect(collectTime)
	}
}

// Counts returns the number of present and missing monitors
func (h *HostTelemetry) Counts() (present, missing int) {
	for _, m := range h.Monitors() {
		if m.IsMissing() {
			missing++
		} else {
			present++
		}
	}

	return present, missing
}

// Registry holds the stores of every monitored host
type Registry struct {
	mu    sync.Mutex
	hosts map[string]*HostTelemetry
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{hosts: make(map[string]*HostTelemetry)}
}

// Host returns the store of a host, creating it on first use
func (r *Registry) Host(hostname string) *HostTelemetry {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hosts[hostname]
	if !ok {
		h = NewHostTelemetry(hostname)
		r.hosts[hostname] = h
	}

	return h
}

// Hosts returns every store ordered by hostname
func (r *Registry) Hosts() []*HostTelemetry {
	r.mu.Lock()
	out := make([]*HostTelemetry, 0, len(r.hosts))
	for _, h := range r.hosts {
		out = append(out, h)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].hostname < out[j].hostname })

	return out
}
