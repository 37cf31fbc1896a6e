package strategy

import (
	"context"
	"sync"

	"github.com/sentrysoftware/metricshub-sub023/internal/connector"
	"github.com/sentrysoftware/metricshub-sub023/internal/instrument"
	"github.com/sentrysoftware/metricshub-sub023/internal/logger"
	"github.com/sentrysoftware/metricshub-sub023/internal/source"
	"github.com/sentrysoftware/metricshub-sub023/internal/table"
	"github.com/sentrysoftware/metricshub-sub023/internal/telemetry"
	"golang.org/x/sync/semaphore"
)

const defaultMaxParallel = 20

// Host is the execution context of one monitored host. It lives as long as
// the agent run and is shared by every strategy of every cycle.
type Host struct {
	Host       source.Host
	Connectors []*connector.Connector
	Store      *telemetry.HostTelemetry
	Clients    source.Clients
	Recorder   *instrument.Recorder
	// MaxParallel bounds concurrent monitor jobs
	MaxParallel int
	Log         logger.Logger

	serialOnce sync.Once
	serial     *semaphore.Weighted
}

// NewHost creates the execution context of a host
func NewHost(host source.Host, connectors []*connector.Connector, store *telemetry.HostTelemetry, clients source.Clients) *Host {
	return &Host{
		Host:        host,
		Connectors:  connectors,
		Store:       store,
		Clients:     clients,
		MaxParallel: defaultMaxParallel,
		Log:         logger.New("strategy").With("host", host.Hostname),
	}
}

func (h *Host) logger() logger.Logger {
	if h.Log == nil {
		return logger.Nop()
	}

	return h.Log
}

func (h *Host) limit() int {
	if h.MaxParallel <= 0 {
		return defaultMaxParallel
	}

	return h.MaxParallel
}

// gate returns the force-serialization gate of the host, the same one for
// every resolver of every strategy
func (h *Host) gate() *semaphore.Weighted {
	h.serialOnce.Do(func() {
		h.serial = semaphore.NewWeighted(1)
	})

	return h.serial
}

// hasDiscovery reports whether a connector discovers monitors of the type
// in discovery cycles. Simple jobs refresh their monitors on every collect
// and are left out of missing detection.
func (h *Host) hasDiscovery(connectorID, monitorType string) bool {
	for _, c := range h.Connectors {
		if c.ID != connectorID {
			continue
		}
		job, ok := c.Monitors.Job(monitorType)
		return ok && job.Discovery != nil
	}

	return false
}

// Scope memoizes source tables for one cycle: one resolver per connector,
// shared by every strategy run in the scope
type Scope struct {
	host *Host

	mu        sync.Mutex
	resolvers map[string]*source.Resolver
}

// NewScope creates an empty cycle scope of h
func NewScope(h *Host) *Scope {
	return &Scope{host: h, resolvers: make(map[string]*source.Resolver)}
}

// Host returns the host of the scope
func (s *Scope) Host() *Host {
	return s.host
}

func (s *Scope) resolver(c *connector.Connector) *source.Resolver {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.resolvers[c.ID]
	if !ok {
		r = s.host.resolver(c, nil)
		s.resolvers[c.ID] = r
	}

	return r
}

// resolver creates a resolver of one connector for one strategy run.
// Placeholders are filled from the host attributes, overridden by attrs.
func (h *Host) resolver(c *connector.Connector, attrs map[string]string) *source.Resolver {
	merged := map[string]string{"hostname": h.Host.Hostname}
	for k, v := range h.Host.Attributes {
		merged[k] = v
	}
	for k, v := range attrs {
		merged[k] = v
	}

	opts := []source.Option{
		source.WithLogger(h.logger().With("connector", c.ID)),
		source.WithSerializer(h.gate()),
		source.WithReplacer(source.AttributeReplacer(merged)),
	}
	if h.Recorder != nil {
		opts = append(opts, source.WithObserver(h.Recorder))
	}

	return source.NewResolver(h.Host, c, h.Clients, opts...)
}

// runTask resolves every source of a task in order, then the mapping
// source. Source failures are logged by the resolver and leave an empty
// table.
func runTask(ctx context.Context, r *source.Resolver, task *connector.Task) table.Table {
	for _, src := range task.Sources {
		if ctx.Err() != nil {
			return table.Empty()
		}
		_, _ = r.Resolve(ctx, src)
	}
	if task.Mapping == nil {
		return table.Empty()
	}
	t, _ := r.ResolveKey(ctx, task.Mapping.Key)

	return t
}
