// Package strategy orchestrates discovery and collect cycles of a host.
package strategy

import (
	"context"
	"time"

	"github.com/sentrysoftware/metricshub-sub023/internal/connector"
	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/source"
	"github.com/sentrysoftware/metricshub-sub023/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

// Strategy names
const (
	NameDiscovery      = "discovery"
	NamePostDiscovery  = "postDiscovery"
	NamePrepareCollect = "prepareCollect"
	NameCollect        = "collect"
	NameSimple         = "simple"
)

// Strategy is one phase of a cycle
type Strategy interface {
	Name() string
	Run(ctx context.Context) error
}

// forEachJob runs fn for every monitor job of every connector that has the
// selected task, at most h.MaxParallel at a time
func forEachJob(ctx context.Context, h *Host, has func(*connector.MonitorJob) bool, fn func(context.Context, *connector.Connector, *connector.MonitorJob) error) error {
	// Wait cancels gctx, so only ctx tells a real cancellation
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.limit())

	for _, c := range h.Connectors {
		for _, job := range c.Monitors {
			if !has(job) {
				continue
			}
			c, job := c, job
			g.Go(func() error {
				return fn(gctx, c, job)
			})
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.New().Wrap(ErrCancelled, err)
	}

	return nil
}

// setMetrics writes the metrics of a mapping row to a monitor. Bad values
// are logged and skipped.
func setMetrics(h *Host, c *connector.Connector, m *telemetry.Monitor, templates map[string]string, row []string, t time.Time, discovered bool) {
	for name, template := range templates {
		value := telemetry.Interpret(template, row)
		if value == "" {
			continue
		}
		if err := m.SetMetric(name, c.Metric(name), value, t, discovered); err != nil {
			if coded, ok := err.(errors.Error); ok {
				h.logger().WarnWithCode(coded).Str("monitor", m.Key()).Str("metric", name).Msg("Metric value rejected")
			}
		}
	}
}

// Discovery creates and refreshes monitors from discovery tasks. Every
// monitor it sees is stamped with the discovery time.
type Discovery struct {
	scope *Scope
	host  *Host
	time  time.Time
}

// NewDiscovery creates the discovery strategy of generation t. Jobs of one
// connector share the scope resolver so pre sources resolve once.
func NewDiscovery(scope *Scope, t time.Time) *Discovery {
	return &Discovery{scope: scope, host: scope.Host(), time: t}
}

func (*Discovery) Name() string { return NameDiscovery }

func (d *Discovery) Run(ctx context.Context) error {
	return forEachJob(ctx, d.host,
		func(job *connector.MonitorJob) bool { return job.Discovery != nil && job.Discovery.Mapping != nil },
		func(ctx context.Context, c *connector.Connector, job *connector.MonitorJob) error {
			t := runTask(ctx, d.scope.resolver(c), job.Discovery)
			discoverRows(d.host, c, job.Type, job.Discovery.Mapping, t.Rows(), d.time, true)
			return nil
		})
}

// discoverRows maps instance table rows to monitors and writes the
// mapping metrics
func discoverRows(h *Host, c *connector.Connector, monitorType string, mapping *connector.Mapping, rows [][]string, t time.Time, discovered bool) {
	log := h.logger().With("connector", c.ID).With("monitor_type", monitorType)
	factory := telemetry.NewFactory(h.Store, log)

	for _, row := range rows {
		m, err := factory.CreateOrUpdateMonitor(row, monitorType, c.ID, mapping.Attributes, t)
		if err != nil {
			coded, _ := err.(errors.Error)
			switch {
			case m != nil && coded != nil:
				log.WarnWithCode(coded).Msg("Duplicate monitor identity, keeping the last row")
			case coded != nil:
				log.WarnWithCode(coded).Msg("Instance row skipped")
			}
			if m == nil {
				continue
			}
		}
		setMetrics(h, c, m, mapping.Metrics, row, t, discovered)
	}
}

// PostDiscovery flags the monitors the last discovery did not refresh.
// Monitors of types without a discovery task are not checked.
type PostDiscovery struct {
	host *Host
	time time.Time
}

// NewPostDiscovery creates the missing detection pass of generation t
func NewPostDiscovery(h *Host, t time.Time) *PostDiscovery {
	return &PostDiscovery{host: h, time: t}
}

func (*PostDiscovery) Name() string { return NamePostDiscovery }

func (p *PostDiscovery) Run(context.Context) error {
	if n := p.host.Store.PostDiscovery(p.time, p.host.hasDiscovery); n > 0 {
		p.host.logger().Info().Int("monitors", n).Msg("Monitors missing")
	}

	return nil
}

// PrepareCollect saves every metric before the collect cycle writes
type PrepareCollect struct {
	host *Host
	time time.Time
}

// NewPrepareCollect creates the save pass of the collect cycle at t
func NewPrepareCollect(h *Host, t time.Time) *PrepareCollect {
	return &PrepareCollect{host: h, time: t}
}

func (*PrepareCollect) Name() string { return NamePrepareCollect }

func (p *PrepareCollect) Run(context.Context) error {
	p.host.Store.PrepareCollect(p.time)
	return nil
}

// Collect writes metrics of existing monitors from collect tasks
type Collect struct {
	scope *Scope
	host  *Host
	time  time.Time
}

// NewCollect creates the collect strategy at t. multiInstance jobs resolve
// through the scope.
func NewCollect(scope *Scope, t time.Time) *Collect {
	return &Collect{scope: scope, host: scope.Host(), time: t}
}

func (*Collect) Name() string { return NameCollect }

func (s *Collect) Run(ctx context.Context) error {
	return forEachJob(ctx, s.host,
		func(job *connector.MonitorJob) bool { return job.Collect != nil && job.Collect.Mapping != nil },
		func(ctx context.Context, c *connector.Connector, job *connector.MonitorJob) error {
			if job.Collect.Type == connector.MonoInstance {
				s.monoInstance(ctx, c, job)
				return nil
			}
			s.multiInstance(ctx, s.scope.resolver(c), c, job)
			return nil
		})
}

func (s *Collect) multiInstance(ctx context.Context, r *source.Resolver, c *connector.Connector, job *connector.MonitorJob) {
	mapping := job.Collect.Mapping
	t := runTask(ctx, r, &job.Collect.Task)

	for _, row := range t.Rows() {
		id := telemetry.Identity(telemetry.InterpretAll(mapping.Attributes, row))
		m, ok := s.host.Store.Find(c.ID, job.Type, id)
		if !ok {
			s.host.logger().Debug().
				Str("connector", c.ID).
				Str("monitor_type", job.Type).
				Str("id", id).
				Msg("Collected row matches no monitor")
			continue
		}
		setMetrics(s.host, c, m, mapping.Metrics, row, s.time, false)
	}
}

// monoInstance runs the collect sources once per monitor, each run with its
// own memo scope and the monitor attributes as placeholders
func (s *Collect) monoInstance(ctx context.Context, c *connector.Connector, job *connector.MonitorJob) {
	for _, m := range s.host.Store.MonitorsOf(c.ID, job.Type) {
		if ctx.Err() != nil {
			return
		}
		if m.IsMissing() {
			continue
		}
		r := s.host.resolver(c, m.Attributes())
		t := runTask(ctx, r, &job.Collect.Task)
		if t.IsEmpty() {
			continue
		}
		setMetrics(s.host, c, m, job.Collect.Mapping.Metrics, t.Row(0), s.time, false)
	}
}

// Simple discovers and collects in one pass, on every collect cycle
type Simple struct {
	scope *Scope
	host  *Host
	time  time.Time
}

// NewSimple creates the simple strategy at t
func NewSimple(scope *Scope, t time.Time) *Simple {
	return &Simple{scope: scope, host: scope.Host(), time: t}
}

func (*Simple) Name() string { return NameSimple }

func (s *Simple) Run(ctx context.Context) error {
	return forEachJob(ctx, s.host,
		func(job *connector.MonitorJob) bool { return job.Simple != nil && job.Simple.Mapping != nil },
		func(ctx context.Context, c *connector.Connector, job *connector.MonitorJob) error {
			t := runTask(ctx, s.scope.resolver(c), job.Simple)
			discoverRows(s.host, c, job.Type, job.Simple.Mapping, t.Rows(), s.time, false)
			return nil
		})
}
