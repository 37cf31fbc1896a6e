package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sentrysoftware/metricshub-sub023/internal/config"
	"github.com/sentrysoftware/metricshub-sub023/internal/connector"
	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/instrument"
	"github.com/sentrysoftware/metricshub-sub023/internal/logger"
	"github.com/sentrysoftware/metricshub-sub023/internal/protocol/oscommand"
	"github.com/sentrysoftware/metricshub-sub023/internal/source"
	"github.com/sentrysoftware/metricshub-sub023/internal/strategy"
	"github.com/sentrysoftware/metricshub-sub023/internal/telemetry"
)

// agent holds everything a run or a one-shot collect needs
type agent struct {
	cfg       *config.Config
	registry  *prometheus.Registry
	recorder  *instrument.Recorder
	telemetry *telemetry.Registry
	hosts     []*strategy.Host
	runner    *strategy.Runner
	log       logger.Logger
}

func newAgent(cfg *config.Config) (*agent, error) {
	errFactory := errors.New()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := instrument.New(registry)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	connectors, err := connector.LoadFiles(cfg.Connectors...)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrLoadModel, err)
	}

	clients := source.Clients{
		source.ProtocolOS: oscommand.New(oscommand.WithLogger(logger.New("oscommand"))),
	}

	a := &agent{
		cfg:       cfg,
		registry:  registry,
		recorder:  recorder,
		telemetry: telemetry.NewRegistry(),
		runner:    strategy.NewRunner(cfg.JobTimeoutDuration(), recorder, logger.New("runner")),
		log:       logger.New("agent"),
	}

	for _, hc := range cfg.Hosts {
		selected, err := connectors.Select(hc.Connectors)
		if err != nil {
			return nil, errFactory.Wrap(errors.ErrInitApp, err)
		}

		h := strategy.NewHost(
			source.Host{Hostname: hc.Hostname, Type: hc.Type, Attributes: hc.Attributes},
			selected,
			a.telemetry.Host(hc.Hostname),
			clients,
		)
		h.Recorder = recorder
		h.MaxParallel = cfg.MaxParallelJobs
		a.hosts = append(a.hosts, h)

		a.log.Info().
			Str("host", hc.Hostname).
			Int("connectors", len(selected)).
			Msg("Host configured")
	}

	return a, nil
}

func (a *agent) scheduler(opts ...strategy.SchedulerOption) *strategy.Scheduler {
	opts = append([]strategy.SchedulerOption{
		strategy.WithInterval(a.cfg.IntervalDuration()),
		strategy.WithDiscoveryCycle(a.cfg.DiscoveryCycle),
		strategy.WithRecorder(a.recorder),
	}, opts...)

	return strategy.NewScheduler(a.hosts, a.runner, opts...)
}
