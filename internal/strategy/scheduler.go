package strategy

import (
	"context"
	"time"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/instrument"
	"github.com/sentrysoftware/metricshub-sub023/internal/logger"
	"github.com/sentrysoftware/metricshub-sub023/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval       = 2 * time.Minute
	DefaultDiscoveryCycle = 30
)

// SnapshotRecorder receives the host snapshot after every collect cycle
type SnapshotRecorder interface {
	Record(ctx context.Context, snapshot telemetry.Snapshot) error
}

// Scheduler runs the cycles of every host, one goroutine per host
type Scheduler struct {
	hosts          []*Host
	runner         *Runner
	interval       time.Duration
	discoveryCycle int
	sink           SnapshotRecorder
	recorder       *instrument.Recorder
	now            func() time.Time
	log            logger.Logger
}

// SchedulerOption configures a Scheduler
type SchedulerOption func(*Scheduler)

// WithInterval sets the collect period
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.interval = d }
}

// WithDiscoveryCycle sets the number of collects between two discoveries
func WithDiscoveryCycle(n int) SchedulerOption {
	return func(s *Scheduler) { s.discoveryCycle = n }
}

// WithSnapshotRecorder registers the snapshot sink
func WithSnapshotRecorder(sink SnapshotRecorder) SchedulerOption {
	return func(s *Scheduler) { s.sink = sink }
}

// WithRecorder publishes monitor counts to the self-metrics
func WithRecorder(r *instrument.Recorder) SchedulerOption {
	return func(s *Scheduler) { s.recorder = r }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler creates a scheduler over hosts
func NewScheduler(hosts []*Host, runner *Runner, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		hosts:          hosts,
		runner:         runner,
		interval:       DefaultInterval,
		discoveryCycle: DefaultDiscoveryCycle,
		now:            time.Now,
		log:            logger.New("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.discoveryCycle <= 0 {
		s.discoveryCycle = 1
	}

	return s
}

// Run runs cycles until ctx is cancelled. The first cycle of every host
// starts with a discovery.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, h := range s.hosts {
		h := h
		g.Go(func() error {
			s.loop(ctx, h)
			return nil
		})
	}

	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, h *Host) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for n := 0; ; n++ {
		discover := n%s.discoveryCycle == 0
		if err := s.Cycle(ctx, h, discover); err != nil && ctx.Err() == nil {
			if coded, ok := err.(errors.Error); ok && coded.Code() != ErrTimeout {
				h.logger().WarnWithCode(coded).Msg("Cycle failed")
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Cycle runs one cycle of a host: discovery and missing detection when
// discover is set, then PrepareCollect, Collect and Simple, then the
// snapshot is recorded
func (s *Scheduler) Cycle(ctx context.Context, h *Host, discover bool) error {
	defer s.publishCounts()

	if discover {
		t := s.now()
		if err := s.runner.Run(ctx, NewDiscovery(NewScope(h), t), NewPostDiscovery(h, t)); err != nil {
			return err
		}
	}

	// Collect and Simple share one scope so a source resolves once per cycle
	t := s.now()
	scope := NewScope(h)
	if err := s.runner.Run(ctx, NewPrepareCollect(h, t), NewCollect(scope, t), NewSimple(scope, t)); err != nil {
		return err
	}

	if s.sink != nil {
		if err := s.sink.Record(ctx, h.Store.Snapshot(t)); err != nil {
			return errors.New().Wrap(ErrSnapshot, err)
		}
	}

	present, missing := h.Store.Counts()
	h.logger().Info().
		Bool("discovery", discover).
		Int("present", present).
		Int("missing", missing).
		Msg("Cycle completed")

	return nil
}

func (s *Scheduler) publishCounts() {
	if s.recorder == nil {
		return
	}

	var present, missing int
	for _, h := range s.hosts {
		p, m := h.Store.Counts()
		present += p
		missing += m
	}
	s.recorder.SetMonitors(present, missing)
}
