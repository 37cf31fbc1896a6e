package strategy

import (
	"context"
	"time"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/instrument"
	"github.com/sentrysoftware/metricshub-sub023/internal/logger"
)

const DefaultTimeout = 5 * time.Minute

// Runner runs strategies in order under one deadline
type Runner struct {
	timeout  time.Duration
	recorder *instrument.Recorder
	log      logger.Logger
}

// NewRunner creates a runner. A non-positive timeout selects DefaultTimeout.
func NewRunner(timeout time.Duration, recorder *instrument.Recorder, log logger.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Runner{timeout: timeout, recorder: recorder, log: log}
}

// Run runs strategies one after the other. When the deadline passes the
// running strategy is abandoned, the remaining ones are skipped and a
// timeout error is returned. Updates already applied stay in place.
func (r *Runner) Run(ctx context.Context, strategies ...Strategy) error {
	errFactory := errors.New()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	for _, s := range strategies {
		start := time.Now()
		done := make(chan error, 1)
		go func(s Strategy) {
			done <- s.Run(ctx)
		}(s)

		var err error
		select {
		case err = <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		r.recorder.StrategyDone(s.Name(), time.Since(start))

		switch {
		case ctx.Err() == context.DeadlineExceeded:
			r.recorder.CycleTimedOut()
			timeoutErr := errFactory.WithData(ErrTimeout, struct {
				Strategy string
				Timeout  string
			}{
				Strategy: s.Name(),
				Timeout:  r.timeout.String(),
			})
			r.log.ErrorWithCode(timeoutErr).Msg("Cycle abandoned")
			return timeoutErr
		case ctx.Err() != nil:
			return errFactory.Wrap(ErrCancelled, ctx.Err())
		case err != nil:
			return errFactory.Wrap(ErrStrategyFailed, err).WithMessage(s.Name())
		}

		r.log.Debug().
			Str("strategy", s.Name()).
			Dur("elapsed", time.Since(start)).
			Msg("Strategy done")
	}

	return nil
}
