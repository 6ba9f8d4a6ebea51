package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RunOptions select single-shot or daemon mode.
type RunOptions struct {
	Daemon   bool
	Interval time.Duration
}

// Runner drives the fetch-and-publish pipeline for one gateway session.
type Runner struct {
	gateway   Gateway
	fetcher   Fetcher
	publisher *Publisher
	opts      RunOptions
	logger    *slog.Logger
}

func NewRunner(gw Gateway, fetcher Fetcher, publisher *Publisher, opts RunOptions, logger *slog.Logger) *Runner {
	return &Runner{
		gateway:   gw,
		fetcher:   fetcher,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}
}

// Run checks the gateway once and then runs one cycle, or cycles until ctx
// is cancelled in daemon mode. An unreachable gateway is logged and is not
// an error. The gateway session is closed on every return.
func (r *Runner) Run(ctx context.Context) error {
	defer func() {
		if err := r.gateway.Close(); err != nil {
			r.logger.Debug("gateway close", "error", err)
		}
	}()

	ok, err := r.gateway.CheckConnection(ctx)
	if !ok || err != nil {
		r.logger.Error("Couldn't connect to gateway!", "error", err)
		return nil
	}
	device := r.gateway.Device()
	r.logger.Info("connected to gateway", "device", device.Model, "uuid", device.UUID)

	for {
		if err := r.cycle(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				r.logger.Info("stopped", "reason", ctx.Err())
				return nil
			}
			return err
		}
		if !r.opts.Daemon {
			return nil
		}

		r.logger.Info("sleeping", "seconds", int(r.opts.Interval/time.Second))
		timer := time.NewTimer(r.opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("stopped", "reason", ctx.Err())
			return nil
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (r *Runner) cycle(ctx context.Context) error {
	logger := r.logger.With("cycle", uuid.NewString())
	start := time.Now()
	logger.Debug("cycle started")

	result, err := r.fetcher.Fetch(ctx, r.gateway)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if err := r.publisher.withLogger(logger).Publish(ctx, r.gateway.Device(), result); err != nil {
		return err
	}

	logger.Debug("cycle finished", "duration", time.Since(start))
	return nil
}
