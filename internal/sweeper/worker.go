// Package sweeper expires unredeemed vouchers on a fixed interval. With a
// lease configured only the replica holding it sweeps on a given tick.
package sweeper

//go:generate mockgen -source=worker.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper cancels every pending voucher whose date is before now.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Lease guards a tick across replicas.
type Lease interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

type Worker struct {
	sweeper  Sweeper
	lease    Lease
	interval time.Duration
	leaseTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

// WithLease makes the worker skip ticks another replica already claimed.
func WithLease(lease Lease, ttl time.Duration) Option {
	return func(w *Worker) {
		w.lease = lease
		w.leaseTTL = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

func New(sweeper Sweeper, interval time.Duration, opts ...Option) *Worker {
	w := &Worker{
		sweeper:  sweeper,
		interval: interval,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.leaseTTL <= 0 {
		w.leaseTTL = interval
	}
	return w
}

// Run sweeps once per interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "sweeper started", "interval", w.interval)
	for {
		select {
		case <-ticker.C:
			if _, _, err := w.Tick(ctx); err != nil {
				w.logger.ErrorContext(ctx, "sweep tick failed", "error", err)
			}
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "sweeper stopped")
			return nil
		}
	}
}

// Tick runs one sweep if the lease allows it. ran is false when another
// replica holds the lease.
func (w *Worker) Tick(ctx context.Context) (ran bool, cancelled int, err error) {
	if w.lease != nil {
		acquired, err := w.lease.Acquire(ctx, w.leaseTTL)
		if err != nil {
			w.logger.WarnContext(ctx, "sweep lease unavailable, skipping tick", "error", err)
			return false, 0, nil
		}
		if !acquired {
			w.logger.DebugContext(ctx, "sweep lease held elsewhere")
			return false, 0, nil
		}
		defer func() {
			if err := w.lease.Release(context.WithoutCancel(ctx)); err != nil {
				w.logger.WarnContext(ctx, "failed to release sweep lease", "error", err)
			}
		}()
	}

	cancelled, err = w.sweeper.Sweep(ctx, w.now())
	return true, cancelled, err
}
