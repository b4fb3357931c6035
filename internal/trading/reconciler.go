package trading

import (
	"context"
	"errors"
	"log"
	"time"
)

// Logger is a minimal logging interface used by the reconciler.
type Logger interface {
	Printf(format string, v ...any)
}

// ReconcilerOptions configure the stale-order sweep.
type ReconcilerOptions struct {
	Service  *Service
	Logger   Logger
	MaxAge   time.Duration
	Interval time.Duration
}

// Reconciler periodically fails PENDING orders that were never executed,
// e.g. after a crash between persistence and the venue call. Without it a
// stranded PENDING order would sit forever.
type Reconciler struct {
	opts    ReconcilerOptions
	closing chan struct{}
	closed  chan struct{}
	started bool
}

// NewReconciler creates a reconciler instance.
func NewReconciler(opts ReconcilerOptions) *Reconciler {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 10 * time.Minute
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	return &Reconciler{
		opts:    opts,
		closing: make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (r *Reconciler) Start(ctx context.Context) {
	if r.started {
		return
	}
	r.started = true
	go r.loop(ctx)
}

// Stop requests graceful shutdown and waits for the loop to exit.
func (r *Reconciler) Stop() {
	select {
	case <-r.closing:
	default:
		close(r.closing)
	}
	<-r.closed
}

func (r *Reconciler) loop(ctx context.Context) {
	r.log("stale-order reconciler started (max age %s)", r.opts.MaxAge)
	defer func() {
		close(r.closed)
		r.log("stale-order reconciler stopped")
	}()

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.closing:
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.opts.MaxAge)
	expired, err := r.opts.Service.ExpireStaleOrders(ctx, cutoff)
	if err != nil && !errors.Is(err, context.Canceled) {
		r.log("sweep error: %v", err)
	}
	if expired > 0 {
		r.log("expired %d stale pending orders", expired)
	}
}

func (r *Reconciler) log(format string, v ...any) {
	r.opts.Logger.Printf("[reconciler] "+format, v...)
}
