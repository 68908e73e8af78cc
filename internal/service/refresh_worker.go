package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RefreshWorker loads the dataset on startup and, when an interval is set,
// reloads it on a schedule
type RefreshWorker struct {
	dashboardService *DashboardService
	logger           zerolog.Logger
	interval         time.Duration
	stopCh           chan struct{}
	doneCh           chan struct{}
	mu               sync.Mutex
	running          bool
}

// NewRefreshWorker creates a new refresh worker. A zero interval means the
// worker loads once and then waits for Stop.
func NewRefreshWorker(dashboardService *DashboardService, logger zerolog.Logger, interval time.Duration) *RefreshWorker {
	if interval < 0 {
		interval = 0
	}

	return &RefreshWorker{
		dashboardService: dashboardService,
		logger:           logger.With().Str("component", "refresh_worker").Logger(),
		interval:         interval,
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
}

// Start begins the background refresh loop
func (w *RefreshWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().Dur("interval", w.interval).Msg("Starting refresh worker")

	go w.run(ctx)
}

// Stop stops the worker and waits for an in-flight refresh to finish
func (w *RefreshWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.logger.Info().Msg("Refresh worker stopped")
}

func (w *RefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	w.refresh(ctx)

	// nil channel: never fires
	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-tick:
			w.refresh(ctx)
		}
	}
}

func (w *RefreshWorker) refresh(ctx context.Context) {
	start := time.Now()
	snap, err := w.dashboardService.Refresh(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("Dataset refresh failed")
		return
	}
	w.logger.Debug().
		Int("records", len(snap.Records)).
		Dur("elapsed", time.Since(start)).
		Msg("Dataset refresh completed")
}

// IsRunning returns whether the worker is currently running
func (w *RefreshWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
