package exam

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ExpiryWorker periodically finishes sessions whose countdown ran out, so the
// result is recorded even when the client never comes back.
type ExpiryWorker struct {
	svc      *Service
	logger   zerolog.Logger
	interval time.Duration
	batch    int
}

func NewExpiryWorker(svc *Service, interval time.Duration, batch int, logger zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &ExpiryWorker{
		svc:      svc,
		logger:   logger.With().Str("component", "exam_expiry_worker").Logger(),
		interval: interval,
		batch:    batch,
	}
}

// Run blocks until context cancellation.
func (w *ExpiryWorker) Run(ctx context.Context) error {
	if w.svc == nil {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// run immediately
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ExpiryWorker) tick(ctx context.Context) {
	finished, err := w.svc.ExpireDue(ctx, w.batch)
	if err != nil {
		w.logger.Warn().Err(err).Msg("expiry scan failed")
		return
	}
	if finished > 0 {
		w.logger.Info().Int("finished", finished).Msg("expired exams finished")
	}
}
