package question

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// WarmWorker loads license pools into the cache after a user picks a license,
// so the first exam draw does not wait on the database.
type WarmWorker struct {
	service   *Service
	queue     chan string
	logger    zerolog.Logger
	timeout   time.Duration
	shutdownC chan struct{}
	doneC     chan struct{}
}

func NewWarmWorker(service *Service, logger zerolog.Logger, timeout time.Duration) *WarmWorker {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &WarmWorker{
		service:   service,
		queue:     make(chan string, 32),
		logger:    logger,
		timeout:   timeout,
		shutdownC: make(chan struct{}),
		doneC:     make(chan struct{}),
	}
}

// Enqueue schedules license for warming. Requests are dropped when the queue is full.
func (w *WarmWorker) Enqueue(license string) {
	select {
	case w.queue <- license:
	default:
		w.logger.Debug().Str("license", license).Msg("warm queue full, dropping")
	}
}

func (w *WarmWorker) Run() {
	defer close(w.doneC)
	for {
		select {
		case <-w.shutdownC:
			w.logger.Info().Msg("question warmer stopping")
			return
		case license := <-w.queue:
			w.handle(license)
		}
	}
}

func (w *WarmWorker) handle(license string) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.service.Warm(ctx, license); err != nil {
		w.logger.Warn().Err(err).Str("license", license).Msg("warm failed")
	}
}

// Stop ends Run and waits for the in-flight request.
func (w *WarmWorker) Stop() {
	close(w.shutdownC)
	<-w.doneC
}
