// Package population keeps the event server's chat-id population in step
// with the store.
package population

import (
	"context"
	"time"

	"github.com/matheus3301/chatline/internal/logging"
	"go.uber.org/zap"
)

// Source lists the chats that exist.
type Source interface {
	ChatIDs(ctx context.Context) ([]string, error)
}

// Sink receives the refreshed population.
type Sink interface {
	UpdateChatIDs(ids []string)
}

// Refresher copies Source into Sink on start, on every tick and on Trigger.
type Refresher struct {
	src      Source
	sink     Sink
	interval time.Duration
	trigger  chan struct{}
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewRefresher creates a refresher. A non-positive interval disables the ticker.
func NewRefresher(src Source, sink Sink, interval time.Duration, logger *zap.Logger) *Refresher {
	return &Refresher{
		src:      src,
		sink:     sink,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		logger:   logging.OrNop(logger).Named("population"),
	}
}

// Start loads the population once and then refreshes in the background.
func (r *Refresher) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.refresh(ctx)
	go r.loop(ctx)
}

// Stop stops the loop and waits for it.
func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

// Trigger requests a refresh without waiting for the next tick.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
		// A refresh is already pending.
	}
}

// Refresh loads the population now.
func (r *Refresher) Refresh(ctx context.Context) error {
	ids, err := r.src.ChatIDs(ctx)
	if err != nil {
		return err
	}
	r.sink.UpdateChatIDs(ids)
	return nil
}

func (r *Refresher) loop(ctx context.Context) {
	defer close(r.done)

	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			r.refresh(ctx)
		case <-r.trigger:
			r.refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error("failed to refresh chat population", zap.Error(err))
	}
}
