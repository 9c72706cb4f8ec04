package services

import (
	"context"
	"time"

	"github.com/chachabrian/carbid-backend/internal/models"
	"github.com/chachabrian/carbid-backend/internal/observability"
	"github.com/chachabrian/carbid-backend/internal/store"
	"github.com/sirupsen/logrus"
)

type EventDispatcher interface {
	Dispatch(ctx context.Context, ev models.OutboxEvent) ([]string, error)
}

// OutboxWorker delivers committed outbox events. Delivery failures never
// reach the request that caused the event.
type OutboxWorker struct {
	outbox      store.OutboxStore
	dispatcher  EventDispatcher
	log         logrus.FieldLogger
	interval    time.Duration
	batchSize   int
	maxAttempts int
	wake        chan struct{}
}

func NewOutboxWorker(outbox store.OutboxStore, dispatcher EventDispatcher, log logrus.FieldLogger, interval time.Duration, batchSize, maxAttempts int) *OutboxWorker {
	return &OutboxWorker{
		outbox:      outbox,
		dispatcher:  dispatcher,
		log:         log,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		wake:        make(chan struct{}, 1),
	}
}

// Wake requests an early drain. It never blocks.
func (w *OutboxWorker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *OutboxWorker) Run(ctx context.Context) {
	w.log.WithField("interval", w.interval).Info("outbox worker started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("outbox worker stopped")
			return
		case <-ticker.C:
		case <-w.wake:
		}
		w.Drain(ctx)
	}
}

// Drain processes batches until the outbox has no due events left or ctx
// is done, then refreshes the backlog gauge.
func (w *OutboxWorker) Drain(ctx context.Context) {
	defer w.reportBacklog(ctx)
	for ctx.Err() == nil {
		n, err := w.outbox.ProcessPending(ctx, w.batchSize, w.maxAttempts, w.handle)
		if err != nil {
			if ctx.Err() == nil {
				w.log.WithError(err).Warn("outbox batch failed")
			}
			return
		}
		if n < w.batchSize {
			return
		}
	}
}

func (w *OutboxWorker) reportBacklog(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := w.outbox.Pending(ctx)
	if err != nil {
		w.log.WithError(err).Debug("outbox backlog count failed")
		return
	}
	observability.OutboxBacklog.Set(float64(n))
}

func (w *OutboxWorker) handle(ctx context.Context, ev models.OutboxEvent) ([]string, error) {
	delivered, err := w.dispatcher.Dispatch(ctx, ev)
	if err != nil {
		fields := logrus.Fields{"eventId": ev.ID, "event": ev.EventType, "attempt": ev.Attempts + 1}
		if ev.Attempts+1 >= w.maxAttempts {
			w.log.WithError(err).WithFields(fields).Error("giving up on outbox event")
		} else {
			w.log.WithError(err).WithFields(fields).Warn("outbox event delivery failed, will retry")
		}
	}
	return delivered, err
}
