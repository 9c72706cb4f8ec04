package store

import (
	"context"
	"time"

	"github.com/chachabrian/carbid-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxRetryBase = 10 * time.Second
	outboxRetryMax  = 10 * time.Minute

	// OutboxClaimLease is how long a claimed event is hidden from other
	// workers. A worker that dies mid-batch releases its events when the
	// lease runs out.
	OutboxClaimLease = 5 * time.Minute
)

// OutboxRetryDelay is the backoff before the next delivery attempt after
// the given number of failures.
func OutboxRetryDelay(failures int) time.Duration {
	if failures < 1 {
		return 0
	}
	d := outboxRetryBase
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= outboxRetryMax {
			return outboxRetryMax
		}
	}
	return d
}

// RecordOutboxAttempt applies the outcome of one delivery attempt to ev.
func RecordOutboxAttempt(ev *models.OutboxEvent, delivered []string, herr error, maxAttempts int, now time.Time) {
	ev.Attempts++
	ev.MarkDelivered(delivered...)
	if herr != nil {
		ev.LastError = herr.Error()
		ev.NextAttempt = now.Add(OutboxRetryDelay(ev.Attempts))
		if ev.Attempts >= maxAttempts {
			ev.Status = models.OutboxStatusFailed
		}
		return
	}
	ev.Status = models.OutboxStatusSent
	ev.ProcessedAt = &now
}

type PostgresOutboxStore struct {
	db *gorm.DB
}

func NewOutboxStore(db *gorm.DB) *PostgresOutboxStore {
	return &PostgresOutboxStore{db: db}
}

// ProcessPending claims a batch with SKIP LOCKED and pushes its next_attempt
// out by the lease, then delivers outside the transaction so no row lock or
// connection is held while providers are called.
func (s *PostgresOutboxStore) ProcessPending(ctx context.Context, limit, maxAttempts int, handle OutboxHandler) (int, error) {
	events, err := s.claim(ctx, limit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range events {
		ev := &events[i]
		delivered, herr := handle(ctx, *ev)
		RecordOutboxAttempt(ev, delivered, herr, maxAttempts, time.Now())
		err := s.db.WithContext(ctx).Model(ev).
			Select("status", "attempts", "last_error", "next_attempt", "delivered", "processed_at").
			Updates(ev).Error
		if err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

func (s *PostgresOutboxStore) claim(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	var events []models.OutboxEvent
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		now := time.Now()
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_attempt <= ?", models.OutboxStatusPending, now).
			Order("id ASC").
			Limit(limit).
			Find(&events).Error
		if err != nil || len(events) == 0 {
			return err
		}

		ids := make([]uint, len(events))
		for i, ev := range events {
			ids[i] = ev.ID
		}
		return tx.Model(&models.OutboxEvent{}).Where("id IN ?", ids).
			Update("next_attempt", now.Add(OutboxClaimLease)).Error
	})
	return events, err
}

func (s *PostgresOutboxStore) Pending(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("status = ?", models.OutboxStatusPending).
		Count(&n).Error
	return n, err
}
