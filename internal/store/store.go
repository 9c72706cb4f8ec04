// Package store persists bids, bookings and outbox events in Postgres.
//
// Each store exposes only the operations the lifecycle allows. Every mutation
// locks the target row, re-checks the transition table and records an outbox
// event in the same transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chachabrian/carbid-backend/internal/apperrors"
	"github.com/chachabrian/carbid-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BidStore interface {
	// Save inserts bid unless one with the same submission id exists.
	// created is false for a redelivered submission.
	Save(ctx context.Context, bid *models.Bid) (created bool, err error)
	Get(ctx context.Context, id string) (*models.Bid, error)
	ListByVehicle(ctx context.Context, vehicleID string) ([]models.Bid, error)
	ListBySeller(ctx context.Context, sellerID string, status models.BidStatus) ([]models.Bid, error)
	ListByBidder(ctx context.Context, bidderID string) ([]models.Bid, error)
	// Highest returns the largest live bid on a vehicle, or nil when there is none.
	Highest(ctx context.Context, vehicleID string) (*models.Bid, error)
	Respond(ctx context.Context, id, sellerID string, decision models.BidStatus, message string, now time.Time) (*models.Bid, error)
	Cancel(ctx context.Context, id, bidderID string, now time.Time) (*models.Bid, error)
}

type BookingStore interface {
	Get(ctx context.Context, id string) (*models.Booking, error)
	ListBySeller(ctx context.Context, sellerID string) ([]models.Booking, error)
	ListByRenter(ctx context.Context, renterID string) ([]models.Booking, error)
	// ConvertBid atomically turns a pending or accepted bid into a booking.
	ConvertBid(ctx context.Context, bidID, sellerID string, now time.Time) (*models.Booking, error)
	Confirm(ctx context.Context, id, actorID string, now time.Time) (*models.Booking, error)
	StartTrip(ctx context.Context, id, actorID string, initialOdometer float64, now time.Time) (*models.Booking, error)
	CompleteTrip(ctx context.Context, id, actorID string, finalOdometer float64, now time.Time) (*models.Booking, error)
	Cancel(ctx context.Context, id, actorID, reason string, now time.Time) (*models.Booking, error)
}

// OutboxHandler delivers one event and returns the delivery keys it
// completed. A returned error counts as a failed attempt; the keys are kept
// either way.
type OutboxHandler func(ctx context.Context, ev models.OutboxEvent) ([]string, error)

type OutboxStore interface {
	// ProcessPending hands up to limit pending events to handle, oldest first,
	// and records the outcome. Events that fail maxAttempts times are parked
	// as failed.
	ProcessPending(ctx context.Context, limit, maxAttempts int, handle OutboxHandler) (int, error)
	// Pending counts events still waiting for delivery.
	Pending(ctx context.Context) (int64, error)
}

// runInTx runs fn in a transaction, rolling back on error or panic.
func runInTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.New(apperrors.NotFound, msg)
	}
	return err
}

// txError passes domain errors through and reports everything else as a
// retryable transaction failure.
func txError(op string, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(apperrors.TransactionFailed, op+" failed, please retry", err)
}

func readError(op string, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(apperrors.Internal, "", fmt.Errorf("%s: %w", op, err))
}

func writeOutbox(tx *gorm.DB, eventType, aggregateID string, payload interface{}) error {
	ev, err := models.NewOutboxEvent(eventType, aggregateID, payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return tx.Create(ev).Error
}
