package store

import (
	"context"
	"errors"
	"time"

	"github.com/chachabrian/carbid-backend/internal/apperrors"
	"github.com/chachabrian/carbid-backend/internal/models"
	"github.com/chachabrian/carbid-backend/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresBookingStore struct {
	db *gorm.DB
}

func NewBookingStore(db *gorm.DB) *PostgresBookingStore {
	return &PostgresBookingStore{db: db}
}

func (s *PostgresBookingStore) Get(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, readError("get booking", notFoundOr(err, "booking not found"))
	}
	return &b, nil
}

func (s *PostgresBookingStore) ListBySeller(ctx context.Context, sellerID string) ([]models.Booking, error) {
	var out []models.Booking
	err := s.db.WithContext(ctx).Where("seller_id = ?", sellerID).Order("booking_start_date DESC").Find(&out).Error
	if err != nil {
		return nil, readError("list seller bookings", err)
	}
	return out, nil
}

func (s *PostgresBookingStore) ListByRenter(ctx context.Context, renterID string) ([]models.Booking, error) {
	var out []models.Booking
	err := s.db.WithContext(ctx).Where("renter_id = ?", renterID).Order("booking_start_date DESC").Find(&out).Error
	if err != nil {
		return nil, readError("list renter bookings", err)
	}
	return out, nil
}

// ConvertBid locks the bid row for the whole transaction, so concurrent
// attempts on the same bid serialize and only the first one inserts a
// booking. The unique index on bookings.bid_id backs this up.
func (s *PostgresBookingStore) ConvertBid(ctx context.Context, bidID, sellerID string, now time.Time) (*models.Booking, error) {
	var booking models.Booking
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		var bid models.Bid
		if err := forUpdate(tx).First(&bid, "id = ?", bidID).Error; err != nil {
			return notFoundOr(err, "bid not found")
		}
		if err := bid.CheckConvertible(sellerID); err != nil {
			return err
		}

		// Converting a pending bid accepts it implicitly.
		if bid.Status == models.BidStatusPending {
			bid.Status = models.BidStatusAccepted
			bid.RespondedAt = &now
		}

		booking = models.NewBookingFromBid(&bid, uuid.NewString())
		if err := tx.Create(&booking).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.New(apperrors.AlreadyConverted, "bid has already been converted to a booking")
			}
			return err
		}

		bid.Status = models.BidStatusConverted
		bid.ConvertedAt = &now
		bid.BookingID = &booking.ID
		if err := tx.Save(&bid).Error; err != nil {
			return err
		}
		return writeOutbox(tx, models.EventBookingCreated, booking.ID, booking)
	})
	if err != nil {
		return nil, txError("bid conversion", err)
	}
	return &booking, nil
}

func (s *PostgresBookingStore) Confirm(ctx context.Context, id, actorID string, now time.Time) (*models.Booking, error) {
	return s.transition(ctx, id, actorID, models.BookingStatusConfirmed, func(b *models.Booking) error {
		b.ConfirmedAt = &now
		return nil
	})
}

func (s *PostgresBookingStore) StartTrip(ctx context.Context, id, actorID string, initialOdometer float64, now time.Time) (*models.Booking, error) {
	return s.transition(ctx, id, actorID, models.BookingStatusInProgress, func(b *models.Booking) error {
		return ApplyTripStart(b, initialOdometer, now)
	})
}

func (s *PostgresBookingStore) CompleteTrip(ctx context.Context, id, actorID string, finalOdometer float64, now time.Time) (*models.Booking, error) {
	return s.transition(ctx, id, actorID, models.BookingStatusCompleted, func(b *models.Booking) error {
		return ApplyTripCompletion(b, finalOdometer, now)
	})
}

func (s *PostgresBookingStore) Cancel(ctx context.Context, id, actorID, reason string, now time.Time) (*models.Booking, error) {
	return s.transition(ctx, id, actorID, models.BookingStatusCancelled, func(b *models.Booking) error {
		b.CancelledAt = &now
		b.CancelledBy = actorID
		b.CancellationReason = reason
		return nil
	})
}

// ApplyTripStart records the opening odometer reading. It never overwrites
// an existing reading.
func ApplyTripStart(b *models.Booking, initialOdometer float64, now time.Time) error {
	if initialOdometer < 0 {
		return apperrors.New(apperrors.InvalidArgument, "initial odometer reading must be non-negative")
	}
	if b.InitialOdometerReading != nil {
		return apperrors.New(apperrors.InvalidStateTransition, "initial odometer reading already recorded")
	}
	reading := initialOdometer
	b.InitialOdometerReading = &reading
	b.TripStartedAt = &now
	return nil
}

// ApplyTripCompletion records the closing reading and settles the fare.
func ApplyTripCompletion(b *models.Booking, finalOdometer float64, now time.Time) error {
	if b.InitialOdometerReading == nil {
		return apperrors.New(apperrors.InvalidStateTransition, "trip has no initial odometer reading")
	}
	if finalOdometer < *b.InitialOdometerReading {
		return apperrors.New(apperrors.InvalidArgument, "final odometer reading cannot be less than the initial reading")
	}

	fare := utils.CalculateTripFare(b.PricePerDay, b.BookingStartDate, b.BookingEndDate, *b.InitialOdometerReading, finalOdometer)

	reading := finalOdometer
	b.FinalOdometerReading = &reading
	b.TotalKm = fare.TotalKm
	b.ExtraCharges = fare.Breakdown.ExtraCharges
	b.TotalPrice = fare.TotalFare
	b.TripEndedAt = &now
	b.CompletedAt = &now
	return nil
}

func (s *PostgresBookingStore) transition(ctx context.Context, id, actorID string, target models.BookingStatus, apply func(*models.Booking) error) (*models.Booking, error) {
	var out models.Booking
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		var b models.Booking
		if err := forUpdate(tx).First(&b, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "booking not found")
		}
		if err := b.CheckTransition(actorID, target); err != nil {
			return err
		}
		from := b.Status
		if err := apply(&b); err != nil {
			return err
		}
		b.Status = target
		if err := tx.Save(&b).Error; err != nil {
			return err
		}
		out = b
		return writeOutbox(tx, models.EventBookingStatusChanged, b.ID, models.BookingStatusChange{
			Booking: b,
			From:    from,
			To:      target,
			ActorID: actorID,
		})
	})
	if err != nil {
		return nil, txError("update booking", err)
	}
	return &out, nil
}
