package services

import (
	"context"
	"time"

	"github.com/chachabrian/carbid-backend/internal/apperrors"
	"github.com/chachabrian/carbid-backend/internal/models"
	"github.com/chachabrian/carbid-backend/internal/observability"
	"github.com/chachabrian/carbid-backend/internal/store"
	"github.com/sirupsen/logrus"
)

// BookingService owns bid conversion and the trip lifecycle of the
// resulting bookings.
type BookingService struct {
	bookings store.BookingStore
	cache    BidCache
	waker    Waker
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewBookingService(bookings store.BookingStore, log logrus.FieldLogger) *BookingService {
	return &BookingService{
		bookings: bookings,
		log:      log,
		now:      time.Now,
	}
}

func (s *BookingService) WithCache(cache BidCache) *BookingService {
	s.cache = cache
	return s
}

func (s *BookingService) WithWaker(w Waker) *BookingService {
	s.waker = w
	return s
}

// ConvertBid turns the seller's pending or accepted bid into a booking.
// Notifications are delivered from the outbox after commit.
func (s *BookingService) ConvertBid(ctx context.Context, sellerID, bidID string) (*models.Booking, error) {
	if err := requireUUID("bid id", bidID); err != nil {
		return nil, err
	}

	booking, err := s.bookings.ConvertBid(ctx, bidID, sellerID, s.now())
	if err != nil {
		observability.Conversions.WithLabelValues(conversionOutcome(err)).Inc()
		if apperrors.KindOf(err) == apperrors.TransactionFailed {
			s.log.WithError(err).WithField("bidId", bidID).Error("bid conversion rolled back")
		}
		return nil, err
	}
	observability.Conversions.WithLabelValues("converted").Inc()

	if s.cache != nil {
		if err := s.cache.InvalidateHighestBid(ctx, booking.VehicleID); err != nil {
			s.log.WithError(err).Warn("failed to invalidate highest bid cache")
		}
	}
	s.wake()
	s.log.WithFields(logrus.Fields{"bidId": bidID, "bookingId": booking.ID}).Info("bid converted to booking")
	return booking, nil
}

func conversionOutcome(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.AlreadyConverted:
		return "already_converted"
	case apperrors.TransactionFailed:
		return "rolled_back"
	default:
		return "rejected"
	}
}

// Get returns a booking to its renter or seller.
func (s *BookingService) Get(ctx context.Context, actorID, bookingID string) (*models.Booking, error) {
	if err := requireUUID("booking id", bookingID); err != nil {
		return nil, err
	}
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsParty(actorID) {
		return nil, apperrors.New(apperrors.Forbidden, "not authorized to view this booking")
	}
	return b, nil
}

func (s *BookingService) ListForSeller(ctx context.Context, sellerID string) ([]models.Booking, error) {
	return s.bookings.ListBySeller(ctx, sellerID)
}

func (s *BookingService) ListForRenter(ctx context.Context, renterID string) ([]models.Booking, error) {
	return s.bookings.ListByRenter(ctx, renterID)
}

func (s *BookingService) wake() {
	if s.waker != nil {
		s.waker.Wake()
	}
}
