package services

import (
	"context"

	"github.com/chachabrian/carbid-backend/internal/apperrors"
	"github.com/chachabrian/carbid-backend/internal/models"
	"github.com/chachabrian/carbid-backend/internal/observability"
	"github.com/sirupsen/logrus"
)

// StatusUpdateRequest drives a booking to Status. Odometer readings are
// required when starting or completing a trip.
type StatusUpdateRequest struct {
	Status          string   `json:"status"`
	InitialOdometer *float64 `json:"initialOdometer"`
	FinalOdometer   *float64 `json:"finalOdometer"`
	ExtraCharges    *float64 `json:"extraCharges"`
	Reason          string   `json:"reason"`
}

func (s *BookingService) UpdateStatus(ctx context.Context, actorID, bookingID string, req StatusUpdateRequest) (*models.Booking, error) {
	target, err := models.ParseBookingStatus(req.Status)
	if err != nil {
		return nil, apperrors.New(apperrors.InvalidArgument, err.Error())
	}
	if req.ExtraCharges != nil {
		// Extra charges are always derived from the odometer readings.
		s.log.WithField("bookingId", bookingID).Debug("ignoring client supplied extra charges")
	}

	switch target {
	case models.BookingStatusConfirmed:
		return s.Confirm(ctx, actorID, bookingID)
	case models.BookingStatusInProgress:
		if req.InitialOdometer == nil {
			return nil, apperrors.New(apperrors.InvalidArgument, "initialOdometer is required to start a trip")
		}
		return s.StartTrip(ctx, actorID, bookingID, *req.InitialOdometer)
	case models.BookingStatusCompleted:
		if req.FinalOdometer == nil {
			return nil, apperrors.New(apperrors.InvalidArgument, "finalOdometer is required to complete a trip")
		}
		return s.CompleteTrip(ctx, actorID, bookingID, *req.FinalOdometer)
	case models.BookingStatusCancelled:
		return s.Cancel(ctx, actorID, bookingID, req.Reason)
	default:
		return nil, apperrors.New(apperrors.InvalidStateTransition, "bookings cannot be moved back to "+string(target))
	}
}

func (s *BookingService) Confirm(ctx context.Context, actorID, bookingID string) (*models.Booking, error) {
	if err := requireUUID("booking id", bookingID); err != nil {
		return nil, err
	}
	b, err := s.bookings.Confirm(ctx, bookingID, actorID, s.now())
	return s.afterTransition(b, err)
}

func (s *BookingService) StartTrip(ctx context.Context, actorID, bookingID string, initialOdometer float64) (*models.Booking, error) {
	if err := requireUUID("booking id", bookingID); err != nil {
		return nil, err
	}
	if initialOdometer < 0 {
		return nil, apperrors.New(apperrors.InvalidArgument, "initial odometer reading must be non-negative")
	}
	b, err := s.bookings.StartTrip(ctx, bookingID, actorID, initialOdometer, s.now())
	return s.afterTransition(b, err)
}

func (s *BookingService) CompleteTrip(ctx context.Context, actorID, bookingID string, finalOdometer float64) (*models.Booking, error) {
	if err := requireUUID("booking id", bookingID); err != nil {
		return nil, err
	}
	if finalOdometer < 0 {
		return nil, apperrors.New(apperrors.InvalidArgument, "final odometer reading must be non-negative")
	}
	b, err := s.bookings.CompleteTrip(ctx, bookingID, actorID, finalOdometer, s.now())
	return s.afterTransition(b, err)
}

// Cancel does not touch the vehicle's availability; that is derived from the
// booking calendar.
func (s *BookingService) Cancel(ctx context.Context, actorID, bookingID, reason string) (*models.Booking, error) {
	if err := requireUUID("booking id", bookingID); err != nil {
		return nil, err
	}
	b, err := s.bookings.Cancel(ctx, bookingID, actorID, reason, s.now())
	return s.afterTransition(b, err)
}

func (s *BookingService) afterTransition(b *models.Booking, err error) (*models.Booking, error) {
	if err != nil {
		return nil, err
	}
	observability.BookingTransitions.WithLabelValues(string(b.Status)).Inc()
	s.wake()
	s.log.WithFields(logrus.Fields{
		"bookingId":  b.ID,
		"status":     b.Status,
		"totalPrice": b.TotalPrice,
	}).Info("booking updated")
	return b, nil
}
