package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chachabrian/carbid-backend/internal/models"
	"github.com/chachabrian/carbid-backend/internal/observability"
	"github.com/sirupsen/logrus"
)

// ErrChannelSkipped is returned by a channel that has nothing to send for a
// notice, e.g. no phone number on record.
var ErrChannelSkipped = errors.New("channel skipped")

// Notice is one message to one user derived from an outbox event.
type Notice struct {
	Event       string
	AggregateID string
	Status      string
	UserID      string
	Email       string
	Phone       string
	Subject     string
	Lines       []string
	SMS         string
	Data        interface{}
}

type Channel interface {
	Name() string
	Deliver(ctx context.Context, n Notice) error
}

// Dispatcher turns outbox events into notices and fans them out to every
// channel. Delivery is at-least-once per user and channel: pairs recorded in
// the event's Delivered list are not sent again on retry.
type Dispatcher struct {
	channels []Channel
	log      logrus.FieldLogger
}

func NewDispatcher(log logrus.FieldLogger, channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels, log: log}
}

// Dispatch returns the delivery keys that succeeded on this attempt along
// with the joined errors of the ones that did not.
func (d *Dispatcher) Dispatch(ctx context.Context, ev models.OutboxEvent) ([]string, error) {
	notices, err := BuildNotices(ev)
	if err != nil {
		return nil, err
	}

	var (
		delivered []string
		errs      []error
	)
	for _, n := range notices {
		for _, ch := range d.channels {
			key := models.DeliveryKey(n.UserID, ch.Name())
			if ev.HasDelivered(key) {
				continue
			}
			err := ch.Deliver(ctx, n)
			switch {
			case errors.Is(err, ErrChannelSkipped):
				observability.NotificationsSent.WithLabelValues(ch.Name(), "skipped").Inc()
			case err != nil:
				observability.NotificationsSent.WithLabelValues(ch.Name(), "error").Inc()
				d.log.WithError(err).WithFields(logrus.Fields{
					"channel": ch.Name(),
					"event":   ev.EventType,
					"userId":  n.UserID,
				}).Warn("notification delivery failed")
				errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			default:
				observability.NotificationsSent.WithLabelValues(ch.Name(), "sent").Inc()
				delivered = append(delivered, key)
			}
		}
	}
	return delivered, errors.Join(errs...)
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func dateRange(b *models.Bid) string {
	return b.BookingStartDate.Format("02 Jan 2006") + " to " + b.BookingEndDate.Format("02 Jan 2006")
}

// BuildNotices maps an outbox event to the notices its parties should get.
func BuildNotices(ev models.OutboxEvent) ([]Notice, error) {
	switch ev.EventType {
	case models.EventBidCreated, models.EventBidResponded, models.EventBidCancelled:
		var bid models.Bid
		if err := json.Unmarshal([]byte(ev.Payload), &bid); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", ev.EventType, err)
		}
		return bidNotices(ev.EventType, &bid), nil

	case models.EventBookingCreated:
		var b models.Booking
		if err := json.Unmarshal([]byte(ev.Payload), &b); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", ev.EventType, err)
		}
		return bookingCreatedNotices(&b), nil

	case models.EventBookingStatusChanged:
		var change models.BookingStatusChange
		if err := json.Unmarshal([]byte(ev.Payload), &change); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", ev.EventType, err)
		}
		return bookingStatusNotices(&change), nil
	}
	return nil, fmt.Errorf("unknown event type %q", ev.EventType)
}

func bidNotices(event string, bid *models.Bid) []Notice {
	base := Notice{Event: event, AggregateID: bid.ID, Status: string(bid.Status), Data: bid}

	switch event {
	case models.EventBidCreated:
		n := base
		n.UserID, n.Email, n.Phone = bid.SellerID, bid.SellerEmail, bid.SellerPhone
		n.Subject = "New bid on " + bid.VehicleTitle
		n.Lines = []string{
			fmt.Sprintf("%s has offered %s per day for your %s, %s.", bid.BidderName, money(bid.BidAmount), bid.VehicleTitle, dateRange(bid)),
			"Log in to accept or reject this bid.",
		}
		if bid.BidMessage != "" {
			n.Lines = append(n.Lines, "Message from the bidder: "+bid.BidMessage)
		}
		n.SMS = fmt.Sprintf("CarBid: new bid of %s/day on %s from %s.", money(bid.BidAmount), bid.VehicleTitle, bid.BidderName)
		return []Notice{n}

	case models.EventBidResponded:
		n := base
		n.UserID, n.Email = bid.BidderID, bid.BidderEmail
		n.Subject = fmt.Sprintf("Your bid on %s was %s", bid.VehicleTitle, bid.Status)
		n.Lines = []string{fmt.Sprintf("The owner of %s has %s your bid of %s per day for %s.", bid.VehicleTitle, bid.Status, money(bid.BidAmount), dateRange(bid))}
		if bid.ResponseMessage != "" {
			n.Lines = append(n.Lines, "Message from the owner: "+bid.ResponseMessage)
		}
		return []Notice{n}

	default:
		n := base
		n.UserID, n.Email = bid.SellerID, bid.SellerEmail
		n.Subject = "A bid on " + bid.VehicleTitle + " was withdrawn"
		n.Lines = []string{fmt.Sprintf("%s has withdrawn their bid for %s.", bid.BidderName, dateRange(bid))}
		return []Notice{n}
	}
}

func bookingCreatedNotices(b *models.Booking) []Notice {
	period := b.BookingStartDate.Format("02 Jan 2006") + " to " + b.BookingEndDate.Format("02 Jan 2006")
	renter := Notice{
		Event:       models.EventBookingCreated,
		AggregateID: b.ID,
		Status:      string(b.Status),
		UserID:      b.RenterID,
		Email:       b.RenterEmail,
		Subject:     "Booking created for " + b.VehicleTitle,
		Lines: []string{
			fmt.Sprintf("Your bid has been converted into a booking for %s, %s.", b.VehicleTitle, period),
			fmt.Sprintf("Agreed rate: %s per day. Payment status: %s.", money(b.PricePerDay), b.PaymentStatus),
		},
		Data: b,
	}
	seller := Notice{
		Event:       models.EventBookingCreated,
		AggregateID: b.ID,
		Status:      string(b.Status),
		UserID:      b.SellerID,
		Email:       b.SellerEmail,
		Phone:       b.SellerPhone,
		Subject:     "Booking created for " + b.VehicleTitle,
		Lines: []string{
			fmt.Sprintf("%s is booked by %s for %s.", b.VehicleTitle, b.RenterName, period),
			"Confirm the booking once the vehicle is ready for handover.",
		},
		SMS:  fmt.Sprintf("CarBid: %s booked by %s, %s.", b.VehicleTitle, b.RenterName, period),
		Data: b,
	}
	return []Notice{renter, seller}
}

func bookingStatusNotices(c *models.BookingStatusChange) []Notice {
	b := &c.Booking
	var lines []string
	switch c.To {
	case models.BookingStatusConfirmed:
		lines = []string{"The owner has confirmed your booking of " + b.VehicleTitle + "."}
	case models.BookingStatusInProgress:
		lines = []string{"Your trip in " + b.VehicleTitle + " has started."}
	case models.BookingStatusCompleted:
		lines = []string{
			"Your trip in " + b.VehicleTitle + " is complete.",
			fmt.Sprintf("Distance driven: %.1f km. Extra mileage charges: %s. Total due: %s.", b.TotalKm, money(b.ExtraCharges), money(b.TotalPrice)),
		}
	case models.BookingStatusCancelled:
		lines = []string{"The booking of " + b.VehicleTitle + " has been cancelled."}
		if b.CancellationReason != "" {
			lines = append(lines, "Reason: "+b.CancellationReason)
		}
	}
	subject := fmt.Sprintf("Booking %s: %s", strings.ReplaceAll(string(c.To), "_", " "), b.VehicleTitle)

	notices := []Notice{{
		Event:       models.EventBookingStatusChanged,
		AggregateID: b.ID,
		Status:      string(c.To),
		UserID:      b.RenterID,
		Email:       b.RenterEmail,
		Subject:     subject,
		Lines:       lines,
		Data:        c,
	}}
	if c.ActorID != b.SellerID {
		notices = append(notices, Notice{
			Event:       models.EventBookingStatusChanged,
			AggregateID: b.ID,
			Status:      string(c.To),
			UserID:      b.SellerID,
			Email:       b.SellerEmail,
			Phone:       b.SellerPhone,
			Subject:     subject,
			Lines:       lines,
			SMS:         fmt.Sprintf("CarBid: booking of %s was %s by the renter.", b.VehicleTitle, c.To),
			Data:        c,
		})
	}
	return notices
}
