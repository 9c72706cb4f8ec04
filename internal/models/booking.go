package models

import (
	"fmt"
	"time"

	"github.com/chachabrian/carbid-backend/internal/apperrors"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

var BookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusCompleted:  {},
	BookingStatusCancelled:  {},
}

func (s BookingStatus) IsValid() bool {
	_, ok := BookingTransitions[s]
	return ok
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range BookingTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return len(BookingTransitions[s]) == 0
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type Booking struct {
	ID    string  `json:"id" gorm:"type:uuid;primaryKey"`
	BidID *string `json:"bidId" gorm:"type:uuid;uniqueIndex"`

	VehicleID     string   `json:"vehicleId" gorm:"type:uuid;index;not null"`
	VehicleTitle  string   `json:"vehicleTitle"`
	VehicleImages []string `json:"vehicleImages" gorm:"serializer:json"`

	RenterID     string `json:"renterId" gorm:"type:uuid;index;not null"`
	RenterName   string `json:"renterName"`
	RenterEmail  string `json:"renterEmail"`
	RenterGovtID string `json:"renterGovtId"`

	SellerID    string `json:"sellerId" gorm:"type:uuid;index;not null"`
	SellerName  string `json:"sellerName"`
	SellerEmail string `json:"sellerEmail"`
	SellerPhone string `json:"sellerPhone"`

	BookingStartDate time.Time `json:"bookingStartDate" gorm:"not null"`
	BookingEndDate   time.Time `json:"bookingEndDate" gorm:"not null"`
	IsOutstation     bool      `json:"isOutstation"`

	PricePerDay   float64       `json:"pricePerDay" gorm:"not null"`
	TotalPrice    float64       `json:"totalPrice" gorm:"not null"`
	Status        BookingStatus `json:"status" gorm:"type:varchar(20);index;not null;default:pending"`
	PaymentStatus PaymentStatus `json:"paymentStatus" gorm:"type:varchar(20);not null;default:pending"`

	InitialOdometerReading *float64   `json:"initialOdometerReading"`
	FinalOdometerReading   *float64   `json:"finalOdometerReading"`
	TripStartedAt          *time.Time `json:"tripStartedAt"`
	TripEndedAt            *time.Time `json:"tripEndedAt"`
	TotalKm                float64    `json:"totalKm"`
	ExtraCharges           float64    `json:"extraCharges"`

	ConfirmedAt        *time.Time `json:"confirmedAt"`
	CompletedAt        *time.Time `json:"completedAt"`
	CancelledAt        *time.Time `json:"cancelledAt"`
	CancelledBy        string     `json:"cancelledBy"`
	CancellationReason string     `json:"cancellationReason"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Booking) TableName() string {
	return "bookings"
}

// NewBookingFromBid seeds a pending booking from the bid's snapshot. The bid
// amount becomes both the per-day rate and the initial total.
func NewBookingFromBid(bid *Bid, id string) Booking {
	bidID := bid.ID
	images := append([]string(nil), bid.VehicleImages...)
	return Booking{
		ID:               id,
		BidID:            &bidID,
		VehicleID:        bid.VehicleID,
		VehicleTitle:     bid.VehicleTitle,
		VehicleImages:    images,
		RenterID:         bid.BidderID,
		RenterName:       bid.BidderName,
		RenterEmail:      bid.BidderEmail,
		RenterGovtID:     bid.BidderGovtID,
		SellerID:         bid.SellerID,
		SellerName:       bid.SellerName,
		SellerEmail:      bid.SellerEmail,
		SellerPhone:      bid.SellerPhone,
		BookingStartDate: bid.BookingStartDate,
		BookingEndDate:   bid.BookingEndDate,
		IsOutstation:     bid.IsOutstation,
		PricePerDay:      bid.BidAmount,
		TotalPrice:       bid.BidAmount,
		Status:           BookingStatusPending,
		PaymentStatus:    PaymentStatusPending,
	}
}

func (b *Booking) IsParty(userID string) bool {
	return b.RenterID == userID || b.SellerID == userID
}

// CheckTransition validates actorID moving the booking to target. The seller
// drives the trip; either party may cancel before the trip starts, only the
// seller once it is under way.
func (b *Booking) CheckTransition(actorID string, target BookingStatus) error {
	if !b.IsParty(actorID) {
		return apperrors.New(apperrors.Forbidden, "not authorized to update this booking")
	}
	if !b.Status.CanTransitionTo(target) {
		return apperrors.New(apperrors.InvalidStateTransition,
			fmt.Sprintf("booking cannot move from %s to %s", b.Status, target))
	}
	switch target {
	case BookingStatusCancelled:
		if b.Status == BookingStatusInProgress && actorID != b.SellerID {
			return apperrors.New(apperrors.Forbidden, "only the vehicle owner can cancel a trip in progress")
		}
	default:
		if actorID != b.SellerID {
			return apperrors.New(apperrors.Forbidden, "only the vehicle owner can update the trip status")
		}
	}
	return nil
}
