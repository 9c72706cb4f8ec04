package models

import (
	"fmt"
	"time"

	"github.com/chachabrian/carbid-backend/internal/apperrors"
)

type BidStatus string

const (
	BidStatusPending   BidStatus = "pending"
	BidStatusAccepted  BidStatus = "accepted"
	BidStatusRejected  BidStatus = "rejected"
	BidStatusExpired   BidStatus = "expired"
	BidStatusConverted BidStatus = "converted"
)

// BidTransitions is the complete bid lifecycle. Statuses with no outgoing
// edges are terminal.
var BidTransitions = map[BidStatus][]BidStatus{
	BidStatusPending:   {BidStatusAccepted, BidStatusRejected, BidStatusExpired, BidStatusConverted},
	BidStatusAccepted:  {BidStatusConverted},
	BidStatusRejected:  {},
	BidStatusExpired:   {},
	BidStatusConverted: {},
}

func (s BidStatus) IsValid() bool {
	_, ok := BidTransitions[s]
	return ok
}

func (s BidStatus) CanTransitionTo(target BidStatus) bool {
	for _, t := range BidTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s BidStatus) IsTerminal() bool {
	return len(BidTransitions[s]) == 0
}

func ParseBidStatus(s string) (BidStatus, error) {
	status := BidStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid bid status: %s", s)
	}
	return status, nil
}

// CancelCutoff is how long before the booking start a bidder may still withdraw.
const CancelCutoff = 24 * time.Hour

// Bid is an offer by a renter to rent a vehicle for a date range. The
// vehicle, bidder and seller fields are snapshots taken at submission.
type Bid struct {
	ID           string `json:"id" gorm:"type:uuid;primaryKey"`
	SubmissionID string `json:"submissionId" gorm:"type:uuid;uniqueIndex;not null"`

	VehicleID                    string   `json:"vehicleId" gorm:"type:uuid;index;not null"`
	VehicleTitle                 string   `json:"vehicleTitle"`
	VehiclePricePerDay           float64  `json:"vehiclePricePerDay"`
	VehicleOutstationPricePerDay float64  `json:"vehicleOutstationPricePerDay"`
	VehicleImages                []string `json:"vehicleImages" gorm:"serializer:json"`

	BidderID     string `json:"bidderId" gorm:"type:uuid;index;not null"`
	BidderName   string `json:"bidderName"`
	BidderEmail  string `json:"bidderEmail"`
	BidderGovtID string `json:"bidderGovtId"`

	SellerID    string `json:"sellerId" gorm:"type:uuid;index;not null"`
	SellerName  string `json:"sellerName"`
	SellerEmail string `json:"sellerEmail"`
	SellerPhone string `json:"sellerPhone"`

	BidAmount        float64   `json:"bidAmount" gorm:"not null"`
	BookingStartDate time.Time `json:"bookingStartDate" gorm:"not null"`
	BookingEndDate   time.Time `json:"bookingEndDate" gorm:"not null"`
	IsOutstation     bool      `json:"isOutstation"`
	BidMessage       string    `json:"bidMessage"`

	Status          BidStatus  `json:"status" gorm:"type:varchar(20);index;not null;default:pending"`
	ResponseMessage string     `json:"responseMessage"`
	RespondedAt     *time.Time `json:"respondedAt"`
	CancelledAt     *time.Time `json:"cancelledAt"`
	ConvertedAt     *time.Time `json:"convertedAt"`
	BookingID       *string    `json:"bookingId" gorm:"type:uuid"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Bid) TableName() string {
	return "bids"
}

// CheckRespond validates a seller's accept/reject decision.
func (b *Bid) CheckRespond(actorID string, target BidStatus) error {
	if target != BidStatusAccepted && target != BidStatusRejected {
		return apperrors.New(apperrors.InvalidArgument, "response must be accepted or rejected")
	}
	if b.SellerID != actorID {
		return apperrors.New(apperrors.Forbidden, "only the vehicle owner can respond to this bid")
	}
	if b.Status != BidStatusPending || !b.Status.CanTransitionTo(target) {
		return apperrors.New(apperrors.InvalidStateTransition,
			fmt.Sprintf("bid is %s and can no longer be %s", b.Status, target))
	}
	return nil
}

// CheckCancel validates a bidder withdrawing a pending bid at now.
func (b *Bid) CheckCancel(actorID string, now time.Time) error {
	if b.BidderID != actorID {
		return apperrors.New(apperrors.Forbidden, "only the bidder can cancel this bid")
	}
	if b.Status != BidStatusPending {
		return apperrors.New(apperrors.InvalidStateTransition,
			fmt.Sprintf("bid is %s and can no longer be cancelled", b.Status))
	}
	if now.After(b.BookingStartDate.Add(-CancelCutoff)) {
		return apperrors.New(apperrors.PolicyViolation,
			"bids can only be cancelled at least 24 hours before the booking starts")
	}
	return nil
}

// CheckConvertible validates that sellerID may turn this bid into a booking.
func (b *Bid) CheckConvertible(sellerID string) error {
	if b.SellerID != sellerID {
		return apperrors.New(apperrors.Forbidden, "only the vehicle owner can convert this bid")
	}
	if b.Status == BidStatusConverted {
		return apperrors.New(apperrors.AlreadyConverted, "bid has already been converted to a booking")
	}
	if !b.Status.CanTransitionTo(BidStatusConverted) {
		return apperrors.New(apperrors.InvalidStateTransition,
			fmt.Sprintf("bid is %s and cannot be converted", b.Status))
	}
	return nil
}

func (b *Bid) IsParty(userID string) bool {
	return b.BidderID == userID || b.SellerID == userID
}

// PublicBid is the view of a bid served to anonymous callers. Contact
// details and identity documents stay with the parties.
type PublicBid struct {
	ID               string    `json:"id"`
	VehicleID        string    `json:"vehicleId"`
	VehicleTitle     string    `json:"vehicleTitle"`
	BidderName       string    `json:"bidderName"`
	BidAmount        float64   `json:"bidAmount"`
	BookingStartDate time.Time `json:"bookingStartDate"`
	BookingEndDate   time.Time `json:"bookingEndDate"`
	IsOutstation     bool      `json:"isOutstation"`
	Status           BidStatus `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (b *Bid) Public() *PublicBid {
	if b == nil {
		return nil
	}
	return &PublicBid{
		ID:               b.ID,
		VehicleID:        b.VehicleID,
		VehicleTitle:     b.VehicleTitle,
		BidderName:       b.BidderName,
		BidAmount:        b.BidAmount,
		BookingStartDate: b.BookingStartDate,
		BookingEndDate:   b.BookingEndDate,
		IsOutstation:     b.IsOutstation,
		Status:           b.Status,
		CreatedAt:        b.CreatedAt,
	}
}

func PublicBids(bids []Bid) []PublicBid {
	out := make([]PublicBid, 0, len(bids))
	for i := range bids {
		out = append(out, *bids[i].Public())
	}
	return out
}
