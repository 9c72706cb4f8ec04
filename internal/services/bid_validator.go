package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/chachabrian/carbid-backend/internal/apperrors"
	"github.com/chachabrian/carbid-backend/internal/models"
	"github.com/google/uuid"
)

const maxBidMessageLength = 1000

// BidRequest is the raw submission as received from the client.
type BidRequest struct {
	VehicleID        string  `json:"vehicleId"`
	BidAmount        float64 `json:"bidAmount"`
	BookingStartDate string  `json:"bookingStartDate"`
	BookingEndDate   string  `json:"bookingEndDate"`
	IsOutstation     bool    `json:"isOutstation"`
	BidMessage       string  `json:"bidMessage"`
	GovtID           string  `json:"govtId"`
	SubmissionID     string  `json:"submissionId"`
}

// ValidBid is a BidRequest with every field parsed and range-checked.
type ValidBid struct {
	VehicleID    string
	BidAmount    float64
	Start        time.Time
	End          time.Time
	IsOutstation bool
	Message      string
	GovtID       string
	SubmissionID string
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDate(field, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, apperrors.New(apperrors.InvalidArgument, field+" is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperrors.New(apperrors.InvalidArgument, fmt.Sprintf("%s must be an RFC3339 timestamp or YYYY-MM-DD date", field))
}

// ParseBidRequest checks the shape of a submission. It performs no lookups.
func ParseBidRequest(req BidRequest) (ValidBid, error) {
	if _, err := uuid.Parse(req.VehicleID); err != nil {
		return ValidBid{}, apperrors.New(apperrors.InvalidArgument, "invalid vehicle id")
	}
	if req.BidAmount <= 0 {
		return ValidBid{}, apperrors.New(apperrors.InvalidArgument, "bid amount must be greater than zero")
	}
	start, err := parseDate("bookingStartDate", req.BookingStartDate)
	if err != nil {
		return ValidBid{}, err
	}
	end, err := parseDate("bookingEndDate", req.BookingEndDate)
	if err != nil {
		return ValidBid{}, err
	}
	if end.Before(start) {
		return ValidBid{}, apperrors.New(apperrors.InvalidArgument, "booking end date cannot be before start date")
	}
	if len(req.BidMessage) > maxBidMessageLength {
		return ValidBid{}, apperrors.New(apperrors.InvalidArgument, "bid message is too long")
	}
	if req.SubmissionID != "" {
		if _, err := uuid.Parse(req.SubmissionID); err != nil {
			return ValidBid{}, apperrors.New(apperrors.InvalidArgument, "submission id must be a uuid")
		}
	}

	return ValidBid{
		VehicleID:    req.VehicleID,
		BidAmount:    req.BidAmount,
		Start:        start,
		End:          end,
		IsOutstation: req.IsOutstation,
		Message:      strings.TrimSpace(req.BidMessage),
		GovtID:       strings.TrimSpace(req.GovtID),
		SubmissionID: req.SubmissionID,
	}, nil
}

// CheckBidPolicy applies the marketplace rules to a parsed bid against the
// vehicle it targets.
func CheckBidPolicy(bid ValidBid, bidderID string, vehicle *models.Vehicle) error {
	if !vehicle.IsAvailable() {
		return apperrors.New(apperrors.PolicyViolation, "vehicle is not available for booking")
	}
	if vehicle.OwnerID == bidderID {
		return apperrors.New(apperrors.PolicyViolation, "you cannot bid on your own vehicle")
	}
	if floor := vehicle.FloorPrice(bid.IsOutstation); bid.BidAmount < floor {
		mode := "local"
		if bid.IsOutstation {
			mode = "outstation"
		}
		return apperrors.New(apperrors.PolicyViolation,
			fmt.Sprintf("bid amount must be at least %.2f per day for %s rentals", floor, mode))
	}
	if bid.GovtID == "" {
		return apperrors.New(apperrors.PolicyViolation, "a government id is required to place a bid")
	}
	return nil
}
