package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chachabrian/carbid-backend/internal/apperrors"
	"github.com/chachabrian/carbid-backend/internal/models"
	"github.com/chachabrian/carbid-backend/internal/observability"
	"github.com/chachabrian/carbid-backend/internal/queue"
	"github.com/chachabrian/carbid-backend/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Catalog resolves the vehicles and users a bid refers to.
type Catalog interface {
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type BidCache interface {
	GetHighestBid(ctx context.Context, vehicleID string) (*models.PublicBid, bool, error)
	SetHighestBid(ctx context.Context, vehicleID string, bid *models.PublicBid) error
	InvalidateHighestBid(ctx context.Context, vehicleID string) error
}

// Waker is nudged after a committed change so pending notifications go out
// without waiting for the next poll.
type Waker interface {
	Wake()
}

type BidService struct {
	bids    store.BidStore
	queue   queue.BidQueue
	catalog Catalog
	cache   BidCache
	waker   Waker
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewBidService(bids store.BidStore, q queue.BidQueue, catalog Catalog, log logrus.FieldLogger) *BidService {
	return &BidService{
		bids:    bids,
		queue:   q,
		catalog: catalog,
		log:     log,
		now:     time.Now,
	}
}

func (s *BidService) WithCache(cache BidCache) *BidService {
	s.cache = cache
	return s
}

func (s *BidService) WithWaker(w Waker) *BidService {
	s.waker = w
	return s
}

// Submit validates a bid, snapshots the vehicle and both parties, and hands
// it to the intake queue. The returned bid becomes queryable once the
// consumer has persisted it.
func (s *BidService) Submit(ctx context.Context, bidderID string, req BidRequest) (*models.Bid, error) {
	valid, err := ParseBidRequest(req)
	if err != nil {
		observability.BidsRejected.WithLabelValues("invalid_argument").Inc()
		return nil, err
	}

	vehicle, err := s.catalog.GetVehicle(ctx, valid.VehicleID)
	if err != nil {
		return nil, err
	}
	bidder, err := s.catalog.GetUser(ctx, bidderID)
	if err != nil {
		return nil, err
	}
	if valid.GovtID == "" {
		valid.GovtID = bidder.GovtID
	}
	if err := CheckBidPolicy(valid, bidderID, vehicle); err != nil {
		observability.BidsRejected.WithLabelValues("policy_violation").Inc()
		return nil, err
	}
	seller, err := s.catalog.GetUser(ctx, vehicle.OwnerID)
	if err != nil {
		return nil, err
	}

	submissionID := valid.SubmissionID
	if submissionID == "" {
		submissionID = uuid.NewString()
	}
	now := s.now()
	bid := &models.Bid{
		ID:                           uuid.NewString(),
		SubmissionID:                 submissionID,
		VehicleID:                    vehicle.ID,
		VehicleTitle:                 vehicle.Title,
		VehiclePricePerDay:           vehicle.PricePerDay,
		VehicleOutstationPricePerDay: vehicle.OutstationPricePerDay,
		VehicleImages:                append([]string(nil), vehicle.Images...),
		BidderID:                     bidder.ID,
		BidderName:                   bidder.Name,
		BidderEmail:                  bidder.Email,
		BidderGovtID:                 valid.GovtID,
		SellerID:                     seller.ID,
		SellerName:                   seller.Name,
		SellerEmail:                  seller.Email,
		SellerPhone:                  seller.PhoneNumber,
		BidAmount:                    valid.BidAmount,
		BookingStartDate:             valid.Start,
		BookingEndDate:               valid.End,
		IsOutstation:                 valid.IsOutstation,
		BidMessage:                   valid.Message,
		Status:                       models.BidStatusPending,
		CreatedAt:                    now,
		UpdatedAt:                    now,
	}

	body, err := json.Marshal(bid)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "", err)
	}
	if err := s.queue.Send(ctx, submissionID, body); err != nil {
		s.log.WithError(err).WithField("submissionId", submissionID).Error("failed to enqueue bid")
		return nil, apperrors.Wrap(apperrors.Internal, "failed to submit bid, please retry", err)
	}

	observability.BidsSubmitted.Inc()
	s.log.WithFields(logrus.Fields{
		"bidId":        bid.ID,
		"submissionId": submissionID,
		"vehicleId":    bid.VehicleID,
		"amount":       bid.BidAmount,
	}).Info("bid queued")
	return bid, nil
}

// Respond records the seller's accept or reject decision on a pending bid.
func (s *BidService) Respond(ctx context.Context, sellerID, bidID string, decision models.BidStatus, message string) (*models.Bid, error) {
	if err := requireUUID("bid id", bidID); err != nil {
		return nil, err
	}
	bid, err := s.bids.Respond(ctx, bidID, sellerID, decision, message, s.now())
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, bid)
	return bid, nil
}

// Cancel withdraws a pending bid on behalf of its bidder.
func (s *BidService) Cancel(ctx context.Context, bidderID, bidID string) (*models.Bid, error) {
	if err := requireUUID("bid id", bidID); err != nil {
		return nil, err
	}
	bid, err := s.bids.Cancel(ctx, bidID, bidderID, s.now())
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, bid)
	return bid, nil
}

func (s *BidService) afterTransition(ctx context.Context, bid *models.Bid) {
	observability.BidTransitions.WithLabelValues(string(bid.Status)).Inc()
	s.invalidateHighest(ctx, bid.VehicleID)
	if s.waker != nil {
		s.waker.Wake()
	}
	s.log.WithFields(logrus.Fields{"bidId": bid.ID, "status": bid.Status}).Info("bid updated")
}

func (s *BidService) invalidateHighest(ctx context.Context, vehicleID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateHighestBid(ctx, vehicleID); err != nil {
		s.log.WithError(err).WithField("vehicleId", vehicleID).Warn("failed to invalidate highest bid cache")
	}
}

// Get returns a bid to its bidder or seller.
func (s *BidService) Get(ctx context.Context, actorID, bidID string) (*models.Bid, error) {
	if err := requireUUID("bid id", bidID); err != nil {
		return nil, err
	}
	bid, err := s.bids.Get(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if !bid.IsParty(actorID) {
		return nil, apperrors.New(apperrors.Forbidden, "not authorized to view this bid")
	}
	return bid, nil
}

// ListForVehicle is served without authentication, so only the public view
// of each bid is returned.
func (s *BidService) ListForVehicle(ctx context.Context, vehicleID string) ([]models.PublicBid, error) {
	if err := requireUUID("vehicle id", vehicleID); err != nil {
		return nil, err
	}
	list, err := s.bids.ListByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	return models.PublicBids(list), nil
}

func (s *BidService) ListForSeller(ctx context.Context, sellerID, status string) ([]models.Bid, error) {
	var filter models.BidStatus
	if status != "" {
		parsed, err := models.ParseBidStatus(status)
		if err != nil {
			return nil, apperrors.New(apperrors.InvalidArgument, err.Error())
		}
		filter = parsed
	}
	return s.bids.ListBySeller(ctx, sellerID, filter)
}

func (s *BidService) ListForBidder(ctx context.Context, bidderID string) ([]models.Bid, error) {
	return s.bids.ListByBidder(ctx, bidderID)
}

// Highest returns the largest live bid on a vehicle, or nil when it has none.
func (s *BidService) Highest(ctx context.Context, vehicleID string) (*models.PublicBid, error) {
	if err := requireUUID("vehicle id", vehicleID); err != nil {
		return nil, err
	}
	if s.cache != nil {
		bid, hit, err := s.cache.GetHighestBid(ctx, vehicleID)
		if err != nil {
			s.log.WithError(err).Warn("highest bid cache read failed")
		} else if hit {
			return bid, nil
		}
	}

	top, err := s.bids.Highest(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	bid := top.Public()
	if s.cache != nil {
		if err := s.cache.SetHighestBid(ctx, vehicleID, bid); err != nil {
			s.log.WithError(err).Warn("highest bid cache write failed")
		}
	}
	return bid, nil
}

func requireUUID(field, v string) error {
	if _, err := uuid.Parse(v); err != nil {
		return apperrors.New(apperrors.InvalidArgument, "invalid "+field)
	}
	return nil
}
