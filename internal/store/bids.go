package store

import (
	"context"
	"time"

	"github.com/chachabrian/carbid-backend/internal/apperrors"
	"github.com/chachabrian/carbid-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresBidStore struct {
	db *gorm.DB
}

func NewBidStore(db *gorm.DB) *PostgresBidStore {
	return &PostgresBidStore{db: db}
}

func (s *PostgresBidStore) Save(ctx context.Context, bid *models.Bid) (bool, error) {
	if bid.Status == "" {
		bid.Status = models.BidStatusPending
	}
	created := false
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "submission_id"}},
			DoNothing: true,
		}).Create(bid)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return writeOutbox(tx, models.EventBidCreated, bid.ID, bid)
	})
	if err != nil {
		return false, txError("save bid", err)
	}
	return created, nil
}

func (s *PostgresBidStore) Get(ctx context.Context, id string) (*models.Bid, error) {
	var bid models.Bid
	if err := s.db.WithContext(ctx).First(&bid, "id = ?", id).Error; err != nil {
		return nil, readError("get bid", notFoundOr(err, "bid not found"))
	}
	return &bid, nil
}

func (s *PostgresBidStore) ListByVehicle(ctx context.Context, vehicleID string) ([]models.Bid, error) {
	var bids []models.Bid
	err := s.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("bid_amount DESC, created_at ASC").
		Find(&bids).Error
	if err != nil {
		return nil, readError("list vehicle bids", err)
	}
	return bids, nil
}

func (s *PostgresBidStore) ListBySeller(ctx context.Context, sellerID string, status models.BidStatus) ([]models.Bid, error) {
	q := s.db.WithContext(ctx).Where("seller_id = ?", sellerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var bids []models.Bid
	if err := q.Order("created_at DESC").Find(&bids).Error; err != nil {
		return nil, readError("list seller bids", err)
	}
	return bids, nil
}

func (s *PostgresBidStore) ListByBidder(ctx context.Context, bidderID string) ([]models.Bid, error) {
	var bids []models.Bid
	err := s.db.WithContext(ctx).
		Where("bidder_id = ?", bidderID).
		Order("created_at DESC").
		Find(&bids).Error
	if err != nil {
		return nil, readError("list bidder bids", err)
	}
	return bids, nil
}

func (s *PostgresBidStore) Highest(ctx context.Context, vehicleID string) (*models.Bid, error) {
	var bids []models.Bid
	err := s.db.WithContext(ctx).
		Where("vehicle_id = ? AND status IN ?", vehicleID,
			[]models.BidStatus{models.BidStatusPending, models.BidStatusAccepted}).
		Order("bid_amount DESC, created_at ASC").
		Limit(1).
		Find(&bids).Error
	if err != nil {
		return nil, readError("highest bid", err)
	}
	if len(bids) == 0 {
		return nil, nil
	}
	return &bids[0], nil
}

func (s *PostgresBidStore) Respond(ctx context.Context, id, sellerID string, decision models.BidStatus, message string, now time.Time) (*models.Bid, error) {
	return s.transition(ctx, id, models.EventBidResponded, func(bid *models.Bid) error {
		if err := bid.CheckRespond(sellerID, decision); err != nil {
			return err
		}
		bid.Status = decision
		bid.ResponseMessage = message
		bid.RespondedAt = &now
		return nil
	})
}

func (s *PostgresBidStore) Cancel(ctx context.Context, id, bidderID string, now time.Time) (*models.Bid, error) {
	return s.transition(ctx, id, models.EventBidCancelled, func(bid *models.Bid) error {
		if err := bid.CheckCancel(bidderID, now); err != nil {
			return err
		}
		bid.Status = models.BidStatusExpired
		bid.CancelledAt = &now
		return nil
	})
}

func (s *PostgresBidStore) transition(ctx context.Context, id, eventType string, apply func(*models.Bid) error) (*models.Bid, error) {
	var out models.Bid
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		var bid models.Bid
		if err := forUpdate(tx).First(&bid, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "bid not found")
		}
		from := bid.Status
		if err := apply(&bid); err != nil {
			return err
		}
		if !from.CanTransitionTo(bid.Status) {
			return apperrors.New(apperrors.InvalidStateTransition, "illegal bid transition")
		}
		if err := tx.Save(&bid).Error; err != nil {
			return err
		}
		out = bid
		return writeOutbox(tx, eventType, bid.ID, bid)
	})
	if err != nil {
		return nil, txError("update bid", err)
	}
	return &out, nil
}
