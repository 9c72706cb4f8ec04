package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chachabrian/carbid-backend/internal/models"
	"github.com/chachabrian/carbid-backend/internal/observability"
	"github.com/chachabrian/carbid-backend/internal/queue"
	"github.com/chachabrian/carbid-backend/internal/store"
	"github.com/sirupsen/logrus"
)

var ErrInvalidMessage = errors.New("invalid bid message")

// BidConsumer drains the intake queue one message per tick. A message is
// deleted only after its bid has been written, so failures are retried by
// the queue's own redelivery.
type BidConsumer struct {
	queue    queue.BidQueue
	bids     store.BidStore
	cache    BidCache
	waker    Waker
	log      logrus.FieldLogger
	interval time.Duration
	wait     time.Duration
}

func NewBidConsumer(q queue.BidQueue, bids store.BidStore, log logrus.FieldLogger, interval, wait time.Duration) *BidConsumer {
	return &BidConsumer{
		queue:    q,
		bids:     bids,
		log:      log,
		interval: interval,
		wait:     wait,
	}
}

func (c *BidConsumer) WithCache(cache BidCache) *BidConsumer {
	c.cache = cache
	return c
}

func (c *BidConsumer) WithWaker(w Waker) *BidConsumer {
	c.waker = w
	return c
}

// Run polls until ctx is cancelled.
func (c *BidConsumer) Run(ctx context.Context) {
	c.log.WithFields(logrus.Fields{"interval": c.interval, "wait": c.wait}).Info("bid consumer started")
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("bid consumer stopped")
			return
		case <-ticker.C:
			if _, err := c.Poll(ctx); err != nil && ctx.Err() == nil {
				c.log.WithError(err).Warn("bid consumer cycle failed")
			}
		}
	}
}

// Poll runs a single receive, persist, delete cycle. It reports whether a
// message was received.
func (c *BidConsumer) Poll(ctx context.Context) (bool, error) {
	msg, err := c.queue.Receive(ctx, c.wait)
	if err != nil {
		return false, err
	}
	if msg == nil {
		return false, nil
	}
	observability.ConsumerMessagesReceived.Inc()
	log := c.log.WithFields(logrus.Fields{"messageId": msg.ID, "receiveCount": msg.ReceiveCount})

	bid, err := decodeBidMessage(msg)
	if err != nil {
		observability.ConsumerMessagesInvalid.Inc()
		return true, err
	}
	log = log.WithFields(logrus.Fields{"bidId": bid.ID, "submissionId": bid.SubmissionID})

	created, err := c.bids.Save(ctx, bid)
	if err != nil {
		observability.ConsumerPersistErrors.Inc()
		return true, fmt.Errorf("persist bid %s: %w", bid.ID, err)
	}
	if created {
		observability.ConsumerBidsPersisted.Inc()
		log.Info("bid persisted")
		if c.cache != nil {
			if err := c.cache.InvalidateHighestBid(ctx, bid.VehicleID); err != nil {
				log.WithError(err).Warn("failed to invalidate highest bid cache")
			}
		}
		if c.waker != nil {
			c.waker.Wake()
		}
	} else {
		observability.ConsumerDuplicates.Inc()
		log.Info("duplicate submission skipped")
	}

	if err := c.queue.Delete(ctx, msg); err != nil {
		observability.ConsumerDeleteErrors.Inc()
		return true, fmt.Errorf("delete message %s: %w", msg.ID, err)
	}
	return true, nil
}

func decodeBidMessage(msg *queue.Message) (*models.Bid, error) {
	var bid models.Bid
	if err := json.Unmarshal(msg.Body, &bid); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if bid.SubmissionID == "" {
		bid.SubmissionID = msg.SubmissionID
	}
	switch {
	case bid.ID == "", bid.SubmissionID == "":
		return nil, fmt.Errorf("%w: missing bid or submission id", ErrInvalidMessage)
	case bid.VehicleID == "", bid.BidderID == "", bid.SellerID == "":
		return nil, fmt.Errorf("%w: missing vehicle or party", ErrInvalidMessage)
	case bid.BidAmount <= 0:
		return nil, fmt.Errorf("%w: non-positive amount", ErrInvalidMessage)
	case bid.BookingEndDate.Before(bid.BookingStartDate):
		return nil, fmt.Errorf("%w: end before start", ErrInvalidMessage)
	}
	if bid.Status != "" && bid.Status != models.BidStatusPending {
		return nil, fmt.Errorf("%w: new bids must be pending", ErrInvalidMessage)
	}
	bid.Status = models.BidStatusPending
	return &bid, nil
}
