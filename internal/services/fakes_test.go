package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chachabrian/carbid-backend/internal/apperrors"
	"github.com/chachabrian/carbid-backend/internal/models"
	"github.com/chachabrian/carbid-backend/internal/queue"
	"github.com/chachabrian/carbid-backend/internal/store"
	"github.com/google/uuid"
)

const (
	timeout = 2 * time.Second
	tick    = 10 * time.Millisecond
)

// fakeBidStore is an in-memory store.BidStore. A single mutex stands in for
// the row lock.
type fakeBidStore struct {
	mu           sync.Mutex
	bids         map[string]*models.Bid
	bySubmission map[string]string
	saveErr      error
}

func newFakeBidStore() *fakeBidStore {
	return &fakeBidStore{bids: map[string]*models.Bid{}, bySubmission: map[string]string{}}
}

func (s *fakeBidStore) put(b *models.Bid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.bids[b.ID] = &cp
	s.bySubmission[b.SubmissionID] = b.ID
}

func (s *fakeBidStore) Save(ctx context.Context, bid *models.Bid) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return false, s.saveErr
	}
	if _, ok := s.bySubmission[bid.SubmissionID]; ok {
		return false, nil
	}
	cp := *bid
	s.bids[bid.ID] = &cp
	s.bySubmission[bid.SubmissionID] = bid.ID
	return true, nil
}

func (s *fakeBidStore) Get(ctx context.Context, id string) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[id]
	if !ok {
		return nil, apperrors.New(apperrors.NotFound, "bid not found")
	}
	cp := *b
	return &cp, nil
}

func (s *fakeBidStore) filter(keep func(*models.Bid) bool) []models.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Bid
	for _, b := range s.bids {
		if keep(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BidAmount > out[j].BidAmount })
	return out
}

func (s *fakeBidStore) ListByVehicle(ctx context.Context, vehicleID string) ([]models.Bid, error) {
	return s.filter(func(b *models.Bid) bool { return b.VehicleID == vehicleID }), nil
}

func (s *fakeBidStore) ListBySeller(ctx context.Context, sellerID string, status models.BidStatus) ([]models.Bid, error) {
	return s.filter(func(b *models.Bid) bool {
		return b.SellerID == sellerID && (status == "" || b.Status == status)
	}), nil
}

func (s *fakeBidStore) ListByBidder(ctx context.Context, bidderID string) ([]models.Bid, error) {
	return s.filter(func(b *models.Bid) bool { return b.BidderID == bidderID }), nil
}

func (s *fakeBidStore) Highest(ctx context.Context, vehicleID string) (*models.Bid, error) {
	live := s.filter(func(b *models.Bid) bool {
		return b.VehicleID == vehicleID && (b.Status == models.BidStatusPending || b.Status == models.BidStatusAccepted)
	})
	if len(live) == 0 {
		return nil, nil
	}
	return &live[0], nil
}

func (s *fakeBidStore) mutate(id string, apply func(*models.Bid) error) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[id]
	if !ok {
		return nil, apperrors.New(apperrors.NotFound, "bid not found")
	}
	cp := *b
	if err := apply(&cp); err != nil {
		return nil, err
	}
	s.bids[id] = &cp
	out := cp
	return &out, nil
}

func (s *fakeBidStore) Respond(ctx context.Context, id, sellerID string, decision models.BidStatus, message string, now time.Time) (*models.Bid, error) {
	return s.mutate(id, func(b *models.Bid) error {
		if err := b.CheckRespond(sellerID, decision); err != nil {
			return err
		}
		b.Status, b.ResponseMessage, b.RespondedAt = decision, message, &now
		return nil
	})
}

func (s *fakeBidStore) Cancel(ctx context.Context, id, bidderID string, now time.Time) (*models.Bid, error) {
	return s.mutate(id, func(b *models.Bid) error {
		if err := b.CheckCancel(bidderID, now); err != nil {
			return err
		}
		b.Status, b.CancelledAt = models.BidStatusExpired, &now
		return nil
	})
}

type fakeBookingStore struct {
	bids     *fakeBidStore
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func newFakeBookingStore(bids *fakeBidStore) *fakeBookingStore {
	return &fakeBookingStore{bids: bids, bookings: map[string]*models.Booking{}}
}

func (s *fakeBookingStore) Get(ctx context.Context, id string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, apperrors.New(apperrors.NotFound, "booking not found")
	}
	cp := *b
	return &cp, nil
}

func (s *fakeBookingStore) list(keep func(*models.Booking) bool) []models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, *b)
		}
	}
	return out
}

func (s *fakeBookingStore) ListBySeller(ctx context.Context, sellerID string) ([]models.Booking, error) {
	return s.list(func(b *models.Booking) bool { return b.SellerID == sellerID }), nil
}

func (s *fakeBookingStore) ListByRenter(ctx context.Context, renterID string) ([]models.Booking, error) {
	return s.list(func(b *models.Booking) bool { return b.RenterID == renterID }), nil
}

func (s *fakeBookingStore) ConvertBid(ctx context.Context, bidID, sellerID string, now time.Time) (*models.Booking, error) {
	s.bids.mu.Lock()
	defer s.bids.mu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	bid, ok := s.bids.bids[bidID]
	if !ok {
		return nil, apperrors.New(apperrors.NotFound, "bid not found")
	}
	if err := bid.CheckConvertible(sellerID); err != nil {
		return nil, err
	}
	if bid.Status == models.BidStatusPending {
		bid.RespondedAt = &now
	}
	booking := models.NewBookingFromBid(bid, uuid.NewString())
	bid.Status = models.BidStatusConverted
	bid.ConvertedAt = &now
	bid.BookingID = &booking.ID
	s.bookings[booking.ID] = &booking
	out := booking
	return &out, nil
}

func (s *fakeBookingStore) transition(id, actorID string, target models.BookingStatus, apply func(*models.Booking) error) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, apperrors.New(apperrors.NotFound, "booking not found")
	}
	if err := b.CheckTransition(actorID, target); err != nil {
		return nil, err
	}
	cp := *b
	if err := apply(&cp); err != nil {
		return nil, err
	}
	cp.Status = target
	s.bookings[id] = &cp
	out := cp
	return &out, nil
}

func (s *fakeBookingStore) Confirm(ctx context.Context, id, actorID string, now time.Time) (*models.Booking, error) {
	return s.transition(id, actorID, models.BookingStatusConfirmed, func(b *models.Booking) error {
		b.ConfirmedAt = &now
		return nil
	})
}

func (s *fakeBookingStore) StartTrip(ctx context.Context, id, actorID string, initial float64, now time.Time) (*models.Booking, error) {
	return s.transition(id, actorID, models.BookingStatusInProgress, func(b *models.Booking) error {
		return store.ApplyTripStart(b, initial, now)
	})
}

func (s *fakeBookingStore) CompleteTrip(ctx context.Context, id, actorID string, final float64, now time.Time) (*models.Booking, error) {
	return s.transition(id, actorID, models.BookingStatusCompleted, func(b *models.Booking) error {
		return store.ApplyTripCompletion(b, final, now)
	})
}

func (s *fakeBookingStore) Cancel(ctx context.Context, id, actorID, reason string, now time.Time) (*models.Booking, error) {
	return s.transition(id, actorID, models.BookingStatusCancelled, func(b *models.Booking) error {
		b.CancelledAt, b.CancelledBy, b.CancellationReason = &now, actorID, reason
		return nil
	})
}

// fakeQueue is an in-memory queue.BidQueue with at-least-once semantics:
// received messages stay queued until deleted.
type fakeQueue struct {
	mu         sync.Mutex
	messages   []*queue.Message
	deleted    []string
	sendErr    error
	receiveErr error
	deleteErr  error
	nextID     int
}

func (q *fakeQueue) Send(ctx context.Context, dedupKey string, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.sendErr != nil {
		return q.sendErr
	}
	q.nextID++
	id := fmt.Sprintf("msg-%d", q.nextID)
	q.messages = append(q.messages, &queue.Message{ID: id, Body: body, SubmissionID: dedupKey, Receipt: id})
	return nil
}

func (q *fakeQueue) Receive(ctx context.Context, wait time.Duration) (*queue.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.receiveErr != nil {
		return nil, q.receiveErr
	}
	if len(q.messages) == 0 {
		return nil, nil
	}
	return q.messages[0], nil
}

func (q *fakeQueue) Delete(ctx context.Context, msg *queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deleteErr != nil {
		return q.deleteErr
	}
	for i, m := range q.messages {
		if m.Receipt == msg.Receipt {
			q.messages = append(q.messages[:i], q.messages[i+1:]...)
			q.deleted = append(q.deleted, msg.ID)
			return nil
		}
	}
	return nil
}

func (q *fakeQueue) Close() error { return nil }

func (q *fakeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

type fakeCatalog struct {
	vehicles map[string]*models.Vehicle
	users    map[string]*models.User
}

func (c *fakeCatalog) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	v, ok := c.vehicles[id]
	if !ok {
		return nil, apperrors.New(apperrors.NotFound, "vehicle not found")
	}
	return v, nil
}

func (c *fakeCatalog) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, ok := c.users[id]
	if !ok {
		return nil, apperrors.New(apperrors.NotFound, "user not found")
	}
	return u, nil
}

type fakeCache struct {
	mu          sync.Mutex
	highest     map[string]*models.PublicBid
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{highest: map[string]*models.PublicBid{}}
}

func (c *fakeCache) GetHighestBid(ctx context.Context, vehicleID string) (*models.PublicBid, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.highest[vehicleID]
	return b, ok, nil
}

func (c *fakeCache) SetHighestBid(ctx context.Context, vehicleID string, bid *models.PublicBid) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.highest[vehicleID] = bid
	return nil
}

func (c *fakeCache) InvalidateHighestBid(ctx context.Context, vehicleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.highest, vehicleID)
	c.invalidated = append(c.invalidated, vehicleID)
	return nil
}

type countingWaker struct {
	mu    sync.Mutex
	count int
}

func (w *countingWaker) Wake() {
	w.mu.Lock()
	w.count++
	w.mu.Unlock()
}

func (w *countingWaker) calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// fixture wires a vehicle with a floor of 1000/day owned by seller-1 and a
// renter with a government id on file.
func fixtureCatalog() *fakeCatalog {
	return &fakeCatalog{
		vehicles: map[string]*models.Vehicle{
			testVehicleID: {
				ID:                    testVehicleID,
				OwnerID:               "seller-1",
				Title:                 "Toyota Prado",
				Images:                []string{"prado-front.jpg"},
				PricePerDay:           1000,
				OutstationPricePerDay: 1500,
				Status:                models.VehicleStatusAvailable,
			},
		},
		users: map[string]*models.User{
			"renter-1": {ID: "renter-1", Name: "Wanjiru", Email: "wanjiru@example.com", GovtID: "29384756"},
			"seller-1": {ID: "seller-1", Name: "Otieno", Email: "otieno@example.com", PhoneNumber: "+254711000111"},
		},
	}
}
