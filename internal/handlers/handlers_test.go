package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chachabrian/carbid-backend/internal/apperrors"
	"github.com/chachabrian/carbid-backend/internal/models"
	"github.com/chachabrian/carbid-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	bidID     = "3c9e2b7a-5d1f-4a8e-b6c0-7f2d9e4a1b35"
	bookingID = "a4f1c8e2-9b3d-4e7a-8c5f-1d6b2e9a7c40"
)

type mockBids struct{ mock.Mock }

func (m *mockBids) Submit(ctx context.Context, bidderID string, req services.BidRequest) (*models.Bid, error) {
	args := m.Called(bidderID, req)
	bid, _ := args.Get(0).(*models.Bid)
	return bid, args.Error(1)
}

func (m *mockBids) Respond(ctx context.Context, sellerID, id string, decision models.BidStatus, message string) (*models.Bid, error) {
	args := m.Called(sellerID, id, decision, message)
	bid, _ := args.Get(0).(*models.Bid)
	return bid, args.Error(1)
}

func (m *mockBids) Cancel(ctx context.Context, bidderID, id string) (*models.Bid, error) {
	args := m.Called(bidderID, id)
	bid, _ := args.Get(0).(*models.Bid)
	return bid, args.Error(1)
}

func (m *mockBids) Get(ctx context.Context, actor, id string) (*models.Bid, error) {
	args := m.Called(actor, id)
	bid, _ := args.Get(0).(*models.Bid)
	return bid, args.Error(1)
}

func (m *mockBids) ListForVehicle(ctx context.Context, vehicleID string) ([]models.PublicBid, error) {
	args := m.Called(vehicleID)
	list, _ := args.Get(0).([]models.PublicBid)
	return list, args.Error(1)
}

func (m *mockBids) ListForSeller(ctx context.Context, sellerID, status string) ([]models.Bid, error) {
	args := m.Called(sellerID, status)
	list, _ := args.Get(0).([]models.Bid)
	return list, args.Error(1)
}

func (m *mockBids) ListForBidder(ctx context.Context, bidderID string) ([]models.Bid, error) {
	args := m.Called(bidderID)
	list, _ := args.Get(0).([]models.Bid)
	return list, args.Error(1)
}

func (m *mockBids) Highest(ctx context.Context, vehicleID string) (*models.PublicBid, error) {
	args := m.Called(vehicleID)
	bid, _ := args.Get(0).(*models.PublicBid)
	return bid, args.Error(1)
}

type mockBookings struct{ mock.Mock }

func (m *mockBookings) ConvertBid(ctx context.Context, sellerID, id string) (*models.Booking, error) {
	args := m.Called(sellerID, id)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) Get(ctx context.Context, actor, id string) (*models.Booking, error) {
	args := m.Called(actor, id)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) ListForSeller(ctx context.Context, sellerID string) ([]models.Booking, error) {
	args := m.Called(sellerID)
	list, _ := args.Get(0).([]models.Booking)
	return list, args.Error(1)
}

func (m *mockBookings) ListForRenter(ctx context.Context, renterID string) ([]models.Booking, error) {
	args := m.Called(renterID)
	list, _ := args.Get(0).([]models.Booking)
	return list, args.Error(1)
}

func (m *mockBookings) UpdateStatus(ctx context.Context, actor, id string, req services.StatusUpdateRequest) (*models.Booking, error) {
	args := m.Called(actor, id, req)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) CompleteTrip(ctx context.Context, actor, id string, final float64) (*models.Booking, error) {
	args := m.Called(actor, id, final)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) Cancel(ctx context.Context, actor, id, reason string) (*models.Booking, error) {
	args := m.Called(actor, id, reason)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

// newRouter mounts the routes behind a stub auth layer that trusts the
// X-User header.
func newRouter(bids BidService, bookings BookingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", Health)
	r.Use(func(c *gin.Context) {
		c.Set("userId", c.GetHeader("X-User"))
		c.Next()
	})
	api := r.Group("/api")
	b := api.Group("/bids")
	b.POST("", SubmitBid(bids))
	b.GET("/vehicle/:vehicleId", GetVehicleBids(bids))
	b.GET("/seller", GetSellerBids(bids))
	b.GET("/mine", GetMyBids(bids))
	b.GET("/highest/:vehicleId", GetHighestBid(bids))
	b.GET("/:bidId", GetBid(bids))
	b.POST("/:bidId/respond", RespondToBid(bids))
	b.POST("/:bidId/cancel", CancelBid(bids))

	k := api.Group("/bookings")
	k.POST("/convert-bid/:bidId", ConvertBid(bookings))
	k.GET("/seller", GetSellerBookings(bookings))
	k.GET("/renter", GetRenterBookings(bookings))
	k.GET("/:bookingId", GetBooking(bookings))
	k.PATCH("/:bookingId/status", UpdateBookingStatus(bookings))
	k.POST("/:bookingId/cancel", CancelBooking(bookings))
	k.POST("/:bookingId/complete", CompleteBooking(bookings))
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, user string, body interface{}, headers ...string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", user)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestHealth(t *testing.T) {
	w, body := do(t, newRouter(nil, nil), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestSubmitBid(t *testing.T) {
	bids := &mockBids{}
	r := newRouter(bids, nil)
	want := services.BidRequest{
		VehicleID:        "7b0d1c56-3f5e-4a55-9d61-2f3b5c1e8a10",
		BidAmount:        1200,
		BookingStartDate: "2026-03-10",
		BookingEndDate:   "2026-03-12",
		SubmissionID:     "5f0c9a8e-0b1d-4c6e-9f7a-3e2d1c0b9a87",
	}
	bids.On("Submit", "renter-1", want).Return(&models.Bid{ID: bidID, Status: models.BidStatusPending}, nil)

	payload := want
	payload.SubmissionID = ""
	w, body := do(t, r, http.MethodPost, "/api/bids", "renter-1", payload, "Idempotency-Key", want.SubmissionID)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, bidID, body["bid"].(map[string]interface{})["id"])
	bids.AssertExpectations(t)
}

func TestSubmitBidErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
		wantMsg  string
	}{
		{"below floor", apperrors.New(apperrors.PolicyViolation, "bid amount must be at least 1000.00 per day"), http.StatusBadRequest, "POLICY_VIOLATION", "bid amount must be at least 1000.00 per day"},
		{"unknown vehicle", apperrors.New(apperrors.NotFound, "vehicle not found"), http.StatusNotFound, "NOT_FOUND", "vehicle not found"},
		{"driver error", errors.New("pq: connection refused"), http.StatusInternalServerError, "INTERNAL", "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bids := &mockBids{}
			bids.On("Submit", "renter-1", mock.Anything).Return(nil, tt.err)
			w, body := do(t, newRouter(bids, nil), http.MethodPost, "/api/bids", "renter-1", services.BidRequest{BidAmount: 900})
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantKind, body["code"])
			assert.Equal(t, tt.wantMsg, body["error"])
		})
	}

	w, body := do(t, newRouter(&mockBids{}, nil), http.MethodPost, "/api/bids", "renter-1", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ARGUMENT", body["code"])
}

func TestRespondToBid(t *testing.T) {
	bids := &mockBids{}
	bids.On("Respond", "seller-1", bidID, models.BidStatusAccepted, "See you Friday").
		Return(&models.Bid{ID: bidID, Status: models.BidStatusAccepted}, nil)
	r := newRouter(bids, nil)

	w, body := do(t, r, http.MethodPost, "/api/bids/"+bidID+"/respond", "seller-1",
		map[string]string{"response": "accepted", "responseMessage": "See you Friday"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bid accepted successfully", body["message"])

	w, _ = do(t, r, http.MethodPost, "/api/bids/"+bidID+"/respond", "seller-1", map[string]string{"response": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	bids.AssertNumberOfCalls(t, "Respond", 1)
}

func TestCancelBidConflicts(t *testing.T) {
	bids := &mockBids{}
	bids.On("Cancel", "renter-1", bidID).
		Return(nil, apperrors.New(apperrors.InvalidStateTransition, "bid is accepted and can no longer be cancelled"))

	w, body := do(t, newRouter(bids, nil), http.MethodPost, "/api/bids/"+bidID+"/cancel", "renter-1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE_TRANSITION", body["code"])
}

func TestBidListings(t *testing.T) {
	bids := &mockBids{}
	bids.On("ListForSeller", "seller-1", "pending").Return([]models.Bid{{ID: bidID}}, nil)
	bids.On("ListForBidder", "renter-1").Return(nil, nil)
	bids.On("Highest", "v1").Return(nil, nil)
	r := newRouter(bids, nil)

	w, body := do(t, r, http.MethodGet, "/api/bids/seller?status=pending", "seller-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["bids"], 1)

	w, body = do(t, r, http.MethodGet, "/api/bids/mine", "renter-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, body["bids"])

	w, body = do(t, r, http.MethodGet, "/api/bids/highest/v1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, body["highestBid"])
	assert.Equal(t, 0.0, body["amount"])
}

func TestAnonymousBidReadsArePublicView(t *testing.T) {
	full := models.Bid{
		ID:           bidID,
		VehicleID:    "v1",
		BidderName:   "Wanjiru",
		BidderEmail:  "wanjiru@example.com",
		BidderGovtID: "A1234567",
		SellerEmail:  "otieno@example.com",
		SellerPhone:  "+254711000111",
		BidAmount:    1500,
	}
	bids := &mockBids{}
	bids.On("ListForVehicle", "v1").Return(models.PublicBids([]models.Bid{full}), nil)
	bids.On("Highest", "v1").Return(full.Public(), nil)
	r := newRouter(bids, nil)

	for _, path := range []string{"/api/bids/vehicle/v1", "/api/bids/highest/v1"} {
		w, _ := do(t, r, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		raw := w.Body.String()
		assert.Contains(t, raw, "Wanjiru", path)
		for _, field := range []string{"bidderGovtId", "bidderEmail", "sellerEmail", "sellerPhone", "A1234567", "+254711000111"} {
			assert.NotContains(t, raw, field, path)
		}
	}
}

func TestConvertBid(t *testing.T) {
	bookings := &mockBookings{}
	bookings.On("ConvertBid", "seller-1", bidID).Return(&models.Booking{ID: bookingID, TotalPrice: 1200}, nil).Once()
	bookings.On("ConvertBid", "seller-1", bidID).Return(nil, apperrors.New(apperrors.AlreadyConverted, "bid has already been converted to a booking"))
	r := newRouter(nil, bookings)

	w, body := do(t, r, http.MethodPost, "/api/bookings/convert-bid/"+bidID, "seller-1", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, bookingID, body["booking"].(map[string]interface{})["id"])

	w, body = do(t, r, http.MethodPost, "/api/bookings/convert-bid/"+bidID, "seller-1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_CONVERTED", body["code"])
}

func TestUpdateBookingStatus(t *testing.T) {
	bookings := &mockBookings{}
	initial := 10000.0
	bookings.On("UpdateStatus", "seller-1", bookingID, services.StatusUpdateRequest{
		Status:          "in_progress",
		InitialOdometer: &initial,
	}).Return(&models.Booking{ID: bookingID, Status: models.BookingStatusInProgress}, nil)
	r := newRouter(nil, bookings)

	w, body := do(t, r, http.MethodPatch, "/api/bookings/"+bookingID+"/status", "seller-1",
		map[string]interface{}{"status": "in_progress", "initialOdometer": 10000})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "in_progress", body["booking"].(map[string]interface{})["status"])

	w, _ = do(t, r, http.MethodPatch, "/api/bookings/"+bookingID+"/status", "seller-1", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	bookings.AssertExpectations(t)
}

func TestTripFieldsAcceptSnakeCase(t *testing.T) {
	bookings := &mockBookings{}
	final := 10350.0
	bookings.On("UpdateStatus", "seller-1", bookingID, services.StatusUpdateRequest{
		Status:        "completed",
		FinalOdometer: &final,
	}).Return(&models.Booking{ID: bookingID, Status: models.BookingStatusCompleted}, nil)
	bookings.On("CompleteTrip", "seller-1", bookingID, 10350.0).
		Return(&models.Booking{ID: bookingID, TotalKm: 350, ExtraCharges: 500, TotalPrice: 4100}, nil)
	r := newRouter(nil, bookings)

	w, _ := do(t, r, http.MethodPatch, "/api/bookings/"+bookingID+"/status", "seller-1",
		map[string]interface{}{"status": "completed", "final_odometer": 10350})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/bookings/"+bookingID+"/complete", "seller-1", map[string]float64{"final_odometer": 10350})
	assert.Equal(t, http.StatusOK, w.Code)
	bookings.AssertExpectations(t)
}

func TestCompleteBooking(t *testing.T) {
	bookings := &mockBookings{}
	bookings.On("CompleteTrip", "seller-1", bookingID, 10350.0).
		Return(&models.Booking{ID: bookingID, TotalKm: 350, ExtraCharges: 500, TotalPrice: 4100}, nil)
	r := newRouter(nil, bookings)

	w, body := do(t, r, http.MethodPost, "/api/bookings/"+bookingID+"/complete", "seller-1", map[string]float64{"finalOdometer": 10350})
	assert.Equal(t, http.StatusOK, w.Code)
	fare := body["fare"].(map[string]interface{})
	assert.Equal(t, 500.0, fare["extraCharges"])
	assert.Equal(t, 4100.0, fare["totalPrice"])

	w, _ = do(t, r, http.MethodPost, "/api/bookings/"+bookingID+"/complete", "seller-1", map[string]float64{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelBooking(t *testing.T) {
	bookings := &mockBookings{}
	bookings.On("Cancel", "renter-1", bookingID, "plans changed").
		Return(&models.Booking{ID: bookingID, Status: models.BookingStatusCancelled}, nil)
	bookings.On("Cancel", "renter-1", bookingID, "").
		Return(nil, apperrors.New(apperrors.Forbidden, "only the vehicle owner can cancel a trip in progress"))
	r := newRouter(nil, bookings)

	w, _ := do(t, r, http.MethodPost, "/api/bookings/"+bookingID+"/cancel", "renter-1", map[string]string{"reason": "plans changed"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, body := do(t, r, http.MethodPost, "/api/bookings/"+bookingID+"/cancel", "renter-1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", body["code"])
}

func TestBookingListingsAndGet(t *testing.T) {
	bookings := &mockBookings{}
	bookings.On("ListForSeller", "seller-1").Return([]models.Booking{{ID: bookingID}}, nil)
	bookings.On("ListForRenter", "renter-1").Return([]models.Booking{}, nil)
	bookings.On("Get", "stranger", bookingID).Return(nil, apperrors.New(apperrors.Forbidden, "not authorized to view this booking"))
	r := newRouter(nil, bookings)

	w, body := do(t, r, http.MethodGet, "/api/bookings/seller", "seller-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["bookings"], 1)

	w, body = do(t, r, http.MethodGet, "/api/bookings/renter", "renter-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["bookings"])

	w, _ = do(t, r, http.MethodGet, "/api/bookings/"+bookingID, "stranger", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
