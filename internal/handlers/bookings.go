package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/chachabrian/carbid-backend/internal/models"
	"github.com/chachabrian/carbid-backend/internal/services"
	"github.com/gin-gonic/gin"
)

type BookingService interface {
	ConvertBid(ctx context.Context, sellerID, bidID string) (*models.Booking, error)
	Get(ctx context.Context, actorID, bookingID string) (*models.Booking, error)
	ListForSeller(ctx context.Context, sellerID string) ([]models.Booking, error)
	ListForRenter(ctx context.Context, renterID string) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, actorID, bookingID string, req services.StatusUpdateRequest) (*models.Booking, error)
	CompleteTrip(ctx context.Context, actorID, bookingID string, finalOdometer float64) (*models.Booking, error)
	Cancel(ctx context.Context, actorID, bookingID, reason string) (*models.Booking, error)
}

func ConvertBid(bookings BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		booking, err := bookings.ConvertBid(c.Request.Context(), actorID(c), c.Param("bidId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message": "Bid converted to booking successfully",
			"booking": booking,
		})
	}
}

func GetBooking(bookings BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		booking, err := bookings.Get(c.Request.Context(), actorID(c), c.Param("bookingId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"booking": booking})
	}
}

func GetSellerBookings(bookings BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := bookings.ListForSeller(c.Request.Context(), actorID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookings": nonNil(list)})
	}
}

func GetRenterBookings(bookings BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := bookings.ListForRenter(c.Request.Context(), actorID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookings": nonNil(list)})
	}
}

// UpdateBookingStatus moves a booking along its lifecycle. Trip fields are
// accepted in camelCase or snake_case. extraCharges is accepted for
// compatibility but the server computes the charge itself.
func UpdateBookingStatus(bookings BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Status               string   `json:"status" binding:"required"`
			InitialOdometer      *float64 `json:"initialOdometer"`
			InitialOdometerSnake *float64 `json:"initial_odometer"`
			FinalOdometer        *float64 `json:"finalOdometer"`
			FinalOdometerSnake   *float64 `json:"final_odometer"`
			ExtraCharges         *float64 `json:"extraCharges"`
			ExtraChargesSnake    *float64 `json:"extra_charges"`
			Reason               string   `json:"reason" binding:"max=500"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}

		booking, err := bookings.UpdateStatus(c.Request.Context(), actorID(c), c.Param("bookingId"), services.StatusUpdateRequest{
			Status:          input.Status,
			InitialOdometer: firstSet(input.InitialOdometer, input.InitialOdometerSnake),
			FinalOdometer:   firstSet(input.FinalOdometer, input.FinalOdometerSnake),
			ExtraCharges:    firstSet(input.ExtraCharges, input.ExtraChargesSnake),
			Reason:          input.Reason,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Booking status updated successfully",
			"booking": booking,
		})
	}
}

func CancelBooking(bookings BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Reason string `json:"reason" binding:"max=500"`
		}
		// The body is optional.
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&input); err != nil {
				badRequest(c, err)
				return
			}
		}

		booking, err := bookings.Cancel(c.Request.Context(), actorID(c), c.Param("bookingId"), input.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Booking cancelled successfully",
			"booking": booking,
		})
	}
}

func CompleteBooking(bookings BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			FinalOdometer      *float64 `json:"finalOdometer"`
			FinalOdometerSnake *float64 `json:"final_odometer"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		final := firstSet(input.FinalOdometer, input.FinalOdometerSnake)
		if final == nil {
			badRequest(c, errors.New("finalOdometer is required"))
			return
		}

		booking, err := bookings.CompleteTrip(c.Request.Context(), actorID(c), c.Param("bookingId"), *final)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Trip completed successfully",
			"booking": booking,
			"fare": gin.H{
				"totalKm":      booking.TotalKm,
				"extraCharges": booking.ExtraCharges,
				"totalPrice":   booking.TotalPrice,
			},
		})
	}
}

func firstSet(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
