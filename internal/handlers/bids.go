package handlers

import (
	"context"
	"net/http"

	"github.com/chachabrian/carbid-backend/internal/models"
	"github.com/chachabrian/carbid-backend/internal/services"
	"github.com/gin-gonic/gin"
)

type BidService interface {
	Submit(ctx context.Context, bidderID string, req services.BidRequest) (*models.Bid, error)
	Respond(ctx context.Context, sellerID, bidID string, decision models.BidStatus, message string) (*models.Bid, error)
	Cancel(ctx context.Context, bidderID, bidID string) (*models.Bid, error)
	Get(ctx context.Context, actorID, bidID string) (*models.Bid, error)
	ListForVehicle(ctx context.Context, vehicleID string) ([]models.PublicBid, error)
	ListForSeller(ctx context.Context, sellerID, status string) ([]models.Bid, error)
	ListForBidder(ctx context.Context, bidderID string) ([]models.Bid, error)
	Highest(ctx context.Context, vehicleID string) (*models.PublicBid, error)
}

// SubmitBid queues a bid. Clients retrying a submission send the same
// Idempotency-Key so the bid is only recorded once.
func SubmitBid(bids BidService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req services.BidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if key := c.GetHeader("Idempotency-Key"); key != "" && req.SubmissionID == "" {
			req.SubmissionID = key
		}

		bid, err := bids.Submit(c.Request.Context(), actorID(c), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message": "Bid submitted successfully",
			"bid":     bid,
		})
	}
}

func GetVehicleBids(bids BidService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := bids.ListForVehicle(c.Request.Context(), c.Param("vehicleId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bids": nonNil(list)})
	}
}

func GetSellerBids(bids BidService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := bids.ListForSeller(c.Request.Context(), actorID(c), c.Query("status"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bids": nonNil(list)})
	}
}

func GetMyBids(bids BidService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := bids.ListForBidder(c.Request.Context(), actorID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bids": nonNil(list)})
	}
}

func GetBid(bids BidService) gin.HandlerFunc {
	return func(c *gin.Context) {
		bid, err := bids.Get(c.Request.Context(), actorID(c), c.Param("bidId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bid": bid})
	}
}

func GetHighestBid(bids BidService) gin.HandlerFunc {
	return func(c *gin.Context) {
		bid, err := bids.Highest(c.Request.Context(), c.Param("vehicleId"))
		if err != nil {
			respondError(c, err)
			return
		}
		if bid == nil {
			c.JSON(http.StatusOK, gin.H{"highestBid": nil, "amount": 0})
			return
		}
		c.JSON(http.StatusOK, gin.H{"highestBid": bid, "amount": bid.BidAmount})
	}
}

func RespondToBid(bids BidService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Response        string `json:"response" binding:"required,oneof=accepted rejected"`
			ResponseMessage string `json:"responseMessage" binding:"max=1000"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}

		bid, err := bids.Respond(c.Request.Context(), actorID(c), c.Param("bidId"), models.BidStatus(input.Response), input.ResponseMessage)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Bid " + input.Response + " successfully",
			"bid":     bid,
		})
	}
}

func CancelBid(bids BidService) gin.HandlerFunc {
	return func(c *gin.Context) {
		bid, err := bids.Cancel(c.Request.Context(), actorID(c), c.Param("bidId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Bid cancelled successfully",
			"bid":     bid,
		})
	}
}

// nonNil keeps empty listings encoding as [] rather than null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
