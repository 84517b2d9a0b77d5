package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roadside-assist-server/middleware"
	"roadside-assist-server/models"
	"roadside-assist-server/services"
)

// RegisterBidRoutes registers bid submission and resolution routes under
// the jobs group
func RegisterBidRoutes(router *gin.RouterGroup, bids *services.BidService) {
	// Submit or update the caller's bid on a job (provider)
	router.POST("/:id/bids", func(c *gin.Context) { submitBid(c, bids) })

	// List the bids under a job (job owner or staff)
	router.GET("/:id/bids", func(c *gin.Context) { listBids(c, bids) })

	// Accept one bid, rejecting the rest (job owner or staff)
	router.POST("/:id/bids/:bidId/accept", func(c *gin.Context) { acceptBid(c, bids) })
}

func submitBid(c *gin.Context, bids *services.BidService) {
	user := middleware.CurrentUser(c)
	if user == nil || user.ProviderID == nil {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Access denied",
			"message": "Only provider accounts can submit bids",
		})
		return
	}

	jobID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.BidCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}
	req.Message = middleware.SanitizeInput(req.Message)

	bid, err := bids.SubmitBid(jobID, *user.ProviderID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Bid submitted",
		"bid":     bid,
	})
}

func listBids(c *gin.Context, bids *services.BidService) {
	user := middleware.CurrentUser(c)
	jobID, ok := paramID(c, "id")
	if !ok {
		return
	}

	list, err := bids.ListBids(jobID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// Providers only see their own offer; the owner and staff see all.
	if user != nil && user.ProviderID != nil && !user.IsStaff() {
		var own []models.Bid
		for _, bid := range list {
			if bid.ProviderID == *user.ProviderID {
				own = append(own, bid)
			}
		}
		list = own
	}

	c.JSON(http.StatusOK, gin.H{
		"bids":        list,
		"total_count": len(list),
	})
}

func acceptBid(c *gin.Context, bids *services.BidService) {
	jobID, ok := paramID(c, "id")
	if !ok {
		return
	}
	bidID, ok := paramID(c, "bidId")
	if !ok {
		return
	}

	result, err := bids.AcceptBid(jobID, bidID, middleware.CurrentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Bid accepted",
		"result":  result,
	})
}
