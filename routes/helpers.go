package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"roadside-assist-server/services"
)

// respondServiceError maps workflow error kinds to HTTP statuses. Every
// rejected operation carries a stable error kind plus a human-readable
// message; nothing is coerced into a bare 500 unless it truly is one.
func respondServiceError(c *gin.Context, err error) {
	var ite *services.InvalidTransitionError

	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "The requested resource does not exist",
		})
	case errors.Is(err, services.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "permission_denied",
			"message": "You are not allowed to perform this action",
		})
	case errors.Is(err, services.ErrJobNotBiddable):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "job_not_biddable",
			"message": "This job is no longer accepting bids",
		})
	case errors.Is(err, services.ErrBidNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "bid_not_found",
			"message": "The bid does not exist under this job",
		})
	case errors.Is(err, services.ErrBidAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "bid_already_resolved",
			"message": "This bidding round has already been resolved",
		})
	case errors.Is(err, services.ErrTokenInvalid):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "token_invalid",
			"message": "The claim token is not valid for this job",
		})
	case errors.Is(err, services.ErrTokenExpired):
		c.JSON(http.StatusGone, gin.H{
			"error":   "token_expired",
			"message": "The claim token has expired, ask dispatch for a new link",
		})
	case errors.Is(err, services.ErrAlreadyClaimed):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "already_claimed",
			"message": "This job has already been claimed",
		})
	case errors.Is(err, services.ErrExternalServiceUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "external_service_unavailable",
			"message": "A dependent service is unavailable, try again later",
		})
	case errors.As(err, &ite):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "invalid_transition",
			"message": ite.Error(),
			"from":    ite.From,
			"to":      ite.To,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal",
			"message": "Something went wrong, please try again",
		})
	}
}
