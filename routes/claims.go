package routes

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"roadside-assist-server/config"
	"roadside-assist-server/middleware"
	"roadside-assist-server/models"
	"roadside-assist-server/services"
	"roadside-assist-server/utils"
)

// RegisterDispatchRoutes registers the staff-only ghost job endpoints
func RegisterDispatchRoutes(router *gin.RouterGroup, jobs *services.JobService, claims *services.ClaimService) {
	// Create a job on behalf of a customer with no account yet
	router.POST("/ghost-jobs", func(c *gin.Context) { createGhostJob(c, jobs, claims) })

	// Re-issue a claim link for an unclaimed ghost job
	router.POST("/ghost-jobs/:id/claim-token", func(c *gin.Context) { issueClaimToken(c, claims) })

	// Resolve a street address to coordinates for the dispatch console
	router.GET("/geocode", geocodeAddress)
}

func geocodeAddress(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": "address query parameter is required"})
		return
	}

	result, err := utils.GeocodeAddress(address)
	if err != nil {
		respondServiceError(c, fmt.Errorf("%w: %v", services.ErrExternalServiceUnavailable, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// RegisterClaimRoutes registers the customer-facing claim endpoint
func RegisterClaimRoutes(router *gin.RouterGroup, claims *services.ClaimService) {
	router.POST("/claim", func(c *gin.Context) { claimJob(c, claims) })
}

func createGhostJob(c *gin.Context, jobs *services.JobService, claims *services.ClaimService) {
	user := middleware.CurrentUser(c)

	var req models.GhostJobCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}
	req.Notes = middleware.SanitizeInput(req.Notes)

	job, err := jobs.CreateGhost(req, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	token, expiresAt, err := claims.CreateClaimToken(job.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Ghost job created",
		"job":        job,
		"claim_link": claimLink(job.ID, token),
		"expires_at": expiresAt,
	})
}

func issueClaimToken(c *gin.Context, claims *services.ClaimService) {
	jobID, ok := paramID(c, "id")
	if !ok {
		return
	}

	token, expiresAt, err := claims.CreateClaimToken(jobID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Claim link issued",
		"claim_link": claimLink(jobID, token),
		"expires_at": expiresAt,
	})
}

func claimJob(c *gin.Context, claims *services.ClaimService) {
	userID := c.GetUint("user_id")

	var req struct {
		JobID uint   `json:"job_id" binding:"required"`
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	job, err := claims.ClaimJob(req.JobID, req.Token, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Job claimed successfully",
		"job":     job,
	})
}

func claimLink(jobID uint, token string) string {
	return fmt.Sprintf("%s/claim?jobId=%d&token=%s", config.AppConfig.Claim.LinkBaseURL, jobID, token)
}
