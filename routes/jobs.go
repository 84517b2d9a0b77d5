package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"roadside-assist-server/middleware"
	"roadside-assist-server/models"
	"roadside-assist-server/services"
	"roadside-assist-server/utils"
)

// RegisterJobRoutes registers all job-related routes
func RegisterJobRoutes(router *gin.RouterGroup, jobs *services.JobService) {
	// Create a new job (customer)
	router.POST("", func(c *gin.Context) { createJob(c, jobs) })

	// Get customer's own jobs
	router.GET("/my-jobs", func(c *gin.Context) { getMyJobs(c, jobs) })

	// Jobs still open for bids (providers browse these)
	router.GET("/open", func(c *gin.Context) { getOpenJobs(c, jobs) })

	// Jobs assigned to the caller's provider account
	router.GET("/assigned", func(c *gin.Context) { getAssignedJobs(c, jobs) })

	// Get a specific job
	router.GET("/:id", func(c *gin.Context) { getJob(c, jobs) })

	// Guarded status transition
	router.PUT("/:id/status", func(c *gin.Context) { updateJobStatus(c, jobs) })

	// Cancel a job
	router.POST("/:id/cancel", func(c *gin.Context) { cancelJob(c, jobs) })

	// Assign an employee to a job (provider side)
	router.POST("/:id/assign-employee", func(c *gin.Context) { assignEmployee(c, jobs) })
}

func createJob(c *gin.Context, jobs *services.JobService) {
	user := middleware.CurrentUser(c)

	var req models.JobCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	if req.PickupLat != nil && req.PickupLng != nil && !utils.IsLocationValid(*req.PickupLat, *req.PickupLng) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location coordinates"})
		return
	}

	req.Notes = middleware.SanitizeInput(req.Notes)

	job, err := jobs.Create(req, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Job created successfully",
		"job":     job,
	})
}

func getMyJobs(c *gin.Context, jobs *services.JobService) {
	userID := c.GetUint("user_id")

	list, err := jobs.ListForCustomer(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":        list,
		"total_count": len(list),
	})
}

func getOpenJobs(c *gin.Context, jobs *services.JobService) {
	user := middleware.CurrentUser(c)
	if user == nil || (!user.IsProvider() && !user.IsStaff()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied", "message": "Only providers can browse open jobs"})
		return
	}

	list, err := jobs.ListOpen(c.Query("service_type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":        list,
		"total_count": len(list),
	})
}

func getAssignedJobs(c *gin.Context, jobs *services.JobService) {
	user := middleware.CurrentUser(c)
	if user == nil || user.ProviderID == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied", "message": "No provider account on this user"})
		return
	}

	list, err := jobs.ListForProvider(*user.ProviderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":        list,
		"total_count": len(list),
	})
}

func getJob(c *gin.Context, jobs *services.JobService) {
	jobID, ok := paramID(c, "id")
	if !ok {
		return
	}

	job, err := jobs.Get(jobID, middleware.CurrentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": job})
}

func updateJobStatus(c *gin.Context, jobs *services.JobService) {
	jobID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.JobStatusUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	target := models.JobStatus(req.Status)
	if !target.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status", "message": "Unknown job status " + req.Status})
		return
	}

	job, err := jobs.UpdateStatus(jobID, target, middleware.CurrentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Job status updated",
		"job":     job,
	})
}

func cancelJob(c *gin.Context, jobs *services.JobService) {
	jobID, ok := paramID(c, "id")
	if !ok {
		return
	}

	job, err := jobs.Cancel(jobID, middleware.CurrentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Job canceled",
		"job":     job,
	})
}

func assignEmployee(c *gin.Context, jobs *services.JobService) {
	jobID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		EmployeeID uint `json:"employee_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	job, err := jobs.AssignEmployee(jobID, req.EmployeeID, middleware.CurrentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Employee assigned",
		"job":     job,
	})
}

// paramID parses a numeric path parameter, answering 400 when malformed
func paramID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id", "message": "Path parameter must be numeric"})
		return 0, false
	}
	return uint(id), true
}
