package routes

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"roadside-assist-server/database"
	"roadside-assist-server/middleware"
	"roadside-assist-server/models"
	"roadside-assist-server/utils"
)

// RegisterProviderRoutes registers provider registration and directory routes
func RegisterProviderRoutes(router *gin.RouterGroup) {
	// Register a provider business account for the caller
	router.POST("", registerProvider)

	// Browse the provider directory
	router.GET("", listProviders)

	// Supported service types
	router.GET("/service-types", getServiceTypes)

	// Get a specific provider profile
	router.GET("/:id", getProvider)

	// Toggle the caller's provider availability
	router.PUT("/availability", updateAvailability)

	// Employee management for the caller's provider account
	router.GET("/employees", listEmployees)
	router.POST("/employees", addEmployee)
	router.DELETE("/employees/:id", removeEmployee)
}

func registerProvider(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil || !user.IsProvider() {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Access denied",
			"message": "Only provider accounts can register a business",
		})
		return
	}

	if user.ProviderID != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Already registered",
			"message": "This account already belongs to a provider business",
		})
		return
	}

	var req models.ProviderCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	services, err := normalizeServices(req.Services)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service type", "message": err.Error()})
		return
	}

	req.PhoneNumber = utils.FormatPhoneNumber(req.PhoneNumber)
	if !utils.ValidatePhoneNumber(req.PhoneNumber) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number"})
		return
	}

	if req.BaseLat != nil && req.BaseLng != nil && !utils.IsLocationValid(*req.BaseLat, *req.BaseLng) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location coordinates"})
		return
	}

	provider := models.Provider{
		OwnerUserID:  user.ID,
		BusinessName: middleware.SanitizeInput(req.BusinessName),
		PhoneNumber:  req.PhoneNumber,
		City:         middleware.SanitizeInput(req.City),
		Address:      middleware.SanitizeInput(req.Address),
		Services:     services,
		Description:  middleware.SanitizeInput(req.Description),
		BaseLat:      req.BaseLat,
		BaseLng:      req.BaseLng,
		IsAvailable:  true,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&provider).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", user.ID).
			Update("provider_id", provider.ID).Error
	})
	if err != nil {
		log.Printf("❌ Provider registration failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register provider"})
		return
	}

	log.Printf("✅ Provider registered: %d (%s)", provider.ID, provider.BusinessName)

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Provider registered successfully",
		"provider": provider,
	})
}

func listProviders(c *gin.Context) {
	query := database.DB.Model(&models.Provider{}).Where("is_available = ?", true)

	if serviceType := c.Query("service_type"); serviceType != "" {
		if !isKnownService(serviceType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown service type: " + serviceType})
			return
		}
		query = query.Where("services LIKE ?", "%"+serviceType+"%")
	}

	if city := c.Query("city"); city != "" {
		query = query.Where("LOWER(city) = LOWER(?)", city)
	}

	var providers []models.Provider
	if err := query.Order("rating DESC, completed_jobs DESC").Limit(100).Find(&providers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch providers"})
		return
	}

	// Optional distance filter when the caller shares a location
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr == nil && lngErr == nil && utils.IsLocationValid(lat, lng) {
		radiusKm := 50.0
		if r, err := strconv.ParseFloat(c.Query("radius_km"), 64); err == nil && r > 0 {
			radiusKm = r
		}

		nearby := make([]models.Provider, 0, len(providers))
		for _, p := range providers {
			if p.BaseLat == nil || p.BaseLng == nil {
				continue
			}
			if utils.HaversineDistance(lat, lng, *p.BaseLat, *p.BaseLng) <= radiusKm {
				nearby = append(nearby, p)
			}
		}
		providers = nearby
	}

	c.JSON(http.StatusOK, gin.H{
		"providers":   providers,
		"total_count": len(providers),
	})
}

func getServiceTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service_types": models.GetServiceTypes()})
}

func getProvider(c *gin.Context) {
	providerID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var provider models.Provider
	if err := database.DB.First(&provider, providerID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Provider not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"provider": provider})
}

func updateAvailability(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil || user.ProviderID == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied", "message": "No provider account on this user"})
		return
	}

	var req struct {
		IsAvailable *bool `json:"is_available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	if err := database.DB.Model(&models.Provider{}).Where("id = ?", *user.ProviderID).
		Update("is_available", *req.IsAvailable).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update availability"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "is_available": *req.IsAvailable})
}

func listEmployees(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil || user.ProviderID == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied", "message": "No provider account on this user"})
		return
	}

	var employees []models.User
	if err := database.DB.Where("provider_id = ?", *user.ProviderID).Find(&employees).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch employees"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"employees":   employees,
		"total_count": len(employees),
	})
}

// addEmployee links an existing user account to the caller's provider
// business by phone number. Only the business owner can do this.
func addEmployee(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil || user.ProviderID == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied", "message": "No provider account on this user"})
		return
	}

	var provider models.Provider
	if err := database.DB.First(&provider, *user.ProviderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Provider not found"})
		return
	}
	if provider.OwnerUserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied", "message": "Only the business owner can manage employees"})
		return
	}

	var req struct {
		PhoneNumber string `json:"phone_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	var employee models.User
	if err := database.DB.Where("phone_number = ?", utils.FormatPhoneNumber(req.PhoneNumber)).
		First(&employee).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found", "message": "No account with this phone number"})
		return
	}

	if employee.ProviderID != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Already linked", "message": "This user already belongs to a provider"})
		return
	}

	if err := database.DB.Model(&models.User{}).Where("id = ?", employee.ID).
		Updates(map[string]interface{}{"provider_id": provider.ID, "role": models.RoleProvider}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add employee"})
		return
	}

	log.Printf("✅ Employee %d added to provider %d", employee.ID, provider.ID)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Employee added"})
}

func removeEmployee(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil || user.ProviderID == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied", "message": "No provider account on this user"})
		return
	}

	employeeID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var provider models.Provider
	if err := database.DB.First(&provider, *user.ProviderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Provider not found"})
		return
	}
	if provider.OwnerUserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied", "message": "Only the business owner can manage employees"})
		return
	}

	if employeeID == provider.OwnerUserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot remove the business owner"})
		return
	}

	result := database.DB.Model(&models.User{}).
		Where("id = ? AND provider_id = ?", employeeID, provider.ID).
		Update("provider_id", nil)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove employee"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Employee not found on this provider"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Employee removed"})
}

// normalizeServices validates and joins the requested service list
func normalizeServices(raw []string) (string, error) {
	seen := make(map[string]bool)
	cleaned := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.ToLower(strings.TrimSpace(s))
		if !isKnownService(s) {
			return "", fmt.Errorf("unknown service type: %s", s)
		}
		if !seen[s] {
			seen[s] = true
			cleaned = append(cleaned, s)
		}
	}
	return strings.Join(cleaned, ","), nil
}

func isKnownService(s string) bool {
	for _, t := range models.GetServiceTypes() {
		if string(t) == s {
			return true
		}
	}
	return false
}
