package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// GeocodingResult represents the result of a geocoding operation
type GeocodingResult struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
}

var geoClient = &http.Client{Timeout: 10 * time.Second}

// doWithBackoff runs an HTTP GET with bounded exponential backoff. 5xx and
// transport errors are retried; 4xx are permanent.
func doWithBackoff(apiURL string) (*http.Response, error) {
	var resp *http.Response

	operation := func() error {
		r, err := geoClient.Get(apiURL)
		if err != nil {
			return err
		}
		if r.StatusCode >= 500 {
			r.Body.Close()
			return fmt.Errorf("service returned status %d", r.StatusCode)
		}
		if r.StatusCode != http.StatusOK {
			r.Body.Close()
			return backoff.Permanent(fmt.Errorf("service returned status %d", r.StatusCode))
		}
		resp = r
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return resp, nil
}

// GeocodeAddress converts a text address to coordinates using OpenStreetMap Nominatim
// This is a free service, but for production use, consider using Google Maps API or similar
func GeocodeAddress(addressText string) (*GeocodingResult, error) {
	cleanAddress := strings.TrimSpace(addressText)
	if cleanAddress == "" {
		return nil, fmt.Errorf("address cannot be empty")
	}

	encodedAddress := url.QueryEscape(cleanAddress)
	apiURL := fmt.Sprintf("https://nominatim.openstreetmap.org/search?q=%s&format=json&limit=1", encodedAddress)

	resp, err := doWithBackoff(apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to make geocoding request: %w", err)
	}
	defer resp.Body.Close()

	var results []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode geocoding response: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no geocoding results for %q", cleanAddress)
	}

	result := results[0]
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude in response: %w", err)
	}
	lon, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude in response: %w", err)
	}

	return &GeocodingResult{
		Latitude:  lat,
		Longitude: lon,
		City:      extractCity(result.DisplayName),
	}, nil
}

// extractCity extracts the city name from the display name
func extractCity(displayName string) string {
	parts := strings.Split(displayName, ",")
	if len(parts) > 0 {
		city := strings.TrimSpace(parts[0])
		if city != "" {
			return city
		}
	}
	return ""
}

// OSRMRouter estimates driving distance and duration via the public OSRM
// demo server. Callers treat any error as "mileage unavailable".
type OSRMRouter struct {
	BaseURL string
}

// NewOSRMRouter creates a router against the public OSRM instance
func NewOSRMRouter() *OSRMRouter {
	return &OSRMRouter{BaseURL: "https://router.project-osrm.org"}
}

// DriveRoute returns the driving distance in meters and duration in seconds
// between two coordinate pairs.
func (r *OSRMRouter) DriveRoute(fromLat, fromLng, toLat, toLng float64) (float64, float64, error) {
	if !IsLocationValid(fromLat, fromLng) || !IsLocationValid(toLat, toLng) {
		return 0, 0, fmt.Errorf("invalid coordinates")
	}

	apiURL := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		r.BaseURL, fromLng, fromLat, toLng, toLat)

	resp, err := doWithBackoff(apiURL)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to make routing request: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Code   string `json:"code"`
		Routes []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, 0, fmt.Errorf("failed to decode routing response: %w", err)
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return 0, 0, fmt.Errorf("routing service returned no route (code %s)", body.Code)
	}

	return body.Routes[0].Distance, body.Routes[0].Duration, nil
}
