// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/collegelinks/collegelinks/spatial"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleMinDelay is the floor between Google requests. The paid API is
// fast; 100ms keeps us well under its QPS limits.
const googleMinDelay = 100 * time.Millisecond

// GoogleMapsGeocoder uses the Google Maps Geocoding API, biased to India.
type GoogleMapsGeocoder struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    rateLimiter
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder.
func NewGoogleMapsGeocoder(apiKey string) *GoogleMapsGeocoder {
	return &GoogleMapsGeocoder{
		apiKey:  apiKey,
		baseURL: googleGeocodeURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rateLimiter{minDelay: googleMinDelay},
	}
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
			Viewport     struct {
				Northeast struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"northeast"`
				Southwest struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"southwest"`
			} `json:"viewport"`
		} `json:"geometry"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
		FormattedAddress string   `json:"formatted_address"`
		Types            []string `json:"types"`
	} `json:"results"`
	Status string `json:"status"` // OK, ZERO_RESULTS, OVER_QUERY_LIMIT, ...
}

// Geocode queries Google Maps for the address. (nil, nil) means no match.
func (g *GoogleMapsGeocoder) Geocode(addr string) (*Candidate, error) {
	if g.apiKey == "" {
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "google maps api key not configured"}
	}

	g.limiter.wait()

	params := url.Values{}
	params.Set("address", addr)
	params.Set("key", g.apiKey)
	params.Set("region", "in") // Bias to India

	resp, err := g.httpClient.Get(g.baseURL + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode, resp.Status)
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	switch gmResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	case "OVER_QUERY_LIMIT":
		return nil, &GeocodingError{Type: ErrorTypeQuotaExceeded, Message: "google maps status: OVER_QUERY_LIMIT"}
	default:
		return nil, fmt.Errorf("google maps status: %s", gmResp.Status)
	}

	if len(gmResp.Results) == 0 {
		return nil, nil
	}

	result := gmResp.Results[0]

	components := make([]Component, 0, len(result.AddressComponents))
	for _, c := range result.AddressComponents {
		components = append(components, Component{LongName: c.LongName, Types: c.Types})
	}

	candidate := &Candidate{
		Latitude:         result.Geometry.Location.Lat,
		Longitude:        result.Geometry.Location.Lng,
		Source:           SourceGoogle,
		FormattedAddress: result.FormattedAddress,
		LocationType:     result.Geometry.LocationType,
		PlaceTypes:       result.Types,
		Components:       components,
		Viewport: &spatial.Bounds{
			SouthWest: spatial.Point{Lat: result.Geometry.Viewport.Southwest.Lat, Lng: result.Geometry.Viewport.Southwest.Lng},
			NorthEast: spatial.Point{Lat: result.Geometry.Viewport.Northeast.Lat, Lng: result.Geometry.Viewport.Northeast.Lng},
		},
	}
	candidate.Confidence = googleConfidence(candidate)

	return candidate, nil
}

// googleConfidence scores a Google result from structural signals: the
// precision of the fix and the completeness of the returned components.
func googleConfidence(c *Candidate) float64 {
	score := 0.7 // base: Google averages higher precision than the fallback

	switch c.LocationType {
	case "ROOFTOP":
		score += 0.2
	case "RANGE_INTERPOLATED":
		score += 0.1
	}

	if c.Component("postal_code") != "" {
		score += 0.1
	}

	if c.Component("administrative_area_level_2") != "" {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}

	return score
}
