// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/collegelinks/collegelinks/spatial"
)

const nominatimSearchURL = "https://nominatim.openstreetmap.org/search"

// nominatimMinDelay honors the usage policy of the public Nominatim
// instance: at most one request per second.
const nominatimMinDelay = time.Second

const nominatimUserAgent = "collegelinks/1.0 (geocoding of Indian educational institutions)"

// NominatimGeocoder uses the OpenStreetMap Nominatim service, restricted to
// India. It is free but slower and less precise than Google Maps, so it is
// used as the fallback provider.
type NominatimGeocoder struct {
	baseURL    string
	httpClient *http.Client
	limiter    rateLimiter
}

// NewNominatimGeocoder creates a new Nominatim geocoder.
func NewNominatimGeocoder() *NominatimGeocoder {
	return &NominatimGeocoder{
		baseURL: nominatimSearchURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rateLimiter{minDelay: nominatimMinDelay},
	}
}

type nominatimResult struct {
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	DisplayName string   `json:"display_name"`
	Category    string   `json:"category"` // jsonv2 name for the v1 "class" field
	Type        string   `json:"type"`
	BoundingBox []string `json:"boundingbox"` // minlat, maxlat, minlng, maxlng
	Address     struct {
		Postcode      string `json:"postcode"`
		State         string `json:"state"`
		StateDistrict string `json:"state_district"`
		County        string `json:"county"`
		City          string `json:"city"`
		Town          string `json:"town"`
	} `json:"address"`
}

// Geocode queries Nominatim for the address. (nil, nil) means no match.
func (n *NominatimGeocoder) Geocode(addr string) (*Candidate, error) {
	n.limiter.wait()

	params := url.Values{}
	params.Set("q", addr)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")
	params.Set("countrycodes", "in")

	req, err := http.NewRequest(http.MethodGet, n.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("User-Agent", nominatimUserAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode, resp.Status)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(results) == 0 {
		return nil, nil
	}

	return nominatimCandidate(&results[0])
}

// nominatimCandidate normalizes a Nominatim result into the common
// candidate shape, mapping OSM address fields onto the Google component
// types the scorers expect.
func nominatimCandidate(r *nominatimResult) (*Candidate, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing latitude %q: %w", r.Lat, err)
	}

	lng, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing longitude %q: %w", r.Lon, err)
	}

	var components []Component

	if r.Address.Postcode != "" {
		components = append(components, Component{LongName: r.Address.Postcode, Types: []string{"postal_code"}})
	}

	if r.Address.State != "" {
		components = append(components, Component{LongName: r.Address.State, Types: []string{"administrative_area_level_1"}})
	}

	district := r.Address.StateDistrict
	if district == "" {
		district = r.Address.County
	}

	if district != "" {
		components = append(components, Component{LongName: district, Types: []string{"administrative_area_level_2"}})
	}

	city := r.Address.City
	if city == "" {
		city = r.Address.Town
	}

	if city != "" {
		components = append(components, Component{LongName: city, Types: []string{"locality"}})
	}

	var placeTypes []string
	if r.Category != "" {
		placeTypes = append(placeTypes, r.Category)
	}

	if r.Type != "" && r.Type != r.Category {
		placeTypes = append(placeTypes, r.Type)
	}

	candidate := &Candidate{
		Latitude:         lat,
		Longitude:        lng,
		Source:           SourceNominatim,
		FormattedAddress: r.DisplayName,
		PlaceTypes:       placeTypes,
		Components:       components,
		Viewport:         nominatimViewport(r.BoundingBox),
	}
	candidate.Confidence = nominatimConfidence(r)

	return candidate, nil
}

func nominatimViewport(box []string) *spatial.Bounds {
	if len(box) != 4 {
		return nil
	}

	vals := make([]float64, 4)

	for i, s := range box {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}

		vals[i] = v
	}

	return &spatial.Bounds{
		SouthWest: spatial.Point{Lat: vals[0], Lng: vals[2]},
		NorthEast: spatial.Point{Lat: vals[1], Lng: vals[3]},
	}
}

// nominatimConfidence scores a Nominatim result from the completeness of
// its address details and whether it names an amenity.
func nominatimConfidence(r *nominatimResult) float64 {
	score := 0.6 // base: lower than Google

	if r.Address.Postcode != "" {
		score += 0.1
	}

	if r.Address.State != "" {
		score += 0.1
	}

	if r.Address.City != "" || r.Address.Town != "" {
		score += 0.1
	}

	if r.Category == "amenity" {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}

	return score
}
