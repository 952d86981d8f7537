// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"fmt"
	"strings"

	"github.com/collegelinks/collegelinks/address"
	"github.com/collegelinks/collegelinks/spatial"
)

// indiaBounds is the bounding box used both to gate candidates and as the
// bounds term of the validation score. Both call sites must consult the
// same constants.
var indiaBounds = spatial.Bounds{
	SouthWest: spatial.Point{Lat: 6.5546079, Lng: 68.1113787},
	NorthEast: spatial.Point{Lat: 35.6745457, Lng: 97.395561},
}

// Validation score weights. Hand-tuned; they sum to 1.0 by construction.
const (
	weightDistrictMatch = 0.30
	weightStateMatch    = 0.20
	weightPINMatch      = 0.15
	weightEduKeywords   = 0.15
	weightBoundsCheck   = 0.20
)

// resultKeywords flag formatted addresses that refer to an educational
// institution.
var resultKeywords = []string{
	"university", "college", "institute", "school", "campus",
	"vishwavidyalaya", "mahavidyalaya", "vidyalaya", "shikshan",
	"polytechnic", "academy", "education",
}

// WithinIndiaBounds reports whether the coordinates fall inside India's
// bounding box. Edges are inclusive.
func WithinIndiaBounds(lat, lng float64) bool {
	return indiaBounds.Contains(lat, lng)
}

// ValidateCoordinates verifies global coordinate ranges and the India
// bounding box, returning a descriptive error on violation.
func ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90 (got %f)", lat)
	}

	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180 (got %f)", lng)
	}

	if !indiaBounds.Contains(lat, lng) {
		return fmt.Errorf("coordinates outside India bounds %v: (%f, %f)", indiaBounds, lat, lng)
	}

	return nil
}

// ValidationScore combines address metadata, the provider response and the
// bounds check into a weighted score in [0,1]. Each term contributes its
// full weight only on an exact case-insensitive match; no partial credit.
func ValidationScore(c *Candidate, md *address.Metadata) float64 {
	score := 0.0

	if md != nil {
		if district := c.Component("administrative_area_level_2"); district != "" &&
			md.Components.District != "" &&
			strings.EqualFold(district, md.Components.District) {
			score += weightDistrictMatch
		}

		if state := c.Component("administrative_area_level_1"); state != "" &&
			md.Components.State != "" &&
			strings.EqualFold(state, md.Components.State) {
			score += weightStateMatch
		}

		if pin := c.Component("postal_code"); pin != "" &&
			pin == md.Components.PIN {
			score += weightPINMatch
		}
	}

	if HasEducationKeywords(c) {
		score += weightEduKeywords
	}

	if WithinIndiaBounds(c.Latitude, c.Longitude) {
		score += weightBoundsCheck
	}

	// The weights already sum to 1.0; clamp anyway.
	if score > 1.0 {
		score = 1.0
	}

	return score
}

// HasEducationKeywords reports whether the candidate's formatted address,
// place types or components mention an educational institution.
func HasEducationKeywords(c *Candidate) bool {
	formatted := strings.ToLower(c.FormattedAddress)
	for _, kw := range resultKeywords {
		if strings.Contains(formatted, kw) {
			return true
		}
	}

	for _, t := range c.PlaceTypes {
		if t == "university" || t == "school" {
			return true
		}
	}

	for _, comp := range c.Components {
		long := strings.ToLower(comp.LongName)
		for _, kw := range resultKeywords {
			if strings.Contains(long, kw) {
				return true
			}
		}
	}

	return false
}
