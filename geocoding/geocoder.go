// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocoding resolves Indian institutional addresses to coordinates
// using multiple external providers, a persistent result cache, bounds and
// heuristic validation, and an optional learned acceptance check.
package geocoding

import (
	"time"

	"github.com/collegelinks/collegelinks/address"
	"github.com/collegelinks/collegelinks/spatial"
)

// Source identifies which provider produced a result.
type Source string

const (
	// SourceGoogle is the Google Maps Geocoding API, the primary provider.
	SourceGoogle Source = "google"
	// SourceNominatim is the OpenStreetMap Nominatim service, the fallback provider.
	SourceNominatim Source = "nominatim"
	// SourceNone marks a terminal resolution failure.
	SourceNone Source = "none"
)

// Component is one structured piece of a provider's formatted address,
// normalized to the Google address_components shape regardless of provider.
type Component struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}

// Candidate is an unvalidated coordinate result from one provider. Its
// payload fields are used only for scoring and feature extraction; the
// resolver never interprets them beyond that.
type Candidate struct {
	Latitude         float64         `json:"latitude"`
	Longitude        float64         `json:"longitude"`
	Confidence       float64         `json:"confidence"` // provider-local, in [0,1]
	Source           Source          `json:"source"`
	FormattedAddress string          `json:"formatted_address"`
	LocationType     string          `json:"location_type,omitempty"` // ROOFTOP, RANGE_INTERPOLATED, ...
	PlaceTypes       []string        `json:"place_types,omitempty"`
	Components       []Component     `json:"components,omitempty"`
	Viewport         *spatial.Bounds `json:"viewport,omitempty"`
}

// Component returns the long name of the first component carrying the
// given type tag, or "".
func (c *Candidate) Component(typ string) string {
	for _, comp := range c.Components {
		for _, t := range comp.Types {
			if t == typ {
				return comp.LongName
			}
		}
	}

	return ""
}

// Point returns the candidate's coordinates as a spatial point.
func (c *Candidate) Point() *spatial.Point {
	return &spatial.Point{Lat: c.Latitude, Lng: c.Longitude}
}

// Result is a fully resolved geocoding outcome. A nil Point together with a
// non-empty Error represents total resolution failure, which is itself a
// valid terminal value callers must check for.
type Result struct {
	Point            *spatial.Point `json:"point"`
	Confidence       float64        `json:"confidence"`
	Source           Source         `json:"source"`
	FormattedAddress string         `json:"formatted_address,omitempty"`
	Components       []Component    `json:"components,omitempty"`
	ValidationScore  float64        `json:"validation_score"`
	CreatedAt        time.Time      `json:"created_at"`
	Error            string         `json:"error,omitempty"`
}

// Failed reports whether the result is a terminal resolution failure.
func (r *Result) Failed() bool {
	return r.Point == nil
}

// Geocoder is the capability every provider adapter implements. A (nil,
// nil) return means the provider had no match; errors cover transport
// failures, provider-reported unavailability and malformed payloads. The
// resolver treats both the same way: skip and try the next provider.
type Geocoder interface {
	Geocode(address string) (*Candidate, error)
}

// AddressProcessor is the consumed address-parsing collaborator.
type AddressProcessor interface {
	Process(raw string) (string, *address.Metadata)
	Variations(normalized string, md *address.Metadata) []string
}

// AcceptanceValidator is the consumed trained-model collaborator. An
// untrained validator is expected to be permissive and return (true, 0.5).
type AcceptanceValidator interface {
	Accept(c *Candidate, md *address.Metadata) (bool, float64)
}
