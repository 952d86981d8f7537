// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

const googleOKBody = `{
	"status": "OK",
	"results": [{
		"geometry": {
			"location": {"lat": 28.5449, "lng": 77.1926},
			"location_type": "ROOFTOP",
			"viewport": {
				"northeast": {"lat": 28.5463, "lng": 77.1940},
				"southwest": {"lat": 28.5436, "lng": 77.1913}
			}
		},
		"address_components": [
			{"long_name": "110016", "types": ["postal_code"]},
			{"long_name": "South Delhi", "types": ["administrative_area_level_2", "political"]},
			{"long_name": "Delhi", "types": ["administrative_area_level_1", "political"]}
		],
		"formatted_address": "IIT Delhi, Hauz Khas, New Delhi, Delhi 110016, India",
		"types": ["university", "establishment"]
	}]
}`

func testGoogleGeocoder(handler http.HandlerFunc) (*GoogleMapsGeocoder, *httptest.Server) {
	srv := httptest.NewServer(handler)

	g := NewGoogleMapsGeocoder("test-key")
	g.baseURL = srv.URL
	g.limiter.minDelay = 0

	return g, srv
}

func TestGoogleGeocode(t *testing.T) {
	var gotQuery map[string][]string

	g, srv := testGoogleGeocoder(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, googleOKBody)
	})
	defer srv.Close()

	c, err := g.Geocode("IIT Delhi, Hauz Khas")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}

	if c == nil {
		t.Fatal("Geocode() = nil candidate")
	}

	if c.Latitude != 28.5449 || c.Longitude != 77.1926 {
		t.Errorf("coordinates = (%f, %f)", c.Latitude, c.Longitude)
	}

	if c.Source != SourceGoogle {
		t.Errorf("source = %s, want google", c.Source)
	}

	if c.LocationType != "ROOFTOP" {
		t.Errorf("location type = %q", c.LocationType)
	}

	if got := c.Component("administrative_area_level_2"); got != "South Delhi" {
		t.Errorf("district component = %q, want 'South Delhi'", got)
	}

	if c.Viewport == nil || c.Viewport.NorthEast.Lat != 28.5463 {
		t.Errorf("viewport = %+v", c.Viewport)
	}

	if gotQuery["region"][0] != "in" {
		t.Errorf("region parameter = %v, want 'in'", gotQuery["region"])
	}

	if gotQuery["key"][0] != "test-key" {
		t.Errorf("key parameter = %v", gotQuery["key"])
	}

	// ROOFTOP +0.2, postal_code +0.1, admin_area_level_2 +0.1 over the 0.7 base, clamped.
	if c.Confidence < 0.999 {
		t.Errorf("confidence = %f, want 1.0", c.Confidence)
	}
}

func TestGoogleConfidence(t *testing.T) {
	tests := []struct {
		name string
		c    *Candidate
		want float64
	}{
		{
			name: "base only",
			c:    &Candidate{LocationType: "APPROXIMATE"},
			want: 0.7,
		},
		{
			name: "range interpolated",
			c:    &Candidate{LocationType: "RANGE_INTERPOLATED"},
			want: 0.8,
		},
		{
			name: "rooftop with postal code",
			c: &Candidate{
				LocationType: "ROOFTOP",
				Components:   []Component{{LongName: "110016", Types: []string{"postal_code"}}},
			},
			want: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := googleConfidence(tt.c); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("googleConfidence() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestGoogleGeocodeZeroResults(t *testing.T) {
	g, srv := testGoogleGeocoder(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status": "ZERO_RESULTS", "results": []}`)
	})
	defer srv.Close()

	c, err := g.Geocode("gibberish")
	if err != nil {
		t.Fatalf("Geocode() error = %v, want nil", err)
	}

	if c != nil {
		t.Errorf("Geocode() = %+v, want nil candidate for no match", c)
	}
}

func TestGoogleGeocodeOverQueryLimit(t *testing.T) {
	g, srv := testGoogleGeocoder(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status": "OVER_QUERY_LIMIT", "results": []}`)
	})
	defer srv.Close()

	_, err := g.Geocode("IIT Delhi")
	if err == nil {
		t.Fatal("Geocode() error = nil, want quota error")
	}

	if !IsQuotaExceededError(err) {
		t.Errorf("IsQuotaExceededError() = false for %v", err)
	}
}

func TestGoogleGeocodeHTTPError(t *testing.T) {
	g, srv := testGoogleGeocoder(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	defer srv.Close()

	_, err := g.Geocode("IIT Delhi")
	if !IsRateLimitError(err) {
		t.Errorf("IsRateLimitError() = false for %v", err)
	}
}

func TestGoogleGeocodeMissingKey(t *testing.T) {
	g := NewGoogleMapsGeocoder("")

	_, err := g.Geocode("IIT Delhi")
	if err == nil {
		t.Fatal("Geocode() error = nil, want missing-key error")
	}

	var geoErr *GeocodingError
	if !errors.As(err, &geoErr) || geoErr.Type != ErrorTypeInvalidRequest {
		t.Errorf("error = %v, want invalid request", err)
	}
}
