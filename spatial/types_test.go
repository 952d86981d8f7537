// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"math"
	"testing"
)

func TestPointString(t *testing.T) {
	p := Point{Lat: 28.5449, Lng: 77.1926}

	got := p.String()
	want := "POINT(77.192600 28.544900)"

	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestPointScan(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		wantLat float64
		wantLng float64
		wantErr bool
	}{
		{
			name:    "wkt bytes",
			value:   []byte("POINT (77.1926 28.5449)"),
			wantLat: 28.5449,
			wantLng: 77.1926,
		},
		{
			name:    "duckdb struct map",
			value:   map[string]interface{}{"x": 77.1926, "y": 28.5449},
			wantLat: 28.5449,
			wantLng: 77.1926,
		},
		{
			name:  "nil resets",
			value: nil,
		},
		{
			name:    "invalid map",
			value:   map[string]interface{}{"x": "not a float"},
			wantErr: true,
		},
		{
			name:    "unsupported type",
			value:   42,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Point

			err := p.Scan(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Scan() error = %v, wantErr %v", err, tt.wantErr)
			}

			if err != nil {
				return
			}

			if p.Lat != tt.wantLat || p.Lng != tt.wantLng {
				t.Errorf("Scan() = (%f, %f), want (%f, %f)", p.Lat, p.Lng, tt.wantLat, tt.wantLng)
			}
		})
	}
}

func TestHaversineDistance(t *testing.T) {
	// IIT Delhi to IIT Bombay is roughly 1150km.
	delhi := &Point{Lat: 28.5449, Lng: 77.1926}
	bombay := &Point{Lat: 19.1334, Lng: 72.9133}

	d := delhi.HaversineDistance(bombay)
	if d < 1100e3 || d > 1200e3 {
		t.Errorf("HaversineDistance() = %f, want ~1150km", d)
	}

	if got := delhi.HaversineDistance(delhi); got != 0 {
		t.Errorf("distance to self = %f, want 0", got)
	}
}

func TestBoundsContains(t *testing.T) {
	india := Bounds{
		SouthWest: Point{Lat: 6.5546079, Lng: 68.1113787},
		NorthEast: Point{Lat: 35.6745457, Lng: 97.395561},
	}

	tests := []struct {
		name string
		lat  float64
		lng  float64
		want bool
	}{
		{"new delhi", 28.6139, 77.2090, true},
		{"chennai", 13.0827, 80.2707, true},
		{"south boundary inclusive", 6.5546079, 77.0, true},
		{"north boundary inclusive", 35.6745457, 77.0, true},
		{"west boundary inclusive", 20.0, 68.1113787, true},
		{"east boundary inclusive", 20.0, 97.395561, true},
		{"just south", 6.5546078, 77.0, false},
		{"just north", 35.6745458, 77.0, false},
		{"colombo", 6.9271, 79.8612, true}, // inside the box even though outside the country
		{"kathmandu is inside the box", 27.7172, 85.3240, true},
		{"new york", 40.7128, -74.0060, false},
		{"london", 51.5074, -0.1278, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := india.Contains(tt.lat, tt.lng); got != tt.want {
				t.Errorf("Contains(%f, %f) = %v, want %v", tt.lat, tt.lng, got, tt.want)
			}
		})
	}
}

func TestBoundsSpan(t *testing.T) {
	b := Bounds{
		SouthWest: Point{Lat: 10, Lng: 70},
		NorthEast: Point{Lat: 12.5, Lng: 71},
	}

	latSpan, lngSpan := b.Span()
	if math.Abs(latSpan-2.5) > 1e-9 || math.Abs(lngSpan-1) > 1e-9 {
		t.Errorf("Span() = (%f, %f), want (2.5, 1)", latSpan, lngSpan)
	}
}
