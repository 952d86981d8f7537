// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

package ml

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/collegelinks/collegelinks/address"
	"github.com/collegelinks/collegelinks/geocoding"
	"github.com/collegelinks/collegelinks/spatial"
)

func goodCandidate() *geocoding.Candidate {
	return &geocoding.Candidate{
		Latitude:         28.5449,
		Longitude:        77.1926,
		Source:           geocoding.SourceGoogle,
		FormattedAddress: "Indian Institute of Technology Delhi, Hauz Khas, New Delhi, Delhi 110016, India",
		LocationType:     "ROOFTOP",
		PlaceTypes:       []string{"university", "establishment"},
		Components: []geocoding.Component{
			{LongName: "110016", Types: []string{"postal_code"}},
			{LongName: "Delhi", Types: []string{"administrative_area_level_1"}},
			{LongName: "South Delhi", Types: []string{"administrative_area_level_2"}},
		},
		Viewport: &spatial.Bounds{
			SouthWest: spatial.Point{Lat: 28.5436, Lng: 77.1913},
			NorthEast: spatial.Point{Lat: 28.5463, Lng: 77.1940},
		},
	}
}

func badCandidate() *geocoding.Candidate {
	return &geocoding.Candidate{
		Latitude:         19.0,
		Longitude:        73.0,
		Source:           geocoding.SourceNominatim,
		FormattedAddress: "Unnamed Road",
		LocationType:     "APPROXIMATE",
		Viewport: &spatial.Bounds{
			SouthWest: spatial.Point{Lat: 15.0, Lng: 70.0},
			NorthEast: spatial.Point{Lat: 23.0, Lng: 76.0},
		},
	}
}

func goodMetadata() *address.Metadata {
	return &address.Metadata{
		Components: address.Components{
			District: "South Delhi",
			State:    "Delhi",
			PIN:      "110016",
		},
	}
}

func TestUntrainedAcceptsEverything(t *testing.T) {
	v := NewValidator(filepath.Join(t.TempDir(), "model.json"))

	if v.Trained() {
		t.Fatal("Trained() = true without a model file")
	}

	ok, confidence := v.Accept(badCandidate(), nil)
	if !ok {
		t.Error("untrained Accept() = false, want permissive true")
	}

	if confidence != 0.5 {
		t.Errorf("untrained confidence = %f, want 0.5", confidence)
	}
}

func TestExtractFeatures(t *testing.T) {
	features := ExtractFeatures(goodCandidate(), goodMetadata())

	if features[0] != 1 {
		t.Errorf("has_pin_code = %f, want 1", features[0])
	}

	if features[1] != 1 {
		t.Errorf("pin_match_score = %f, want 1 for an exact match", features[1])
	}

	if features[2] != 1 || features[3] != 1 {
		t.Errorf("district/state match = (%f, %f), want (1, 1)", features[2], features[3])
	}

	if features[4] != 1 {
		t.Errorf("has_edu_keywords = %f, want 1", features[4])
	}

	if features[7] != 1.0 {
		t.Errorf("location_type_score = %f, want 1.0 for ROOFTOP", features[7])
	}

	if features[8] != 1.0 {
		t.Errorf("place_type_score = %f, want 1.0 for university", features[8])
	}

	// A viewport a few hundred meters across must score close to 1.
	if features[9] < 0.99 {
		t.Errorf("coordinate_precision = %f, want near 1", features[9])
	}
}

func TestExtractFeaturesBadCandidate(t *testing.T) {
	features := ExtractFeatures(badCandidate(), goodMetadata())

	if features[0] != 0 {
		t.Errorf("has_pin_code = %f, want 0", features[0])
	}

	if features[4] != 0 {
		t.Errorf("has_edu_keywords = %f, want 0", features[4])
	}

	if got := locationTypeScores["APPROXIMATE"]; features[7] != got {
		t.Errorf("location_type_score = %f, want %f", features[7], got)
	}

	// An 8x6 degree viewport is as imprecise as it gets.
	if features[9] != 0 {
		t.Errorf("coordinate_precision = %f, want 0", features[9])
	}
}

func TestExtractFeaturesNilMetadata(t *testing.T) {
	features := ExtractFeatures(goodCandidate(), nil)

	// No expectations to match against: the match scores collapse to the
	// empty-string case.
	if features[2] != 0 || features[3] != 0 {
		t.Errorf("match scores = (%f, %f), want (0, 0)", features[2], features[3])
	}
}

func TestSimilarityRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 0},
		{"delhi", "delhi", 1},
		{"110016", "110017", 1 - 1.0/6},
		{"abc", "xyz", 0},
	}

	for _, tt := range tests {
		if got := similarityRatio(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("similarityRatio(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTrainSeparatesClasses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	v := NewValidator(path)

	var samples []Sample
	for range 20 {
		samples = append(samples,
			Sample{Candidate: goodCandidate(), Metadata: goodMetadata(), Valid: true},
			Sample{Candidate: badCandidate(), Metadata: goodMetadata(), Valid: false},
		)
	}

	if err := v.Train(samples); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if !v.Trained() {
		t.Fatal("Trained() = false after Train()")
	}

	okGood, pGood := v.Accept(goodCandidate(), goodMetadata())
	okBad, pBad := v.Accept(badCandidate(), goodMetadata())

	if !okGood {
		t.Errorf("Accept(good) = false, p = %f", pGood)
	}

	if okBad {
		t.Errorf("Accept(bad) = true, p = %f", pBad)
	}

	if pGood <= pBad {
		t.Errorf("p(good) = %f not above p(bad) = %f", pGood, pBad)
	}
}

func TestTrainPersistsModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	v := NewValidator(path)

	samples := []Sample{
		{Candidate: goodCandidate(), Metadata: goodMetadata(), Valid: true},
		{Candidate: badCandidate(), Metadata: goodMetadata(), Valid: false},
	}
	if err := v.Train(samples); err != nil {
		t.Fatal(err)
	}

	reloaded := NewValidator(path)
	if !reloaded.Trained() {
		t.Fatal("reloaded validator is untrained")
	}

	if reloaded.model.Samples != 2 {
		t.Errorf("reloaded sample count = %d, want 2", reloaded.model.Samples)
	}

	_, pOriginal := v.Accept(goodCandidate(), goodMetadata())

	_, pReloaded := reloaded.Accept(goodCandidate(), goodMetadata())
	if math.Abs(pOriginal-pReloaded) > 1e-9 {
		t.Errorf("reloaded model scores differently: %f vs %f", pOriginal, pReloaded)
	}
}

func TestTrainEmptySamples(t *testing.T) {
	v := NewValidator(filepath.Join(t.TempDir(), "model.json"))
	if err := v.Train(nil); err == nil {
		t.Error("Train(nil) error = nil, want error")
	}
}

func TestCorruptModelDegradesToUntrained(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}

	v := NewValidator(path)
	if v.Trained() {
		t.Error("Trained() = true for a corrupt model file")
	}

	if ok, p := v.Accept(goodCandidate(), goodMetadata()); !ok || p != 0.5 {
		t.Errorf("Accept() = (%v, %f), want permissive (true, 0.5)", ok, p)
	}
}
