// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

// Package ml provides a learned accept/reject check for geocoding
// candidates: a logistic model over structural features of the provider
// response, trained offline on labeled samples. Without a trained model
// the validator is permissive rather than a hard gate.
package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/collegelinks/collegelinks/address"
	"github.com/collegelinks/collegelinks/geocoding"
	"github.com/collegelinks/collegelinks/utils"
)

// featureCount is the fixed width of the feature vector.
const featureCount = 10

// featureNames documents the vector layout; ExtractFeatures must fill the
// slots in this order.
var featureNames = [featureCount]string{
	"has_pin_code", "pin_match_score",
	"district_match_score", "state_match_score",
	"has_edu_keywords", "address_length",
	"component_count", "location_type_score",
	"place_type_score", "coordinate_precision",
}

// Sample is one labeled training example.
type Sample struct {
	Candidate *geocoding.Candidate `json:"candidate"`
	Metadata  *address.Metadata    `json:"metadata"`
	Valid     bool                 `json:"valid"`
}

type model struct {
	Weights   [featureCount]float64 `json:"weights"`
	Bias      float64               `json:"bias"`
	TrainedAt time.Time             `json:"trained_at"`
	Samples   int                   `json:"samples"`
}

// Validator scores candidates with a logistic model persisted as JSON.
// Accept is safe for concurrent use; Train is an offline operation and
// must not run concurrently with Accept.
type Validator struct {
	path  string
	model *model // nil until trained
}

// NewValidator loads the model from path if one exists. A missing or
// unreadable model degrades to the permissive untrained state.
func NewValidator(path string) *Validator {
	v := &Validator{path: path}

	data, err := os.ReadFile(path) // #nosec G304 - path is provided by the operator
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Error loading geocoding model from %s: %v", path, err)
		}

		return v
	}

	var m model
	if err := json.Unmarshal(data, &m); err != nil {
		log.Printf("Corrupt geocoding model at %s, starting untrained: %v", path, err)

		return v
	}

	v.model = &m

	return v
}

// Trained reports whether a model has been loaded or trained.
func (v *Validator) Trained() bool {
	return v.model != nil
}

// Accept decides whether a candidate looks like a correct geocoding for
// the address, returning the model's confidence alongside. Untrained
// validators accept everything with confidence 0.5.
func (v *Validator) Accept(c *geocoding.Candidate, md *address.Metadata) (bool, float64) {
	if v.model == nil {
		return true, 0.5
	}

	features := ExtractFeatures(c, md)

	z := v.model.Bias
	for i, x := range features {
		z += v.model.Weights[i] * x
	}

	p := sigmoid(z)

	return p >= 0.5, p
}

// Train fits the logistic model on the samples with plain gradient descent
// and persists the weights. It replaces any previously trained model.
func (v *Validator) Train(samples []Sample) error {
	if len(samples) == 0 {
		return errors.New("no training samples provided")
	}

	features := make([][featureCount]float64, len(samples))
	labels := make([]float64, len(samples))

	for i, s := range samples {
		features[i] = ExtractFeatures(s.Candidate, s.Metadata)
		if s.Valid {
			labels[i] = 1
		}
	}

	const (
		learningRate = 0.1
		epochs       = 500
	)

	m := &model{}

	for range epochs {
		var gradW [featureCount]float64

		var gradB float64

		for i, x := range features {
			z := m.Bias
			for j, xj := range x {
				z += m.Weights[j] * xj
			}

			diff := sigmoid(z) - labels[i]

			for j, xj := range x {
				gradW[j] += diff * xj
			}

			gradB += diff
		}

		n := float64(len(features))
		for j := range m.Weights {
			m.Weights[j] -= learningRate * gradW[j] / n
		}

		m.Bias -= learningRate * gradB / n
	}

	m.TrainedAt = time.Now()
	m.Samples = len(samples)
	v.model = m

	return v.save()
}

func (v *Validator) save() error {
	data, err := json.MarshalIndent(v.model, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling model: %w", err)
	}

	if dir := filepath.Dir(v.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating model directory: %w", err)
		}
	}

	if err := os.WriteFile(v.path, data, 0o600); err != nil {
		return fmt.Errorf("writing model: %w", err)
	}

	return nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// locationTypeScores ranks Google's precision tags.
var locationTypeScores = map[string]float64{
	"ROOFTOP":            1.0,
	"RANGE_INTERPOLATED": 0.8,
	"GEOMETRIC_CENTER":   0.6,
	"APPROXIMATE":        0.4,
}

// placeTypeScores ranks place tags by how strongly they suggest an
// educational institution.
var placeTypeScores = map[string]float64{
	"establishment":     0.5,
	"point_of_interest": 0.3,
	"school":            0.8,
	"university":        1.0,
}

// ExtractFeatures builds the fixed feature vector for a candidate and its
// address metadata. See featureNames for the layout.
func ExtractFeatures(c *geocoding.Candidate, md *address.Metadata) [featureCount]float64 {
	var features [featureCount]float64

	var wantPIN, wantDistrict, wantState string
	if md != nil {
		wantPIN = md.Components.PIN
		wantDistrict = md.Components.District
		wantState = md.Components.State
	}

	pin := c.Component("postal_code")
	if pin != "" {
		features[0] = 1
	}

	features[1] = similarityRatio(pin, wantPIN)
	features[2] = similarityRatio(
		utils.LowerASCIIFolding(c.Component("administrative_area_level_2")),
		utils.LowerASCIIFolding(wantDistrict),
	)
	features[3] = similarityRatio(
		utils.LowerASCIIFolding(c.Component("administrative_area_level_1")),
		utils.LowerASCIIFolding(wantState),
	)

	if geocoding.HasEducationKeywords(c) {
		features[4] = 1
	}

	features[5] = float64(len(c.FormattedAddress)) / 1000
	features[6] = float64(len(c.Components)) / 10
	features[7] = locationTypeScores[c.LocationType]

	for _, t := range c.PlaceTypes {
		if score, ok := placeTypeScores[t]; ok && score > features[8] {
			features[8] = score
		}
	}

	features[9] = viewportPrecision(c)

	return features
}

// viewportPrecision maps the viewport span to [0,1]: tighter viewports
// mean a more precise fix.
func viewportPrecision(c *geocoding.Candidate) float64 {
	if c.Viewport == nil {
		return 0
	}

	latSpan, lngSpan := c.Viewport.Span()

	span := (latSpan + lngSpan) / 2
	if span > 1 {
		span = 1
	}

	return 1 - span
}

// similarityRatio is a normalized Levenshtein similarity in [0,1].
func similarityRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}

	if a == b {
		return 1
	}

	ra, rb := []rune(a), []rune(b)

	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}

	if maxLen == 0 {
		return 0
	}

	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		cur[0] = i

		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}

		prev, cur = cur, prev
	}

	return prev[len(b)]
}
