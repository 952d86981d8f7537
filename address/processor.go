// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

// Package address turns free-text Indian institutional addresses into a
// normalized string plus structured metadata (district, state, PIN,
// landmarks, educational keywords) used downstream for candidate validation.
package address

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/collegelinks/collegelinks/utils"
)

// Components are the structured pieces recognized in an address.
type Components struct {
	Institution string   `json:"institution,omitempty"`
	District    string   `json:"district,omitempty"`
	State       string   `json:"state,omitempty"`
	PIN         string   `json:"pin,omitempty"`
	Landmarks   []string `json:"landmarks,omitempty"`
}

// Metadata describes everything the processor learned about an address.
type Metadata struct {
	Components Components `json:"components"`
	Keywords   []string   `json:"keywords,omitempty"`
	Confidence float64    `json:"confidence"`
}

// stateNames maps the two-letter abbreviations used in UGC records to
// full state and union territory names.
var stateNames = map[string]string{
	"AP": "Andhra Pradesh",
	"AR": "Arunachal Pradesh",
	"AS": "Assam",
	"BR": "Bihar",
	"CG": "Chhattisgarh",
	"GA": "Goa",
	"GJ": "Gujarat",
	"HR": "Haryana",
	"HP": "Himachal Pradesh",
	"JH": "Jharkhand",
	"KA": "Karnataka",
	"KL": "Kerala",
	"MP": "Madhya Pradesh",
	"MH": "Maharashtra",
	"MN": "Manipur",
	"ML": "Meghalaya",
	"MZ": "Mizoram",
	"NL": "Nagaland",
	"OD": "Odisha",
	"PB": "Punjab",
	"RJ": "Rajasthan",
	"SK": "Sikkim",
	"TN": "Tamil Nadu",
	"TS": "Telangana",
	"TR": "Tripura",
	"UK": "Uttarakhand",
	"UP": "Uttar Pradesh",
	"WB": "West Bengal",
	"AN": "Andaman and Nicobar Islands",
	"CH": "Chandigarh",
	"DN": "Dadra and Nagar Haveli",
	"DD": "Daman and Diu",
	"DL": "Delhi",
	"JK": "Jammu and Kashmir",
	"LA": "Ladakh",
	"LD": "Lakshadweep",
	"PY": "Puducherry",
}

// educationalKeywords flag addresses that likely refer to an institution.
var educationalKeywords = []string{
	"university", "college", "institute", "school", "vishwavidyalaya",
	"mahavidyalaya", "vidyapeeth", "polytechnic", "iit", "nit", "iiit",
	"engineering", "medical", "technological", "technology", "sciences",
	"vidyalaya", "gurukul", "academy", "campus",
}

// landmarkPrefixes mark comma-separated segments that describe a nearby
// reference point rather than the address itself.
var landmarkPrefixes = []string{"near ", "opp ", "opp. ", "opposite ", "behind ", "beside ", "next to "}

var pinPattern = regexp.MustCompile(`\b(\d{6})\b`)

// Processor extracts structured metadata from raw addresses.
type Processor struct {
	// state (full name) -> districts, all lower-cased for matching.
	districts map[string][]string
}

// NewProcessor creates a processor without a district gazetteer. District
// extraction and the state-appended retry variation need one; everything
// else works without it.
func NewProcessor() *Processor {
	return &Processor{districts: map[string][]string{}}
}

// NewProcessorWithDistricts creates a processor with a state -> districts
// gazetteer. District names may be in any case.
func NewProcessorWithDistricts(districts map[string][]string) *Processor {
	folded := make(map[string][]string, len(districts))
	for state, ds := range districts {
		list := make([]string, 0, len(ds))
		for _, d := range ds {
			list = append(list, utils.LowerASCIIFolding(d))
		}

		folded[state] = list
	}

	return &Processor{districts: folded}
}

// LoadDistricts reads a state,district CSV (with header) into a gazetteer
// suitable for NewProcessorWithDistricts.
func LoadDistricts(path string) (map[string][]string, error) {
	f, err := os.Open(path) // #nosec G304 - path is provided by the operator
	if err != nil {
		return nil, fmt.Errorf("opening districts file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing districts file: %w", err)
	}

	districts := make(map[string][]string)

	for i, rec := range records {
		if i == 0 || len(rec) < 2 {
			continue // header
		}

		state := strings.TrimSpace(rec[0])
		district := strings.TrimSpace(rec[1])

		if state == "" || district == "" {
			continue
		}

		districts[state] = append(districts[state], district)
	}

	return districts, nil
}

// Process normalizes a raw address and extracts its metadata. The returned
// address has collapsed whitespace but keeps the original casing, which
// geocoding providers handle better than a folded string.
func (p *Processor) Process(raw string) (string, *Metadata) {
	normalized := utils.CollapseSpaces(raw)
	folded := utils.LowerASCIIFolding(normalized)

	md := &Metadata{}

	if m := pinPattern.FindStringSubmatch(normalized); m != nil {
		md.Components.PIN = m[1]
	}

	md.Components.State = extractState(normalized, folded)

	if md.Components.State != "" {
		md.Components.District = p.extractDistrict(folded, md.Components.State)
	}

	for _, kw := range educationalKeywords {
		if strings.Contains(folded, kw) {
			md.Keywords = append(md.Keywords, kw)
		}
	}

	segments := strings.Split(normalized, ",")
	if len(segments) > 0 {
		md.Components.Institution = strings.TrimSpace(segments[0])
	}

	for _, seg := range segments {
		segFolded := utils.LowerASCIIFolding(seg)
		for _, prefix := range landmarkPrefixes {
			if strings.HasPrefix(segFolded, prefix) {
				md.Components.Landmarks = append(md.Components.Landmarks, strings.TrimSpace(seg))

				break
			}
		}
	}

	md.Confidence = addressConfidence(md)

	return normalized, md
}

// addressConfidence estimates how much structure was recognized. The terms
// are tuning constants carried over from the reference data pipeline.
func addressConfidence(md *Metadata) float64 {
	score := 0.0

	if md.Components.PIN != "" {
		score += 0.3
	}

	if md.Components.State != "" {
		score += 0.3
	}

	if md.Components.District != "" {
		score += 0.2
	}

	if len(md.Keywords) > 0 {
		score += 0.2
	}

	if score > 1.0 {
		score = 1.0
	}

	return score
}

func extractState(normalized, folded string) string {
	// Full names first: they are unambiguous.
	for _, full := range stateNames {
		if strings.Contains(folded, utils.LowerASCIIFolding(full)) {
			return full
		}
	}

	// Abbreviations only as standalone tokens, to avoid matching inside words.
	tokens := strings.FieldsFunc(normalized, func(r rune) bool {
		return r == ' ' || r == ',' || r == '-'
	})
	for _, tok := range tokens {
		if full, ok := stateNames[strings.ToUpper(tok)]; ok && tok == strings.ToUpper(tok) {
			return full
		}
	}

	return ""
}

var titleCaser = cases.Title(language.English)

func (p *Processor) extractDistrict(folded, state string) string {
	for _, district := range p.districts[state] {
		if strings.Contains(folded, district) {
			return titleCaser.String(district)
		}
	}

	return ""
}

// Variations generates rewritten addresses for retrying a failed
// resolution, in preference order: a landmark-stripped variant built from
// the recognized components, then a state-appended variant when only the
// district is known.
func (p *Processor) Variations(normalized string, md *Metadata) []string {
	var variations []string

	if len(md.Components.Landmarks) > 0 {
		var parts []string

		if md.Components.District != "" {
			parts = append(parts, md.Components.District)
		}

		if md.Components.State != "" {
			parts = append(parts, md.Components.State)
		}

		if md.Components.PIN != "" {
			parts = append(parts, md.Components.PIN)
		}

		if len(parts) > 0 {
			variations = append(variations, strings.Join(parts, ", "))
		}
	}

	if md.Components.State == "" && md.Components.District != "" {
		if state := p.stateForDistrict(md.Components.District); state != "" {
			variations = append(variations, normalized+", "+state)
		}
	}

	return variations
}

func (p *Processor) stateForDistrict(district string) string {
	folded := utils.LowerASCIIFolding(district)

	for state, ds := range p.districts {
		for _, d := range ds {
			if d == folded {
				return state
			}
		}
	}

	return ""
}
