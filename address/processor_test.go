// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testProcessor() *Processor {
	return NewProcessorWithDistricts(map[string][]string{
		"Delhi":      {"South Delhi", "New Delhi"},
		"Tamil Nadu": {"Chennai", "Coimbatore", "Vellore"},
		"Karnataka":  {"Bengaluru Urban", "Mysuru"},
	})
}

func TestProcessExtractsComponents(t *testing.T) {
	p := testProcessor()

	normalized, md := p.Process("Indian  Institute of Technology, Hauz Khas, South Delhi, Delhi 110016")

	if want := "Indian Institute of Technology, Hauz Khas, South Delhi, Delhi 110016"; normalized != want {
		t.Errorf("normalized = %q, want %q", normalized, want)
	}

	want := Components{
		Institution: "Indian Institute of Technology",
		District:    "South Delhi",
		State:       "Delhi",
		PIN:         "110016",
	}
	if diff := cmp.Diff(want, md.Components); diff != "" {
		t.Errorf("components mismatch (-want +got):\n%s", diff)
	}

	if !slices.Contains(md.Keywords, "institute") {
		t.Errorf("keywords = %v, want to contain 'institute'", md.Keywords)
	}

	// PIN + state + district + keywords all present.
	if md.Confidence != 1.0 {
		t.Errorf("confidence = %f, want 1.0", md.Confidence)
	}
}

func TestProcessConfidence(t *testing.T) {
	p := testProcessor()

	tests := []struct {
		name string
		addr string
		want float64
	}{
		{"nothing recognized", "plot 7, phase ii", 0.0},
		{"pin only", "plot 7, 600036", 0.3},
		{"state only", "somewhere in Tamil Nadu", 0.3},
		{"pin and keyword", "Engineering College, 641004", 0.5},
		{"all terms", "Anna University, Chennai, Tamil Nadu 600025", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, md := p.Process(tt.addr)
			if md.Confidence != tt.want {
				t.Errorf("confidence = %f, want %f", md.Confidence, tt.want)
			}
		})
	}
}

func TestProcessStateAbbreviation(t *testing.T) {
	p := testProcessor()

	_, md := p.Process("Government College, Vellore, TN 632001")
	if md.Components.State != "Tamil Nadu" {
		t.Errorf("state = %q, want 'Tamil Nadu'", md.Components.State)
	}

	// A lowercase token must not match as an abbreviation.
	_, md = p.Process("college up the hill")
	if md.Components.State != "" {
		t.Errorf("state = %q, want empty", md.Components.State)
	}
}

func TestProcessLandmarks(t *testing.T) {
	p := testProcessor()

	_, md := p.Process("SRM College, Near Clock Tower, opposite Bus Stand, Chennai, Tamil Nadu")

	want := []string{"Near Clock Tower", "opposite Bus Stand"}
	if diff := cmp.Diff(want, md.Components.Landmarks); diff != "" {
		t.Errorf("landmarks mismatch (-want +got):\n%s", diff)
	}
}

func TestVariationsStripLandmarks(t *testing.T) {
	p := testProcessor()

	normalized, md := p.Process("XYZ College, near Railway Station, Coimbatore, Tamil Nadu 641001")

	variations := p.Variations(normalized, md)
	if len(variations) != 1 {
		t.Fatalf("variations = %v, want exactly one", variations)
	}

	if want := "Coimbatore, Tamil Nadu, 641001"; variations[0] != want {
		t.Errorf("variation = %q, want %q", variations[0], want)
	}
}

func TestVariationsAppendState(t *testing.T) {
	p := testProcessor()

	md := &Metadata{Components: Components{District: "Mysuru"}}

	variations := p.Variations("Some College, Mysuru", md)
	if len(variations) != 1 {
		t.Fatalf("variations = %v, want exactly one", variations)
	}

	if want := "Some College, Mysuru, Karnataka"; variations[0] != want {
		t.Errorf("variation = %q, want %q", variations[0], want)
	}
}

func TestVariationsNoneWithoutSignals(t *testing.T) {
	p := testProcessor()

	normalized, md := p.Process("completely unstructured text")
	if got := p.Variations(normalized, md); len(got) != 0 {
		t.Errorf("variations = %v, want none", got)
	}
}

func TestLoadDistricts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "districts.csv")

	csv := "state,district\nTamil Nadu,Chennai\nTamil Nadu,Madurai\nKerala,Ernakulam\n,\n"
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}

	districts, err := LoadDistricts(path)
	if err != nil {
		t.Fatalf("LoadDistricts() error = %v", err)
	}

	want := map[string][]string{
		"Tamil Nadu": {"Chennai", "Madurai"},
		"Kerala":     {"Ernakulam"},
	}
	if diff := cmp.Diff(want, districts); diff != "" {
		t.Errorf("districts mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDistrictsMissingFile(t *testing.T) {
	if _, err := LoadDistricts(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("LoadDistricts() expected error for missing file")
	}
}
