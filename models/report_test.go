package models

import (
	"reflect"
	"testing"
)

func reportWithFlags(n int) *PeriodicReport {
	// flags are filled in the canonical section order
	r := &PeriodicReport{}
	setters := []func(*PeriodicReport){
		func(r *PeriodicReport) { r.MontessoriCompleted = true },
		func(r *PeriodicReport) { r.EnglishCompleted = true },
		func(r *PeriodicReport) { r.QuranCompleted = true },
		func(r *PeriodicReport) { r.MoralValuesCompleted = true },
		func(r *PeriodicReport) { r.EtiquetteCompleted = true },
		func(r *PeriodicReport) { r.ArtMusicCompleted = true },
		func(r *PeriodicReport) { r.GuidanceCompleted = true },
	}
	for i := 0; i < n && i < len(setters); i++ {
		setters[i](r)
	}
	return r
}

func TestCompletionRate(t *testing.T) {
	tests := []struct {
		name     string
		flags    int
		expected int
	}{
		{name: "no sections", flags: 0, expected: 0},
		{name: "one section", flags: 1, expected: 14},
		{name: "three sections", flags: 3, expected: 43},
		{name: "four sections", flags: 4, expected: 57},
		{name: "six sections", flags: 6, expected: 86},
		{name: "all sections", flags: 7, expected: 100},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			r := reportWithFlags(tc.flags)
			if got := r.CompletionRate(); got != tc.expected {
				t.Fatalf("expected %d%%, got %d%%", tc.expected, got)
			}
		})
	}
}

func TestMissingSections(t *testing.T) {
	r := &PeriodicReport{
		EnglishCompleted: true,
		QuranCompleted:   true,
	}

	got := r.MissingSections(true)
	want := []string{SectionMoralValues, SectionEtiquette, SectionArtMusic, SectionGuidance}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected missing %v, got %v", want, got)
	}

	// without skipping, montessori counts as missing too
	got = r.MissingSections(false)
	if len(got) != 5 || got[0] != SectionMontessori {
		t.Fatalf("expected montessori first among 5 missing, got %v", got)
	}
}

func TestMissingSectionsAllComplete(t *testing.T) {
	r := reportWithFlags(7)
	if got := r.MissingSections(true); got != nil {
		t.Fatalf("expected no missing sections, got %v", got)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		allowed bool
	}{
		{ReportDraft, ReportCompleted, true},
		{ReportDraft, ReportDraft, true},
		{ReportDraft, ReportApproved, false},
		{ReportCompleted, ReportApproved, true},
		{ReportCompleted, ReportDraft, true},
		{ReportApproved, ReportCompleted, true},
		{ReportApproved, ReportApproved, false},
		{ReportApproved, ReportDraft, false},
		{"bogus", ReportCompleted, false},
	}

	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%q, %q) = %v, expected %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestIsValidRating(t *testing.T) {
	for _, ok := range []string{"", RatingHigh, RatingMedium, RatingLow} {
		if !IsValidRating(ok) {
			t.Errorf("expected %q to be a valid rating", ok)
		}
	}
	if IsValidRating("extreme") {
		t.Error("expected unknown rating to be rejected")
	}
}

func TestIsValidCourseType(t *testing.T) {
	for _, ct := range BranchCourseTypes {
		if !IsValidCourseType(ct) {
			t.Errorf("expected %q to be a valid course type", ct)
		}
	}
	if IsValidCourseType(SectionMontessori) {
		t.Error("montessori is not a branch course type")
	}
	if IsValidCourseType("") {
		t.Error("empty course type must be rejected")
	}
}
