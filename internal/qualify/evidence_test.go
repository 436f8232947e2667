package qualify

import (
	"strings"
	"testing"
)

func TestValidateEvidence(t *testing.T) {
	t.Parallel()
	sources := map[string]string{
		"content-1": "We ship Go services to production every single week.",
	}

	t.Run("exact substring passes", func(t *testing.T) {
		t.Parallel()
		valid, failures := ValidateEvidence([]EvidenceSnippet{
			{ContentID: "content-1", Dimension: DimTechnicalRelevance, Quote: "Go services to production"},
		}, sources)
		if len(valid) != 1 || len(failures) != 0 {
			t.Fatalf("valid=%d failures=%d", len(valid), len(failures))
		}
	})

	t.Run("single altered character fails", func(t *testing.T) {
		t.Parallel()
		valid, failures := ValidateEvidence([]EvidenceSnippet{
			{ContentID: "content-1", Dimension: DimTechnicalRelevance, Quote: "Go services to Production"},
		}, sources)
		if len(valid) != 0 || len(failures) != 1 {
			t.Fatalf("paraphrased quote must fail: valid=%d failures=%d", len(valid), len(failures))
		}
	})

	t.Run("unknown source fails", func(t *testing.T) {
		t.Parallel()
		_, failures := ValidateEvidence([]EvidenceSnippet{
			{ContentID: "content-404", Dimension: DimBrandFit, Quote: "Go services"},
		}, sources)
		if len(failures) != 1 || failures[0].ContentID != "content-404" {
			t.Fatalf("failures = %+v", failures)
		}
	})

	t.Run("empty quote fails", func(t *testing.T) {
		t.Parallel()
		_, failures := ValidateEvidence([]EvidenceSnippet{
			{ContentID: "content-1", Dimension: DimBrandFit, Quote: ""},
		}, sources)
		if len(failures) != 1 {
			t.Fatalf("failures = %+v", failures)
		}
	})

	t.Run("failure quote truncated for audit", func(t *testing.T) {
		t.Parallel()
		long := strings.Repeat("x", 200)
		_, failures := ValidateEvidence([]EvidenceSnippet{
			{ContentID: "content-1", Dimension: DimBrandFit, Quote: long},
		}, sources)
		if len(failures) != 1 || len(failures[0].Quote) != 80 {
			t.Fatalf("audit quote must be capped at 80 chars, got %d", len(failures[0].Quote))
		}
	})

	t.Run("mixed snippets keep both lists", func(t *testing.T) {
		t.Parallel()
		valid, failures := ValidateEvidence([]EvidenceSnippet{
			{ContentID: "content-1", Dimension: DimTechnicalRelevance, Quote: "every single week"},
			{ContentID: "content-1", Dimension: DimContentQuality, Quote: "invented quote"},
		}, sources)
		if len(valid) != 1 || len(failures) != 1 {
			t.Fatalf("valid=%d failures=%d", len(valid), len(failures))
		}
	})
}

func snippetGrid(count, sources, dimensions int) []EvidenceSnippet {
	dims := []string{DimTechnicalRelevance, DimAudienceAlignment, DimContentQuality, DimChannelPerformance, DimBrandFit}
	out := make([]EvidenceSnippet, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, EvidenceSnippet{
			ContentID: "content-" + string(rune('a'+i%sources)),
			Dimension: dims[i%dimensions],
			Quote:     "quote",
		})
	}
	return out
}

func TestClassifyCoverage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		snippets []EvidenceSnippet
		want     string
	}{
		{name: "none", snippets: nil, want: CoverageNone},
		{name: "single snippet is weak", snippets: snippetGrid(1, 1, 1), want: CoverageWeak},
		{name: "medium at exact threshold", snippets: snippetGrid(3, 2, 2), want: CoverageMedium},
		{name: "strong at exact threshold", snippets: snippetGrid(6, 3, 3), want: CoverageStrong},
		{name: "one snippet short of strong", snippets: snippetGrid(5, 3, 3), want: CoverageMedium},
		{name: "six snippets but two sources", snippets: snippetGrid(6, 2, 3), want: CoverageMedium},
		{name: "six snippets but two dimensions", snippets: snippetGrid(6, 3, 2), want: CoverageMedium},
		{name: "three snippets one source", snippets: snippetGrid(3, 1, 3), want: CoverageWeak},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyCoverage(tt.snippets); got != tt.want {
				t.Fatalf("ClassifyCoverage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReviewReasonListsAtMostTwoFailures(t *testing.T) {
	t.Parallel()
	failures := []EvidenceFailure{
		{ContentID: "content-1", Quote: "first bad quote"},
		{ContentID: "content-2", Quote: "second bad quote"},
		{ContentID: "content-3", Quote: "third bad quote"},
	}
	reason := reviewReason(failures)
	if !strings.Contains(reason, "content-1") || !strings.Contains(reason, "content-2") {
		t.Fatalf("reason must list the first two failures, got %q", reason)
	}
	if strings.Contains(reason, "content-3") {
		t.Fatalf("reason must stop after two failures, got %q", reason)
	}
	if reviewReason(nil) != "" {
		t.Fatalf("no failures means no reason")
	}
}
