package qualify

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Fixed dimension weights for the overall score recomputation.
const (
	weightTechnicalRelevance = 0.30
	weightAudienceAlignment  = 0.25
	weightContentQuality     = 0.20
	weightChannelPerformance = 0.15
	weightBrandFit           = 0.10
)

// ScoringResponse is the shape of an AI scoring payload for one candidate.
// The model's self-reported OverallScore is carried only so deliberately
// inconsistent payloads can be detected in tests; it is never trusted.
type ScoringResponse struct {
	Dimensions    DimensionScores   `json:"dimensions"`
	OverallScore  float64           `json:"overall_score,omitempty"`
	Evidence      []EvidenceSnippet `json:"evidence,omitempty"`
	Rationale     string            `json:"rationale,omitempty"`
	Strengths     []string          `json:"strengths,omitempty"`
	Weaknesses    []string          `json:"weaknesses,omitempty"`
	ContentAngles []string          `json:"content_angles,omitempty"`
}

// OverallScore recomputes the weighted overall score from dimension scores,
// rounded to the nearest integer.
func OverallScore(d DimensionScores) int {
	weighted := weightTechnicalRelevance*clampScore(d.TechnicalRelevance) +
		weightAudienceAlignment*clampScore(d.AudienceAlignment) +
		weightContentQuality*clampScore(d.ContentQuality) +
		weightChannelPerformance*clampScore(d.ChannelPerformance) +
		weightBrandFit*clampScore(d.BrandFit)
	return int(math.Round(weighted))
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// BuildEvaluation turns a raw AI scoring response into an Evaluation:
// evidence is validated against its sources, coverage is classified from
// the valid snippets only, the overall score is recomputed from dimension
// scores, and any evidence failure force-flags manual review regardless of
// how high the numeric score is.
func BuildEvaluation(candidateID, campaignID string, resp ScoringResponse, sources map[string]string) Evaluation {
	valid, failures := ValidateEvidence(resp.Evidence, sources)

	eval := Evaluation{
		ID:             uuid.NewString(),
		CandidateID:    candidateID,
		CampaignID:     campaignID,
		Dimensions:     resp.Dimensions,
		OverallScore:   OverallScore(resp.Dimensions),
		Coverage:       ClassifyCoverage(valid),
		Rationale:      resp.Rationale,
		Strengths:      resp.Strengths,
		Weaknesses:     resp.Weaknesses,
		ValidEvidence:  valid,
		FailedEvidence: failures,
		CreatedAt:      time.Now().UTC(),
	}

	if len(failures) > 0 {
		eval.NeedsManualReview = true
		eval.ReviewReason = reviewReason(failures)
	}

	return eval
}
