package qualify

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for the conditions that abort an entire pipeline run.
var (
	ErrNoCandidates       = errors.New("no discovered candidates found for campaign")
	ErrMissingCredentials = errors.New("required API credentials are missing")
)

// Candidate is a creator under consideration for a campaign. It is an
// immutable input to the pipeline, owned by the campaign-creator subsystem.
type Candidate struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Topics     []string `json:"topics,omitempty"`
	Followers  int64    `json:"followers,omitempty"`
	ChannelURL string   `json:"channel_url,omitempty"`
}

// Campaign carries the context the narrowing engine scores against.
type Campaign struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Brief  string   `json:"brief"`
	Topics []string `json:"topics"`
}

// Resolution methods for mapping a profile URL to a channel id.
const (
	ResolutionParsed    = "parsed"
	ResolutionAPILookup = "api_lookup"
	ResolutionFailed    = "failed"
)

// ChannelResolution is the result of resolving a Candidate's URL to a
// platform channel identifier. LookupTried distinguishes a URL that never
// yielded a usable handle from one whose paid lookup came back empty.
type ChannelResolution struct {
	ChannelID   string `json:"channel_id,omitempty"`
	Method      string `json:"method"`
	Error       string `json:"error,omitempty"`
	LookupTried bool   `json:"lookup_tried,omitempty"`
}

// LatestVideo is metadata for the most recent public video on a channel.
type LatestVideo struct {
	VideoID     string    `json:"video_id"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
	URL         string    `json:"url"`
}

// TranscriptSegment is a single timed fragment of a transcript. Offsets are
// seconds from the start of the video.
type TranscriptSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Transcript is the verbatim text of a video. Never mutated after creation.
type Transcript struct {
	Segments []TranscriptSegment `json:"segments"`
	FullText string              `json:"full_text"`
	Language string              `json:"language,omitempty"`
}

// TranscriptResult statuses. StatusSuccess is the only state carrying a
// usable Transcript.
const (
	StatusSuccess        = "success"
	StatusNoChannelLink  = "no_channel_link"
	StatusNoChannelFound = "no_channel_found"
	StatusNoVideo        = "no_video"
	StatusNoTranscript   = "no_transcript"
	StatusError          = "error"
)

// TranscriptResult is the per-candidate outcome of transcript acquisition.
// Exactly one is produced per Candidate per run, in input order.
type TranscriptResult struct {
	CandidateID string             `json:"candidate_id"`
	Name        string             `json:"name"`
	Status      string             `json:"status"`
	Resolution  *ChannelResolution `json:"resolution,omitempty"`
	Video       *LatestVideo       `json:"video,omitempty"`
	Transcript  *Transcript        `json:"transcript,omitempty"`
	Error       string             `json:"error,omitempty"`
	Followers   int64              `json:"followers,omitempty"`
	Topics      []string           `json:"topics,omitempty"`
}

// Stage1Score is the cheap batch-screen verdict for one candidate.
type Stage1Score struct {
	CandidateID string  `json:"candidate_id"`
	Score       float64 `json:"score"`
	Reason      string  `json:"reason"`
}

// Stage2Selection is one shortlist entry from the rank-and-select pass.
type Stage2Selection struct {
	CandidateID string  `json:"candidate_id"`
	Rank        int     `json:"rank"`
	Score       float64 `json:"score"`
	Rationale   string  `json:"rationale"`
	Quote       string  `json:"quote,omitempty"`
}

// Stage2Rejection records why a promoted candidate was not selected.
type Stage2Rejection struct {
	CandidateID string `json:"candidate_id"`
	Reason      string `json:"reason"`
}

// NarrowingResult bundles the shortlist with the full Stage 1 audit trail.
type NarrowingResult struct {
	Selected     []Stage2Selection `json:"selected"`
	Rejected     []Stage2Rejection `json:"rejected,omitempty"`
	Stage1       []Stage1Score     `json:"stage1"`
	UsedFallback bool              `json:"used_fallback"`
}

// Scoring dimensions and their fixed weights. The overall score is always
// the weighted recomputation, never the model's self-reported figure.
const (
	DimTechnicalRelevance = "technical_relevance"
	DimAudienceAlignment  = "audience_alignment"
	DimContentQuality     = "content_quality"
	DimChannelPerformance = "channel_performance"
	DimBrandFit           = "brand_fit"
)

// DimensionScores holds the five fixed scoring dimensions (0-100 each).
type DimensionScores struct {
	TechnicalRelevance float64 `json:"technical_relevance"`
	AudienceAlignment  float64 `json:"audience_alignment"`
	ContentQuality     float64 `json:"content_quality"`
	ChannelPerformance float64 `json:"channel_performance"`
	BrandFit           float64 `json:"brand_fit"`
}

// EvidenceSnippet is a claimed quotation tied to a specific source content
// item. Created by the AI scoring call and never edited afterwards.
type EvidenceSnippet struct {
	ContentID     string   `json:"content_id"`
	Dimension     string   `json:"dimension"`
	Quote         string   `json:"quote"`
	Justification string   `json:"justification,omitempty"`
	StartSec      *float64 `json:"start_sec,omitempty"`
	EndSec        *float64 `json:"end_sec,omitempty"`
}

// EvidenceFailure records a snippet whose quote could not be verified
// against its source. Failures are retained for audit, never dropped.
type EvidenceFailure struct {
	ContentID string `json:"content_id"`
	Quote     string `json:"quote"`
}

// Coverage tiers summarizing how much valid evidence backs an evaluation.
const (
	CoverageNone   = "none"
	CoverageWeak   = "weak"
	CoverageMedium = "medium"
	CoverageStrong = "strong"
)

// Evaluation is one scoring result for a Candidate in a campaign. A later
// rescoring of the same pair supersedes it rather than merging.
type Evaluation struct {
	ID                string            `json:"id"`
	CandidateID       string            `json:"candidate_id"`
	CampaignID        string            `json:"campaign_id"`
	Dimensions        DimensionScores   `json:"dimensions"`
	OverallScore      int               `json:"overall_score"`
	Coverage          string            `json:"coverage"`
	NeedsManualReview bool              `json:"needs_manual_review"`
	ReviewReason      string            `json:"review_reason,omitempty"`
	Rationale         string            `json:"rationale,omitempty"`
	Strengths         []string          `json:"strengths,omitempty"`
	Weaknesses        []string          `json:"weaknesses,omitempty"`
	ValidEvidence     []EvidenceSnippet `json:"valid_evidence,omitempty"`
	FailedEvidence    []EvidenceFailure `json:"failed_evidence,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// RunSummary is the per-run activity event persisted for observability.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	CampaignID   string    `json:"campaign_id"`
	Discovered   int       `json:"discovered"`
	Resolved     int       `json:"resolved"`
	Transcripts  int       `json:"transcripts"`
	Selected     int       `json:"selected"`
	Excluded     int       `json:"excluded"`
	UsedFallback bool      `json:"used_fallback"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// ContentItem is a transcript persisted as a content record, keyed by a
// uniqueness constraint on SourceURL so re-runs are idempotent.
type ContentItem struct {
	ID          string                 `json:"id"`
	CandidateID string                 `json:"candidate_id"`
	Platform    string                 `json:"platform"`
	Title       string                 `json:"title"`
	SourceURL   string                 `json:"source_url"`
	PublishedAt time.Time              `json:"published_at"`
	Language    string                 `json:"language,omitempty"`
	FullText    string                 `json:"full_text"`
	WordCount   int                    `json:"word_count"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// CandidateStore reads discovered candidates and records per-candidate
// pipeline state transitions.
type CandidateStore interface {
	// DiscoveredCandidates returns candidates for a campaign ordered by
	// follower count descending, capped to limit.
	DiscoveredCandidates(ctx context.Context, campaignID string, limit int) ([]Candidate, error)

	// UpdateCandidateStage records the terminal pipeline stage and
	// acquisition status for a candidate.
	UpdateCandidateStage(ctx context.Context, candidateID, stage, status string) error
}

// ContentStore persists transcripts as content items.
type ContentStore interface {
	// SaveContentItem upserts a content item keyed by source URL and
	// returns its id.
	SaveContentItem(ctx context.Context, item ContentItem) (string, error)
}

// ActivityLog appends one structured event per pipeline run.
type ActivityLog interface {
	RecordRun(ctx context.Context, summary RunSummary) error
}

// LLMProvider is the large-language-model gateway. Prompt templates are
// registered once by name; Generate renders one with vars and returns raw
// text that must be treated as untrusted.
type LLMProvider interface {
	RegisterTemplate(name, template string) error
	Generate(ctx context.Context, templateName string, vars map[string]string, model string) (string, error)
	Available() bool
}

// TranscriptService fetches a verbatim transcript for a video, either
// immediately or through a pollable asynchronous job.
type TranscriptService interface {
	Fetch(ctx context.Context, videoID, language string) (*Transcript, error)
}

// VideoFeed retrieves latest-video metadata from an unauthenticated
// syndicated feed per channel id.
type VideoFeed interface {
	LatestVideo(ctx context.Context, channelID string) (*LatestVideo, error)
}

// ChannelAPI is the paid lookup tier that resolves a handle or legacy
// username to a channel id.
type ChannelAPI interface {
	LookupChannelID(ctx context.Context, handle string) (string, error)
}

// ResolutionCache memoizes successful URL-to-channel resolutions so repeat
// runs skip the paid lookup. Best effort: errors are ignored by callers.
type ResolutionCache interface {
	GetChannelID(ctx context.Context, url string) (string, bool)
	PutChannelID(ctx context.Context, url, channelID string)
}
