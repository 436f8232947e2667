package qualify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/creatorops/scout/internal/helpers"
	"github.com/creatorops/scout/internal/telemetry"
)

// Prompt template names registered with the LLM gateway.
const (
	TemplateStage1Screen = "stage1_screen"
	TemplateStage2Rank   = "stage2_rank"
)

const stage1Template = `You are screening creators for a sponsorship campaign.

Campaign brief: {{brief}}
Campaign topics: {{topics}}

Below are candidate creators. For each one, give a fit score from 0 to 100
and a one-sentence reason. A candidate whose transcript is unavailable must
score 20 or less and be judged only on topic and follower signals.

{{candidates}}

Respond ONLY with a JSON array, one object per candidate:
[{"candidate_id": "...", "score": 0, "reason": "..."}]
Do not include any other text.`

const stage2Template = `You are selecting the final shortlist of creators for a sponsorship campaign.

Campaign brief: {{brief}}
Campaign topics: {{topics}}

Each candidate below includes their full latest-video transcript and their
preliminary screening score. Pick at most {{limit}} creators, ranked from
best to worst fit. For every selected creator include a rationale and one
verbatim supporting quote copied exactly from their transcript. List every
candidate you did not select under "rejected" with a short reason.

{{candidates}}

Respond ONLY with JSON of this exact shape:
{"selected": [{"candidate_id": "...", "rank": 1, "score": 0, "rationale": "...", "quote": "..."}],
 "rejected": [{"candidate_id": "...", "reason": "..."}]}
Do not include any other text.`

// NarrowerConfig holds the knobs of the two-stage engine. Metrics may be
// nil.
type NarrowerConfig struct {
	Stage1BatchSize int
	Stage2PoolSize  int
	ShortlistSize   int
	ExcerptChars    int
	ScreenModel     string
	RankModel       string
	Metrics         *telemetry.Metrics
}

func (c *NarrowerConfig) applyDefaults() {
	if c.Stage1BatchSize <= 0 {
		c.Stage1BatchSize = 10
	}
	if c.Stage2PoolSize <= 0 {
		c.Stage2PoolSize = 20
	}
	if c.ShortlistSize <= 0 {
		c.ShortlistSize = 10
	}
	if c.ExcerptChars <= 0 {
		c.ExcerptChars = 2000
	}
}

// Narrower runs the cheap-then-expensive two-pass narrowing over transcript
// results. Stage 1 batch-screens everyone; Stage 2 re-ranks the strongest
// subset with full transcript context. Stage 2's own failure degrades to the
// Stage 1 ranking rather than failing the run.
type Narrower struct {
	llm    LLMProvider
	cfg    NarrowerConfig
	logger *log.Logger
}

// NewNarrower creates the narrowing engine and registers its prompt
// templates with the gateway.
func NewNarrower(llm LLMProvider, cfg NarrowerConfig, logger *log.Logger) (*Narrower, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.New(log.Writer(), "[NARROW] ", log.LstdFlags)
	}
	if llm == nil {
		return nil, fmt.Errorf("llm provider is required")
	}
	if err := llm.RegisterTemplate(TemplateStage1Screen, stage1Template); err != nil {
		return nil, fmt.Errorf("registering stage 1 template: %w", err)
	}
	if err := llm.RegisterTemplate(TemplateStage2Rank, stage2Template); err != nil {
		return nil, fmt.Errorf("registering stage 2 template: %w", err)
	}
	return &Narrower{llm: llm, cfg: cfg, logger: logger}, nil
}

// Narrow screens all transcript results and returns the ranked shortlist
// plus the full Stage 1 audit trail.
func (n *Narrower) Narrow(ctx context.Context, campaign Campaign, results []TranscriptResult) (NarrowingResult, error) {
	stage1 := n.screenAll(ctx, campaign, results)

	selected, rejected := n.rankAndSelect(ctx, campaign, results, stage1)
	return NarrowingResult{
		Selected: selected,
		Rejected: rejected,
		Stage1:   stage1,
	}, nil
}

// screenAll runs Stage 1 over fixed-size batches. A batch whose model
// output cannot be parsed receives deterministic low-confidence fallback
// scores and the run continues.
func (n *Narrower) screenAll(ctx context.Context, campaign Campaign, results []TranscriptResult) []Stage1Score {
	scores := make([]Stage1Score, 0, len(results))

	for start := 0; start < len(results); start += n.cfg.Stage1BatchSize {
		end := start + n.cfg.Stage1BatchSize
		if end > len(results) {
			end = len(results)
		}
		batch := results[start:end]

		parsed := n.screenBatch(ctx, campaign, batch)
		if parsed == nil {
			n.logger.Printf("stage 1 batch %d-%d: scoring failed, applying fallback scores", start, end)
			for _, r := range batch {
				score := 5.0
				if r.Status == StatusSuccess {
					score = 30.0
				}
				scores = append(scores, Stage1Score{CandidateID: r.CandidateID, Score: score, Reason: "scoring failed"})
			}
			continue
		}
		scores = append(scores, parsed...)
	}

	return scores
}

// screenBatch issues one scoring instruction for a batch and normalizes the
// response. Returns nil when the output is unusable.
func (n *Narrower) screenBatch(ctx context.Context, campaign Campaign, batch []TranscriptResult) []Stage1Score {
	vars := map[string]string{
		"brief":      campaign.Brief,
		"topics":     strings.Join(campaign.Topics, ", "),
		"candidates": renderStage1Candidates(batch, n.cfg.ExcerptChars),
	}

	raw, err := n.llm.Generate(ctx, TemplateStage1Screen, vars, n.cfg.ScreenModel)
	if err != nil {
		n.countLLMCall(TemplateStage1Screen, "error")
		n.logger.Printf("stage 1 generate: %v", err)
		return nil
	}

	parsed := decodeInto[[]Stage1Score](raw)
	if parsed == nil || len(*parsed) == 0 {
		n.countLLMCall(TemplateStage1Screen, "parse_failed")
		return nil
	}
	n.countLLMCall(TemplateStage1Screen, "ok")

	byID := make(map[string]*TranscriptResult, len(batch))
	for i := range batch {
		byID[batch[i].CandidateID] = &batch[i]
	}

	// Tolerate duplicates and unknown ids in malformed output: keep the
	// first score per known candidate, then backfill anyone the model
	// skipped.
	seen := make(map[string]bool, len(batch))
	out := make([]Stage1Score, 0, len(batch))
	for _, s := range *parsed {
		r, ok := byID[s.CandidateID]
		if !ok || seen[s.CandidateID] {
			continue
		}
		seen[s.CandidateID] = true
		out = append(out, clampStage1(s, r))
	}
	for _, r := range batch {
		if !seen[r.CandidateID] {
			score := 5.0
			if r.Status == StatusSuccess {
				score = 30.0
			}
			out = append(out, Stage1Score{CandidateID: r.CandidateID, Score: score, Reason: "scoring failed"})
		}
	}
	return out
}

// clampStage1 bounds a score to 0-100 and enforces the no-transcript cap.
func clampStage1(s Stage1Score, r *TranscriptResult) Stage1Score {
	if s.Score < 0 {
		s.Score = 0
	}
	if s.Score > 100 {
		s.Score = 100
	}
	if r.Status != StatusSuccess && s.Score > 20 {
		s.Score = 20
	}
	return s
}

// countLLMCall records one gateway call outcome when metrics are wired.
func (n *Narrower) countLLMCall(template, outcome string) {
	if n.cfg.Metrics != nil {
		n.cfg.Metrics.LLMCalls.WithLabelValues(template, outcome).Inc()
	}
}

// stage2Response is the shape the ranking instruction must return.
type stage2Response struct {
	Selected []Stage2Selection `json:"selected"`
	Rejected []Stage2Rejection `json:"rejected"`
}

// rankAndSelect promotes the Stage 1 top scorers to a single full-context
// ranking call. Any failure falls back to the Stage 1 ranking directly.
func (n *Narrower) rankAndSelect(ctx context.Context, campaign Campaign, results []TranscriptResult, stage1 []Stage1Score) ([]Stage2Selection, []Stage2Rejection) {
	promoted := topStage1(stage1, n.cfg.Stage2PoolSize)
	if len(promoted) == 0 {
		return nil, nil
	}

	byID := make(map[string]*TranscriptResult, len(results))
	for i := range results {
		byID[results[i].CandidateID] = &results[i]
	}

	vars := map[string]string{
		"brief":      campaign.Brief,
		"topics":     strings.Join(campaign.Topics, ", "),
		"limit":      fmt.Sprintf("%d", n.cfg.ShortlistSize),
		"candidates": renderStage2Candidates(promoted, byID),
	}

	raw, err := n.llm.Generate(ctx, TemplateStage2Rank, vars, n.cfg.RankModel)
	if err != nil {
		n.countLLMCall(TemplateStage2Rank, "error")
		n.logger.Printf("stage 2 generate: %v, falling back to stage 1 ranking", err)
		return n.stage1Fallback(promoted), nil
	}

	parsed := decodeInto[stage2Response](raw)
	if parsed == nil || len(parsed.Selected) == 0 {
		n.countLLMCall(TemplateStage2Rank, "parse_failed")
		n.logger.Printf("stage 2 returned no usable selection, falling back to stage 1 ranking")
		return n.stage1Fallback(promoted), nil
	}
	n.countLLMCall(TemplateStage2Rank, "ok")

	promotedIDs := make(map[string]bool, len(promoted))
	for _, s := range promoted {
		promotedIDs[s.CandidateID] = true
	}

	// Selected entries must come from the promoted pool and stay within
	// the shortlist size.
	selected := make([]Stage2Selection, 0, n.cfg.ShortlistSize)
	seen := make(map[string]bool)
	for _, sel := range parsed.Selected {
		if !promotedIDs[sel.CandidateID] || seen[sel.CandidateID] {
			continue
		}
		seen[sel.CandidateID] = true
		selected = append(selected, sel)
		if len(selected) == n.cfg.ShortlistSize {
			break
		}
	}
	if len(selected) == 0 {
		return n.stage1Fallback(promoted), nil
	}
	sort.SliceStable(selected, func(i, j int) bool { return selected[i].Rank < selected[j].Rank })
	for i := range selected {
		selected[i].Rank = i + 1
	}
	return selected, parsed.Rejected
}

// stage1Fallback wraps the Stage 1 top scorers into selections with the
// Stage 1 reason as rationale and an empty quote.
func (n *Narrower) stage1Fallback(promoted []Stage1Score) []Stage2Selection {
	limit := n.cfg.ShortlistSize
	if limit > len(promoted) {
		limit = len(promoted)
	}
	out := make([]Stage2Selection, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, Stage2Selection{
			CandidateID: promoted[i].CandidateID,
			Rank:        i + 1,
			Score:       promoted[i].Score,
			Rationale:   promoted[i].Reason,
		})
	}
	return out
}

// topStage1 returns the top n scores, deduplicated by candidate id, sorted
// descending with a stable tie-break on input order.
func topStage1(stage1 []Stage1Score, n int) []Stage1Score {
	deduped := make([]Stage1Score, 0, len(stage1))
	seen := make(map[string]bool, len(stage1))
	for _, s := range stage1 {
		if seen[s.CandidateID] {
			continue
		}
		seen[s.CandidateID] = true
		deduped = append(deduped, s)
	}
	sort.SliceStable(deduped, func(i, j int) bool { return deduped[i].Score > deduped[j].Score })
	if len(deduped) > n {
		deduped = deduped[:n]
	}
	return deduped
}

// renderStage1Candidates builds the Stage 1 batch block. Successful
// candidates include a transcript excerpt plus video metadata; everyone
// else includes only topic/follower signals and their failure status.
func renderStage1Candidates(batch []TranscriptResult, excerptChars int) string {
	var b strings.Builder
	for i, r := range batch {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Candidate %s (%s)\n", r.CandidateID, r.Name)
		fmt.Fprintf(&b, "Topics: %s\n", strings.Join(r.Topics, ", "))
		fmt.Fprintf(&b, "Followers: %d\n", r.Followers)
		if r.Status == StatusSuccess && r.Transcript != nil {
			if r.Video != nil {
				fmt.Fprintf(&b, "Latest video: %q published %s\n", r.Video.Title, r.Video.PublishedAt.Format("2006-01-02"))
			}
			fmt.Fprintf(&b, "Transcript excerpt:\n%s", excerpt(r.Transcript.FullText, excerptChars))
		} else {
			fmt.Fprintf(&b, "Transcript unavailable (%s)", r.Status)
		}
	}
	return b.String()
}

// renderStage2Candidates builds the Stage 2 block with full transcripts.
func renderStage2Candidates(promoted []Stage1Score, byID map[string]*TranscriptResult) string {
	var b strings.Builder
	for i, s := range promoted {
		if i > 0 {
			b.WriteString("\n\n")
		}
		r := byID[s.CandidateID]
		if r == nil {
			fmt.Fprintf(&b, "Candidate %s\nScreening score: %.0f (%s)", s.CandidateID, s.Score, s.Reason)
			continue
		}
		fmt.Fprintf(&b, "Candidate %s (%s)\n", r.CandidateID, r.Name)
		fmt.Fprintf(&b, "Topics: %s\n", strings.Join(r.Topics, ", "))
		fmt.Fprintf(&b, "Followers: %d\n", r.Followers)
		fmt.Fprintf(&b, "Screening score: %.0f (%s)\n", s.Score, s.Reason)
		if r.Status == StatusSuccess && r.Transcript != nil {
			if r.Video != nil {
				fmt.Fprintf(&b, "Latest video: %q published %s\n", r.Video.Title, r.Video.PublishedAt.Format("2006-01-02"))
			}
			fmt.Fprintf(&b, "Full transcript:\n%s", r.Transcript.FullText)
		} else {
			fmt.Fprintf(&b, "Transcript unavailable (%s)", r.Status)
		}
	}
	return b.String()
}

// excerpt truncates s to at most n characters.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// decodeInto parses untrusted model text into T: direct JSON parse first,
// then the fence-stripping balanced-span extraction. Returns nil when every
// attempt is exhausted.
func decodeInto[T any](raw string) *T {
	var direct T
	if err := json.Unmarshal([]byte(raw), &direct); err == nil {
		return &direct
	}
	extracted, err := helpers.ExtractJSON(raw)
	if err != nil {
		return nil
	}
	var out T
	if err := json.Unmarshal([]byte(extracted), &out); err != nil {
		return nil
	}
	return &out
}
