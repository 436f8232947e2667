package qualify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/creatorops/scout/internal/telemetry"
)

// Candidate pipeline stages persisted after a run.
const (
	StageSelected = "selected"
	StageExcluded = "excluded"
)

// Pipeline drives the end-to-end qualification sequence: load discovered
// candidates, acquire transcripts, narrow to a shortlist, persist state
// transitions. All collaborators are injected at construction time so tests
// can substitute doubles.
type Pipeline struct {
	candidates CandidateStore
	content    ContentStore
	activity   ActivityLog
	acquirer   *Acquirer
	narrower   *Narrower
	llm        LLMProvider
	limit      int
	shortlist  int
	metrics    *telemetry.Metrics
	logger     *log.Logger
}

// PipelineDeps bundles the collaborators of a Pipeline.
type PipelineDeps struct {
	Candidates CandidateStore
	Content    ContentStore
	Activity   ActivityLog
	Acquirer   *Acquirer
	Narrower   *Narrower // nil when the LLM gateway is not configured
	LLM        LLMProvider
	Metrics    *telemetry.Metrics
	Logger     *log.Logger
}

// NewPipeline creates the pipeline orchestrator. limit caps the discovered
// candidate batch (default 100); shortlist caps the final selection
// (default 10).
func NewPipeline(deps PipelineDeps, limit, shortlist int) (*Pipeline, error) {
	if deps.Candidates == nil {
		return nil, fmt.Errorf("candidate store is required")
	}
	if deps.Acquirer == nil {
		return nil, fmt.Errorf("acquirer is required")
	}
	if limit <= 0 {
		limit = 100
	}
	if shortlist <= 0 {
		shortlist = 10
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	}
	return &Pipeline{
		candidates: deps.Candidates,
		content:    deps.Content,
		activity:   deps.Activity,
		acquirer:   deps.Acquirer,
		narrower:   deps.Narrower,
		llm:        deps.LLM,
		limit:      limit,
		shortlist:  shortlist,
		metrics:    deps.Metrics,
		logger:     logger,
	}, nil
}

// Run executes one full qualification run for a campaign.
func (p *Pipeline) Run(ctx context.Context, campaign Campaign) (*NarrowingResult, *RunSummary, error) {
	started := time.Now()
	runID := uuid.NewString()
	if p.metrics != nil {
		p.metrics.PipelineRuns.Inc()
	}
	p.logger.Printf("run %s: starting qualification for campaign %s", runID, campaign.ID)

	candidates, err := p.candidates.DiscoveredCandidates(ctx, campaign.ID, p.limit)
	if err != nil {
		return nil, nil, fmt.Errorf("loading discovered candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil, ErrNoCandidates
	}

	results, err := p.acquirer.AcquireAll(ctx, candidates)
	if err != nil {
		return nil, nil, fmt.Errorf("transcript acquisition: %w", err)
	}

	resolved, transcripts := 0, 0
	for _, r := range results {
		if r.Resolution != nil && r.Resolution.ChannelID != "" {
			resolved++
		}
		if r.Status == StatusSuccess {
			transcripts++
		}
	}
	if p.metrics != nil {
		p.metrics.CandidatesScreened.Add(float64(len(results)))
		p.metrics.TranscriptsFetched.Add(float64(transcripts))
	}
	p.logger.Printf("run %s: %d candidates, %d channels resolved, %d transcripts", runID, len(results), resolved, transcripts)

	narrowing := p.narrow(ctx, campaign, results)
	p.logger.Printf("run %s: %d selected, %d rejected (fallback=%t)", runID, len(narrowing.Selected), len(narrowing.Rejected), narrowing.UsedFallback)

	p.persist(ctx, campaign, results, &narrowing)

	summary := RunSummary{
		RunID:        runID,
		CampaignID:   campaign.ID,
		Discovered:   len(candidates),
		Resolved:     resolved,
		Transcripts:  transcripts,
		Selected:     len(narrowing.Selected),
		Excluded:     len(results) - len(narrowing.Selected),
		UsedFallback: narrowing.UsedFallback,
		StartedAt:    started,
		FinishedAt:   time.Now(),
	}
	if p.activity != nil {
		if err := p.activity.RecordRun(ctx, summary); err != nil {
			p.logger.Printf("run %s: warn: recording activity event: %v", runID, err)
		}
	}
	if p.metrics != nil {
		p.metrics.RunDuration.Observe(time.Since(started).Seconds())
	}

	return &narrowing, &summary, nil
}

// narrow invokes the AI narrowing engine, or the deterministic heuristic
// selector when the engine is unavailable or fails outright.
func (p *Pipeline) narrow(ctx context.Context, campaign Campaign, results []TranscriptResult) NarrowingResult {
	engineAvailable := p.narrower != nil && p.llm != nil && p.llm.Available()
	if engineAvailable {
		narrowing, err := p.narrower.Narrow(ctx, campaign, results)
		if err == nil {
			return narrowing
		}
		p.logger.Printf("narrowing engine failed (%v), using heuristic selector", err)
	} else {
		p.logger.Printf("narrowing engine unavailable, using heuristic selector")
	}

	if p.metrics != nil {
		p.metrics.FallbackRuns.Inc()
	}
	return NarrowingResult{
		Selected:     HeuristicSelect(results, campaign.Topics, p.shortlist),
		UsedFallback: true,
	}
}

// persist writes content items for selected transcripts and records each
// candidate's terminal stage. Persistence failures are logged, not fatal:
// the run's results are already computed.
func (p *Pipeline) persist(ctx context.Context, campaign Campaign, results []TranscriptResult, narrowing *NarrowingResult) {
	byID := make(map[string]*TranscriptResult, len(results))
	for i := range results {
		byID[results[i].CandidateID] = &results[i]
	}
	selectedIDs := make(map[string]*Stage2Selection, len(narrowing.Selected))
	for i := range narrowing.Selected {
		selectedIDs[narrowing.Selected[i].CandidateID] = &narrowing.Selected[i]
	}

	if p.content != nil {
		for _, sel := range narrowing.Selected {
			r := byID[sel.CandidateID]
			if r == nil || r.Transcript == nil || r.Video == nil {
				continue
			}
			item := ContentItem{
				CandidateID: r.CandidateID,
				Platform:    "youtube",
				Title:       r.Video.Title,
				SourceURL:   r.Video.URL,
				PublishedAt: r.Video.PublishedAt,
				Language:    r.Transcript.Language,
				FullText:    r.Transcript.FullText,
				WordCount:   len(strings.Fields(r.Transcript.FullText)),
				Metadata: map[string]interface{}{
					"campaign_id": campaign.ID,
					"rank":        sel.Rank,
					"score":       sel.Score,
					"rationale":   sel.Rationale,
					"quote":       sel.Quote,
				},
			}
			if _, err := p.content.SaveContentItem(ctx, item); err != nil {
				p.logger.Printf("warn: saving content item for %s: %v", r.CandidateID, err)
			}
		}
	}

	for _, r := range results {
		stage := StageExcluded
		if selectedIDs[r.CandidateID] != nil {
			stage = StageSelected
		}
		if err := p.candidates.UpdateCandidateStage(ctx, r.CandidateID, stage, r.Status); err != nil {
			p.logger.Printf("warn: updating candidate %s stage: %v", r.CandidateID, err)
		}
	}
}
