package qualify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeCandidateStore struct {
	candidates []Candidate
	err        error
	stages     map[string]string
	statuses   map[string]string
}

func (f *fakeCandidateStore) DiscoveredCandidates(_ context.Context, _ string, limit int) ([]Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.candidates) > limit {
		return f.candidates[:limit], nil
	}
	return f.candidates, nil
}

func (f *fakeCandidateStore) UpdateCandidateStage(_ context.Context, candidateID, stage, status string) error {
	if f.stages == nil {
		f.stages = map[string]string{}
		f.statuses = map[string]string{}
	}
	f.stages[candidateID] = stage
	f.statuses[candidateID] = status
	return nil
}

type fakeContentStore struct {
	items []ContentItem
}

func (f *fakeContentStore) SaveContentItem(_ context.Context, item ContentItem) (string, error) {
	f.items = append(f.items, item)
	return fmt.Sprintf("content-%d", len(f.items)), nil
}

type fakeActivityLog struct {
	runs []RunSummary
}

func (f *fakeActivityLog) RecordRun(_ context.Context, summary RunSummary) error {
	f.runs = append(f.runs, summary)
	return nil
}

// pipelineFixture wires a full pipeline over fakes: 12 discovered
// candidates, 10 with resolvable channels, 8 of those with transcripts.
func pipelineFixture(t *testing.T, llm LLMProvider, narrower *Narrower) (*Pipeline, *fakeCandidateStore, *fakeContentStore, *fakeActivityLog) {
	t.Helper()

	candidates := make([]Candidate, 0, 12)
	feedVideos := map[string]*LatestVideo{}
	transcripts := map[string]*Transcript{}
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("c%02d", i)
		cand := Candidate{
			ID:        id,
			Name:      "Creator " + id,
			Followers: int64((12 - i) * 10000),
			Topics:    []string{"golang"},
		}
		switch {
		case i == 10:
			// No profile link at all.
		case i == 11:
			// Handle the paid lookup cannot resolve.
			cand.ChannelURL = "https://youtube.com/@ghost"
		default:
			channelID := fmt.Sprintf("UCchan%02d0000000000000000", i)
			cand.ChannelURL = "https://www.youtube.com/channel/" + channelID
			videoID := "v-" + id
			feedVideos[channelID] = &LatestVideo{
				VideoID:     videoID,
				Title:       "Video " + id,
				URL:         "https://youtube.com/watch?v=" + videoID,
				PublishedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			}
			if i < 8 {
				transcripts[videoID] = transcriptOf("deep dive on golang tooling by " + id)
			}
		}
		candidates = append(candidates, cand)
	}

	store := &fakeCandidateStore{candidates: candidates}
	content := &fakeContentStore{}
	activity := &fakeActivityLog{}
	resolver := NewResolver(&fakeChannelAPI{byHandle: map[string]string{}}, nil, testLogger(t))
	acquirer := NewAcquirer(resolver, &fakeFeed{videos: feedVideos}, &fakeTranscripts{transcripts: transcripts}, "en", time.Millisecond, testLogger(t))

	pipeline, err := NewPipeline(PipelineDeps{
		Candidates: store,
		Content:    content,
		Activity:   activity,
		Acquirer:   acquirer,
		Narrower:   narrower,
		LLM:        llm,
		Logger:     testLogger(t),
	}, 100, 10)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return pipeline, store, content, activity
}

func TestPipelineRunHeuristicFallback(t *testing.T) {
	t.Parallel()
	llm := newFakeLLM()
	llm.available = false
	pipeline, store, content, activity := pipelineFixture(t, llm, nil)

	narrowing, summary, err := pipeline.Run(context.Background(), Campaign{ID: "camp-1", Topics: []string{"go"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !narrowing.UsedFallback {
		t.Fatalf("unavailable gateway must route to the heuristic selector")
	}
	if len(narrowing.Selected) != 10 {
		t.Fatalf("selected %d, want the heuristic top 10", len(narrowing.Selected))
	}

	if summary.Discovered != 12 || summary.Resolved != 10 || summary.Transcripts != 8 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Selected != 10 || summary.Excluded != 2 {
		t.Fatalf("summary selection counts = %+v", summary)
	}
	if !summary.UsedFallback {
		t.Fatalf("summary must record the fallback")
	}

	// Every candidate gets a terminal stage and its acquisition status.
	if len(store.stages) != 12 {
		t.Fatalf("stages recorded for %d candidates, want 12", len(store.stages))
	}
	if store.statuses["c10"] != StatusNoChannelLink {
		t.Fatalf("c10 status = %q", store.statuses["c10"])
	}
	if store.statuses["c11"] != StatusNoChannelFound {
		t.Fatalf("c11 status = %q", store.statuses["c11"])
	}
	if store.stages["c00"] != StageSelected {
		t.Fatalf("top candidate must be selected, got %q", store.stages["c00"])
	}
	if store.stages["c10"] != StageExcluded || store.stages["c11"] != StageExcluded {
		t.Fatalf("unresolvable candidates must be excluded")
	}

	// Content items only for selected candidates with transcripts.
	if len(content.items) != 8 {
		t.Fatalf("content items = %d, want 8 (selected candidates holding transcripts)", len(content.items))
	}
	for _, item := range content.items {
		if item.Platform != "youtube" || item.SourceURL == "" || item.WordCount == 0 {
			t.Fatalf("content item missing fields: %+v", item)
		}
		if item.Metadata["campaign_id"] != "camp-1" {
			t.Fatalf("content item must be tagged with the campaign, got %+v", item.Metadata)
		}
	}

	if len(activity.runs) != 1 || activity.runs[0].RunID != summary.RunID {
		t.Fatalf("exactly one activity event per run, got %+v", activity.runs)
	}
}

func TestPipelineRunWithNarrowingEngine(t *testing.T) {
	t.Parallel()
	llm := newFakeLLM()
	// Two stage 1 batches of 10 at the default batch size.
	for b := 0; b < 2; b++ {
		var scores []Stage1Score
		for i := b * 10; i < (b+1)*10 && i < 12; i++ {
			scores = append(scores, Stage1Score{CandidateID: fmt.Sprintf("c%02d", i), Score: float64(90 - i), Reason: "fit"})
		}
		llm.responses[TemplateStage1Screen] = append(llm.responses[TemplateStage1Screen], stage1JSON(t, scores))
	}
	llm.responses[TemplateStage2Rank] = []string{stage2JSON(t,
		[]Stage2Selection{
			{CandidateID: "c00", Rank: 1, Score: 95, Rationale: "best", Quote: "deep dive on golang tooling by c00"},
			{CandidateID: "c01", Rank: 2, Score: 88, Rationale: "good", Quote: "deep dive on golang tooling by c01"},
		},
		[]Stage2Rejection{{CandidateID: "c02", Reason: "weaker fit"}},
	)}

	narrower, err := NewNarrower(llm, NarrowerConfig{}, testLogger(t))
	if err != nil {
		t.Fatalf("NewNarrower: %v", err)
	}
	pipeline, store, content, _ := pipelineFixture(t, llm, narrower)

	narrowing, summary, err := pipeline.Run(context.Background(), Campaign{ID: "camp-1", Topics: []string{"go"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if narrowing.UsedFallback || summary.UsedFallback {
		t.Fatalf("engine run must not report fallback")
	}
	if len(narrowing.Selected) != 2 || narrowing.Selected[0].CandidateID != "c00" {
		t.Fatalf("selected = %+v", narrowing.Selected)
	}
	if len(narrowing.Stage1) != 12 {
		t.Fatalf("stage 1 audit trail = %d scores, want 12", len(narrowing.Stage1))
	}
	if store.stages["c00"] != StageSelected || store.stages["c02"] != StageExcluded {
		t.Fatalf("stages = %+v", store.stages)
	}
	if len(content.items) != 2 {
		t.Fatalf("content items = %d, want one per selected candidate", len(content.items))
	}
	if content.items[0].Metadata["quote"] != "deep dive on golang tooling by c00" {
		t.Fatalf("selection quote must be persisted, got %+v", content.items[0].Metadata)
	}
}

func TestPipelineRunNoCandidates(t *testing.T) {
	t.Parallel()
	store := &fakeCandidateStore{}
	resolver := NewResolver(nil, nil, testLogger(t))
	acquirer := NewAcquirer(resolver, &fakeFeed{}, &fakeTranscripts{}, "en", time.Millisecond, testLogger(t))

	pipeline, err := NewPipeline(PipelineDeps{
		Candidates: store,
		Acquirer:   acquirer,
		LLM:        newFakeLLM(),
		Logger:     testLogger(t),
	}, 0, 0)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	_, _, err = pipeline.Run(context.Background(), Campaign{ID: "camp-1"})
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("err = %v, want ErrNoCandidates", err)
	}
	if len(store.stages) != 0 {
		t.Fatalf("no stage updates on an aborted run")
	}
}

func TestPipelineRunStoreError(t *testing.T) {
	t.Parallel()
	store := &fakeCandidateStore{err: errors.New("connection refused")}
	resolver := NewResolver(nil, nil, testLogger(t))
	acquirer := NewAcquirer(resolver, &fakeFeed{}, &fakeTranscripts{}, "en", time.Millisecond, testLogger(t))

	pipeline, err := NewPipeline(PipelineDeps{
		Candidates: store,
		Acquirer:   acquirer,
		Logger:     testLogger(t),
	}, 0, 0)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	_, _, err = pipeline.Run(context.Background(), Campaign{ID: "camp-1"})
	if err == nil || errors.Is(err, ErrNoCandidates) {
		t.Fatalf("store errors must surface as run errors, got %v", err)
	}
}

func TestNewPipelineValidation(t *testing.T) {
	t.Parallel()
	resolver := NewResolver(nil, nil, testLogger(t))
	acquirer := NewAcquirer(resolver, &fakeFeed{}, &fakeTranscripts{}, "en", time.Millisecond, testLogger(t))

	if _, err := NewPipeline(PipelineDeps{Acquirer: acquirer}, 0, 0); err == nil {
		t.Fatalf("missing candidate store must be rejected")
	}
	if _, err := NewPipeline(PipelineDeps{Candidates: &fakeCandidateStore{}}, 0, 0); err == nil {
		t.Fatalf("missing acquirer must be rejected")
	}
}
