package qualify

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Acquirer sequences channel resolution, latest-video fetch, and transcript
// fetch for a batch of candidates. Candidates are processed strictly
// sequentially, never concurrently: the transcript service's free tier is
// rate-limited and the fixed inter-request delay is the sole concurrency
// control.
type Acquirer struct {
	resolver    *Resolver
	feed        VideoFeed
	transcripts TranscriptService
	language    string
	delay       time.Duration
	logger      *log.Logger
}

// NewAcquirer creates an acquisition orchestrator. delay defaults to 1.2s.
func NewAcquirer(resolver *Resolver, feed VideoFeed, transcripts TranscriptService, language string, delay time.Duration, logger *log.Logger) *Acquirer {
	if delay <= 0 {
		delay = 1200 * time.Millisecond
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[ACQUIRE] ", log.LstdFlags)
	}
	return &Acquirer{
		resolver:    resolver,
		feed:        feed,
		transcripts: transcripts,
		language:    language,
		delay:       delay,
		logger:      logger,
	}
}

// AcquireAll produces exactly one TranscriptResult per candidate, in input
// order. No candidate's failure is allowed to abort the batch; exceptions
// are contained per candidate and recorded as StatusError. The only error
// returned is context cancellation.
func (a *Acquirer) AcquireAll(ctx context.Context, candidates []Candidate) ([]TranscriptResult, error) {
	results := make([]TranscriptResult, 0, len(candidates))
	fetchedAny := false

	for i, cand := range candidates {
		if i%10 == 0 {
			a.logger.Printf("acquisition progress: %d/%d", i, len(candidates))
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, fetched := a.acquireOne(ctx, cand, fetchedAny)
		fetchedAny = fetchedAny || fetched
		results = append(results, res)
	}

	a.logger.Printf("acquisition complete: %d candidates processed", len(results))
	return results, nil
}

// acquireOne runs the resolve -> latest video -> transcript chain for a
// single candidate. The bool return reports whether a transcript fetch was
// attempted, which drives the inter-request delay.
func (a *Acquirer) acquireOne(ctx context.Context, cand Candidate, delayFirst bool) (result TranscriptResult, fetched bool) {
	result = TranscriptResult{
		CandidateID: cand.ID,
		Name:        cand.Name,
		Followers:   cand.Followers,
		Topics:      cand.Topics,
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Printf("candidate %s: recovered from panic: %v", cand.ID, r)
			result.Status = StatusError
			result.Error = fmt.Sprintf("panic during acquisition: %v", r)
		}
	}()

	// No profile URL at all: short-circuit without consuming network calls.
	if cand.ChannelURL == "" {
		result.Status = StatusNoChannelLink
		return result, false
	}

	resolution := a.resolver.Resolve(ctx, cand.ChannelURL)
	result.Resolution = &resolution
	if resolution.ChannelID == "" {
		if resolution.LookupTried {
			result.Status = StatusNoChannelFound
		} else {
			result.Status = StatusNoChannelLink
		}
		result.Error = resolution.Error
		return result, false
	}

	video, err := a.feed.LatestVideo(ctx, resolution.ChannelID)
	if err != nil {
		a.logger.Printf("candidate %s: feed fetch: %v", cand.ID, err)
	}
	if video == nil {
		result.Status = StatusNoVideo
		return result, false
	}
	result.Video = video

	// Rate limit: fixed delay before every transcript fetch after the first.
	if delayFirst {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			result.Status = StatusError
			result.Error = ctx.Err().Error()
			return result, false
		}
	}

	transcript, err := a.transcripts.Fetch(ctx, video.VideoID, a.language)
	if err != nil {
		a.logger.Printf("candidate %s: transcript fetch: %v", cand.ID, err)
	}
	if transcript == nil {
		result.Status = StatusNoTranscript
		return result, true
	}

	result.Transcript = transcript
	result.Status = StatusSuccess
	return result, true
}
