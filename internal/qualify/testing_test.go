package qualify

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
)

func testLogger(t *testing.T) *log.Logger {
	t.Helper()
	return log.New(io.Discard, "", 0)
}

// fakeFeed serves canned latest videos per channel id.
type fakeFeed struct {
	videos map[string]*LatestVideo
	err    error
	calls  int
}

func (f *fakeFeed) LatestVideo(_ context.Context, channelID string) (*LatestVideo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.videos[channelID], nil
}

// fakeTranscripts serves canned transcripts per video id.
type fakeTranscripts struct {
	transcripts map[string]*Transcript
	err         error
	calls       int
}

func (f *fakeTranscripts) Fetch(_ context.Context, videoID, _ string) (*Transcript, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.transcripts[videoID], nil
}

// fakeLLM replays scripted responses per template, in call order.
type fakeLLM struct {
	mu        sync.Mutex
	available bool
	responses map[string][]string
	errs      map[string]error
	calls     map[string]int
	prompts   map[string][]map[string]string
}

func newFakeLLM() *fakeLLM {
	return &fakeLLM{
		available: true,
		responses: make(map[string][]string),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
		prompts:   make(map[string][]map[string]string),
	}
}

func (f *fakeLLM) RegisterTemplate(name, template string) error {
	if name == "" || template == "" {
		return fmt.Errorf("invalid template registration")
	}
	return nil
}

func (f *fakeLLM) Available() bool { return f.available }

func (f *fakeLLM) Generate(_ context.Context, templateName string, vars map[string]string, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts[templateName] = append(f.prompts[templateName], vars)
	if err := f.errs[templateName]; err != nil {
		return "", err
	}
	queue := f.responses[templateName]
	idx := f.calls[templateName]
	f.calls[templateName]++
	if idx >= len(queue) {
		return "", fmt.Errorf("no scripted response for %s call %d", templateName, idx)
	}
	return queue[idx], nil
}

// transcriptOf builds a minimal successful transcript.
func transcriptOf(text string) *Transcript {
	return &Transcript{
		Segments: []TranscriptSegment{{Text: text}},
		FullText: text,
		Language: "en",
	}
}
