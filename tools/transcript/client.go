package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/creatorops/scout/internal/qualify"
)

// Client fetches verbatim transcripts from the external transcript service.
// The service answers in one of two shapes: an immediate transcript payload,
// or a job id that must be polled until the job completes or fails. Polling
// is bounded; a job that never settles is treated as failed, not retried
// indefinitely.
type Client struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	maxAttempts  int
	httpClient   *http.Client
}

// NewClient creates a transcript service client.
func NewClient(apiKey, baseURL string, pollInterval time.Duration, maxAttempts int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.supadata.ai/v1"
	}
	if pollInterval == 0 {
		pollInterval = time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 30
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:       apiKey,
		baseURL:      baseURL,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// response covers both the synchronous and the job-handle answer. Content
// may be a plain text blob or a list of timed fragments; fragment offsets
// arrive in milliseconds.
type response struct {
	JobID   string          `json:"jobId,omitempty"`
	Status  string          `json:"status,omitempty"`
	Lang    string          `json:"lang,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type fragment struct {
	Text     string  `json:"text"`
	Offset   float64 `json:"offset"`
	Duration float64 `json:"duration"`
}

// Fetch retrieves the transcript for a video in the preferred language.
func (c *Client) Fetch(ctx context.Context, videoID, language string) (*qualify.Transcript, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("transcript api key not configured")
	}

	params := url.Values{}
	params.Set("url", "https://www.youtube.com/watch?v="+videoID)
	if language != "" {
		params.Set("lang", language)
	}

	var first response
	if err := c.get(ctx, fmt.Sprintf("%s/transcript?%s", c.baseURL, params.Encode()), &first); err != nil {
		return nil, err
	}

	if first.JobID == "" {
		return normalize(first)
	}
	return c.poll(ctx, first.JobID)
}

// poll waits for an asynchronous transcript job at a fixed interval up to
// the attempt ceiling.
func (c *Client) poll(ctx context.Context, jobID string) (*qualify.Transcript, error) {
	endpoint := fmt.Sprintf("%s/transcript/%s", c.baseURL, url.PathEscape(jobID))
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		var resp response
		if err := c.get(ctx, endpoint, &resp); err != nil {
			return nil, err
		}
		switch strings.ToLower(resp.Status) {
		case "completed":
			return normalize(resp)
		case "failed":
			return nil, fmt.Errorf("transcript job %s failed: %s", jobID, resp.Error)
		}
	}
	return nil, fmt.Errorf("transcript job %s did not complete after %d attempts", jobID, c.maxAttempts)
}

func (c *Client) get(ctx context.Context, endpoint string, out *response) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transcript request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("transcript service returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("transcript response parse failed: %w", err)
	}
	return nil
}

// normalize converts either content shape into the Transcript segment
// structure, with offsets converted from milliseconds to seconds.
func normalize(resp response) (*qualify.Transcript, error) {
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("transcript response has no content")
	}

	var blob string
	if err := json.Unmarshal(resp.Content, &blob); err == nil {
		blob = strings.TrimSpace(blob)
		if blob == "" {
			return nil, fmt.Errorf("transcript content is empty")
		}
		return &qualify.Transcript{
			Segments: []qualify.TranscriptSegment{{Text: blob}},
			FullText: blob,
			Language: resp.Lang,
		}, nil
	}

	var fragments []fragment
	if err := json.Unmarshal(resp.Content, &fragments); err != nil {
		return nil, fmt.Errorf("unrecognized transcript content shape: %w", err)
	}
	if len(fragments) == 0 {
		return nil, fmt.Errorf("transcript content is empty")
	}

	segments := make([]qualify.TranscriptSegment, 0, len(fragments))
	var full strings.Builder
	for _, f := range fragments {
		text := strings.TrimSpace(f.Text)
		if text == "" {
			continue
		}
		segments = append(segments, qualify.TranscriptSegment{
			Text:     text,
			Start:    f.Offset / 1000.0,
			Duration: f.Duration / 1000.0,
		})
		if full.Len() > 0 {
			full.WriteByte(' ')
		}
		full.WriteString(text)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("transcript content is empty")
	}

	return &qualify.Transcript{
		Segments: segments,
		FullText: full.String(),
		Language: resp.Lang,
	}, nil
}
