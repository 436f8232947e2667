package channelapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client resolves a handle or legacy username to a channel id through the
// YouTube Data API. This is the paid lookup tier: the resolver only calls
// it when zero-cost URL parsing could not extract a channel id.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a channel lookup client.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/youtube/v3"
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type channelListResponse struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

// LookupChannelID performs a single channels.list call. Handles starting
// with '@' query the forHandle parameter, anything else forUsername.
func (c *Client) LookupChannelID(ctx context.Context, handle string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("youtube api key not configured")
	}

	params := url.Values{}
	params.Set("part", "id")
	params.Set("key", c.apiKey)
	if strings.HasPrefix(handle, "@") {
		params.Set("forHandle", handle)
	} else {
		params.Set("forUsername", handle)
	}

	endpoint := fmt.Sprintf("%s/channels?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("channel lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("channel api returned status %d", resp.StatusCode)
	}

	var payload channelListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("channel api parse failed: %w", err)
	}
	if len(payload.Items) == 0 {
		return "", nil
	}
	return payload.Items[0].ID, nil
}
