package videofeed

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/creatorops/scout/internal/qualify"
)

// Client fetches the unauthenticated per-channel video feed. Any parse or
// network failure yields a nil video so one creator's failure cannot abort
// a batch.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a feed client. baseURL defaults to the public YouTube
// syndication feed; timeout defaults to 10s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://www.youtube.com/feeds/videos.xml"
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// feed mirrors the Atom document served by the syndication endpoint. Only
// the fields the pipeline needs are mapped.
type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	VideoID   string `xml:"videoId"`
	Title     string `xml:"title"`
	Published string `xml:"published"`
	Link      link   `xml:"link"`
}

type link struct {
	Href string `xml:"href,attr"`
}

// LatestVideo returns metadata for the channel's most recent public video,
// or (nil, nil) when the channel has no entries.
func (c *Client) LatestVideo(ctx context.Context, channelID string) (*qualify.LatestVideo, error) {
	endpoint := fmt.Sprintf("%s?channel_id=%s", c.baseURL, url.QueryEscape(channelID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var doc feed
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("feed parse failed: %w", err)
	}
	if len(doc.Entries) == 0 {
		return nil, nil
	}

	first := doc.Entries[0]
	published, err := time.Parse(time.RFC3339, first.Published)
	if err != nil {
		published = time.Time{}
	}
	videoURL := first.Link.Href
	if videoURL == "" {
		videoURL = "https://www.youtube.com/watch?v=" + first.VideoID
	}

	return &qualify.LatestVideo{
		VideoID:     first.VideoID,
		Title:       first.Title,
		PublishedAt: published,
		URL:         videoURL,
	}, nil
}
