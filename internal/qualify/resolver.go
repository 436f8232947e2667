package qualify

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
)

// channelIDPattern matches canonical channel ids embedded in profile URLs.
var channelIDPattern = regexp.MustCompile(`/channel/(UC[0-9A-Za-z_-]{22})`)

// Resolver maps a creator's public profile URL to a canonical channel id.
// Direct URL parsing is attempted first at zero cost; a paid API lookup is
// used only when the URL carries a handle or legacy username instead. There
// is deliberately no network search fallback, to bound cost.
type Resolver struct {
	api    ChannelAPI
	cache  ResolutionCache
	logger *log.Logger
}

// NewResolver creates a resolver. cache may be nil.
func NewResolver(api ChannelAPI, cache ResolutionCache, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(log.Writer(), "[RESOLVE] ", log.LstdFlags)
	}
	return &Resolver{api: api, cache: cache, logger: logger}
}

// Resolve produces a ChannelResolution for a free-text profile URL.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) ChannelResolution {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ChannelResolution{Method: ResolutionFailed, Error: "empty channel url"}
	}

	if m := channelIDPattern.FindStringSubmatch(rawURL); m != nil {
		return ChannelResolution{ChannelID: m[1], Method: ResolutionParsed}
	}

	handle, err := extractHandle(rawURL)
	if err != nil {
		return ChannelResolution{Method: ResolutionFailed, Error: err.Error()}
	}

	if r.cache != nil {
		if id, ok := r.cache.GetChannelID(ctx, rawURL); ok {
			return ChannelResolution{ChannelID: id, Method: ResolutionAPILookup}
		}
	}

	if r.api == nil {
		return ChannelResolution{Method: ResolutionFailed, Error: "channel api lookup not configured"}
	}

	id, err := r.api.LookupChannelID(ctx, handle)
	if err != nil {
		r.logger.Printf("lookup failed for handle %q: %v", handle, err)
		return ChannelResolution{Method: ResolutionFailed, LookupTried: true, Error: fmt.Sprintf("channel lookup failed: %v", err)}
	}
	if id == "" {
		return ChannelResolution{Method: ResolutionFailed, LookupTried: true, Error: fmt.Sprintf("no channel found for handle %q", handle)}
	}

	if r.cache != nil {
		r.cache.PutChannelID(ctx, rawURL, id)
	}
	return ChannelResolution{ChannelID: id, Method: ResolutionAPILookup}
}

// extractHandle pulls a handle, custom name, or legacy username segment out
// of a profile URL. Schemeless input defaults to https.
func extractHandle(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("unparseable url: %w", err)
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "", fmt.Errorf("url %q has no channel path", raw)
	}

	first := segments[0]
	switch {
	case strings.HasPrefix(first, "@"):
		return first, nil
	case (first == "c" || first == "user") && len(segments) > 1 && segments[1] != "":
		return segments[1], nil
	case first == "channel":
		// A /channel/ path that did not match the id pattern is malformed.
		return "", fmt.Errorf("url %q carries an invalid channel id", raw)
	default:
		// Bare custom path like youtube.com/somecreator.
		return first, nil
	}
}
