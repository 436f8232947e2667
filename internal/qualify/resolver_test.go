package qualify

import (
	"context"
	"fmt"
	"testing"
)

type fakeChannelAPI struct {
	byHandle map[string]string
	err      error
	calls    int
}

func (f *fakeChannelAPI) LookupChannelID(_ context.Context, handle string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.byHandle[handle], nil
}

type fakeCache struct {
	entries map[string]string
	puts    int
}

func (f *fakeCache) GetChannelID(_ context.Context, url string) (string, bool) {
	id, ok := f.entries[url]
	return id, ok
}

func (f *fakeCache) PutChannelID(_ context.Context, url, channelID string) {
	f.puts++
	f.entries[url] = channelID
}

func TestResolveParsesChannelID(t *testing.T) {
	t.Parallel()
	api := &fakeChannelAPI{}
	r := NewResolver(api, nil, testLogger(t))

	res := r.Resolve(context.Background(), "https://www.youtube.com/channel/UCabcdefghijklmnopqrstuv")
	if res.Method != ResolutionParsed {
		t.Fatalf("method = %q, want %q", res.Method, ResolutionParsed)
	}
	if res.ChannelID != "UCabcdefghijklmnopqrstuv" {
		t.Fatalf("channel id = %q", res.ChannelID)
	}
	if api.calls != 0 {
		t.Fatalf("direct parse must not consume a paid lookup, got %d calls", api.calls)
	}
}

func TestResolveHandleLookup(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		url    string
		handle string
	}{
		{name: "at handle", url: "https://youtube.com/@techcreator", handle: "@techcreator"},
		{name: "custom path", url: "https://www.youtube.com/c/TechCreator", handle: "TechCreator"},
		{name: "legacy user", url: "https://youtube.com/user/oldname", handle: "oldname"},
		{name: "bare path", url: "youtube.com/somecreator", handle: "somecreator"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeChannelAPI{byHandle: map[string]string{tt.handle: "UC123"}}
			r := NewResolver(api, nil, testLogger(t))

			res := r.Resolve(context.Background(), tt.url)
			if res.Method != ResolutionAPILookup {
				t.Fatalf("method = %q, want %q (error: %s)", res.Method, ResolutionAPILookup, res.Error)
			}
			if res.ChannelID != "UC123" {
				t.Fatalf("channel id = %q", res.ChannelID)
			}
			if api.calls != 1 {
				t.Fatalf("expected exactly one lookup, got %d", api.calls)
			}
		})
	}
}

func TestResolveFailures(t *testing.T) {
	t.Parallel()

	t.Run("empty url", func(t *testing.T) {
		r := NewResolver(&fakeChannelAPI{}, nil, testLogger(t))
		res := r.Resolve(context.Background(), "   ")
		if res.Method != ResolutionFailed || res.ChannelID != "" {
			t.Fatalf("expected failed resolution, got %+v", res)
		}
		if res.LookupTried {
			t.Fatalf("empty url must not reach the lookup tier")
		}
	})

	t.Run("lookup finds nothing", func(t *testing.T) {
		r := NewResolver(&fakeChannelAPI{byHandle: map[string]string{}}, nil, testLogger(t))
		res := r.Resolve(context.Background(), "https://youtube.com/@unknown")
		if res.Method != ResolutionFailed {
			t.Fatalf("expected failed resolution, got %+v", res)
		}
		if !res.LookupTried {
			t.Fatalf("lookup tier was reached, LookupTried should be set")
		}
	})

	t.Run("lookup error", func(t *testing.T) {
		r := NewResolver(&fakeChannelAPI{err: fmt.Errorf("quota exceeded")}, nil, testLogger(t))
		res := r.Resolve(context.Background(), "https://youtube.com/@someone")
		if res.Method != ResolutionFailed || !res.LookupTried {
			t.Fatalf("expected failed lookup resolution, got %+v", res)
		}
	})

	t.Run("no api configured", func(t *testing.T) {
		r := NewResolver(nil, nil, testLogger(t))
		res := r.Resolve(context.Background(), "https://youtube.com/@someone")
		if res.Method != ResolutionFailed {
			t.Fatalf("expected failed resolution, got %+v", res)
		}
	})
}

func TestResolveUsesCache(t *testing.T) {
	t.Parallel()
	api := &fakeChannelAPI{byHandle: map[string]string{"@cached": "UC999"}}
	c := &fakeCache{entries: map[string]string{}}
	r := NewResolver(api, c, testLogger(t))

	url := "https://youtube.com/@cached"
	first := r.Resolve(context.Background(), url)
	if first.ChannelID != "UC999" {
		t.Fatalf("first resolve = %+v", first)
	}
	if c.puts != 1 {
		t.Fatalf("expected resolution to be cached")
	}

	second := r.Resolve(context.Background(), url)
	if second.ChannelID != "UC999" {
		t.Fatalf("second resolve = %+v", second)
	}
	if api.calls != 1 {
		t.Fatalf("cached resolve must not repeat the paid lookup, got %d calls", api.calls)
	}
}
