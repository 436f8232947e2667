package channelapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLookupChannelID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		handle    string
		wantParam string
	}{
		{name: "handle uses forHandle", handle: "@techcreator", wantParam: "forHandle"},
		{name: "username uses forUsername", handle: "legacyname", wantParam: "forUsername"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get(tt.wantParam); got != tt.handle {
					t.Errorf("%s = %q, want %q", tt.wantParam, got, tt.handle)
				}
				if got := r.URL.Query().Get("key"); got != "test-key" {
					t.Errorf("key = %q", got)
				}
				fmt.Fprint(w, `{"items": [{"id": "UCresolved"}]}`)
			}))
			defer server.Close()

			id, err := NewClient("test-key", server.URL, time.Second).LookupChannelID(context.Background(), tt.handle)
			if err != nil {
				t.Fatalf("LookupChannelID: %v", err)
			}
			if id != "UCresolved" {
				t.Fatalf("id = %q", id)
			}
		})
	}
}

func TestLookupChannelIDNotFound(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": []}`)
	}))
	defer server.Close()

	id, err := NewClient("test-key", server.URL, time.Second).LookupChannelID(context.Background(), "@unknown")
	if err != nil {
		t.Fatalf("LookupChannelID: %v", err)
	}
	if id != "" {
		t.Fatalf("unknown handle must yield an empty id, got %q", id)
	}
}

func TestLookupChannelIDErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing api key", func(t *testing.T) {
		t.Parallel()
		c := NewClient("", "http://unused", time.Second)
		if _, err := c.LookupChannelID(context.Background(), "@someone"); err == nil {
			t.Fatalf("missing api key must fail before any request")
		}
	})

	t.Run("quota exceeded", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota", http.StatusForbidden)
		}))
		defer server.Close()

		if _, err := NewClient("test-key", server.URL, time.Second).LookupChannelID(context.Background(), "@someone"); err == nil {
			t.Fatalf("non-200 status must surface as an error")
		}
	})
}
