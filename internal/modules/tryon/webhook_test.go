package tryon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestWebhookClient_Submit(t *testing.T) {
	t.Run("invalid request never reaches the network", func(t *testing.T) {
		var hits int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
		}))
		defer server.Close()

		client := NewWebhookClient(server.URL)
		_, err := client.Submit(context.Background(), Request{ModelInput: "https://example.com/me.png"})
		if !errors.Is(err, ErrGarmentRequired) {
			t.Fatalf("expected ErrGarmentRequired, got %v", err)
		}
		if atomic.LoadInt32(&hits) != 0 {
			t.Fatalf("no network call may be made for an invalid request")
		}
	})

	t.Run("inline png result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Accept"); !strings.Contains(got, "image/png") {
				t.Errorf("missing Accept header, got %q", got)
			}
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("\x89PNG\r\n\x1a\npixels"))
		}))
		defer server.Close()

		client := NewWebhookClient(server.URL)
		result, err := client.Submit(context.Background(), Request{
			ModelInput: "https://example.com/me.png",
			UpperInput: "https://example.com/shirt.png",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Kind != ResultInlineImage {
			t.Fatalf("expected inline image, got %d", result.Kind)
		}
	})

	t.Run("timeout surfaces as ErrSubmitTimeout", func(t *testing.T) {
		block := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-block
		}))
		defer server.Close()
		defer close(block)

		client := NewWebhookClient(server.URL)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := client.Submit(ctx, Request{
			ModelInput: "https://example.com/me.png",
			UpperInput: "https://example.com/shirt.png",
		})
		if !errors.Is(err, ErrSubmitTimeout) {
			t.Fatalf("expected ErrSubmitTimeout, got %v", err)
		}
	})
}
