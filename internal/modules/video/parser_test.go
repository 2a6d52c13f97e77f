package video

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/reusedev/tryon-hub/internal/modules/logs"
	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	logs.Logger = zerolog.Nop()
	os.Exit(m.Run())
}

func TestParseResponse(t *testing.T) {
	t.Run("resource_without_watermark wins over everything", func(t *testing.T) {
		body := `{"video_url":"https://x/wm.mp4","resource_without_watermark":"https://x/clean.mp4"}`
		parsed, err := ParseResponse("application/json", []byte(body))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if parsed.Kind != KindWatermarkFree || parsed.URL != "https://x/clean.mp4" {
			t.Fatalf("unexpected result: %+v", parsed)
		}
	})

	t.Run("alternate fields in order", func(t *testing.T) {
		cases := []struct {
			body string
			want string
		}{
			{`{"video_url":"https://x/a.mp4","url":"https://x/b.mp4"}`, "https://x/a.mp4"},
			{`{"url":"https://x/b.mp4","result_url":"https://x/c.mp4"}`, "https://x/b.mp4"},
			{`{"result_url":"https://x/c.mp4"}`, "https://x/c.mp4"},
		}
		for _, c := range cases {
			parsed, err := ParseResponse("application/json", []byte(c.body))
			if err != nil {
				t.Fatalf("unexpected error for %s: %v", c.body, err)
			}
			if parsed.Kind != KindAltURL || parsed.URL != c.want {
				t.Fatalf("body %s: got %+v, want url %s", c.body, parsed, c.want)
			}
		}
	})

	t.Run("json without url fields is an ambiguous result, not an error", func(t *testing.T) {
		body := `{"status":"queued","eta_seconds":120}`
		parsed, err := ParseResponse("application/json", []byte(body))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if parsed.Kind != KindRawJSON || string(parsed.Raw) != body {
			t.Fatalf("unexpected result: %+v", parsed)
		}
	})

	t.Run("binary video becomes a data url", func(t *testing.T) {
		parsed, err := ParseResponse("video/mp4", []byte("binary-video-bytes"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if parsed.Kind != KindBinaryVideo {
			t.Fatalf("expected binary video, got %d", parsed.Kind)
		}
		if !strings.HasPrefix(parsed.URL, "data:video/mp4;base64,") {
			t.Fatalf("unexpected data url: %s", parsed.URL)
		}
	})

	t.Run("neither json nor video fails", func(t *testing.T) {
		_, err := ParseResponse("text/html", []byte("<html>oops</html>"))
		if !errors.Is(err, ErrUnexpectedFormat) {
			t.Fatalf("expected ErrUnexpectedFormat, got %v", err)
		}
	})
}
