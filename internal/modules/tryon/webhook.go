package tryon

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/reusedev/tryon-hub/internal/modules/http_client"
	"github.com/reusedev/tryon-hub/internal/modules/logs"
)

// SubmitTimeout bounds a webhook call. 结果图通常2分钟内返回，留出余量。
const SubmitTimeout = 4 * time.Minute

type WebhookClient struct {
	url     string
	timeout time.Duration
	parser  WebhookParser
}

func NewWebhookClient(url string) *WebhookClient {
	return &WebhookClient{
		url:     url,
		timeout: SubmitTimeout,
	}
}

// Submit posts the request and interprets the response. Invalid requests
// are rejected before any network call.
func (c *WebhookClient) Submit(ctx context.Context, request Request) (*Result, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	client := http_client.NewWithTimeout(c.timeout)
	req, err := client.NewRequest(
		http.MethodPost,
		c.url,
		http_client.WithHeader("Content-Type", "application/json"),
		http_client.WithHeader("Accept", "image/png, application/json"),
		http_client.WithBody(request),
		http_client.WithContext(ctx),
	)
	if err != nil {
		return nil, err
	}
	reqAt := time.Now()
	resp, err := client.Do(req)
	respAt := time.Now()
	if err != nil {
		if isTimeout(err) {
			return nil, ErrSubmitTimeout
		}
		return nil, err
	}
	defer resp.Body.Close()
	logs.Logger.Info().
		Str("url", c.url).
		Str("method", req.Method).
		Int("status_code", resp.StatusCode).
		Dur("req_consume_ms", respAt.Sub(reqAt)).
		Msg("try-on webhook request")
	result, err := c.parser.Parse(resp)
	if err != nil {
		return nil, err
	}
	result.DurationMs = respAt.Sub(reqAt).Milliseconds()
	return result, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}
