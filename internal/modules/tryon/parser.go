package tryon

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/reusedev/tryon-hub/tools"
)

// WebhookParser normalizes the two response shapes the try-on webhook
// produces: a binary PNG, or a JSON payload.
type WebhookParser struct{}

func (p *WebhookParser) Parse(resp *http.Response) (*Result, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, submissionErrorFromBody(resp.StatusCode, body)
	}
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "image/png") {
		return &Result{
			Kind:         ResultInlineImage,
			ImageDataURL: tools.DataURL("image/png", body),
			StatusCode:   resp.StatusCode,
		}, nil
	}
	if json.Valid(body) {
		return &Result{
			Kind:       ResultJSON,
			JSON:       body,
			StatusCode: resp.StatusCode,
		}, nil
	}
	return nil, ErrUnexpectedFormat
}

func submissionErrorFromBody(statusCode int, body []byte) *SubmissionError {
	return &SubmissionError{
		StatusCode: statusCode,
		Message:    jsoniter.Get(body, "error", "message").ToString(),
		Raw:        jsoniter.Get(body, "error", "raw_message").ToString(),
	}
}
