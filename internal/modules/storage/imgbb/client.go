package imgbb

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/reusedev/tryon-hub/internal/consts"
	"github.com/reusedev/tryon-hub/internal/modules/http_client"
	"github.com/reusedev/tryon-hub/internal/modules/logs"
	"github.com/reusedev/tryon-hub/internal/modules/storage"
	"github.com/reusedev/tryon-hub/tools"
)

type Client struct {
	apiKey  string
	baseURL string
	client  *http_client.HttpClient
}

func New(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: consts.ImgBBUploadURL,
		client:  http_client.NewWithTimeout(time.Minute),
	}
}

// NewWithBaseURL points the client at a non-default host.
func NewWithBaseURL(apiKey, baseURL string) *Client {
	c := New(apiKey)
	c.baseURL = baseURL
	return c
}

type uploadResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
		DeleteURL  string `json:"delete_url"`
		Error      struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"data"`
}

// Upload sends the raw file as a multipart form, the field name the host
// requires is "image".
func (c *Client) Upload(ctx context.Context, fileName string, file io.Reader) (*storage.Asset, error) {
	if c.apiKey == "" {
		return nil, storage.ErrMissingCredential
	}
	var body strings.Builder
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return c.do(ctx, strings.NewReader(body.String()), writer.FormDataContentType())
}

// UploadBase64 sends a base64 payload as a url-encoded form field. A
// leading data-URL prefix is stripped first.
func (c *Client) UploadBase64(ctx context.Context, b64 string) (*storage.Asset, error) {
	if c.apiKey == "" {
		return nil, storage.ErrMissingCredential
	}
	if idx := strings.Index(b64, "base64,"); idx != -1 {
		b64 = b64[idx+len("base64,"):]
	}
	form := url.Values{"image": {b64}}
	return c.do(ctx, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (c *Client) do(ctx context.Context, body io.Reader, contentType string) (*storage.Asset, error) {
	req, err := c.client.NewRequest(
		http.MethodPost,
		fmt.Sprintf("%s?key=%s", c.baseURL, url.QueryEscape(c.apiKey)),
		http_client.WithHeader("Content-Type", contentType),
		http_client.WithBody(body),
		http_client.WithContext(ctx),
	)
	if err != nil {
		return nil, err
	}
	reqAt := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	logs.Logger.Info().
		Str("supplier", consts.ImgBB.String()).
		Int("status_code", resp.StatusCode).
		Dur("req_consume_ms", time.Since(reqAt)).
		Msg("image host request")

	var parsed uploadResponse
	if err := jsoniter.Unmarshal(respBody, &parsed); err != nil {
		return nil, &storage.UploadError{Message: fmt.Sprintf("unexpected response: %s", respBody)}
	}
	if !parsed.Success || parsed.Status != http.StatusOK || parsed.Data.URL == "" {
		return nil, &storage.UploadError{Message: parsed.Data.Error.Message}
	}
	return &storage.Asset{
		URL:        tools.SanitizeURL(parsed.Data.URL),
		DisplayURL: tools.SanitizeURL(parsed.Data.DisplayURL),
		DeleteURL:  tools.SanitizeURL(parsed.Data.DeleteURL),
	}, nil
}
