package tryon

import (
	"context"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/reusedev/tryon-hub/internal/consts"
	"github.com/reusedev/tryon-hub/internal/modules/http_client"
	"github.com/reusedev/tryon-hub/internal/modules/logs"
	"github.com/reusedev/tryon-hub/tools"
)

// APIClient talks to the generative try-on API directly, the path that
// returns a pollable task instead of an inline result.
type APIClient struct {
	baseURL string
	apiKey  string
	client  *http_client.HttpClient
}

func NewAPIClient(baseURL, apiKey string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  http_client.NewWithTimeout(time.Minute),
	}
}

func (c *APIClient) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

type apiTaskData struct {
	TaskID string     `json:"task_id"`
	Status string     `json:"status"`
	Error  *TaskError `json:"error"`
	Output struct {
		Works []struct {
			URL   string `json:"url"`
			Image struct {
				ResourceWithoutWatermark string `json:"resource_without_watermark"`
			} `json:"image"`
		} `json:"works"`
	} `json:"output"`
}

type apiEnvelope struct {
	Code int         `json:"code"`
	Data apiTaskData `json:"data"`
}

// CreateTask submits the request. An immediate upstream "failed" is
// surfaced as TaskFailedError without creating a pollable task.
func (c *APIClient) CreateTask(ctx context.Context, request Request) (*Task, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	payload := struct {
		Input Request `json:"input"`
	}{Input: request}
	body, err := c.do(ctx, http.MethodPost, c.baseURL, payload)
	if err != nil {
		return nil, err
	}
	var envelope apiEnvelope
	if err := jsoniter.Unmarshal(body, &envelope); err != nil {
		return nil, ErrInvalidAPIResponse
	}
	if envelope.Code != http.StatusOK || envelope.Data.TaskID == "" {
		return nil, ErrInvalidAPIResponse
	}
	task := taskFromData(envelope.Data)
	if task.Status == consts.TaskStatusFailed {
		failed := &TaskFailedError{}
		if task.Error != nil {
			failed.Message = task.Error.Message
			failed.Raw = task.Error.Raw
		}
		return nil, failed
	}
	return task, nil
}

// QueryTask reads the current upstream task state. State is observed,
// never set locally.
func (c *APIClient) QueryTask(ctx context.Context, taskID string) (*Task, error) {
	body, err := c.do(ctx, http.MethodGet, tools.FullURL(c.baseURL, taskID), nil)
	if err != nil {
		return nil, err
	}
	var envelope apiEnvelope
	if err := jsoniter.Unmarshal(body, &envelope); err != nil {
		return nil, ErrInvalidAPIResponse
	}
	task := taskFromData(envelope.Data)
	task.RawData = body
	return task, nil
}

func (c *APIClient) do(ctx context.Context, method, url string, payload any) ([]byte, error) {
	options := []http_client.RequestOption{
		http_client.WithHeader("x-api-key", c.apiKey),
		http_client.WithHeader("Content-Type", "application/json"),
		http_client.WithContext(ctx),
	}
	if payload != nil {
		options = append(options, http_client.WithBody(payload))
	}
	req, err := c.client.NewRequest(method, url, options...)
	if err != nil {
		return nil, err
	}
	reqAt := time.Now()
	resp, err := c.client.Do(req)
	respAt := time.Now()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	logs.Logger.Info().
		Str("url", url).
		Str("method", method).
		Int("status_code", resp.StatusCode).
		Dur("req_consume_ms", respAt.Sub(reqAt)).
		Msg("try-on api request")
	if resp.StatusCode != http.StatusOK {
		return nil, submissionErrorFromBody(resp.StatusCode, body)
	}
	return body, nil
}

func taskFromData(data apiTaskData) *Task {
	task := &Task{
		ID:     data.TaskID,
		Status: consts.TaskStatus(data.Status),
		Error:  data.Error,
	}
	if len(data.Output.Works) != 0 {
		task.ResultURL = data.Output.Works[0].URL
		task.WatermarkFree = data.Output.Works[0].Image.ResourceWithoutWatermark
	}
	return task
}
