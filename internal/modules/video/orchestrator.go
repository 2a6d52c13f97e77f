package video

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/reusedev/tryon-hub/internal/consts"
	"github.com/reusedev/tryon-hub/internal/modules/cache"
	"github.com/reusedev/tryon-hub/internal/modules/http_client"
	"github.com/reusedev/tryon-hub/internal/modules/logs"
	"github.com/reusedev/tryon-hub/internal/modules/model"
	"github.com/reusedev/tryon-hub/internal/modules/storage"
	"github.com/reusedev/tryon-hub/tools"
)

const (
	// SubmitTimeout bounds one webhook call. 视频生成经常超过5分钟。
	SubmitTimeout      = 10 * time.Minute
	RecoverInterval    = 30 * time.Second
	RecoverMaxAttempts = 20
	// MinSourceDimension is the smallest source the video webhook accepts.
	MinSourceDimension = 300

	resultMemoTTL = time.Hour
)

var (
	ErrImageRequired = errors.New("result image is required")
	// ErrGatewayTimeout is the upstream 524: the intermediary gave up
	// waiting, the job may still be running server-side.
	ErrGatewayTimeout = errors.New("request failed with status code 524")
	ErrSubmitTimeout  = errors.New("video webhook timed out")
	// ErrRecoveryExhausted ends the secondary polling loop.
	ErrRecoveryExhausted = errors.New("video generation timed out after multiple attempts")
)

// UpstreamError is a non-524 rejection from the video webhook.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("video webhook failed with status code %d", e.StatusCode)
}

type Outcome struct {
	Status         consts.TaskStatus
	ResultVideoURL string
	Raw            []byte
	Progress       int
	Message        string
	GatewayTimeout bool
}

// Orchestrator drives video generation: de-duplicates concurrent requests
// per image, upgrades undersized sources, submits to the webhook with a
// bounded wait, and falls back to a long-horizon retry loop on 524.
type Orchestrator struct {
	ctx        context.Context
	webhookURL string
	uploader   storage.Uploader
	registry   *Registry
	results    *cache.Manager[string]

	submitTimeout      time.Duration
	recoverInterval    time.Duration
	maxRecoverAttempts int

	// History hooks. A task row exists only for requests the registry
	// admits, and whoever finishes the submission finishes the row.
	createTask func(sourceURL string) int
	finishTask func(id int, status consts.TaskStatus, resultURL, failedReason string)
}

func NewOrchestrator(ctx context.Context, webhookURL string, uploader storage.Uploader, registry *Registry) *Orchestrator {
	return &Orchestrator{
		ctx:                ctx,
		webhookURL:         webhookURL,
		uploader:           uploader,
		registry:           registry,
		results:            cache.NewManager[string](resultMemoTTL),
		submitTimeout:      SubmitTimeout,
		recoverInterval:    RecoverInterval,
		maxRecoverAttempts: RecoverMaxAttempts,
		createTask: func(sourceURL string) int {
			return model.CreateTask(consts.TaskKindVideo, sourceURL, consts.TaskStatusUploading)
		},
		finishTask: model.FinishTask,
	}
}

// Generate runs the primary submission flow. A 524 leaves the registry
// entry in place and continues in the background, the caller sees a
// processing outcome and polls by re-invoking Generate.
func (o *Orchestrator) Generate(ctx context.Context, imageURL string) (*Outcome, error) {
	if imageURL == "" {
		return nil, ErrImageRequired
	}
	key := RequestKey(imageURL)
	if url, err := o.results.GetValue(key); err == nil && url != "" {
		return &Outcome{
			Status:         consts.TaskStatusCompleted,
			ResultVideoURL: url,
			Progress:       100,
			Message:        "Successfully generated video",
		}, nil
	}
	if !o.registry.Begin(key) {
		return o.processingOutcome(key), nil
	}
	taskId := o.createTask(imageURL)
	srcURL := o.ensureMinimumSize(ctx, imageURL)
	parsed, err := o.submit(ctx, srcURL)
	if err == nil {
		return o.complete(key, taskId, parsed), nil
	}
	if errors.Is(err, ErrGatewayTimeout) {
		// The job may still finish server-side. Recover on the service
		// context so a disconnected client does not cancel it.
		go func() {
			if _, err := o.Recover(o.ctx, key, srcURL, taskId); err != nil && !errors.Is(err, context.Canceled) {
				logs.Logger.Error().Err(err).Str("request_key", key).Msg("video recovery ended without result")
			}
		}()
		out := o.processingOutcome(key)
		out.GatewayTimeout = true
		out.Message = "The video generation is taking longer than expected. Please wait or try again later."
		return out, nil
	}
	o.fail(key, taskId, err)
	return nil, err
}

// Recover re-submits the identical request on a fixed schedule after a
// 524. Another 524 means still running, any other error is terminal.
func (o *Orchestrator) Recover(ctx context.Context, key, imageURL string, taskId int) (*Outcome, error) {
	t := time.NewTicker(o.recoverInterval)
	defer t.Stop()
	for attempt := 1; attempt <= o.maxRecoverAttempts; attempt++ {
		select {
		case <-ctx.Done():
			o.fail(key, taskId, ctx.Err())
			return nil, ctx.Err()
		case <-t.C:
		}
		logs.Logger.Info().
			Str("request_key", key).
			Int("attempt", attempt).
			Int("max_attempts", o.maxRecoverAttempts).
			Msg("polling for video result")
		parsed, err := o.submit(ctx, imageURL)
		if err == nil {
			return o.complete(key, taskId, parsed), nil
		}
		if errors.Is(err, ErrGatewayTimeout) {
			continue
		}
		o.fail(key, taskId, err)
		return nil, err
	}
	o.fail(key, taskId, ErrRecoveryExhausted)
	return nil, ErrRecoveryExhausted
}

func (o *Orchestrator) processingOutcome(key string) *Outcome {
	progress := progressFloor
	if startedAt, ok := o.registry.StartedAt(key); ok {
		progress = EstimateProgress(time.Since(startedAt))
	}
	return &Outcome{
		Status:   consts.TaskStatusProcessing,
		Progress: progress,
		Message:  "Your video is still being generated. Please wait.",
	}
}

// complete memoizes the result before releasing the registry entry so a
// duplicate request in that window still never reaches the upstream.
func (o *Orchestrator) complete(key string, taskId int, parsed *Parsed) *Outcome {
	out := &Outcome{
		Status:   consts.TaskStatusCompleted,
		Progress: 100,
		Message:  "Successfully generated video",
	}
	if parsed.Kind == KindRawJSON {
		o.finishTask(taskId, consts.TaskStatusCompleted, "", "")
		o.registry.Clear(key)
		out.Raw = parsed.Raw
		return out
	}
	out.ResultVideoURL = parsed.URL
	if err := o.results.SetWithExpiration(key, parsed.URL, resultMemoTTL); err != nil {
		logs.Logger.Err(err).Str("request_key", key).Msg("memoize video result")
	}
	o.finishTask(taskId, consts.TaskStatusCompleted, parsed.URL, "")
	o.registry.Clear(key)
	return out
}

func (o *Orchestrator) fail(key string, taskId int, cause error) {
	o.finishTask(taskId, consts.TaskStatusFailed, "", cause.Error())
	o.registry.Clear(key)
}

func (o *Orchestrator) submit(ctx context.Context, imageURL string) (*Parsed, error) {
	ctx, cancel := context.WithTimeout(ctx, o.submitTimeout)
	defer cancel()
	client := http_client.New()
	req, err := client.NewRequest(
		http.MethodPost,
		o.webhookURL,
		http_client.WithHeader("Content-Type", "application/json"),
		http_client.WithHeader("Accept", "video/mp4, application/json"),
		http_client.WithBody(map[string]string{"image_url": imageURL}),
		http_client.WithContext(ctx),
	)
	if err != nil {
		return nil, err
	}
	reqAt := time.Now()
	resp, err := client.Do(req)
	respAt := time.Now()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrSubmitTimeout
		}
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	logs.Logger.Info().
		Str("url", o.webhookURL).
		Str("method", req.Method).
		Int("status_code", resp.StatusCode).
		Dur("req_consume_ms", respAt.Sub(reqAt)).
		Msg("video webhook request")
	if resp.StatusCode == consts.StatusGatewayTimeout {
		return nil, ErrGatewayTimeout
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    jsoniter.Get(body, "error", "message").ToString(),
		}
	}
	return ParseResponse(resp.Header.Get("Content-Type"), body)
}

// ensureMinimumSize upgrades an undersized source image and re-uploads it
// for a fresh URL. Every failure falls back to the original URL, the
// webhook gets a chance either way.
func (o *Orchestrator) ensureMinimumSize(ctx context.Context, imageURL string) string {
	var data []byte
	var err error
	switch {
	case strings.HasPrefix(imageURL, "http"):
		data, _, err = tools.GetOnlineImage(ctx, imageURL)
	case strings.HasPrefix(imageURL, "data:"):
		_, data, err = tools.ParseDataURL(imageURL)
	default:
		err = fmt.Errorf("unsupported image format")
	}
	if err != nil {
		logs.Logger.Warn().Err(err).Msg("fetch source image for size check")
		return imageURL
	}
	resized, ok, err := tools.EnsureMinSize(data, MinSourceDimension)
	if err != nil {
		logs.Logger.Warn().Err(err).Msg("ensure minimum image size")
		return imageURL
	}
	if !ok {
		return imageURL
	}
	asset, err := o.uploader.UploadBase64(ctx, base64.StdEncoding.EncodeToString(resized))
	if err != nil {
		logs.Logger.Warn().Err(err).Msg("re-upload resized image")
		return imageURL
	}
	if url := asset.BestURL(); url != "" {
		return url
	}
	return imageURL
}
