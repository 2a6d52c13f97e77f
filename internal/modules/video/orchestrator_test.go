package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/reusedev/tryon-hub/internal/consts"
	"github.com/reusedev/tryon-hub/internal/modules/storage"
)

type fakeUploader struct {
	mu          sync.Mutex
	base64Calls int
	asset       *storage.Asset
	err         error
}

func (f *fakeUploader) Upload(ctx context.Context, fileName string, file io.Reader) (*storage.Asset, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.asset, nil
}

func (f *fakeUploader) UploadBase64(ctx context.Context, b64 string) (*storage.Asset, error) {
	f.mu.Lock()
	f.base64Calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.asset, nil
}

func (f *fakeUploader) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.base64Calls
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// sourceServer serves the result image the video request points at.
func sourceServer(t *testing.T, width, height int) *httptest.Server {
	t.Helper()
	data := testPNG(t, width, height)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fastOrchestrator(webhookURL string, up storage.Uploader) *Orchestrator {
	o := NewOrchestrator(context.Background(), webhookURL, up, NewRegistry())
	o.recoverInterval = 20 * time.Millisecond
	return o
}

func submittedImageURL(t *testing.T, r *http.Request) string {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.Errorf("read webhook body: %v", err)
		return ""
	}
	var payload struct {
		ImageURL string `json:"image_url"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Errorf("decode webhook body %q: %v", body, err)
		return ""
	}
	return payload.ImageURL
}

func waitForIdle(t *testing.T, r *Registry) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("registry still has %d entries", r.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGenerateRequiresImage(t *testing.T) {
	o := fastOrchestrator("http://unused", &fakeUploader{})
	if _, err := o.Generate(context.Background(), ""); !errors.Is(err, ErrImageRequired) {
		t.Fatalf("expected ErrImageRequired, got %v", err)
	}
}

func TestGenerateDeduplicatesConcurrentRequests(t *testing.T) {
	src := sourceServer(t, 400, 400)
	started := make(chan struct{})
	release := make(chan struct{})
	var hits int32
	var mu sync.Mutex
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		close(started)
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"resource_without_watermark":"https://videos.example.com/clean.mp4"}`))
	}))
	defer webhook.Close()

	o := fastOrchestrator(webhook.URL, &fakeUploader{})
	type genResult struct {
		out *Outcome
		err error
	}
	first := make(chan genResult, 1)
	go func() {
		out, err := o.Generate(context.Background(), src.URL)
		first <- genResult{out, err}
	}()

	<-started
	// 第二个请求命中注册表，不会再次提交
	out, err := o.Generate(context.Background(), src.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != consts.TaskStatusProcessing {
		t.Fatalf("expected processing, got %s", out.Status)
	}
	if out.Progress < 1 || out.Progress >= 100 {
		t.Fatalf("unexpected progress %d", out.Progress)
	}

	close(release)
	got := <-first
	if got.err != nil {
		t.Fatalf("unexpected error: %v", got.err)
	}
	if got.out.Status != consts.TaskStatusCompleted || got.out.ResultVideoURL != "https://videos.example.com/clean.mp4" {
		t.Fatalf("unexpected outcome: %+v", got.out)
	}
	if o.registry.Len() != 0 {
		t.Fatalf("registry not cleared, %d entries", o.registry.Len())
	}
	mu.Lock()
	defer mu.Unlock()
	if hits != 1 {
		t.Fatalf("expected exactly one upstream submission, got %d", hits)
	}
}

func TestGenerateUpgradesUndersizedSource(t *testing.T) {
	src := sourceServer(t, 200, 200)
	const upscaledURL = "https://cdn.example.com/upscaled.png"
	var gotSource string
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSource = submittedImageURL(t, r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"resource_without_watermark":"https://videos.example.com/clean.mp4"}`))
	}))
	defer webhook.Close()

	up := &fakeUploader{asset: &storage.Asset{DisplayURL: upscaledURL}}
	o := fastOrchestrator(webhook.URL, up)
	out, err := o.Generate(context.Background(), src.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ResultVideoURL != "https://videos.example.com/clean.mp4" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if up.calls() != 1 {
		t.Fatalf("expected one re-upload, got %d", up.calls())
	}
	if gotSource != upscaledURL {
		t.Fatalf("webhook received %q, want upscaled URL", gotSource)
	}
	if o.registry.Len() != 0 {
		t.Fatalf("registry not cleared")
	}
}

func TestGenerateKeepsLargeSourceAsIs(t *testing.T) {
	src := sourceServer(t, 400, 400)
	var gotSource string
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSource = submittedImageURL(t, r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"video_url":"https://videos.example.com/a.mp4"}`))
	}))
	defer webhook.Close()

	up := &fakeUploader{asset: &storage.Asset{DisplayURL: "https://cdn.example.com/should-not-happen.png"}}
	o := fastOrchestrator(webhook.URL, up)
	out, err := o.Generate(context.Background(), src.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ResultVideoURL != "https://videos.example.com/a.mp4" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if up.calls() != 0 {
		t.Fatalf("unexpected re-upload for a large enough source")
	}
	if gotSource != src.URL {
		t.Fatalf("webhook received %q, want original URL %q", gotSource, src.URL)
	}
}

func TestGenerateBinaryVideoResponse(t *testing.T) {
	src := sourceServer(t, 400, 400)
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte{0x00, 0x00, 0x00, 0x18, 0x66, 0x74, 0x79, 0x70})
	}))
	defer webhook.Close()

	o := fastOrchestrator(webhook.URL, &fakeUploader{})
	out, err := o.Generate(context.Background(), src.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != consts.TaskStatusCompleted {
		t.Fatalf("expected completed, got %s", out.Status)
	}
	if !strings.HasPrefix(out.ResultVideoURL, "data:video/mp4;base64,") {
		t.Fatalf("expected data URL, got %q", out.ResultVideoURL)
	}
}

func TestGenerateUpstreamErrorClearsRegistry(t *testing.T) {
	src := sourceServer(t, 400, 400)
	var hits int
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"message":"render farm offline"}}`))
	}))
	defer webhook.Close()

	o := fastOrchestrator(webhook.URL, &fakeUploader{})
	_, err := o.Generate(context.Background(), src.URL)
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upErr.StatusCode != http.StatusBadGateway || upErr.Message != "render farm offline" {
		t.Fatalf("unexpected error detail: %+v", upErr)
	}
	if o.registry.Len() != 0 {
		t.Fatalf("registry not cleared after terminal error")
	}

	// 失败之后可以重新提交
	if _, err := o.Generate(context.Background(), src.URL); err == nil {
		t.Fatal("expected error on retry")
	}
	if hits != 2 {
		t.Fatalf("expected retry to reach upstream, hits = %d", hits)
	}
}

func TestGenerateRecoversAfterGatewayTimeout(t *testing.T) {
	src := sourceServer(t, 400, 400)
	var mu sync.Mutex
	var hits int
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		n := hits
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(consts.StatusGatewayTimeout)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"resource_without_watermark":"https://videos.example.com/late.mp4"}`))
	}))
	defer webhook.Close()

	o := fastOrchestrator(webhook.URL, &fakeUploader{})
	out, err := o.Generate(context.Background(), src.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.GatewayTimeout || out.Status != consts.TaskStatusProcessing {
		t.Fatalf("expected gateway-timeout processing outcome, got %+v", out)
	}
	if o.registry.Len() != 1 {
		t.Fatalf("registry entry must survive a 524")
	}

	waitForIdle(t, o.registry)

	// 恢复完成后再查询直接命中缓存
	out, err = o.Generate(context.Background(), src.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != consts.TaskStatusCompleted || out.ResultVideoURL != "https://videos.example.com/late.mp4" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	mu.Lock()
	defer mu.Unlock()
	if hits != 3 {
		t.Fatalf("memoized result must not resubmit, hits = %d", hits)
	}
}

func TestRecoverExhaustsAttempts(t *testing.T) {
	var hits int
	var mu sync.Mutex
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(consts.StatusGatewayTimeout)
	}))
	defer webhook.Close()

	o := fastOrchestrator(webhook.URL, &fakeUploader{})
	o.maxRecoverAttempts = 3
	key := RequestKey("https://images.example.com/source.png")
	o.registry.Begin(key)

	_, err := o.Recover(context.Background(), key, "https://images.example.com/source.png", 0)
	if !errors.Is(err, ErrRecoveryExhausted) {
		t.Fatalf("expected ErrRecoveryExhausted, got %v", err)
	}
	if o.registry.Len() != 0 {
		t.Fatalf("registry not cleared after exhaustion")
	}
	mu.Lock()
	defer mu.Unlock()
	if hits != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits)
	}
}

func TestRecoverStopsOnTerminalError(t *testing.T) {
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"job lost"}}`))
	}))
	defer webhook.Close()

	o := fastOrchestrator(webhook.URL, &fakeUploader{})
	key := RequestKey("https://images.example.com/source.png")
	o.registry.Begin(key)

	_, err := o.Recover(context.Background(), key, "https://images.example.com/source.png", 0)
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if o.registry.Len() != 0 {
		t.Fatalf("registry not cleared after terminal error")
	}
}

func TestRecoverHonorsContext(t *testing.T) {
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(consts.StatusGatewayTimeout)
	}))
	defer webhook.Close()

	o := fastOrchestrator(webhook.URL, &fakeUploader{})
	o.recoverInterval = time.Hour
	key := RequestKey("https://images.example.com/source.png")
	o.registry.Begin(key)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.Recover(ctx, key, "https://images.example.com/source.png", 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if o.registry.Len() != 0 {
		t.Fatalf("registry not cleared on cancellation")
	}
}

type taskFinish struct {
	id        int
	status    consts.TaskStatus
	resultURL string
	reason    string
}

type taskRecorder struct {
	mu       sync.Mutex
	creates  []string
	finishes []taskFinish
}

func (r *taskRecorder) attach(o *Orchestrator) {
	o.createTask = func(sourceURL string) int {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.creates = append(r.creates, sourceURL)
		return len(r.creates)
	}
	o.finishTask = func(id int, status consts.TaskStatus, resultURL, failedReason string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.finishes = append(r.finishes, taskFinish{id, status, resultURL, failedReason})
	}
}

func (r *taskRecorder) snapshot() ([]string, []taskFinish) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.creates...), append([]taskFinish(nil), r.finishes...)
}

func TestHistoryTracksRecoveredSubmission(t *testing.T) {
	src := sourceServer(t, 400, 400)
	var mu sync.Mutex
	hits := 0
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		n := hits
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(consts.StatusGatewayTimeout)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"resource_without_watermark":"https://videos.example.com/late.mp4"}`))
	}))
	defer webhook.Close()

	o := fastOrchestrator(webhook.URL, &fakeUploader{})
	rec := &taskRecorder{}
	rec.attach(o)

	out, err := o.Generate(context.Background(), src.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.GatewayTimeout {
		t.Fatalf("expected gateway-timeout outcome, got %+v", out)
	}
	// 轮询期间的重复请求不会新建记录
	if _, err := o.Generate(context.Background(), src.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForIdle(t, o.registry)

	creates, finishes := rec.snapshot()
	if len(creates) != 1 {
		t.Fatalf("expected a single task row, got %d", len(creates))
	}
	if len(finishes) != 1 || finishes[0].status != consts.TaskStatusCompleted {
		t.Fatalf("unexpected finishes: %+v", finishes)
	}
	if finishes[0].resultURL != "https://videos.example.com/late.mp4" {
		t.Fatalf("unexpected result url: %q", finishes[0].resultURL)
	}
}

func TestHistoryMarksFailedSubmission(t *testing.T) {
	src := sourceServer(t, 400, 400)
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"message":"render farm offline"}}`))
	}))
	defer webhook.Close()

	o := fastOrchestrator(webhook.URL, &fakeUploader{})
	rec := &taskRecorder{}
	rec.attach(o)

	if _, err := o.Generate(context.Background(), src.URL); err == nil {
		t.Fatal("expected upstream error")
	}
	creates, finishes := rec.snapshot()
	if len(creates) != 1 {
		t.Fatalf("expected a single task row, got %d", len(creates))
	}
	if len(finishes) != 1 || finishes[0].status != consts.TaskStatusFailed {
		t.Fatalf("unexpected finishes: %+v", finishes)
	}
	if finishes[0].reason != "render farm offline" {
		t.Fatalf("unexpected failure reason: %q", finishes[0].reason)
	}
}

func TestHistoryMarksExhaustedRecovery(t *testing.T) {
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(consts.StatusGatewayTimeout)
	}))
	defer webhook.Close()

	o := fastOrchestrator(webhook.URL, &fakeUploader{})
	o.maxRecoverAttempts = 2
	rec := &taskRecorder{}
	rec.attach(o)
	key := RequestKey("https://images.example.com/source.png")
	o.registry.Begin(key)

	if _, err := o.Recover(context.Background(), key, "https://images.example.com/source.png", 7); !errors.Is(err, ErrRecoveryExhausted) {
		t.Fatalf("expected ErrRecoveryExhausted, got %v", err)
	}
	_, finishes := rec.snapshot()
	if len(finishes) != 1 || finishes[0].id != 7 || finishes[0].status != consts.TaskStatusFailed {
		t.Fatalf("unexpected finishes: %+v", finishes)
	}
	if finishes[0].reason != ErrRecoveryExhausted.Error() {
		t.Fatalf("unexpected failure reason: %q", finishes[0].reason)
	}
}
