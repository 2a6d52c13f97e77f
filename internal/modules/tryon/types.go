package tryon

import (
	"errors"
	"fmt"

	"github.com/reusedev/tryon-hub/internal/consts"
)

var (
	ErrModelInputRequired = errors.New("user image is required")
	ErrGarmentRequired    = errors.New("at least one outfit piece (upper or lower) is required")
	ErrUnexpectedFormat   = errors.New("unexpected response format from try-on webhook")
	ErrSubmitTimeout      = errors.New("try-on webhook timed out")
	ErrInvalidAPIResponse = errors.New("invalid API response: no task ID received")
)

// Request carries the source image URLs for one try-on attempt. Never
// mutated after construction.
type Request struct {
	ModelInput string `json:"model_input"`
	UpperInput string `json:"upper_input,omitempty"`
	LowerInput string `json:"lower_input,omitempty"`
}

func (r Request) Validate() error {
	if r.ModelInput == "" {
		return ErrModelInputRequired
	}
	if r.UpperInput == "" && r.LowerInput == "" {
		return ErrGarmentRequired
	}
	return nil
}

type ResultKind int

const (
	// ResultInlineImage is a binary PNG returned directly in the
	// submission response, no polling needed.
	ResultInlineImage ResultKind = iota + 1
	// ResultJSON is an upstream JSON payload passed through as-is, it may
	// carry a task id or an immediate error.
	ResultJSON
)

type Result struct {
	Kind         ResultKind
	ImageDataURL string
	JSON         []byte
	StatusCode   int
	DurationMs   int64
}

// SubmissionError means the upstream rejected the request. The message is
// probed from the usual error envelope when present.
type SubmissionError struct {
	StatusCode int
	Message    string
	Raw        string
}

func (e *SubmissionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("try-on submission failed with status code %d", e.StatusCode)
}

// TaskFailedError is an immediate upstream failure reported at submission
// time, before any pollable task exists.
type TaskFailedError struct {
	Message string
	Raw     string
}

func (e *TaskFailedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "task failed"
}

// Task is the upstream try-on task as last observed. Transitions are
// driven entirely by the upstream system, never set locally.
type Task struct {
	ID            string
	Status        consts.TaskStatus
	ResultURL     string
	WatermarkFree string
	Error         *TaskError
	RawData       []byte
}

type TaskError struct {
	Message string `json:"message"`
	Raw     string `json:"raw_message"`
}
