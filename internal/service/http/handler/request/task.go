package request

import "github.com/reusedev/tryon-hub/internal/modules/tryon"

type CreateTask struct {
	Input tryon.Request `json:"input"`
	// Wait blocks the handler until the task reaches a terminal state.
	Wait bool `json:"wait"`
}

type Video struct {
	ImageURL string `json:"image_url"`
}
