package video

import "time"

// Progress shown while a video request is in flight is a synthetic
// estimate from elapsed time. It is cosmetic only: monotonic, slow, and
// capped below 100 until a true terminal state.
const (
	progressFloor       = 5
	progressCap         = 95
	progressPerInterval = 2 // points per 4-second slice
)

func EstimateProgress(elapsed time.Duration) int {
	if elapsed < 0 {
		return progressFloor
	}
	p := progressFloor + int(elapsed/(4*time.Second))*progressPerInterval
	if p > progressCap {
		return progressCap
	}
	return p
}
