package tryon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reusedev/tryon-hub/internal/consts"
)

var (
	// ErrPollTimeout means the attempt budget ran out without a terminal
	// state.
	ErrPollTimeout = errors.New("task did not finish within the polling budget")
	// ErrPollTransport wraps any transport failure while polling. The loop
	// does not distinguish transient from permanent failures.
	ErrPollTransport = errors.New("task status request failed")
)

type TerminalResult struct {
	Status    consts.TaskStatus
	ResultURL string
	Message   string
}

// Poller drives a task to a terminal state by querying the status API on a
// fixed schedule. Cancelling the context stops the schedule, no query
// fires after the caller discards interest.
type Poller struct {
	Client      *APIClient
	Interval    time.Duration
	MaxAttempts int
}

func NewPoller(client *APIClient) *Poller {
	return &Poller{
		Client:      client,
		Interval:    time.Second,
		MaxAttempts: 30,
	}
}

func (p *Poller) Poll(ctx context.Context, taskID string) (*TerminalResult, error) {
	t := time.NewTicker(p.Interval)
	defer t.Stop()
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
		task, err := p.Client.QueryTask(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPollTransport, err)
		}
		if !task.Status.Terminal() {
			continue
		}
		if task.Status == consts.TaskStatusFailed {
			ret := &TerminalResult{Status: consts.TaskStatusFailed, Message: "task failed"}
			if task.Error != nil && task.Error.Message != "" {
				ret.Message = task.Error.Message
			}
			return ret, nil
		}
		return &TerminalResult{
			Status:    consts.TaskStatusCompleted,
			ResultURL: task.ResultURL,
		}, nil
	}
	return nil, ErrPollTimeout
}
