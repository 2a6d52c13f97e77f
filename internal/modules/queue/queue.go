package queue

import (
	"context"
)

type Job interface {
	Execute(ctx context.Context) error
}

type JobQueue chan Job

func NewJobQueue(size int) JobQueue {
	return make(JobQueue, size)
}
