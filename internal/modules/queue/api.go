package queue

import (
	"context"
	"sync"

	"github.com/reusedev/tryon-hub/internal/modules/logs"
)

// RecordQueue serializes history writes so request handlers never block on
// the database. The channel is never closed, handlers may still Enqueue
// while the server drains in-flight requests during shutdown.
var RecordQueue = NewJobQueue(100)

func exeRecordJob(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case job := <-RecordQueue:
			if err := job.Execute(ctx); err != nil {
				logs.Logger.Err(err).Msg("record job failed")
			}
		case <-ctx.Done():
			drainRecordQueue()
			return
		}
	}
}

func drainRecordQueue() {
	for {
		select {
		case job := <-RecordQueue:
			if err := job.Execute(context.Background()); err != nil {
				logs.Logger.Err(err).Msg("record job failed")
			}
		default:
			logs.Logger.Info().Msg("record queue drained")
			return
		}
	}
}

func InitRecordQueue(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go exeRecordJob(ctx, wg)
}

// Enqueue drops the job when the queue is saturated, history is best effort.
func Enqueue(job Job) {
	select {
	case RecordQueue <- job:
	default:
		logs.Logger.Warn().Msg("record queue full, dropping job")
	}
}
