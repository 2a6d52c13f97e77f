package model

import (
	"context"

	"github.com/reusedev/tryon-hub/internal/components/mysql"
	"github.com/reusedev/tryon-hub/internal/modules/queue"
)

// InvokeRecord is a queue job that persists one upstream call.
type InvokeRecord struct {
	History UpstreamInvokeHistory
}

func (r *InvokeRecord) Execute(_ context.Context) error {
	if !mysql.Enabled() {
		return nil
	}
	return mysql.DB.Model(&UpstreamInvokeHistory{}).Create(&r.History).Error
}

func RecordInvoke(taskId int, upstream string, statusCode int, durationMs int64, failedRespBody string) {
	if !mysql.Enabled() {
		return
	}
	queue.Enqueue(&InvokeRecord{History: UpstreamInvokeHistory{
		TaskId:         taskId,
		Upstream:       upstream,
		StatusCode:     statusCode,
		DurationMs:     durationMs,
		FailedRespBody: failedRespBody,
	}})
}
