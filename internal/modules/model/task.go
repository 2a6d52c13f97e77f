package model

import (
	"time"

	"github.com/reusedev/tryon-hub/internal/components/mysql"
	"github.com/reusedev/tryon-hub/internal/consts"
	"github.com/reusedev/tryon-hub/internal/modules/logs"
)

type Task struct {
	Id           int       `json:"id" gorm:"primaryKey"`
	Kind         string    `json:"kind" gorm:"column:kind;type:enum('tryon', 'video')"`
	SourceURL    string    `json:"source_url" gorm:"column:source_url;type:varchar(500)"`
	Status       string    `json:"status" gorm:"column:status;type:enum('queued', 'uploading', 'processing', 'completed', 'failed')"`
	Progress     float32   `json:"progress" gorm:"column:progress;type:float"`
	ResultURL    string    `json:"result_url" gorm:"column:result_url;type:varchar(2000)"`
	FailedReason string    `json:"failed_reason" gorm:"column:failed_reason;type:varchar(1000)"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;type:datetime;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at;type:datetime;not null;default:CURRENT_TIMESTAMP"`
}

func (*Task) TableName() string {
	return "task"
}

type UpstreamInvokeHistory struct {
	Id             int       `json:"id" gorm:"primaryKey"`
	TaskId         int       `json:"task_id" gorm:"column:task_id;type:int"`
	Upstream       string    `json:"upstream" gorm:"column:upstream;type:varchar(50)"`
	StatusCode     int       `json:"status_code" gorm:"column:status_code;type:int"`
	FailedRespBody string    `json:"failed_resp_body" gorm:"column:failed_resp_body;type:varchar(2000)"`
	DurationMs     int64     `json:"duration_ms" gorm:"column:duration_ms;type:int"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at;type:datetime;not null;default:CURRENT_TIMESTAMP"`
}

func (UpstreamInvokeHistory) TableName() string {
	return "upstream_invoke_history"
}

// CreateTask inserts a task row when persistence is configured. Returns 0
// otherwise so callers can pass the id around unconditionally.
func CreateTask(kind consts.TaskKind, sourceURL string, status consts.TaskStatus) int {
	if !mysql.Enabled() {
		return 0
	}
	record := Task{
		Kind:      kind.String(),
		SourceURL: sourceURL,
		Status:    status.String(),
	}
	if err := mysql.DB.Model(&Task{}).Create(&record).Error; err != nil {
		logs.Logger.Err(err).Msg("create task record")
		return 0
	}
	return record.Id
}

func FinishTask(id int, status consts.TaskStatus, resultURL, failedReason string) {
	if !mysql.Enabled() || id == 0 {
		return
	}
	record := Task{
		Id:           id,
		Status:       status.String(),
		ResultURL:    resultURL,
		FailedReason: failedReason,
	}
	if status == consts.TaskStatusCompleted {
		record.Progress = 100
	}
	if err := mysql.DB.Model(&Task{}).Updates(&record).Error; err != nil {
		logs.Logger.Err(err).Int("task_id", id).Msg("update task record")
	}
}
