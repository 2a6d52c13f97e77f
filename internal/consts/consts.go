package consts

const (
	ImgBBUploadURL       = "https://api.imgbb.com/1/upload"
	DefaultTryOnWebhook  = "https://n8n.lolinux2002.com/webhook/outfit-try-on"
	DefaultVideoWebhook  = "https://n8n.lolinux2002.com/webhook/outfit-try-on-video"
	StatusGatewayTimeout = 524
)

type StorageSupplier string

const (
	ImgBB  StorageSupplier = "imgbb"
	AliOss StorageSupplier = "ali_oss"
)

func (s StorageSupplier) String() string {
	return string(s)
}

type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusUploading  TaskStatus = "uploading"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

func (s TaskStatus) String() string {
	return string(s)
}

func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

type TaskKind string

const (
	TaskKindTryOn TaskKind = "tryon"
	TaskKindVideo TaskKind = "video"
)

func (k TaskKind) String() string {
	return string(k)
}
