package handler

import (
	"context"

	"github.com/reusedev/tryon-hub/config"
	"github.com/reusedev/tryon-hub/internal/consts"
	"github.com/reusedev/tryon-hub/internal/modules/storage"
	"github.com/reusedev/tryon-hub/internal/modules/storage/ali"
	"github.com/reusedev/tryon-hub/internal/modules/storage/imgbb"
	"github.com/reusedev/tryon-hub/internal/modules/tryon"
	"github.com/reusedev/tryon-hub/internal/modules/video"
)

var (
	uploader      storage.Uploader
	webhookClient *tryon.WebhookClient
	apiClient     *tryon.APIClient
	poller        *tryon.Poller
	orchestrator  *video.Orchestrator
)

// Init wires the handlers' collaborators from the loaded config. ctx is
// the service lifetime, background recovery loops stop when it ends.
func Init(ctx context.Context) {
	cfg := config.GConfig
	switch consts.StorageSupplier(cfg.StorageSupplier) {
	case consts.AliOss:
		uploader = ali.New(cfg.AliOss)
	default:
		uploader = imgbb.New(cfg.ImgBB.APIKey)
	}
	webhookClient = tryon.NewWebhookClient(cfg.TryOn.WebhookURL)
	apiClient = tryon.NewAPIClient(cfg.TryOn.APIURL, cfg.TryOn.APIKey)
	poller = tryon.NewPoller(apiClient)
	orchestrator = video.NewOrchestrator(ctx, cfg.Video.WebhookURL, uploader, video.NewRegistry())
}
