package config

import (
	"testing"

	"github.com/reusedev/tryon-hub/internal/consts"
)

func TestInitDefaults(t *testing.T) {
	Init([]byte(`
imgbb:
  api_key: test-key
`))
	if GConfig.StorageSupplier != consts.ImgBB.String() {
		t.Fatalf("default supplier = %q", GConfig.StorageSupplier)
	}
	if GConfig.TryOn.WebhookURL != consts.DefaultTryOnWebhook {
		t.Fatalf("default try-on webhook = %q", GConfig.TryOn.WebhookURL)
	}
	if GConfig.Video.WebhookURL != consts.DefaultVideoWebhook {
		t.Fatalf("default video webhook = %q", GConfig.Video.WebhookURL)
	}
	if GConfig.LogFile == "" {
		t.Fatal("log file default missing")
	}
	if GConfig.HistoryEnabled() {
		t.Fatal("history must be off without a mysql host")
	}
}

func TestVerifyRejectsUnknownSupplier(t *testing.T) {
	c := &Config{StorageSupplier: "s3"}
	if err := c.Verify(); err == nil {
		t.Fatal("expected error for unknown supplier")
	}
}

func TestInitFullConfig(t *testing.T) {
	Init([]byte(`
log_level: debug
log_file: /var/log/tryon-hub.log
storage_supplier: ali_oss
ali_oss:
  access_key_id: ak
  access_key_secret: sk
  endpoint: oss-cn-hangzhou.aliyuncs.com
  region: cn-hangzhou
  bucket: tryon
  url_expires: 24h
tryon:
  webhook_url: https://hooks.example.com/tryon
  api_url: https://api.example.com/task
  api_key: key
video:
  webhook_url: https://hooks.example.com/video
mysql:
  host: 127.0.0.1
  port: 3306
  username: root
  password: secret
  database: tryon_hub
`))
	if GConfig.StorageSupplier != consts.AliOss.String() {
		t.Fatalf("supplier = %q", GConfig.StorageSupplier)
	}
	if GConfig.TryOn.APIKey != "key" || GConfig.AliOss.Bucket != "tryon" {
		t.Fatalf("unexpected config: %+v", GConfig)
	}
	if !GConfig.HistoryEnabled() {
		t.Fatal("history must be on with a mysql host")
	}
}
