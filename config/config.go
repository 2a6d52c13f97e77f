package config

import (
	"fmt"

	"github.com/reusedev/tryon-hub/internal/consts"
	"gopkg.in/yaml.v3"
)

var GConfig *Config

func Init(config []byte) {
	initFromYaml(config)
	if err := GConfig.Verify(); err != nil {
		panic(err)
	}
}

func initFromYaml(config []byte) {
	err := yaml.Unmarshal(config, &GConfig)
	if err != nil {
		panic(err)
	}
}

type Config struct {
	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file"`
	LogMaxSize    int    `yaml:"log_max_size"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAge     int    `yaml:"log_max_age"`

	StorageSupplier string `yaml:"storage_supplier"`
	ImgBB           `yaml:"imgbb"`
	AliOss          `yaml:"ali_oss"`
	TryOn           `yaml:"tryon"`
	Video           `yaml:"video"`
	MySQL           `yaml:"mysql"`
}

func (c *Config) Verify() error {
	switch consts.StorageSupplier(c.StorageSupplier) {
	case consts.ImgBB, consts.AliOss:
	case "":
		c.StorageSupplier = consts.ImgBB.String()
	default:
		return fmt.Errorf("storage_supplier must be imgbb or ali_oss")
	}
	if c.TryOn.WebhookURL == "" {
		c.TryOn.WebhookURL = consts.DefaultTryOnWebhook
	}
	if c.Video.WebhookURL == "" {
		c.Video.WebhookURL = consts.DefaultVideoWebhook
	}
	if c.LogFile == "" {
		c.LogFile = "tryon-hub.log"
	}
	return nil
}

// HistoryEnabled reports whether task records go to MySQL.
func (c *Config) HistoryEnabled() bool {
	return c.MySQL.Host != ""
}

type ImgBB struct {
	APIKey string `yaml:"api_key"`
}

type AliOss struct {
	AccessKeyId     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Directory       string `yaml:"directory"`
	URLExpires      string `yaml:"url_expires"`
}

type TryOn struct {
	WebhookURL string `yaml:"webhook_url"`
	APIURL     string `yaml:"api_url"`
	APIKey     string `yaml:"api_key"`
}

type Video struct {
	WebhookURL string `yaml:"webhook_url"`
}

type MySQL struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	Charset      string `yaml:"charset"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}
