package ali

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	"github.com/google/uuid"
	"github.com/reusedev/tryon-hub/config"
	"github.com/reusedev/tryon-hub/internal/modules/storage"
	"github.com/reusedev/tryon-hub/tools"
)

// Client stores assets in an OSS bucket and hands out presigned URLs, an
// alternative to the public image host for self-hosted deployments.
type Client struct {
	client     *oss.Client
	bucketName string
	directory  string
	urlExpires time.Duration
}

func New(cfg config.AliOss) *Client {
	credential := credentials.NewStaticCredentialsProvider(cfg.AccessKeyId, cfg.AccessKeySecret, "")
	ossCfg := oss.LoadDefaultConfig().
		WithCredentialsProvider(credential).
		WithEndpoint(cfg.Endpoint).WithRegion(cfg.Region)
	client := oss.NewClient(ossCfg)
	if client == nil {
		panic("create oss client failed")
	}
	expires, err := time.ParseDuration(cfg.URLExpires)
	if err != nil || expires <= 0 {
		expires = 24 * time.Hour
	}
	return &Client{
		client:     client,
		bucketName: cfg.Bucket,
		directory:  cfg.Directory,
		urlExpires: expires,
	}
}

func (c *Client) Upload(ctx context.Context, fileName string, file io.Reader) (*storage.Asset, error) {
	ext := filepath.Ext(fileName)
	key := c.fullPath(uuid.New().String() + ext)
	if err := c.put(ctx, fileName, key, file); err != nil {
		return nil, &storage.UploadError{Message: err.Error()}
	}
	return c.asset(ctx, key)
}

func (c *Client) UploadBase64(ctx context.Context, b64 string) (*storage.Asset, error) {
	if idx := strings.Index(b64, "base64,"); idx != -1 {
		b64 = b64[idx+len("base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, &storage.UploadError{Message: fmt.Sprintf("invalid base64 payload: %v", err)}
	}
	fName := uuid.New().String() + "." + tools.DetectImageType(data).String()
	key := c.fullPath(fName)
	if err := c.put(ctx, fName, key, bytes.NewReader(data)); err != nil {
		return nil, &storage.UploadError{Message: err.Error()}
	}
	return c.asset(ctx, key)
}

func (c *Client) asset(ctx context.Context, key string) (*storage.Asset, error) {
	ret, err := c.client.Presign(ctx,
		&oss.GetObjectRequest{Bucket: oss.Ptr(c.bucketName), Key: oss.Ptr(key)},
		oss.PresignExpires(c.urlExpires))
	if err != nil {
		return nil, &storage.UploadError{Message: err.Error()}
	}
	url := tools.SanitizeURL(ret.URL)
	return &storage.Asset{URL: url, DisplayURL: url}, nil
}

func (c *Client) fullPath(fName string) string {
	return c.directory + fName
}

func (c *Client) put(ctx context.Context, fName, key string, reader io.Reader) error {
	request := &oss.PutObjectRequest{
		Bucket:             oss.Ptr(c.bucketName),
		Key:                oss.Ptr(key),
		Body:               reader,
		ContentDisposition: oss.Ptr(fmt.Sprintf("attachment; filename=\"%s\"", fName)),
	}
	_, err := c.client.PutObject(ctx, request)
	return err
}
