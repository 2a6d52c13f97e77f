package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Asset is the public representation of an uploaded image. URLs are
// sanitized before they are handed to any caller.
type Asset struct {
	URL        string `json:"url"`
	DisplayURL string `json:"display_url"`
	DeleteURL  string `json:"delete_url,omitempty"`
}

// BestURL prefers the display URL, which points straight at the image
// bytes on every supplier.
func (a *Asset) BestURL() string {
	if a.DisplayURL != "" {
		return a.DisplayURL
	}
	return a.URL
}

type Uploader interface {
	Upload(ctx context.Context, fileName string, file io.Reader) (*Asset, error)
	UploadBase64(ctx context.Context, b64 string) (*Asset, error)
}

// ErrMissingCredential means the upload credential is absent from the
// configuration. Fatal for the request, never retried.
var ErrMissingCredential = errors.New("image upload service configuration is missing")

type UploadError struct {
	Message string
}

func (e *UploadError) Error() string {
	if e.Message == "" {
		return "failed to upload image"
	}
	return fmt.Sprintf("failed to upload image: %s", e.Message)
}
