package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GetOnlineImage downloads an image with a bounded wait, so a slow host
// can not stall the caller's whole flow.
func GetOnlineImage(ctx context.Context, url string) (data []byte, contentType string, err error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("failed to download image, status code: %d", resp.StatusCode)
		return
	}
	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	contentType = strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	return
}
