package video

import (
	"encoding/json"
	"errors"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/reusedev/tryon-hub/tools"
)

var ErrUnexpectedFormat = errors.New("unexpected response format from video webhook")

type ResultKind int

const (
	// KindWatermarkFree is the authoritative result field.
	KindWatermarkFree ResultKind = iota + 1
	// KindAltURL matched one of the alternate video-URL field names.
	KindAltURL
	// KindRawJSON is a JSON body with no recognizable URL field, an
	// ambiguous outcome but not an error.
	KindRawJSON
	// KindBinaryVideo is a raw video payload carried as a data URL.
	KindBinaryVideo
)

// Alternate field names in precedence order, first present wins.
var altURLFields = []string{"video_url", "url", "result_url"}

type Parsed struct {
	Kind ResultKind
	URL  string
	Raw  []byte
}

// ParseResponse applies the precedence matcher over the webhook's
// heterogeneous response shapes.
func ParseResponse(contentType string, body []byte) (*Parsed, error) {
	if json.Valid(body) {
		if url := jsoniter.Get(body, "resource_without_watermark").ToString(); url != "" {
			return &Parsed{Kind: KindWatermarkFree, URL: url}, nil
		}
		for _, field := range altURLFields {
			if url := jsoniter.Get(body, field).ToString(); url != "" {
				return &Parsed{Kind: KindAltURL, URL: url}, nil
			}
		}
		return &Parsed{Kind: KindRawJSON, Raw: body}, nil
	}
	if strings.HasPrefix(contentType, "video/") {
		return &Parsed{Kind: KindBinaryVideo, URL: tools.DataURL(contentType, body)}, nil
	}
	return nil, ErrUnexpectedFormat
}
