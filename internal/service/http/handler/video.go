package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reusedev/tryon-hub/internal/consts"
	"github.com/reusedev/tryon-hub/internal/modules/logs"
	"github.com/reusedev/tryon-hub/internal/modules/video"
	"github.com/reusedev/tryon-hub/internal/service/http/handler/request"
	"github.com/reusedev/tryon-hub/internal/service/http/handler/response"
)

// GenerateVideo runs the video orchestration for a completed try-on image.
// A repeat call for the same image while one is in flight reports
// processing without touching the upstream.
func GenerateVideo(c *gin.Context) {
	form := request.Video{}
	if err := c.ShouldBindJSON(&form); err != nil || form.ImageURL == "" {
		c.JSON(http.StatusBadRequest, response.ErrorWithDetails(video.ErrImageRequired.Error(), ""))
		return
	}
	outcome, err := orchestrator.Generate(c.Request.Context(), form.ImageURL)
	if err != nil {
		writeVideoError(c, err)
		return
	}
	if outcome.GatewayTimeout {
		c.JSON(consts.StatusGatewayTimeout, gin.H{
			"error":   video.ErrGatewayTimeout.Error(),
			"details": outcome.Message,
			"status":  consts.TaskStatusProcessing,
		})
		return
	}
	if outcome.Status == consts.TaskStatusProcessing {
		c.JSON(http.StatusOK, gin.H{
			"status":   outcome.Status,
			"progress": outcome.Progress,
			"message":  outcome.Message,
		})
		return
	}
	if len(outcome.Raw) != 0 {
		c.Data(http.StatusOK, "application/json", outcome.Raw)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"result_video_url": outcome.ResultVideoURL,
		"message":          outcome.Message,
	})
}

func writeVideoError(c *gin.Context, err error) {
	var upstreamErr *video.UpstreamError
	switch {
	case errors.Is(err, video.ErrImageRequired):
		c.JSON(http.StatusBadRequest, response.ErrorWithDetails(err.Error(), ""))
	case errors.As(err, &upstreamErr):
		c.JSON(upstreamErr.StatusCode, response.ErrorWithDetails(upstreamErr.Error(),
			"The request to the video webhook timed out or failed"))
	case errors.Is(err, video.ErrSubmitTimeout), errors.Is(err, video.ErrUnexpectedFormat):
		c.JSON(http.StatusInternalServerError, response.ErrorWithDetails(err.Error(),
			"The request to the video webhook timed out or failed"))
	default:
		logs.Logger.Err(err).Msg("video generate")
		c.JSON(http.StatusInternalServerError, response.ErrorWithDetails(err.Error(),
			"The request to the video webhook timed out or failed"))
	}
}
