package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reusedev/tryon-hub/internal/consts"
	"github.com/reusedev/tryon-hub/internal/modules/logs"
	"github.com/reusedev/tryon-hub/internal/modules/model"
	"github.com/reusedev/tryon-hub/internal/modules/tryon"
	"github.com/reusedev/tryon-hub/internal/service/http/handler/response"
)

// SubmitTryOn forwards the request to the try-on webhook and waits for the
// inline result or the upstream JSON.
func SubmitTryOn(c *gin.Context) {
	form := tryon.Request{}
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, response.ParamError)
		return
	}
	taskId := model.CreateTask(consts.TaskKindTryOn, form.ModelInput, consts.TaskStatusProcessing)
	result, err := webhookClient.Submit(c.Request.Context(), form)
	if err != nil {
		model.FinishTask(taskId, consts.TaskStatusFailed, "", err.Error())
		writeTryOnError(c, err)
		return
	}
	model.RecordInvoke(taskId, "tryon_webhook", result.StatusCode, result.DurationMs, "")
	switch result.Kind {
	case tryon.ResultInlineImage:
		model.FinishTask(taskId, consts.TaskStatusCompleted, "", "")
		c.JSON(http.StatusOK, gin.H{
			"result_image_url": result.ImageDataURL,
			"message":          "Successfully processed images",
		})
	case tryon.ResultJSON:
		model.FinishTask(taskId, consts.TaskStatusCompleted, "", "")
		c.Data(http.StatusOK, "application/json", result.JSON)
	default:
		model.FinishTask(taskId, consts.TaskStatusFailed, "", tryon.ErrUnexpectedFormat.Error())
		c.JSON(http.StatusInternalServerError, response.ErrorWithDetails(tryon.ErrUnexpectedFormat.Error(), ""))
	}
}

func writeTryOnError(c *gin.Context, err error) {
	var submissionErr *tryon.SubmissionError
	switch {
	case errors.Is(err, tryon.ErrModelInputRequired), errors.Is(err, tryon.ErrGarmentRequired):
		c.JSON(http.StatusBadRequest, response.ErrorWithDetails(err.Error(), ""))
	case errors.Is(err, tryon.ErrSubmitTimeout):
		c.JSON(http.StatusInternalServerError,
			response.ErrorWithDetails(err.Error(), "The request to the try-on webhook timed out or failed"))
	case errors.As(err, &submissionErr):
		c.JSON(submissionErr.StatusCode, response.ErrorWithDetails(submissionErr.Error(), submissionErr.Raw))
	case errors.Is(err, tryon.ErrUnexpectedFormat):
		c.JSON(http.StatusInternalServerError, response.ErrorWithDetails(err.Error(), ""))
	default:
		logs.Logger.Err(err).Msg("try-on submit")
		c.JSON(http.StatusInternalServerError,
			response.ErrorWithDetails(err.Error(), "The request to the try-on webhook timed out or failed"))
	}
}
