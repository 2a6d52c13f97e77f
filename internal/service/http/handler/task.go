package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reusedev/tryon-hub/internal/consts"
	"github.com/reusedev/tryon-hub/internal/modules/logs"
	"github.com/reusedev/tryon-hub/internal/modules/tryon"
	"github.com/reusedev/tryon-hub/internal/service/http/handler/request"
	"github.com/reusedev/tryon-hub/internal/service/http/handler/response"
)

// CreateTryOnTask submits to the generative API directly. With wait set it
// polls the task to a terminal state before answering.
func CreateTryOnTask(c *gin.Context) {
	form := request.CreateTask{}
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, response.ParamErrorWithMessage(err.Error()))
		return
	}
	if !apiClient.Configured() {
		c.JSON(http.StatusInternalServerError,
			response.ErrorWithDetails("API configuration is missing. Please check environment variables.", ""))
		return
	}
	task, err := apiClient.CreateTask(c.Request.Context(), form.Input)
	if err != nil {
		writeTaskError(c, err)
		return
	}
	if !form.Wait {
		status := task.Status
		if status == "" {
			status = consts.TaskStatusQueued
		}
		c.JSON(http.StatusOK, gin.H{
			"taskId":  task.ID,
			"status":  status,
			"message": "Task created successfully",
		})
		return
	}
	result, err := poller.Poll(c.Request.Context(), task.ID)
	if err != nil {
		writeTaskError(c, err)
		return
	}
	if result.Status == consts.TaskStatusFailed {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": consts.TaskStatusFailed,
			"error":  result.Message,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     result.Status,
		"result_url": result.ResultURL,
	})
}

// TaskStatus passes the upstream task payload through untouched.
func TaskStatus(c *gin.Context) {
	if !apiClient.Configured() {
		c.JSON(http.StatusInternalServerError, response.ErrorWithDetails("API configuration is missing", ""))
		return
	}
	task, err := apiClient.QueryTask(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		writeTaskError(c, err)
		return
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(task.RawData, &envelope); err == nil && len(envelope.Data) > 0 {
		c.Data(http.StatusOK, "application/json", envelope.Data)
		return
	}
	c.Data(http.StatusOK, "application/json", task.RawData)
}

// TaskResult is the normalized one-shot status check the UI polls.
func TaskResult(c *gin.Context) {
	taskID := c.Query("taskId")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, response.ErrorWithDetails("Task ID is required", ""))
		return
	}
	if !apiClient.Configured() {
		c.JSON(http.StatusInternalServerError, response.ErrorWithDetails("API configuration is missing", ""))
		return
	}
	task, err := apiClient.QueryTask(c.Request.Context(), taskID)
	if err != nil {
		writeTaskError(c, err)
		return
	}
	switch {
	case task.Status == consts.TaskStatusFailed:
		message := "Task failed"
		details := "Unknown error"
		if task.Error != nil {
			if task.Error.Message != "" {
				message = task.Error.Message
			}
			if task.Error.Raw != "" {
				details = task.Error.Raw
			}
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  consts.TaskStatusFailed,
			"error":   message,
			"details": details,
		})
	case task.Status == consts.TaskStatusCompleted && task.ResultURL != "":
		c.JSON(http.StatusOK, gin.H{
			"status":     consts.TaskStatusCompleted,
			"result_url": task.ResultURL,
		})
	default:
		status := task.Status
		if status == "" {
			status = consts.TaskStatusProcessing
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  status,
			"message": "Task is still processing",
		})
	}
}

func writeTaskError(c *gin.Context, err error) {
	var failedErr *tryon.TaskFailedError
	var submissionErr *tryon.SubmissionError
	switch {
	case errors.Is(err, tryon.ErrModelInputRequired), errors.Is(err, tryon.ErrGarmentRequired):
		c.JSON(http.StatusBadRequest, response.ErrorWithDetails(err.Error(), ""))
	case errors.As(err, &failedErr):
		c.JSON(http.StatusInternalServerError, response.ErrorWithDetails(failedErr.Error(), failedErr.Raw))
	case errors.As(err, &submissionErr):
		c.JSON(submissionErr.StatusCode, response.ErrorWithDetails(submissionErr.Error(), submissionErr.Raw))
	case errors.Is(err, tryon.ErrPollTimeout):
		c.JSON(http.StatusGatewayTimeout, response.ErrorWithDetails(err.Error(), ""))
	case errors.Is(err, tryon.ErrPollTransport), errors.Is(err, tryon.ErrInvalidAPIResponse):
		c.JSON(http.StatusInternalServerError, response.ErrorWithDetails(err.Error(), ""))
	default:
		logs.Logger.Err(err).Msg("try-on task")
		c.JSON(http.StatusInternalServerError, response.ErrorWithDetails(err.Error(), ""))
	}
}
