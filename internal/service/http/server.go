package http

import (
	"github.com/gin-gonic/gin"
	"github.com/reusedev/tryon-hub/internal/service/http/handler"
	"github.com/reusedev/tryon-hub/internal/service/http/middleware"
)

func Serve(port string) {
	e := gin.New()
	initRouter(e)
	if err := e.Run(port); err != nil {
		panic(err)
	}
}

func initRouter(e *gin.Engine) {
	e.Use(gin.Recovery(), middleware.RequestLogger())
	v1 := e.Group("/v1")

	images := v1.Group("/images")
	{
		images.POST("", handler.UploadImage)
	}

	tryon := v1.Group("/tryon")
	{
		tryon.POST("", handler.SubmitTryOn)
		tryon.POST("/tasks", handler.CreateTryOnTask)
	}

	tasks := v1.Group("/tasks")
	{
		tasks.GET("", handler.TaskResult)
		tasks.GET("/:task_id", handler.TaskStatus)
	}

	videos := v1.Group("/videos")
	{
		videos.POST("", handler.GenerateVideo)
	}
}
