package response

import "github.com/gin-gonic/gin"

var (
	ParamError            = gin.H{"code": 10001, "message": "param error"}
	ParamErrorWithMessage = func(message string) gin.H {
		return gin.H{"code": 10001, "message": message}
	}

	InternalError = gin.H{"code": 10002, "message": "internal error"}

	// ErrorWithDetails mirrors the upstream error envelope the UI expects.
	ErrorWithDetails = func(err, details string) gin.H {
		return gin.H{"error": err, "details": details}
	}
)
