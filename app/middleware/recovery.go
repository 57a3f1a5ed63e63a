package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"vigil/pkg/logger"
)

// Recovery middleware catches panic and converts it to the standard error response
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// Get stack trace
				stack := debug.Stack()

				// Log error
				logger.ErrorCtx(c.Request.Context(),
					"panic recovered: %v\nstack:\n%s",
					err,
					string(stack),
				)

				resp := gin.H{
					"status":  "error",
					"message": "internal server error",
				}
				// The stack trace goes to the response in debug mode only
				if gin.Mode() == gin.DebugMode {
					resp["stack"] = string(stack)
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
			}
		}()

		c.Next()
	}
}
