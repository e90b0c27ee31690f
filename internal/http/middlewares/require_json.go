package middlewares

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			ct := c.GetHeader("Content-Type")
			// allow "application/json; charset=utf-8"
			if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
					"status":    "UNSUPPORTED_MEDIA_TYPE",
					"reason":    "Incorrectly made request.",
					"message":   "Content-Type must be application/json",
					"timestamp": time.Now().Format("2006-01-02 15:04:05"),
				})
				return
			}
		}
		c.Next()
	}
}
