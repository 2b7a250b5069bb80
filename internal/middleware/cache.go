package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// CacheControl lets clients reuse a response for maxAgeSeconds. Responses are
// per-user, so shared caches must not store them.
func CacheControl(maxAgeSeconds int) gin.HandlerFunc {
	value := "private, max-age=" + strconv.Itoa(maxAgeSeconds)
	return func(c *gin.Context) {
		c.Header("Cache-Control", value)
		c.Writer.Header().Add("Vary", "Authorization")
		c.Next()
	}
}
