package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger writes one line per request: method, path, status, latency and
// client address, plus the last handler error if any.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		if len(c.Errors) > 0 {
			log.Printf("%s %s %d %s %s err=%v", c.Request.Method, c.Request.URL.Path, status, latency, c.ClientIP(), c.Errors.Last())
			return
		}
		log.Printf("%s %s %d %s %s", c.Request.Method, c.Request.URL.Path, status, latency, c.ClientIP())
	}
}
