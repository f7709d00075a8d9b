package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"exam-proctor/internal/metrics"
)

// Metrics 记录接口耗时；未匹配路由统一记为 unmatched，避免路径基数膨胀
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.APIRequestDuration.
			WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
