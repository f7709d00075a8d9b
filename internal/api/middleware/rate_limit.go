package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"exam-proctor/pkg/redis"
	"exam-proctor/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的速率限制中间件
// limit: 窗口内允许的最大请求数
// window: 滑动窗口时长
// 已认证请求按用户计数，否则按 IP；rdb 为 nil 时降级放行（与 JWTAuth 策略一致）
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		subject := "ip:" + c.ClientIP()
		if uid, ok := c.Get("user_id"); ok {
			subject = fmt.Sprintf("user:%v", uid)
		}
		key := fmt.Sprintf("%s:%s:%s", c.Request.Method, c.FullPath(), subject)

		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			// Redis 出错时降级放行
			c.Next()
			return
		}

		if !allowed {
			response.TooManyRequests(c, 10004, "请求过于频繁，请稍后再试")
			return
		}

		c.Next()
	}
}
