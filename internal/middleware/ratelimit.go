package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"eatery/internal/intent"
	"eatery/internal/reply"
	rediskey "eatery/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
)

// slidingWindow 在一个 zset 里记录窗口内每次请求的毫秒时间戳。
// KEYS[1]  限流 key
// ARGV     now_ms, window_ms, limit, member
// 返回 {1, 0} 放行；{0, retry_after_ms} 拒绝
var slidingWindow = rd.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
if redis.call('ZCARD', KEYS[1]) >= limit then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  local wait = window
  if oldest[2] then
    wait = tonumber(oldest[2]) + window - now
  end
  return {0, wait}
end

redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, 0}
`)

// SessionRateLimit 按会话限流，解析不出会话时按客户端 IP。Redis 不可用时放行。
func SessionRateLimit(rdb *rd.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rediskey.IPRateLimitKey(c.ClientIP())
		if session := peekSession(c); session != "" {
			key = rediskey.SessionRateLimitKey(session)
		}

		res, err := slidingWindow.Run(c.Request.Context(), rdb, []string{key},
			time.Now().UnixMilli(), window.Milliseconds(), limit, uuid.NewString()).Int64Slice()
		if err != nil || len(res) != 2 {
			c.Next()
			return
		}
		if res[0] == 1 {
			c.Next()
			return
		}

		retry := (res[1] + 999) / 1000
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.FormatInt(retry, 10))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, intent.WebhookResponse{
			FulfillmentText: reply.TooManyRequests(),
		})
	}
}

// peekSession 读出 body 里的会话 id，并把 body 放回去给后面的 handler。
func peekSession(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	var body intent.WebhookRequest
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	req, err := body.ToRequest()
	if err != nil {
		return ""
	}
	return req.Session
}
