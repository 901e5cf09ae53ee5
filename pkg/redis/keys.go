package redis

import "fmt"

// OrderStatusKey 缓存某订单追踪状态的 hash。
func OrderStatusKey(orderID int64) string {
	return fmt.Sprintf("eatery:order:status:%d", orderID)
}

// SessionRateLimitKey 按会话限流的 zset。
func SessionRateLimitKey(sessionID string) string {
	return fmt.Sprintf("eatery:rate_limit:session:%s", sessionID)
}

// IPRateLimitKey 解析不出会话时按 IP 限流。
func IPRateLimitKey(ip string) string {
	return fmt.Sprintf("eatery:rate_limit:ip:%s", ip)
}
