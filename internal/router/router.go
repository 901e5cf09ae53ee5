package router

import (
	"context"
	"net/http"
	"strconv"

	"eatery/internal/config"
	"eatery/internal/intent"
	"eatery/internal/middleware"
	"eatery/internal/reply"
	"eatery/pkg/logger"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
)

// StatusLookup 查询订单追踪状态，store.Gateway 实现了它。
type StatusLookup interface {
	GetOrderStatus(ctx context.Context, orderID int64) (string, bool, error)
}

// Setup 注册全部 HTTP 路由。rdb 为 nil 时 webhook 不限流。
func Setup(r *gin.Engine, disp *intent.Dispatcher, lookup StatusLookup, rdb *rd.Client, cfg config.AppConfig, log *logger.Logger) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	webhook := []gin.HandlerFunc{}
	if rdb != nil {
		webhook = append(webhook, middleware.SessionRateLimit(rdb, cfg.WebhookRateLimit, cfg.WebhookRateWindow))
	}
	webhook = append(webhook, fulfill(disp, log))
	r.POST(cfg.WebhookPath, webhook...)

	r.GET("/api/orders/:order_id", getOrderStatus(lookup))
}

// fulfill 是 NLU webhook 入口：解包 → 分发 → {"fulfillmentText": ...}。
func fulfill(disp *intent.Dispatcher, log *logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("webhook")
	return func(c *gin.Context) {
		var body intent.WebhookRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			log.Warn("bad webhook payload", "error", err)
			c.JSON(http.StatusBadRequest, intent.WebhookResponse{FulfillmentText: reply.BadRequest()})
			return
		}
		req, err := body.ToRequest()
		if err != nil {
			log.Warn("webhook without session", "intent", body.QueryResult.Intent.DisplayName, "error", err)
			c.JSON(http.StatusBadRequest, intent.WebhookResponse{FulfillmentText: reply.BadRequest()})
			return
		}

		text := disp.Fulfill(c.Request.Context(), req)
		c.JSON(http.StatusOK, intent.WebhookResponse{FulfillmentText: text})
	}
}

// getOrderStatus 按订单号查询追踪状态。
func getOrderStatus(lookup StatusLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid order id"})
			return
		}

		status, ok, err := lookup.GetOrderStatus(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "order not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"code": 0,
			"data": gin.H{
				"order_id": id,
				"status":   status,
			},
		})
	}
}
