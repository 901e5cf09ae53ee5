package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig 聚合运行时配置，尽量通过环境变量注入，避免硬编码。
type AppConfig struct {
	HTTPAddr    string
	WebhookPath string

	// 订单库：sqlite（默认）或 mysql
	DBDriver    string
	DBPath      string
	MySQLDSN    string
	SeedCatalog bool

	// RedisAddr 为空时不启用 Redis（限流、状态缓存、事件 outbox 都关闭）
	RedisAddr      string
	RedisDB        int
	StatusCacheTTL time.Duration

	// KafkaBrokers 为空时不投递订单事件
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Redis Stream outbox（请求路径入流，Relay 异步转 Kafka）
	OrderEventStream   string
	OrderEventGroup    string
	OrderEventConsumer string

	// webhook 按会话限流
	WebhookRateLimit  int
	WebhookRateWindow time.Duration

	// 允许取消的追踪状态
	CancellableStatuses []string
	// 等待会话锁的上限
	LockTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// Load 读取并校验配置，缺失时使用默认值。
func Load() (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		WebhookPath:         getEnv("WEBHOOK_PATH", "/"),
		DBDriver:            strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:              getEnv("DB_PATH", "eatery.db"),
		MySQLDSN:            getEnv("MYSQL_DSN", ""),
		SeedCatalog:         true,
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisDB:             0,
		StatusCacheTTL:      30 * time.Second,
		KafkaBrokers:        splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "eatery-order-events"),
		KafkaGroupID:        getEnv("KAFKA_GROUP_ID", "eatery-order-audit"),
		OrderEventStream:    getEnv("ORDER_EVENT_STREAM", "eatery:order_events"),
		OrderEventGroup:     getEnv("ORDER_EVENT_GROUP", "eatery-relay-group"),
		OrderEventConsumer:  getEnv("ORDER_EVENT_CONSUMER", "eatery-relay-1"),
		WebhookRateLimit:    30,
		WebhookRateWindow:   10 * time.Second,
		CancellableStatuses: splitCSV(getEnv("CANCELLABLE_STATUSES", "in progress")),
		LockTimeout:         5 * time.Second,
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
	}

	if !strings.HasPrefix(cfg.WebhookPath, "/") {
		return AppConfig{}, fmt.Errorf("WEBHOOK_PATH must start with /")
	}

	switch cfg.DBDriver {
	case "sqlite":
		if cfg.DBPath == "" {
			return AppConfig{}, fmt.Errorf("DB_PATH must not be empty")
		}
	case "mysql":
		if cfg.MySQLDSN == "" {
			return AppConfig{}, fmt.Errorf("MYSQL_DSN must not be empty when DB_DRIVER=mysql")
		}
	default:
		return AppConfig{}, fmt.Errorf("DB_DRIVER must be sqlite or mysql, got %q", cfg.DBDriver)
	}

	seed, err := getEnvBool("SEED_CATALOG", cfg.SeedCatalog)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid SEED_CATALOG: %w", err)
	}
	cfg.SeedCatalog = seed

	redisDB, err := getEnvInt("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	ttlSec, err := getEnvInt("STATUS_CACHE_TTL_SEC", int(cfg.StatusCacheTTL.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid STATUS_CACHE_TTL_SEC: %w", err)
	}
	if ttlSec <= 0 {
		return AppConfig{}, fmt.Errorf("STATUS_CACHE_TTL_SEC must be > 0")
	}
	cfg.StatusCacheTTL = time.Duration(ttlSec) * time.Second

	rateLimit, err := getEnvInt("WEBHOOK_RATE_LIMIT", cfg.WebhookRateLimit)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid WEBHOOK_RATE_LIMIT: %w", err)
	}
	if rateLimit <= 0 {
		return AppConfig{}, fmt.Errorf("WEBHOOK_RATE_LIMIT must be > 0")
	}
	cfg.WebhookRateLimit = rateLimit

	rateWindowSec, err := getEnvInt("WEBHOOK_RATE_WINDOW_SEC", int(cfg.WebhookRateWindow.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid WEBHOOK_RATE_WINDOW_SEC: %w", err)
	}
	if rateWindowSec <= 0 {
		return AppConfig{}, fmt.Errorf("WEBHOOK_RATE_WINDOW_SEC must be > 0")
	}
	cfg.WebhookRateWindow = time.Duration(rateWindowSec) * time.Second

	lockMs, err := getEnvInt("LOCK_TIMEOUT_MS", int(cfg.LockTimeout.Milliseconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid LOCK_TIMEOUT_MS: %w", err)
	}
	if lockMs < 0 {
		return AppConfig{}, fmt.Errorf("LOCK_TIMEOUT_MS must be >= 0")
	}
	cfg.LockTimeout = time.Duration(lockMs) * time.Millisecond

	if len(cfg.CancellableStatuses) == 0 {
		return AppConfig{}, fmt.Errorf("CANCELLABLE_STATUSES must not be empty")
	}

	if cfg.KafkaEnabled() {
		if cfg.KafkaTopic == "" {
			return AppConfig{}, fmt.Errorf("KAFKA_TOPIC must not be empty")
		}
		if cfg.KafkaGroupID == "" {
			return AppConfig{}, fmt.Errorf("KAFKA_GROUP_ID must not be empty")
		}
	}
	if cfg.RedisEnabled() && cfg.KafkaEnabled() {
		if cfg.OrderEventStream == "" {
			return AppConfig{}, fmt.Errorf("ORDER_EVENT_STREAM must not be empty")
		}
		if cfg.OrderEventGroup == "" {
			return AppConfig{}, fmt.Errorf("ORDER_EVENT_GROUP must not be empty")
		}
		if cfg.OrderEventConsumer == "" {
			return AppConfig{}, fmt.Errorf("ORDER_EVENT_CONSUMER must not be empty")
		}
	}

	return cfg, nil
}

// RedisEnabled 是否配置了 Redis。
func (c AppConfig) RedisEnabled() bool { return c.RedisAddr != "" }

// KafkaEnabled 是否配置了 Kafka。
func (c AppConfig) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// getEnv 读取字符串环境变量，若为空则返回默认值。
func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// getEnvInt 读取整数环境变量，若为空则返回默认值。
func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// getEnvBool 读取布尔环境变量，若为空则返回默认值。
func getEnvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

// splitCSV 将逗号分隔字符串解析为字符串切片。
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
