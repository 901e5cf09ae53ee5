package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eatery/internal/config"
	"eatery/internal/intent"
	"eatery/internal/middleware"
	"eatery/internal/order"
	"eatery/internal/queue"
	"eatery/internal/router"
	"eatery/internal/store"
	"eatery/pkg/logger"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Component: "eatery"})

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.AppConfig, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 连接订单库，自动建表，菜单为空时写入默认菜单
	db, err := store.Open(store.Options{Driver: cfg.DBDriver, Path: cfg.DBPath, DSN: cfg.MySQLDSN})
	if err != nil {
		return err
	}
	if err := store.Migrate(db); err != nil {
		return err
	}
	if cfg.SeedCatalog {
		n, err := store.SeedCatalog(ctx, db, store.DefaultMenu)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info("catalog seeded", "items", n)
		}
	}

	gateway := store.NewGateway(db, log)
	var orderStore interface {
		order.Store
		router.StatusLookup
	} = gateway

	// 2. Redis：限流、状态缓存、事件 outbox
	var rdb *rd.Client
	if cfg.RedisEnabled() {
		rdb = rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		orderStore = store.NewStatusCachedGateway(gateway, rdb, cfg.StatusCacheTTL, cfg.CancellableStatuses, log)
	}

	g, gctx := errgroup.WithContext(ctx)

	// 3. 订单事件：有 Redis 走 outbox + relay，否则直连 Kafka
	var events queue.Publisher = queue.NopPublisher{}
	if cfg.KafkaEnabled() {
		producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()

		if rdb != nil {
			events = queue.NewStreamOutbox(rdb, cfg.OrderEventStream)
			relay := queue.NewRelay(rdb, producer, queue.RelayOptions{
				Stream:   cfg.OrderEventStream,
				Group:    cfg.OrderEventGroup,
				Consumer: cfg.OrderEventConsumer,
			}, log)
			g.Go(func() error {
				relay.Run(gctx)
				return nil
			})
		} else {
			events = producer
		}

		consumer := queue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, db, log)
		defer consumer.Close()
		g.Go(func() error {
			consumer.Run(gctx)
			return nil
		})
	}

	engine := order.NewEngine(order.NewCache(), order.NewKeyedMutex(), orderStore, events, order.Options{
		CancellableStatuses: cfg.CancellableStatuses,
		LockTimeout:         cfg.LockTimeout,
	}, log)
	disp := intent.NewDispatcher(engine, intent.DefaultNames, log)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLog(log))
	router.Setup(r, disp, orderStore, rdb, cfg, log)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.HTTPAddr, "webhook", cfg.WebhookPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
