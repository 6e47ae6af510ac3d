package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	appsvc "github.com/wyfcoding/scholarpay/internal/application/application"
	appmysql "github.com/wyfcoding/scholarpay/internal/application/infrastructure/persistence/mysql"
	apphttp "github.com/wyfcoding/scholarpay/internal/application/interfaces/http"
	notifsvc "github.com/wyfcoding/scholarpay/internal/notification/application"
	"github.com/wyfcoding/scholarpay/internal/notification/infrastructure/messaging"
	notifmysql "github.com/wyfcoding/scholarpay/internal/notification/infrastructure/persistence/mysql"
	"github.com/wyfcoding/scholarpay/internal/notification/infrastructure/sender"
	paysvc "github.com/wyfcoding/scholarpay/internal/payment/application"
	"github.com/wyfcoding/scholarpay/internal/payment/infrastructure/gateway"
	paymysql "github.com/wyfcoding/scholarpay/internal/payment/infrastructure/persistence/mysql"
	payhttp "github.com/wyfcoding/scholarpay/internal/payment/interfaces/http"
	"github.com/wyfcoding/scholarpay/pkg/cache"
	"github.com/wyfcoding/scholarpay/pkg/config"
	"github.com/wyfcoding/scholarpay/pkg/db"
	"github.com/wyfcoding/scholarpay/pkg/logger"
	"github.com/wyfcoding/scholarpay/pkg/metrics"
	"github.com/wyfcoding/scholarpay/pkg/middleware"
	"github.com/wyfcoding/scholarpay/pkg/mq"
	"github.com/wyfcoding/scholarpay/pkg/ratelimit"
	"github.com/wyfcoding/scholarpay/pkg/response"
)

func main() {
	// 1. 加载配置，缺失必填凭证直接拒绝启动
	cfg, err := config.Load("configs/config.toml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger.Info(ctx, "Starting service",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 生产环境对外隐藏上游错误详情
	response.SetMode(cfg.IsProd())

	// 3. 初始化数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	if err := database.AutoMigrate(
		&appmysql.ApplicationModel{},
		&paymysql.PaymentOrderModel{},
		&notifmysql.NotificationModel{},
	); err != nil {
		logger.Fatal(ctx, "Failed to migrate database", "error", err)
	}

	// 4. 初始化 Redis
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize Redis", "error", err)
	}
	defer redisCache.Close()

	// 5. 初始化 Kafka 生产者
	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize Kafka producer", "error", err)
	}
	defer producer.Close()

	// 6. 初始化指标
	m := metrics.New(cfg.ServiceName)
	if err := m.Register(); err != nil {
		logger.Fatal(ctx, "Failed to register metrics", "error", err)
	}
	if cfg.Metrics.Enabled {
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "Failed to start metrics server", "error", err)
		}
	}

	// 7. 组装各上下文
	applicationRepo := appmysql.NewApplicationRepository(database.DB)
	applicationService := appsvc.NewApplicationService(applicationRepo, redisCache, m)

	gatewayClient := gateway.NewClient(cfg.Gateway, m)
	tokenCache := gateway.NewTokenCache(gatewayClient)

	notificationRepo := notifmysql.NewNotificationRepository(database.DB)
	emailSender := sender.NewSMTPSender(cfg.SMTP)
	eventPublisher := messaging.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
	notificationService := notifsvc.NewNotificationService(notificationRepo, emailSender, eventPublisher, m)

	paymentRepo := paymysql.NewPaymentOrderRepository(database.DB)
	paymentService := paysvc.NewPaymentService(
		paymentRepo,
		gatewayClient,
		tokenCache,
		applicationService,
		notificationService,
		cfg.Payment,
		cfg.Gateway.RedirectBaseURL,
		m,
	)

	// 8. 组装 HTTP 服务
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.GinLoggingMiddleware(),
		middleware.GinRecoveryMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinMetricsMiddleware(m),
	)
	limiter := ratelimit.NewIPLimiter(redisCache.GetClient(), cfg.RateLimit.QPS, cfg.RateLimit.Burst)
	router.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimit))

	apphttp.NewApplicationHandler(applicationService).RegisterRoutes(router)
	payhttp.NewPaymentHandler(paymentService).RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     cfg.ServiceName,
			"version":     cfg.Version,
			"environment": cfg.Environment,
			"gateway":     cfg.Gateway.Env,
			"timestamp":   time.Now().Unix(),
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server failed", "error", err)
		}
	}()

	// 9. 等待退出信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server forced to shutdown", "error", err)
	}
	logger.Info(ctx, "Server exited")
}
