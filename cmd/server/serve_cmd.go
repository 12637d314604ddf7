package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HaiNguyen26/Meals-RMG/internal/api/handler"
	"github.com/HaiNguyen26/Meals-RMG/internal/api/middleware"
	"github.com/HaiNguyen26/Meals-RMG/internal/api/router"
	"github.com/HaiNguyen26/Meals-RMG/internal/businessday"
	"github.com/HaiNguyen26/Meals-RMG/internal/metrics"
	"github.com/HaiNguyen26/Meals-RMG/internal/realtime"
	"github.com/HaiNguyen26/Meals-RMG/internal/repository"
	"github.com/HaiNguyen26/Meals-RMG/internal/service"
	"github.com/HaiNguyen26/Meals-RMG/pkg/clock"
	"github.com/HaiNguyen26/Meals-RMG/pkg/jwt"
	"github.com/HaiNguyen26/Meals-RMG/pkg/redis"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP / WebSocket 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	// 1. 配置、日志、数据库与迁移
	a, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	cfg, logger := a.cfg, a.logger
	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	// 2. 连接 Redis（可选：连接失败时降级为单实例推送、写接口不限流）
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，降级为单实例运行", zap.Error(err))
			rdb = nil
		}
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// 3. 指标
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 4. 实时推送
	var broker realtime.Broker = realtime.NewLocalBroker()
	if rdb != nil {
		broker = realtime.NewRedisBroker(rdb, logger)
	}
	hub := realtime.NewHub(broker, cfg.Realtime.PublishTimeout, m, logger)

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		if err := hub.Run(hubCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("实时推送已停止", zap.Error(err))
		}
	}()

	// 5. 依赖注入: Repository → Service → Handler
	cal, err := businessday.NewFromConfig(&cfg.Lunch)
	if err != nil {
		stopHub()
		<-hubDone
		return err
	}
	repo := repository.NewRepository(a.db)
	svc := service.NewService(cfg, repo, cal, clock.Real{}, hub, m, logger)
	jwtMgr := jwt.NewManager(&cfg.Auth)

	checks := map[string]handler.Pinger{"database": repo}
	var limiter middleware.RateLimiter
	if rdb != nil {
		checks["redis"] = rdb
		limiter = rdb
	}
	h := handler.NewHandler(cfg, svc, hub, jwtMgr, checks, logger)

	// 6. 初始化路由
	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		gatherer = reg
	}
	engine := router.Setup(cfg, h, jwtMgr, limiter, gatherer, logger)

	// 7. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 8. 等待退出信号
	select {
	case <-ctx.Done():
		logger.Info("收到关闭信号，开始优雅关闭...")
	case err = <-serveErr:
		logger.Error("HTTP 服务器异常", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("服务器关闭异常", zap.Error(shutdownErr))
	}

	// 断开全部 WebSocket 连接
	stopHub()
	<-hubDone

	logger.Info("服务器已关闭")
	return err
}
