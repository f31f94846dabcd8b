package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jengzang/bim4d-backend-go/internal/api"
	"github.com/jengzang/bim4d-backend-go/internal/cache"
	"github.com/jengzang/bim4d-backend-go/internal/config"
	"github.com/jengzang/bim4d-backend-go/internal/database"
	"github.com/jengzang/bim4d-backend-go/internal/logger"
	"github.com/jengzang/bim4d-backend-go/internal/repository"
	"github.com/jengzang/bim4d-backend-go/internal/service"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	log, closeLog, err := logger.New(cfg)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(log)

	// 初始化数据库
	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	db := database.GetDB()
	if err := database.NewMigrationManager(db).RunMigrations(); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	svc := service.NewSequenceService(
		repository.NewScheduleRepository(db, cfg.DBPath),
		repository.NewKVRepository(db),
		service.Options{
			FPS:        cfg.Animation.FPS,
			StartFrame: cfg.Animation.StartFrame,
			Cache: cache.Options{
				TTL:           cfg.Cache.TTL,
				MaxEntries:    cfg.Cache.MaxEntries,
				EvictFraction: cfg.Cache.EvictFraction,
			},
		},
		log,
	)

	// 初始化路由
	router := api.SetupRouter(cfg, svc, log)
	srv := &http.Server{Addr: cfg.Port, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 启动服务器
	go func() {
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	svc.StopLive()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
