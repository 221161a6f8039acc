package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/config"
	"github.com/atum2025/backend-safewakeapp/internal/database"
	httpapi "github.com/atum2025/backend-safewakeapp/internal/http"
	"github.com/atum2025/backend-safewakeapp/internal/logger"
	"github.com/atum2025/backend-safewakeapp/internal/notifier"
	"github.com/atum2025/backend-safewakeapp/internal/reconciler"
	"github.com/atum2025/backend-safewakeapp/internal/repository"
	"github.com/atum2025/backend-safewakeapp/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "safewake")
	if err != nil {
		os.Stderr.WriteString("failed to init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	// 存储：DB 可用走 Postgres，否则退内存 repo（开发联测用）
	var (
		db          *sql.DB
		usersRepo   repository.UserRepo
		contactRepo repository.ContactRepo
		configRepo  repository.AlarmConfigRepo
	)
	if cfg.DBEnabled {
		d, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			log.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		} else {
			db = d
			log.Info("DB enabled for safewake")
		}
	}
	if db != nil {
		usersRepo = repository.NewPostgresUsersRepo(db, log)
		contactRepo = repository.NewPostgresContactsRepo(db, log)
		configRepo = repository.NewPostgresAlarmConfigsRepo(db, log)
	} else {
		usersRepo = repository.NewMemoryUsersRepo()
		contactRepo = repository.NewMemoryContactsRepo()
		configRepo = repository.NewMemoryAlarmConfigsRepo()
	}

	// Redis 只承载升级幂等键；连不上时 guard fail-open，服务照常跑
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	guard := notifier.NewEscalationGuard(redisClient, cfg.Reconciler.GuardTTL, log)

	whatsapp := notifier.NewWhatsAppNotifier(cfg.Notify.GatewayURL, cfg.Notify.Timeout, log)
	escalator := service.NewEscalator(usersRepo, contactRepo, configRepo, whatsapp, guard, log)

	// 服务端兜底：周期扫描错过的报警
	rec := reconciler.New(configRepo, escalator, log)
	cronRunner, err := rec.Start(cfg.Reconciler.Schedule)
	if err != nil {
		log.Fatal("Failed to start reconciler", zap.Error(err))
	}

	router := httpapi.NewRouter(log)
	router.RegisterRoutes(
		httpapi.NewAuthHandler(usersRepo, contactRepo, configRepo, log),
		httpapi.NewUserHandler(usersRepo, log),
		httpapi.NewAlarmConfigHandler(configRepo, log),
		httpapi.NewContactHandler(contactRepo, log),
		httpapi.NewEmergencyHandler(escalator, log),
	)

	server := service.NewServer(cfg.HTTP.Addr, router, log)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down safewake")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 先停 cron，等正在跑的 pass 结束
	<-cronRunner.Stop().Done()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := redisClient.Close(); err != nil {
		log.Error("Redis close failed", zap.Error(err))
	}
	if err := database.Close(db); err != nil {
		log.Error("DB close failed", zap.Error(err))
	}

	log.Info("Safewake stopped")
}
