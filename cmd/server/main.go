package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignatzorin/account-backend/internal/config"
	"github.com/ignatzorin/account-backend/internal/db"
	httpHandlers "github.com/ignatzorin/account-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/account-backend/internal/http/router"
	"github.com/ignatzorin/account-backend/internal/logger"
	"github.com/ignatzorin/account-backend/internal/mailer"
	"github.com/ignatzorin/account-backend/internal/repository"
	"github.com/ignatzorin/account-backend/internal/service"
	"github.com/ignatzorin/account-backend/internal/storage"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
	}
	logger.Init(cfg.Env, logLevel)

	// Подключение к базе и индексы.
	client, err := db.NewMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logger.Log.WithField("error", err.Error()).Warn("ошибка закрытия соединения с базой")
		}
	}()

	database := client.Database(cfg.MongoDatabase)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.Fatalf("main: ошибка создания индексов: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(database)
	otpRepo := repository.NewOTPRepository(database)

	// Вспомогательные сервисы: почта, объектное хранилище, токены.
	mail := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)

	photoStorage, err := storage.NewPhotoStorage(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey)
	if err != nil {
		log.Fatalf("main: ошибка инициализации хранилища: %v", err)
	}

	tokenCodec := service.NewTokenCodec(cfg.JWTSecret)
	sessions := service.NewSessionManager(tokenCodec, cfg.SessionTTLDays, cfg.ExtendedSessionDays)

	otpEngine := service.NewOTPEngine(otpRepo, mail, service.OTPPolicy{
		TTL:          cfg.OTPTTL,
		MinSendGap:   cfg.OTPMinSendGap,
		SendsPerHour: cfg.OTPSendsPerHour,
		SendsPerDay:  cfg.OTPSendsPerDay,
	})

	authService := service.NewAuthService(userRepo, otpEngine, sessions)
	profileService := service.NewProfileService(userRepo, photoStorage)

	// Handlers.
	authHandler := httpHandlers.NewAuthHandler(authService)
	profileHandler := httpHandlers.NewProfileHandler(profileService, sessions, cfg.MaxUploadBytes)
	healthHandler := httpHandlers.NewHealthHandler(client)

	r := httpRouter.SetupRouter(cfg, authHandler, profileHandler, healthHandler, sessions)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithField("error", err.Error()).Error("ошибка остановки сервера")
		}
	}()

	logger.Log.WithField("port", cfg.HTTPPort).Info("сервер запущен")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("main: ошибка сервера: %v", err)
	}
	logger.Log.Info("сервер остановлен")
}
