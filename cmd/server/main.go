package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"tourhub/config"
	"tourhub/internal/cache"
	"tourhub/internal/database"
	"tourhub/internal/logger"
	"tourhub/internal/middleware"
	"tourhub/internal/router"
	"tourhub/internal/service"
	"tourhub/internal/ws"
	"tourhub/pkg/cloudinary"
	"tourhub/pkg/mailer"
	"tourhub/pkg/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal(err)
	}
	logger.Init(cfg.Server.Env, cfg.Server.LogLevel)
	log := logger.For("server")

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.WithError(err).Fatal("migrate")
	}
	if err := database.SeedAdmin(db, &cfg.App); err != nil {
		log.WithError(err).Fatal("seed admin")
	}
	if n, err := database.SeedPlans(db, cfg.Payment.Currency); err != nil {
		log.WithError(err).Fatal("seed plans")
	} else if n > 0 {
		log.WithField("created", n).Info("default subscription plans seeded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cloud cloudinary.Client = cloudinary.Disabled{}
	if cfg.Cloudinary.CloudName != "" {
		cloud, err = cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			log.WithError(err).Fatal("cloudinary")
		}
	} else {
		log.Warn("cloudinary not configured, image uploads disabled")
	}

	var gateway payment.Gateway
	switch cfg.Payment.Provider {
	case "stub":
		log.Warn("using the stub payment gateway")
		gateway = payment.NewStubGateway(cfg.Payment.WebhookSecret)
	default:
		gateway = payment.NewStripeGateway(cfg.Payment.SecretKey, cfg.Payment.WebhookSecret)
	}

	deps := router.Deps{
		Cloud:   cloud,
		Gateway: gateway,
		Mailer: mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		}),
		Hub: ws.NewHub(),
		FCM: service.NewFCMService(ctx, cfg.Firebase.ServiceAccountPath),
	}
	if deps.FCM == nil {
		log.Info("push notifications disabled: set FIREBASE_SERVICE_ACCOUNT_PATH to enable")
	}

	// Redis shares locks and rate limits across instances; without it both stay in process.
	if rc := cache.NewClient(&cfg.Redis); rc != nil {
		if err := rc.Ping(ctx); err != nil {
			log.WithError(err).Fatal("redis")
		}
		defer rc.Close()
		deps.Locker = rc
		deps.Limiter = cache.NewLimiter(rc, 100, time.Minute)
	} else {
		limiter := middleware.NewInMemoryRateLimiter(100, time.Minute)
		defer limiter.Stop()
		deps.Locker = cache.NewMemoryLocker()
		deps.Limiter = limiter
	}

	services := router.NewServices(cfg, db, deps)
	go services.Payouts.RunReconciler(ctx)
	go services.Payments.RunRefundRetries(ctx, cfg.Payout.ReconcileInterval)

	engine := router.Setup(cfg, services, deps)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.WithField("port", cfg.Server.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
}
