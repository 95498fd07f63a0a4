// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/bootstrap"
	"github.com/javajoker/bulkwear-backend/internal/config"
	"github.com/javajoker/bulkwear-backend/internal/database"
	"github.com/javajoker/bulkwear-backend/internal/documents"
	"github.com/javajoker/bulkwear-backend/internal/gateway"
	"github.com/javajoker/bulkwear-backend/internal/i18n"
	"github.com/javajoker/bulkwear-backend/internal/middleware"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/router"
	"github.com/javajoker/bulkwear-backend/internal/services"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	bootstrap.SetupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}
	if err := database.SeedAdmin(db, cfg.AdminSeed); err != nil {
		logrus.WithError(err).Fatal("Failed to seed admin user")
	}

	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	appCache, closeCache, err := bootstrap.OpenCache(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize cache")
	}
	defer closeCache()

	files, err := bootstrap.OpenStorage(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}

	mailer, closeMailer, err := bootstrap.OpenMailer(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize mailer")
	}
	defer closeMailer()

	store := repository.NewGormStore(db)
	docs := services.NewDocumentService(documents.NewPDFRenderer(), files, cfg.Branding)

	svc := &router.Services{
		Auth:          services.NewAuthService(store.Users, cfg.JWT),
		PasswordReset: services.NewPasswordResetService(store.Users, store.ResetCodes, appCache, mailer, cfg.Reset),
		User:          services.NewUserService(store.Users, appCache),
		Product:       services.NewProductService(store.Products, files, appCache, docs),
		Purchase:      services.NewPurchaseService(store.Products, store.Purchases, files, appCache, cfg.Pricing.DeliveryCharge),
		Payment:       services.NewPaymentService(store.Purchases, gateway.NewStripeGateway(cfg.Payment), appCache, docs, cfg.Payment),
		Contact:       services.NewContactService(store.Contacts, appCache, mailer, cfg.Email.AdminEmail),
		Admin:         services.NewAdminService(store),
	}

	if cfg.Sweep.InProcess {
		go services.NewSweepService(store, files, cfg.Sweep).Schedule(ctx)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	limiters := middleware.DefaultRateLimiters()
	limiters.Run(ctx.Done())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router.Initialize(cfg, svc, limiters),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}
