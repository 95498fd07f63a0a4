// internal/database/connection.go
package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/bulkwear-backend/internal/config"
	"github.com/javajoker/bulkwear-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"host":     cfg.Host,
		"database": cfg.Database,
	}).Info("Database connection established")
	return db, nil
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
		return
	}
	logrus.Info("Database connection closed")
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Purchase{},
		&models.PasswordResetCode{},
		&models.ContactMessage{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	createIndexes(db)

	logrus.Info("Database migrations completed")
	return nil
}

func createIndexes(db *gorm.DB) {
	indexes := []string{
		// Product listing
		"CREATE INDEX IF NOT EXISTS idx_products_active_created ON products(is_active, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",

		// Purchases
		"CREATE INDEX IF NOT EXISTS idx_purchases_status ON purchases(payment_status, order_status)",
		"CREATE INDEX IF NOT EXISTS idx_purchases_user_status_created ON purchases(user_id, payment_status, created_at)",

		// Reset codes
		"CREATE INDEX IF NOT EXISTS idx_password_reset_codes_email_code ON password_reset_codes(email, code)",

		// Audit
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			// Continue with other indexes instead of failing completely
			logrus.WithError(err).WithField("index", index).Warn("Failed to create index")
		}
	}
}

// SeedAdmin creates the first admin account when none exists. It does
// nothing when cfg has no password.
func SeedAdmin(db *gorm.DB, cfg config.AdminSeedConfig) error {
	if cfg.Password == "" {
		return nil
	}

	var existing models.User
	err := db.Where("role = ?", models.RoleAdmin).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	admin := &models.User{
		Name:     cfg.Name,
		Email:    strings.ToLower(strings.TrimSpace(cfg.Email)),
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := admin.SetPassword(cfg.Password); err != nil {
		return fmt.Errorf("failed to set admin password: %w", err)
	}
	if err := db.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logrus.WithField("email", admin.Email).Info("Default admin user created")
	return nil
}
