package database

import (
	"fmt"

	"tourhub/config"
	"tourhub/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql", "":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	db, err := gorm.Open(dialector, GormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// GormConfig is shared by every dialect, tests included.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true,
		// hosts and subscriptions reference each other
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

// Models lists every persisted model in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Admin{},
		&models.Host{},
		&models.Tourist{},
		&models.Destination{},
		&models.Tour{},
		&models.Booking{},
		&models.Payment{},
		&models.WebhookEvent{},
		&models.Payout{},
		&models.LedgerEntry{},
		&models.SubscriptionPlan{},
		&models.Subscription{},
		&models.Review{},
		&models.Blog{},
		&models.BlogComment{},
		&models.BlogLike{},
		&models.CommentLike{},
		&models.Notification{},
	}
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
