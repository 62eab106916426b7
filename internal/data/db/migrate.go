package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/video-insight-backend/internal/domain/insight"
	"github.com/yungbote/video-insight-backend/internal/platform/logger"
)

// Service is the storage backend selected at startup.
type Service interface {
	DB() *gorm.DB
	AutoMigrateAll() error
	Close()
}

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&insight.Record{},
	)
}

func autoMigrate(db *gorm.DB, log *logger.Logger) error {
	log.Info("Auto migrating tables...")
	if err := AutoMigrateAll(db); err != nil {
		log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}
