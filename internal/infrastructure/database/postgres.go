package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/supersunho/senseinfo/config"
	accountent "github.com/supersunho/senseinfo/internal/domain/account/entities"
	channelent "github.com/supersunho/senseinfo/internal/domain/channel/entities"
	keywordent "github.com/supersunho/senseinfo/internal/domain/keyword/entities"
	messageent "github.com/supersunho/senseinfo/internal/domain/message/entities"
)

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := cfg.GetDSN()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// AutoMigrate keeps dev databases in sync when SQL migrations were not
	// applied; production schemas come from the migrations directory.
	if err := db.AutoMigrate(
		&accountent.Account{},
		&channelent.MonitoredChannel{},
		&keywordent.KeywordRule{},
		&messageent.StoredMessage{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return db, nil
}
