package database

import (
	"custodia/internal/config"
	"custodia/internal/model"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewConnection opens the PostgreSQL pool and migrates the schema.
func NewConnection(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)

	if err := Migrate(db); err != nil {
		log.Warn().Err(err).Msg("auto-migration failed")
	}
	return db, nil
}

// Migrate creates or updates the schema for every persisted model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Zone{},
		&model.Station{},
		&model.SalesReport{},
		&model.FuelLineItem{},
		&model.Delivery{},
		&model.Expense{},
		&model.SpendingLimit{},
		&model.OperationalClosure{},
		&model.MonthlyRollup{},
		&model.MonthlySettlement{},
		&model.AuditRecord{},
	)
}
