package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func gormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			// Vector searches against a large corpus legitimately take
			// longer than OLTP queries; do not flood the log with them.
			SlowThreshold:             3 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  true,
		},
	)
}

// NewGormDB opens a PostgreSQL connection without any schema expectations.
// The migrate command uses it before the pgvector extension exists.
func NewGormDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// NewGormDBFromDSN opens a connection and verifies the pgvector extension is
// installed, failing fast instead of erroring on first search.
func NewGormDBFromDSN(dsn string) (*gorm.DB, error) {
	db, err := NewGormDB(dsn)
	if err != nil {
		return nil, err
	}

	var hasVector bool
	row := db.Raw("SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector')").Row()
	if err := row.Scan(&hasVector); err != nil {
		return nil, fmt.Errorf("failed to check pgvector extension: %w", err)
	}
	if !hasVector {
		return nil, fmt.Errorf("pgvector extension is not installed; run the migrate command first")
	}

	return db, nil
}
