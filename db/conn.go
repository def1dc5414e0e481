// Package db opens the gorm connection and keeps the schema migrated
package db

import (
	"errors"
	"fmt"
	"os"

	"github.com/yamar8/lovetree-backend/internal/model"
	"github.com/yamar8/lovetree-backend/pkg/util"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultSQLitePath = "database.db"

// New opens a database for the given driver ("sqlite" or "postgres") and runs
// the migrations. An empty dsn for sqlite means the local database.db file.
func New(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = defaultSQLitePath

			// If running in a docker container don't allow the sqlite file to be created.
			// The host should instead mount it using volumes
			if util.IsRunningInDocker() {
				if _, err := os.Stat(dsn); errors.Is(err, os.ErrNotExist) {
					return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to /app/%s", dsn)
				}
			}
		}

		dialector = sqlite.Open(dsn)
	case "postgres":
		if dsn == "" {
			return nil, errors.New("no postgres dsn provided")
		}

		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		// Unique index violations come back as gorm.ErrDuplicatedKey
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database, %w", driver, err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(model.User{}, model.Product{}, model.Review{})
	if err != nil {
		return fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return nil
}
