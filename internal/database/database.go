package database

import (
	"fmt"

	"github.com/hallgard/authgate/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB is the global database connection
var DB *gorm.DB

// ConnectDB opens the postgres connection and stores it in the package-level DB
func ConnectDB(cfg *config.Config) error {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	DB = db
	return nil
}
