package models

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// InitDB initializes database connection
func InitDB(config DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(config.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// The intake workflow owns the schema in production; migrating here keeps
	// local databases usable.
	if config.AutoMigrate {
		if err := db.AutoMigrate(&Appointment{}); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DSN         string
	AutoMigrate bool
}
