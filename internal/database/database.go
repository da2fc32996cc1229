package database

import (
	"github.com/tigar/puzzle2rsvp/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func Initialize(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.Event{},
		&models.Invite{},
		&models.PushSubscription{},
	); err != nil {
		return nil, err
	}

	return db, nil
}
