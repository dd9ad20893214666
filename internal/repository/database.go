package repository

import (
	"errors"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrStaleTransition is returned by guarded updates when the row is no
// longer in the expected state.
var ErrStaleTransition = errors.New("row is not in the expected state")

func InitDB(dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.GroupUnread{},
		&models.Lead{},
		&models.LeadDocument{},
		&models.DirectChat{},
		&models.DirectMessage{},
	); err != nil {
		return nil, err
	}

	return db, nil
}

// IsNotFound reports whether err is gorm's missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
