package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is set by Connect for the binaries; packages take a Store instead.
var DB *gorm.DB

func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	return nil
}

// Sync migrates every table of the referral service.
func Sync(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Referral{},
		&ReferralRequest{},
		&ReferralOffer{},
		&Payment{},
		&PasswordReset{},
		&RevokedToken{},
	)
}
