package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/internal/pkg/env"
)

const (
	connectAttempts = 5
	connectBackoff  = 5 * time.Second
)

// SetupDatabase opens the MySQL pool and keeps the schema current. Database
// containers come up slower than the app, so the first connection retries.
func SetupDatabase() {
	dsn := buildDSN()

	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		// DisableDatetimePrecision keeps plain DATETIME columns; the SQL
		// migrations are written against exactly that mapping.
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{})
		if err == nil {
			autoMigrate()
			return
		}

		log.Printf("database connection attempt %d/%d failed: %v", attempt, connectAttempts, err)
		if attempt < connectAttempts {
			time.Sleep(connectBackoff)
		}
	}
	panic(err)
}

func buildDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)
}

// autoMigrate aligns dev schemas with the models; the files under
// migrations/ stay the source of truth for real deployments.
func autoMigrate() {
	err := DB.AutoMigrate(
		&models.User{},
		&models.UserSettings{},
		&models.ProviderAccount{},
		&models.Membership{},
		&models.SubscriptionInformation{},
		&models.PaymentIntent{},
		&models.WebhookEvent{},
		&models.MemberExport{},
		&models.Setting{},
	)
	if err != nil {
		log.Printf("auto migration: %v", err)
	}
}
