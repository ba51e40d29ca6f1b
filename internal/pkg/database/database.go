package database

import "gorm.io/gorm"

var DB *gorm.DB

// GetDB returns the shared database handle
func GetDB() *gorm.DB {
	return DB
}

// SetDB replaces the shared handle (tests only)
func SetDB(db *gorm.DB) {
	DB = db
}
