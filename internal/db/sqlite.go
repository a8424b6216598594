package db

import (
	"fmt"
	"log"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/pysugar/connector-gate/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the SQLite credential database and runs migrations.
// A migration failure on read-only media is not fatal: an existing
// database stays readable, and writes surface as WriteDenied at the
// store layer.
func InitDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening credential database %s: %w", dbPath, err)
	}

	if err := db.AutoMigrate(&models.SecretRecord{}); err != nil {
		if isReadOnlyError(err) {
			log.Printf("⚠️ Credential database %s is read-only, continuing without migration", dbPath)
			return db, nil
		}
		return nil, fmt.Errorf("migrating credential database: %w", err)
	}

	return db, nil
}

// isReadOnlyError reports whether err indicates storage without write
// access (read-only file, read-only mount, missing permission).
func isReadOnlyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"readonly database",
		"read-only",
		"permission denied",
		"attempt to write a readonly",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
