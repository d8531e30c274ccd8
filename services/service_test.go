package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"scholar-sweep/models"
)

// openTestDB öffnet eine In-Memory-Datenbank mit vollständigem Schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("test-datenbank öffnen: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Journal{},
		&models.DuplicateGroup{},
		&models.NonDuplicateGroup{},
		&models.Publication{},
		&models.PublicationImport{},
		&models.ContributorName{},
		&models.Authorship{},
		&models.OpenAccessLocation{},
	)
	if err != nil {
		t.Fatalf("auto-migration: %v", err)
	}
	return db
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// mustCreate legt einen Datensatz an und schlägt den Test bei Fehlern fehl.
func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("testdatensatz anlegen: %v", err)
	}
}
