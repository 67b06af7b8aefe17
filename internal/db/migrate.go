package db

import (
	"ipmarket/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Listing{},
		&models.Purchase{},
		&models.WorkflowRun{},
		&models.SyncState{},
		&models.SystemSetting{},
	)
}
