package db

import (
	"github.com/attestor-dev/attestor/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

func Migrate(gdb *gorm.DB) error {
	tables := []interface{}{
		&models.User{},
		&models.Project{},
		&models.Baseline{},
		&models.TaskDefinition{},
		&models.ProjectTask{},
		&models.Evidence{},
	}

	for _, table := range tables {
		if err := gdb.AutoMigrate(table); err != nil {
			return err
		}
	}

	return nil
}
