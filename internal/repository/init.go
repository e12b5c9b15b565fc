package repository

import (
	"gorm.io/gorm"

	"github.com/rg345/smtp-ui/interfaces"
	"github.com/rg345/smtp-ui/internal/models"
)

type Repositories struct {
	SmtpProfileRepository    interfaces.SmtpProfileRepository
	DeliveryRecordRepository interfaces.DeliveryRecordRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		SmtpProfileRepository:    NewSmtpProfileRepository(db),
		DeliveryRecordRepository: NewDeliveryRecordRepository(db),
	}
}

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.SmtpProfile{},
		&models.DeliveryRecord{},
	)
}
