package services

import (
	"github.com/rg345/smtp-ui/interfaces"
	"github.com/rg345/smtp-ui/internal/logger"
	"github.com/rg345/smtp-ui/internal/repository"
	"github.com/rg345/smtp-ui/services/dispatch"
	"github.com/rg345/smtp-ui/services/smtp"
	"github.com/rg345/smtp-ui/services/stats"
)

type Services struct {
	SMTPClientFactory interfaces.SMTPClientFactory
	DispatchService   dispatch.Service
	StatsService      stats.Service
}

func InitServices(log logger.Logger, repos *repository.Repositories) *Services {
	clientFactory := smtp.NewClientFactory()

	return &Services{
		SMTPClientFactory: clientFactory,
		DispatchService: dispatch.NewDispatchService(
			log,
			repos.SmtpProfileRepository,
			repos.DeliveryRecordRepository,
			clientFactory,
		),
		StatsService: stats.NewStatsService(repos.DeliveryRecordRepository),
	}
}
