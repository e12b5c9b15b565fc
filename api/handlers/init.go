package handlers

import (
	"github.com/rg345/smtp-ui/internal/repository"
	"github.com/rg345/smtp-ui/services"
)

type APIHandlers struct {
	SmtpProfiles *SmtpProfilesHandler
	Emails       *EmailsHandler
	Deliveries   *DeliveriesHandler
}

func InitHandlers(repos *repository.Repositories, svcs *services.Services) *APIHandlers {
	return &APIHandlers{
		SmtpProfiles: NewSmtpProfilesHandler(repos, svcs.SMTPClientFactory),
		Emails:       NewEmailsHandler(repos, svcs.DispatchService),
		Deliveries:   NewDeliveriesHandler(repos, svcs.StatsService),
	}
}
