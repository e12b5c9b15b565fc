package interfaces

import (
	"context"

	"github.com/rg345/smtp-ui/internal/models"
)

type SmtpProfileRepository interface {
	// Create persists a new profile. The full profile, credentials included,
	// is returned to the creator only.
	Create(ctx context.Context, profile *models.SmtpProfile) (*models.SmtpProfile, error)
	// List returns the tenant's profiles newest first, secrets stripped.
	List(ctx context.Context, tenant string) ([]*models.SmtpProfileView, error)
	GetByID(ctx context.Context, tenant, id string) (*models.SmtpProfileView, error)
	// GetActive resolves a profile for dispatch. Inactive profiles are
	// indistinguishable from missing ones.
	GetActive(ctx context.Context, tenant, id string) (*models.SmtpProfile, error)
	Update(ctx context.Context, tenant, id string, update *models.SmtpProfileUpdate) (*models.SmtpProfileView, error)
	Delete(ctx context.Context, tenant, id string) error
}
