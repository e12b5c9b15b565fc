package interfaces

import (
	"context"
	"time"

	"github.com/rg345/smtp-ui/internal/enum"
	"github.com/rg345/smtp-ui/internal/models"
)

type DeliveryRecordRepository interface {
	Create(ctx context.Context, record *models.DeliveryRecord) error
	GetByID(ctx context.Context, tenant, id string) (*models.DeliveryRecord, error)
	// List returns one page plus the total match count. Body content is not
	// loaded for list results.
	List(ctx context.Context, tenant string, filter *models.DeliveryRecordFilter) ([]*models.DeliveryRecord, int64, error)
	// MarkSent and MarkFailed apply the terminal transition. They only touch
	// records still in pending state, so a terminal record can never be
	// rewritten.
	MarkSent(ctx context.Context, id, messageID string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id, errorMessage string) error
	CountByStatus(ctx context.Context, tenant string, since *time.Time) (map[enum.DeliveryStatus]int64, error)
	Tenants(ctx context.Context) ([]string, error)
}
