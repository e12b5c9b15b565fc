package stats

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/rg345/smtp-ui/interfaces"
	"github.com/rg345/smtp-ui/internal/enum"
	smtperrors "github.com/rg345/smtp-ui/internal/errors"
	"github.com/rg345/smtp-ui/internal/tracing"
	"github.com/rg345/smtp-ui/internal/utils"
)

const trailingWindow = 30 * 24 * time.Hour

// DeliveryStats is a count-by-status snapshot over a tenant's records.
type DeliveryStats struct {
	Total   int64 `json:"total"`
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Pending int64 `json:"pending"`
}

type Service interface {
	Totals(ctx context.Context) (*DeliveryStats, error)
	Last30Days(ctx context.Context) (*DeliveryStats, error)
}

type statsService struct {
	records interfaces.DeliveryRecordRepository
}

func NewStatsService(records interfaces.DeliveryRecordRepository) Service {
	return &statsService{records: records}
}

func (s *statsService) Totals(ctx context.Context) (*DeliveryStats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "statsService.Totals")
	defer span.Finish()
	tracing.TagComponentService(span)

	return s.aggregate(ctx, span, nil)
}

func (s *statsService) Last30Days(ctx context.Context) (*DeliveryStats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "statsService.Last30Days")
	defer span.Finish()
	tracing.TagComponentService(span)

	// Window is computed per call, never cached.
	since := utils.Now().Add(-trailingWindow)
	return s.aggregate(ctx, span, &since)
}

func (s *statsService) aggregate(ctx context.Context, span opentracing.Span, since *time.Time) (*DeliveryStats, error) {
	tenant := utils.GetTenantFromContext(ctx)
	if tenant == "" {
		return nil, smtperrors.ErrTenantMissing
	}
	tracing.TagTenant(span, tenant)

	counts, err := s.records.CountByStatus(ctx, tenant, since)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	stats := &DeliveryStats{
		Sent:    counts[enum.DeliveryStatusSent],
		Failed:  counts[enum.DeliveryStatusFailed],
		Pending: counts[enum.DeliveryStatusPending],
	}
	stats.Total = stats.Sent + stats.Failed + stats.Pending
	return stats, nil
}
