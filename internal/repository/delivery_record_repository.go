package repository

import (
	"context"
	"errors"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/rg345/smtp-ui/interfaces"
	"github.com/rg345/smtp-ui/internal/enum"
	"github.com/rg345/smtp-ui/internal/models"
	"github.com/rg345/smtp-ui/internal/tracing"
)

// listColumns is everything except body, which is excluded from list results.
var listColumns = []string{
	"id", "tenant", "profile_id",
	"to_addresses", "cc_addresses", "bcc_addresses",
	"subject", "attachments",
	"status", "error_message", "sent_at", "message_id",
	"created_at", "updated_at",
}

type deliveryRecordRepository struct {
	db *gorm.DB
}

func NewDeliveryRecordRepository(db *gorm.DB) interfaces.DeliveryRecordRepository {
	return &deliveryRecordRepository{db: db}
}

func (r *deliveryRecordRepository) Create(ctx context.Context, record *models.DeliveryRecord) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "deliveryRecordRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, record.Tenant)

	if record.Tenant == "" || record.ProfileID == "" {
		return ErrInvalidInput
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *deliveryRecordRepository) GetByID(ctx context.Context, tenant, id string) (*models.DeliveryRecord, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "deliveryRecordRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, tenant)
	tracing.TagEntity(span, id)

	var record models.DeliveryRecord
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant = ?", id, tenant).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &record, nil
}

func (r *deliveryRecordRepository) List(ctx context.Context, tenant string, filter *models.DeliveryRecordFilter) ([]*models.DeliveryRecord, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "deliveryRecordRepository.List")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, tenant)

	if filter == nil {
		filter = &models.DeliveryRecordFilter{}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}

	query := r.db.WithContext(ctx).Model(&models.DeliveryRecord{}).Where("tenant = ?", tenant)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	var records []*models.DeliveryRecord
	err := query.
		Select(listColumns).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	return records, total, nil
}

func (r *deliveryRecordRepository) MarkSent(ctx context.Context, id, messageID string, sentAt time.Time) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "deliveryRecordRepository.MarkSent")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	return r.markTerminal(ctx, span, id, map[string]interface{}{
		"status":     enum.DeliveryStatusSent,
		"message_id": messageID,
		"sent_at":    sentAt,
	})
}

func (r *deliveryRecordRepository) MarkFailed(ctx context.Context, id, errorMessage string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "deliveryRecordRepository.MarkFailed")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	return r.markTerminal(ctx, span, id, map[string]interface{}{
		"status":        enum.DeliveryStatusFailed,
		"error_message": errorMessage,
	})
}

// markTerminal applies a terminal transition to a record still in pending
// state. The status guard in the WHERE clause is what makes terminal states
// immutable under concurrent writers.
func (r *deliveryRecordRepository) markTerminal(ctx context.Context, span opentracing.Span, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.DeliveryRecord{}).
		Where("id = ? AND status = ?", id, enum.DeliveryStatusPending).
		Updates(updates)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordTerminal
	}
	return nil
}

func (r *deliveryRecordRepository) CountByStatus(ctx context.Context, tenant string, since *time.Time) (map[enum.DeliveryStatus]int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "deliveryRecordRepository.CountByStatus")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, tenant)

	query := r.db.WithContext(ctx).
		Model(&models.DeliveryRecord{}).
		Where("tenant = ?", tenant)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}

	var rows []struct {
		Status enum.DeliveryStatus
		Count  int64
	}
	err := query.
		Select("status, count(*) as count").
		Group("status").
		Find(&rows).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	counts := make(map[enum.DeliveryStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *deliveryRecordRepository) Tenants(ctx context.Context) ([]string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "deliveryRecordRepository.Tenants")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var tenants []string
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryRecord{}).
		Distinct("tenant").
		Pluck("tenant", &tenants).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return tenants, nil
}
