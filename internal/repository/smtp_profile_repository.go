package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/rg345/smtp-ui/interfaces"
	"github.com/rg345/smtp-ui/internal/models"
	"github.com/rg345/smtp-ui/internal/tracing"
)

type smtpProfileRepository struct {
	db *gorm.DB
}

func NewSmtpProfileRepository(db *gorm.DB) interfaces.SmtpProfileRepository {
	return &smtpProfileRepository{db: db}
}

func (r *smtpProfileRepository) Create(ctx context.Context, profile *models.SmtpProfile) (*models.SmtpProfile, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "smtpProfileRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, profile.Tenant)

	if profile.Tenant == "" || profile.Name == "" {
		return nil, ErrInvalidInput
	}

	// Check the (tenant, name) pair before creating; the unique index backs
	// this up against races.
	var existing models.SmtpProfile
	err := r.db.WithContext(ctx).
		Where("tenant = ? AND name = ?", profile.Tenant, profile.Name).
		First(&existing).Error
	if err == nil {
		span.SetTag("duplicate", true)
		return nil, ErrProfileNameExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return profile, nil
}

func (r *smtpProfileRepository) List(ctx context.Context, tenant string) ([]*models.SmtpProfileView, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "smtpProfileRepository.List")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, tenant)

	var profiles []*models.SmtpProfile
	err := r.db.WithContext(ctx).
		Where("tenant = ?", tenant).
		Order("created_at DESC").
		Find(&profiles).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	views := make([]*models.SmtpProfileView, 0, len(profiles))
	for _, profile := range profiles {
		views = append(views, profile.View())
	}
	return views, nil
}

func (r *smtpProfileRepository) GetByID(ctx context.Context, tenant, id string) (*models.SmtpProfileView, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "smtpProfileRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, tenant)
	tracing.TagEntity(span, id)

	profile, err := r.getOwned(ctx, tenant, id)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return profile.View(), nil
}

func (r *smtpProfileRepository) GetActive(ctx context.Context, tenant, id string) (*models.SmtpProfile, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "smtpProfileRepository.GetActive")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, tenant)
	tracing.TagEntity(span, id)

	var profile models.SmtpProfile
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant = ? AND is_active = ?", id, tenant, true).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &profile, nil
}

func (r *smtpProfileRepository) Update(ctx context.Context, tenant, id string, update *models.SmtpProfileUpdate) (*models.SmtpProfileView, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "smtpProfileRepository.Update")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, tenant)
	tracing.TagEntity(span, id)

	profile, err := r.getOwned(ctx, tenant, id)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	update.Apply(profile)

	if err := r.db.WithContext(ctx).Save(profile).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return profile.View(), nil
}

func (r *smtpProfileRepository) Delete(ctx context.Context, tenant, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "smtpProfileRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, tenant)
	tracing.TagEntity(span, id)

	result := r.db.WithContext(ctx).
		Where("id = ? AND tenant = ?", id, tenant).
		Delete(&models.SmtpProfile{})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *smtpProfileRepository) getOwned(ctx context.Context, tenant, id string) (*models.SmtpProfile, error) {
	var profile models.SmtpProfile
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant = ?", id, tenant).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}
