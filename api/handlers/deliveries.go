package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/rg345/smtp-ui/internal/enum"
	"github.com/rg345/smtp-ui/internal/models"
	"github.com/rg345/smtp-ui/internal/repository"
	"github.com/rg345/smtp-ui/internal/tracing"
	"github.com/rg345/smtp-ui/internal/utils"
	"github.com/rg345/smtp-ui/services/stats"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type DeliveriesHandler struct {
	repositories *repository.Repositories
	statsService stats.Service
}

func NewDeliveriesHandler(repos *repository.Repositories, statsService stats.Service) *DeliveriesHandler {
	return &DeliveriesHandler{
		repositories: repos,
		statsService: statsService,
	}
}

// List handles GET /v1/deliveries. Results are paginated and never include
// message bodies.
func (h *DeliveriesHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "DeliveriesHandler.List", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tenant := utils.GetTenantFromContext(ctx)
		tracing.TagTenant(span, tenant)

		filter, err := parseDeliveryFilter(c)
		if err != nil {
			respondWithError(c, span, http.StatusBadRequest, "Invalid query parameters", err)
			return
		}

		records, total, err := h.repositories.DeliveryRecordRepository.List(ctx, tenant, filter)
		if err != nil {
			respondWithError(c, span, http.StatusInternalServerError, "Failed to fetch deliveries", err)
			return
		}

		pages := int64(0)
		if total > 0 {
			pages = (total + int64(filter.Limit) - 1) / int64(filter.Limit)
		}

		c.JSON(http.StatusOK, gin.H{
			"deliveries": records,
			"pagination": gin.H{
				"page":  filter.Page,
				"limit": filter.Limit,
				"total": total,
				"pages": pages,
			},
		})
	}
}

// Stats handles GET /v1/deliveries/stats with all-time totals and a trailing
// 30 day window.
func (h *DeliveriesHandler) Stats() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "DeliveriesHandler.Stats", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tracing.TagTenant(span, utils.GetTenantFromContext(ctx))

		totals, err := h.statsService.Totals(ctx)
		if err != nil {
			respondWithError(c, span, http.StatusInternalServerError, "Failed to compute delivery stats", err)
			return
		}

		last30Days, err := h.statsService.Last30Days(ctx)
		if err != nil {
			respondWithError(c, span, http.StatusInternalServerError, "Failed to compute delivery stats", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"totals":     totals,
			"last30Days": last30Days,
		})
	}
}

func parseDeliveryFilter(c *gin.Context) (*models.DeliveryRecordFilter, error) {
	filter := &models.DeliveryRecordFilter{
		Page:  1,
		Limit: defaultPageSize,
	}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return nil, errors.Errorf("invalid page %q", raw)
		}
		filter.Page = page
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return nil, errors.Errorf("invalid limit %q", raw)
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
		filter.Limit = limit
	}

	if raw := c.Query("status"); raw != "" {
		status, ok := enum.ParseDeliveryStatus(raw)
		if !ok {
			return nil, errors.Errorf("invalid status %q", raw)
		}
		filter.Status = &status
	}

	if raw := c.Query("startDate"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, errors.Wrap(err, "invalid startDate")
		}
		filter.CreatedFrom = &from
	}

	if raw := c.Query("endDate"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, errors.Wrap(err, "invalid endDate")
		}
		filter.CreatedTo = &to
	}

	return filter, nil
}
