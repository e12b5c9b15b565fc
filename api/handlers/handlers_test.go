package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/rg345/smtp-ui/api/middleware"
	"github.com/rg345/smtp-ui/interfaces"
	"github.com/rg345/smtp-ui/internal/enum"
	"github.com/rg345/smtp-ui/internal/models"
	"github.com/rg345/smtp-ui/internal/repository"
	"github.com/rg345/smtp-ui/internal/utils"
)

func setupRouter(tenant string, register func(g *gin.RouterGroup)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/v1")
	g.Use(func(c *gin.Context) {
		c.Set("TenantName", tenant)
		c.Next()
	})
	g.Use(middleware.CustomContextMiddleware("test"))
	register(g)
	return r
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

// memProfileRepo is an in-memory SmtpProfileRepository with the same
// duplicate-name and ownership behavior as the postgres implementation.
type memProfileRepo struct {
	profiles map[string]*models.SmtpProfile
	seq      int
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: map[string]*models.SmtpProfile{}}
}

func (r *memProfileRepo) Create(ctx context.Context, profile *models.SmtpProfile) (*models.SmtpProfile, error) {
	for _, existing := range r.profiles {
		if existing.Tenant == profile.Tenant && existing.Name == profile.Name {
			return nil, repository.ErrProfileNameExists
		}
	}
	r.seq++
	profile.ID = fmt.Sprintf("smtp_%d", r.seq)
	profile.CreatedAt = utils.Now()
	profile.UpdatedAt = profile.CreatedAt
	r.profiles[profile.ID] = profile
	return profile, nil
}

func (r *memProfileRepo) List(ctx context.Context, tenant string) ([]*models.SmtpProfileView, error) {
	views := make([]*models.SmtpProfileView, 0)
	for _, profile := range r.profiles {
		if profile.Tenant == tenant {
			views = append(views, profile.View())
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID > views[j].ID })
	return views, nil
}

func (r *memProfileRepo) GetByID(ctx context.Context, tenant, id string) (*models.SmtpProfileView, error) {
	profile, ok := r.profiles[id]
	if !ok || profile.Tenant != tenant {
		return nil, repository.ErrProfileNotFound
	}
	return profile.View(), nil
}

func (r *memProfileRepo) GetActive(ctx context.Context, tenant, id string) (*models.SmtpProfile, error) {
	profile, ok := r.profiles[id]
	if !ok || profile.Tenant != tenant || !profile.IsActive {
		return nil, repository.ErrProfileNotFound
	}
	return profile, nil
}

func (r *memProfileRepo) Update(ctx context.Context, tenant, id string, update *models.SmtpProfileUpdate) (*models.SmtpProfileView, error) {
	profile, ok := r.profiles[id]
	if !ok || profile.Tenant != tenant {
		return nil, repository.ErrProfileNotFound
	}
	update.Apply(profile)
	profile.UpdatedAt = utils.Now()
	return profile.View(), nil
}

func (r *memProfileRepo) Delete(ctx context.Context, tenant, id string) error {
	profile, ok := r.profiles[id]
	if !ok || profile.Tenant != tenant {
		return repository.ErrProfileNotFound
	}
	delete(r.profiles, id)
	return nil
}

// memRecordRepo holds delivery records in memory and reproduces the list
// filter and terminal-once semantics of the postgres implementation.
type memRecordRepo struct {
	records []*models.DeliveryRecord
	seq     int
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{}
}

func (r *memRecordRepo) Create(ctx context.Context, record *models.DeliveryRecord) error {
	r.seq++
	record.ID = fmt.Sprintf("dlv_%d", r.seq)
	if record.Status == "" {
		record.Status = enum.DeliveryStatusPending
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = utils.Now()
	}
	r.records = append(r.records, record)
	return nil
}

func (r *memRecordRepo) GetByID(ctx context.Context, tenant, id string) (*models.DeliveryRecord, error) {
	for _, record := range r.records {
		if record.ID == id && record.Tenant == tenant {
			return record, nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

func (r *memRecordRepo) List(ctx context.Context, tenant string, filter *models.DeliveryRecordFilter) ([]*models.DeliveryRecord, int64, error) {
	matched := make([]*models.DeliveryRecord, 0)
	for _, record := range r.records {
		if record.Tenant != tenant {
			continue
		}
		if filter.Status != nil && record.Status != *filter.Status {
			continue
		}
		if filter.CreatedFrom != nil && record.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && record.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		matched = append(matched, record)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	offset := (filter.Page - 1) * filter.Limit
	if offset >= len(matched) {
		return []*models.DeliveryRecord{}, total, nil
	}
	end := offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *memRecordRepo) MarkSent(ctx context.Context, id, messageID string, sentAt time.Time) error {
	for _, record := range r.records {
		if record.ID == id && record.Status == enum.DeliveryStatusPending {
			record.Status = enum.DeliveryStatusSent
			record.MessageID = messageID
			record.SentAt = &sentAt
			return nil
		}
	}
	return repository.ErrRecordTerminal
}

func (r *memRecordRepo) MarkFailed(ctx context.Context, id, errorMessage string) error {
	for _, record := range r.records {
		if record.ID == id && record.Status == enum.DeliveryStatusPending {
			record.Status = enum.DeliveryStatusFailed
			record.ErrorMessage = errorMessage
			return nil
		}
	}
	return repository.ErrRecordTerminal
}

func (r *memRecordRepo) CountByStatus(ctx context.Context, tenant string, since *time.Time) (map[enum.DeliveryStatus]int64, error) {
	counts := map[enum.DeliveryStatus]int64{}
	for _, record := range r.records {
		if record.Tenant != tenant {
			continue
		}
		if since != nil && record.CreatedAt.Before(*since) {
			continue
		}
		counts[record.Status]++
	}
	return counts, nil
}

func (r *memRecordRepo) Tenants(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	tenants := make([]string, 0)
	for _, record := range r.records {
		if _, ok := seen[record.Tenant]; !ok {
			seen[record.Tenant] = struct{}{}
			tenants = append(tenants, record.Tenant)
		}
	}
	return tenants, nil
}

type stubClient struct {
	verifyErr error
	sendErr   error
	messageID string
	sentMsg   *models.OutboundMessage
}

func (c *stubClient) Verify(ctx context.Context) error {
	return c.verifyErr
}

func (c *stubClient) Send(ctx context.Context, msg *models.OutboundMessage) (string, error) {
	c.sentMsg = msg
	if c.sendErr != nil {
		return "", c.sendErr
	}
	return c.messageID, nil
}

type stubClientFactory struct {
	client *stubClient
}

func (f *stubClientFactory) ClientFor(profile *models.SmtpProfile) interfaces.SMTPClient {
	return f.client
}

func testRepositories(profiles *memProfileRepo, records *memRecordRepo) *repository.Repositories {
	return &repository.Repositories{
		SmtpProfileRepository:    profiles,
		DeliveryRecordRepository: records,
	}
}

func requireStatus(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	require.Equal(t, expected, recorder.Code, "unexpected status, body: %s", recorder.Body.String())
}
