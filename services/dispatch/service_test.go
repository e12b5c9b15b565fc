package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rg345/smtp-ui/interfaces"
	"github.com/rg345/smtp-ui/internal/enum"
	smtperrors "github.com/rg345/smtp-ui/internal/errors"
	"github.com/rg345/smtp-ui/internal/logger"
	"github.com/rg345/smtp-ui/internal/models"
	"github.com/rg345/smtp-ui/internal/repository"
	"github.com/rg345/smtp-ui/internal/utils"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func tenantContext(tenant string) context.Context {
	return utils.WithCustomContext(context.Background(), &utils.CustomContext{
		AppSource: "test",
		Tenant:    tenant,
	})
}

type fakeProfileRepo struct {
	profiles map[string]*models.SmtpProfile
}

func (r *fakeProfileRepo) Create(ctx context.Context, profile *models.SmtpProfile) (*models.SmtpProfile, error) {
	return profile, nil
}

func (r *fakeProfileRepo) List(ctx context.Context, tenant string) ([]*models.SmtpProfileView, error) {
	return nil, nil
}

func (r *fakeProfileRepo) GetByID(ctx context.Context, tenant, id string) (*models.SmtpProfileView, error) {
	return nil, repository.ErrProfileNotFound
}

func (r *fakeProfileRepo) GetActive(ctx context.Context, tenant, id string) (*models.SmtpProfile, error) {
	profile, ok := r.profiles[id]
	if !ok || profile.Tenant != tenant || !profile.IsActive {
		return nil, repository.ErrProfileNotFound
	}
	return profile, nil
}

func (r *fakeProfileRepo) Update(ctx context.Context, tenant, id string, update *models.SmtpProfileUpdate) (*models.SmtpProfileView, error) {
	return nil, repository.ErrProfileNotFound
}

func (r *fakeProfileRepo) Delete(ctx context.Context, tenant, id string) error {
	return repository.ErrProfileNotFound
}

type fakeRecordRepo struct {
	created []*models.DeliveryRecord

	createErr     error
	markSentErr   error
	markFailedErr error

	sentID        string
	sentMessageID string
	failedID      string
	failedReason  string
}

func (r *fakeRecordRepo) Create(ctx context.Context, record *models.DeliveryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.createErr != nil {
		return r.createErr
	}
	record.ID = "dlv_test"
	record.Status = enum.DeliveryStatusPending
	record.CreatedAt = utils.Now()
	r.created = append(r.created, record)
	return nil
}

func (r *fakeRecordRepo) GetByID(ctx context.Context, tenant, id string) (*models.DeliveryRecord, error) {
	return nil, repository.ErrRecordNotFound
}

func (r *fakeRecordRepo) List(ctx context.Context, tenant string, filter *models.DeliveryRecordFilter) ([]*models.DeliveryRecord, int64, error) {
	return nil, 0, nil
}

// MarkSent and MarkFailed honor ctx the way the gorm repository does, so
// cancellation behavior is observable through the fake.
func (r *fakeRecordRepo) MarkSent(ctx context.Context, id, messageID string, sentAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.markSentErr != nil {
		return r.markSentErr
	}
	r.sentID = id
	r.sentMessageID = messageID
	return nil
}

func (r *fakeRecordRepo) MarkFailed(ctx context.Context, id, errorMessage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.markFailedErr != nil {
		return r.markFailedErr
	}
	r.failedID = id
	r.failedReason = errorMessage
	return nil
}

func (r *fakeRecordRepo) CountByStatus(ctx context.Context, tenant string, since *time.Time) (map[enum.DeliveryStatus]int64, error) {
	return map[enum.DeliveryStatus]int64{}, nil
}

func (r *fakeRecordRepo) Tenants(ctx context.Context) ([]string, error) {
	return nil, nil
}

type fakeClient struct {
	sendFn     func(ctx context.Context, msg *models.OutboundMessage) (string, error)
	sendCalled bool
	lastMsg    *models.OutboundMessage
}

func (c *fakeClient) Verify(ctx context.Context) error {
	return nil
}

func (c *fakeClient) Send(ctx context.Context, msg *models.OutboundMessage) (string, error) {
	c.sendCalled = true
	c.lastMsg = msg
	return c.sendFn(ctx, msg)
}

type fakeClientFactory struct {
	client *fakeClient
}

func (f *fakeClientFactory) ClientFor(profile *models.SmtpProfile) interfaces.SMTPClient {
	return f.client
}

func activeProfile() *models.SmtpProfile {
	return &models.SmtpProfile{
		ID:        "smtp_test",
		Tenant:    "acme",
		Name:      "primary",
		Host:      "smtp.example.com",
		Port:      587,
		Username:  "mailer",
		Password:  "secret",
		FromEmail: "noreply@example.com",
		FromName:  "Acme Mailer",
		IsActive:  true,
	}
}

func newTestService(profiles *fakeProfileRepo, records *fakeRecordRepo, client *fakeClient) Service {
	return NewDispatchService(getLogger(), profiles, records, &fakeClientFactory{client: client})
}

func TestDispatch_Success(t *testing.T) {
	// Arrange
	profiles := &fakeProfileRepo{profiles: map[string]*models.SmtpProfile{"smtp_test": activeProfile()}}
	records := &fakeRecordRepo{}
	client := &fakeClient{sendFn: func(ctx context.Context, msg *models.OutboundMessage) (string, error) {
		return "<mid-1@example.com>", nil
	}}
	service := newTestService(profiles, records, client)

	// Act
	result, err := service.Dispatch(tenantContext("acme"), &DispatchRequest{
		ProfileID:   "smtp_test",
		ToAddresses: []string{"alice@example.com"},
		Subject:     "hello",
		Body:        "<p>hi</p>",
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "<mid-1@example.com>", result.MessageID)
	assert.Equal(t, enum.DeliveryStatusSent, result.Record.Status)
	assert.Equal(t, "<mid-1@example.com>", result.Record.MessageID)
	assert.NotNil(t, result.Record.SentAt)
	assert.Equal(t, "dlv_test", records.sentID)
	assert.Equal(t, "<mid-1@example.com>", records.sentMessageID)
}

func TestDispatch_TransportFailure(t *testing.T) {
	// Arrange
	profiles := &fakeProfileRepo{profiles: map[string]*models.SmtpProfile{"smtp_test": activeProfile()}}
	records := &fakeRecordRepo{}
	client := &fakeClient{sendFn: func(ctx context.Context, msg *models.OutboundMessage) (string, error) {
		return "", errors.Wrap(smtperrors.ErrDeliveryRejected, "auth rejected")
	}}
	service := newTestService(profiles, records, client)

	// Act
	result, err := service.Dispatch(tenantContext("acme"), &DispatchRequest{
		ProfileID:   "smtp_test",
		ToAddresses: []string{"alice@example.com"},
		Subject:     "hello",
		Body:        "<p>hi</p>",
	})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, smtperrors.ErrDeliveryRejected))
	require.NotNil(t, result)
	require.NotNil(t, result.Record)
	assert.Equal(t, enum.DeliveryStatusFailed, result.Record.Status)
	assert.Contains(t, result.Record.ErrorMessage, "auth rejected")
	assert.Equal(t, "dlv_test", records.failedID)
	assert.Contains(t, records.failedReason, "auth rejected")
}

func TestDispatch_ProfileNotFound(t *testing.T) {
	// Arrange
	profiles := &fakeProfileRepo{profiles: map[string]*models.SmtpProfile{}}
	records := &fakeRecordRepo{}
	client := &fakeClient{sendFn: func(ctx context.Context, msg *models.OutboundMessage) (string, error) {
		return "never", nil
	}}
	service := newTestService(profiles, records, client)

	// Act
	result, err := service.Dispatch(tenantContext("acme"), &DispatchRequest{
		ProfileID:   "smtp_missing",
		ToAddresses: []string{"alice@example.com"},
		Subject:     "hello",
		Body:        "<p>hi</p>",
	})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrProfileNotFound))
	assert.Nil(t, result)
	assert.Empty(t, records.created)
	assert.False(t, client.sendCalled)
}

func TestDispatch_InactiveProfileLooksLikeMissing(t *testing.T) {
	// Arrange
	profile := activeProfile()
	profile.IsActive = false
	profiles := &fakeProfileRepo{profiles: map[string]*models.SmtpProfile{"smtp_test": profile}}
	records := &fakeRecordRepo{}
	client := &fakeClient{sendFn: func(ctx context.Context, msg *models.OutboundMessage) (string, error) {
		return "never", nil
	}}
	service := newTestService(profiles, records, client)

	// Act
	_, err := service.Dispatch(tenantContext("acme"), &DispatchRequest{
		ProfileID:   "smtp_test",
		ToAddresses: []string{"alice@example.com"},
		Subject:     "hello",
		Body:        "<p>hi</p>",
	})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrProfileNotFound))
	assert.Empty(t, records.created)
}

func TestDispatch_CrossTenantProfileDenied(t *testing.T) {
	// Arrange
	profiles := &fakeProfileRepo{profiles: map[string]*models.SmtpProfile{"smtp_test": activeProfile()}}
	records := &fakeRecordRepo{}
	client := &fakeClient{sendFn: func(ctx context.Context, msg *models.OutboundMessage) (string, error) {
		return "never", nil
	}}
	service := newTestService(profiles, records, client)

	// Act
	_, err := service.Dispatch(tenantContext("globex"), &DispatchRequest{
		ProfileID:   "smtp_test",
		ToAddresses: []string{"alice@example.com"},
		Subject:     "hello",
		Body:        "<p>hi</p>",
	})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrProfileNotFound))
	assert.Empty(t, records.created)
	assert.False(t, client.sendCalled)
}

func TestDispatch_MissingTenant(t *testing.T) {
	// Arrange
	profiles := &fakeProfileRepo{profiles: map[string]*models.SmtpProfile{"smtp_test": activeProfile()}}
	records := &fakeRecordRepo{}
	client := &fakeClient{sendFn: func(ctx context.Context, msg *models.OutboundMessage) (string, error) {
		return "never", nil
	}}
	service := newTestService(profiles, records, client)

	// Act
	result, err := service.Dispatch(context.Background(), &DispatchRequest{
		ProfileID:   "smtp_test",
		ToAddresses: []string{"alice@example.com"},
	})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, smtperrors.ErrTenantMissing))
	assert.Nil(t, result)
}

func TestDispatch_NoRecipients(t *testing.T) {
	// Arrange
	profiles := &fakeProfileRepo{profiles: map[string]*models.SmtpProfile{"smtp_test": activeProfile()}}
	records := &fakeRecordRepo{}
	client := &fakeClient{sendFn: func(ctx context.Context, msg *models.OutboundMessage) (string, error) {
		return "never", nil
	}}
	service := newTestService(profiles, records, client)

	// Act
	_, err := service.Dispatch(tenantContext("acme"), &DispatchRequest{
		ProfileID:   "smtp_test",
		ToAddresses: []string{"  ", ""},
		Subject:     "hello",
		Body:        "<p>hi</p>",
	})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, smtperrors.ErrValidation))
	assert.Empty(t, records.created)
	assert.False(t, client.sendCalled)
}

func TestDispatch_InvalidRecipientAddress(t *testing.T) {
	// Arrange
	profiles := &fakeProfileRepo{profiles: map[string]*models.SmtpProfile{"smtp_test": activeProfile()}}
	records := &fakeRecordRepo{}
	client := &fakeClient{sendFn: func(ctx context.Context, msg *models.OutboundMessage) (string, error) {
		return "never", nil
	}}
	service := newTestService(profiles, records, client)

	// Act
	_, err := service.Dispatch(tenantContext("acme"), &DispatchRequest{
		ProfileID:   "smtp_test",
		ToAddresses: []string{"not-an-address"},
		Subject:     "hello",
		Body:        "<p>hi</p>",
	})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, smtperrors.ErrValidation))
	assert.Empty(t, records.created)
}

func TestDispatch_PendingWriteFailureSkipsSend(t *testing.T) {
	// Arrange
	profiles := &fakeProfileRepo{profiles: map[string]*models.SmtpProfile{"smtp_test": activeProfile()}}
	records := &fakeRecordRepo{createErr: errors.New("disk full")}
	client := &fakeClient{sendFn: func(ctx context.Context, msg *models.OutboundMessage) (string, error) {
		return "never", nil
	}}
	service := newTestService(profiles, records, client)

	// Act
	result, err := service.Dispatch(tenantContext("acme"), &DispatchRequest{
		ProfileID:   "smtp_test",
		ToAddresses: []string{"alice@example.com"},
		Subject:     "hello",
		Body:        "<p>hi</p>",
	})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Nil(t, result)
	assert.False(t, client.sendCalled)
}

func TestDispatch_OutcomeWriteFailureAfterSend(t *testing.T) {
	// Arrange
	profiles := &fakeProfileRepo{profiles: map[string]*models.SmtpProfile{"smtp_test": activeProfile()}}
	records := &fakeRecordRepo{markSentErr: errors.New("connection reset")}
	client := &fakeClient{sendFn: func(ctx context.Context, msg *models.OutboundMessage) (string, error) {
		return "<mid-2@example.com>", nil
	}}
	service := newTestService(profiles, records, client)

	// Act
	result, err := service.Dispatch(tenantContext("acme"), &DispatchRequest{
		ProfileID:   "smtp_test",
		ToAddresses: []string{"alice@example.com"},
		Subject:     "hello",
		Body:        "<p>hi</p>",
	})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, smtperrors.ErrOutcomeWriteFailed))
	require.NotNil(t, result)
	assert.Equal(t, "<mid-2@example.com>", result.MessageID)
	require.NotNil(t, result.Record)
	assert.Equal(t, "dlv_test", result.Record.ID)
}

func TestDispatch_ClientPanicBecomesFailedRecord(t *testing.T) {
	// Arrange
	profiles := &fakeProfileRepo{profiles: map[string]*models.SmtpProfile{"smtp_test": activeProfile()}}
	records := &fakeRecordRepo{}
	client := &fakeClient{sendFn: func(ctx context.Context, msg *models.OutboundMessage) (string, error) {
		panic("nil connection")
	}}
	service := newTestService(profiles, records, client)

	// Act
	result, err := service.Dispatch(tenantContext("acme"), &DispatchRequest{
		ProfileID:   "smtp_test",
		ToAddresses: []string{"alice@example.com"},
		Subject:     "hello",
		Body:        "<p>hi</p>",
	})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, smtperrors.ErrDeliveryRejected))
	require.NotNil(t, result)
	assert.Equal(t, enum.DeliveryStatusFailed, result.Record.Status)
	assert.Contains(t, result.Record.ErrorMessage, "transport panic")
	assert.Contains(t, records.failedReason, "nil connection")
}

func TestDispatch_CanceledContextStillRecordsFailure(t *testing.T) {
	// Arrange
	profiles := &fakeProfileRepo{profiles: map[string]*models.SmtpProfile{"smtp_test": activeProfile()}}
	records := &fakeRecordRepo{}
	ctx, cancel := context.WithCancel(tenantContext("acme"))
	defer cancel()
	// The transport blocks until the caller's context dies, the way a slow
	// server plus a caller timeout plays out.
	client := &fakeClient{sendFn: func(ctx context.Context, msg *models.OutboundMessage) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}}
	service := newTestService(profiles, records, client)

	// Act
	result, err := service.Dispatch(ctx, &DispatchRequest{
		ProfileID:   "smtp_test",
		ToAddresses: []string{"alice@example.com"},
		Subject:     "hello",
		Body:        "<p>hi</p>",
	})

	// Assert
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, enum.DeliveryStatusFailed, result.Record.Status)
	// The terminal write landed despite the dead request context.
	assert.Equal(t, "dlv_test", records.failedID)
	assert.Contains(t, records.failedReason, context.Canceled.Error())
}

func TestDispatch_CanceledContextStillRecordsSuccess(t *testing.T) {
	// Arrange
	profiles := &fakeProfileRepo{profiles: map[string]*models.SmtpProfile{"smtp_test": activeProfile()}}
	records := &fakeRecordRepo{}
	ctx, cancel := context.WithCancel(tenantContext("acme"))
	defer cancel()
	// The server accepted the message just as the caller gave up.
	client := &fakeClient{sendFn: func(ctx context.Context, msg *models.OutboundMessage) (string, error) {
		cancel()
		return "<mid-4@example.com>", nil
	}}
	service := newTestService(profiles, records, client)

	// Act
	result, err := service.Dispatch(ctx, &DispatchRequest{
		ProfileID:   "smtp_test",
		ToAddresses: []string{"alice@example.com"},
		Subject:     "hello",
		Body:        "<p>hi</p>",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, enum.DeliveryStatusSent, result.Record.Status)
	assert.Equal(t, "dlv_test", records.sentID)
	assert.Equal(t, "<mid-4@example.com>", records.sentMessageID)
}

func TestDispatch_RecipientsPassedToTransport(t *testing.T) {
	// Arrange
	profiles := &fakeProfileRepo{profiles: map[string]*models.SmtpProfile{"smtp_test": activeProfile()}}
	records := &fakeRecordRepo{}
	client := &fakeClient{sendFn: func(ctx context.Context, msg *models.OutboundMessage) (string, error) {
		return "<mid-3@example.com>", nil
	}}
	service := newTestService(profiles, records, client)

	// Act
	_, err := service.Dispatch(tenantContext("acme"), &DispatchRequest{
		ProfileID:    "smtp_test",
		ToAddresses:  []string{" alice@example.com "},
		CcAddresses:  []string{"bob@example.com"},
		BccAddresses: []string{"carol@example.com"},
		Subject:      "hello",
		Body:         "<p>hi</p>",
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, client.lastMsg)
	assert.Equal(t, []string{"alice@example.com"}, client.lastMsg.ToAddresses)
	assert.Equal(t, []string{"bob@example.com"}, client.lastMsg.CcAddresses)
	assert.Equal(t, []string{"carol@example.com"}, client.lastMsg.BccAddresses)
	assert.Equal(t, "noreply@example.com", client.lastMsg.FromEmail)
	assert.Equal(t, "Acme Mailer", client.lastMsg.FromName)
}
