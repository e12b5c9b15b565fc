package dispatch

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/rg345/smtp-ui/interfaces"
	"github.com/rg345/smtp-ui/internal/enum"
	smtperrors "github.com/rg345/smtp-ui/internal/errors"
	"github.com/rg345/smtp-ui/internal/logger"
	"github.com/rg345/smtp-ui/internal/models"
	"github.com/rg345/smtp-ui/internal/tracing"
	"github.com/rg345/smtp-ui/internal/utils"
)

type DispatchRequest struct {
	ProfileID    string
	ToAddresses  []string
	CcAddresses  []string
	BccAddresses []string
	Subject      string
	Body         string
	Attachments  []models.Attachment
}

// DispatchResult always carries the delivery record once one exists, so a
// failed dispatch stays traceable by record id.
type DispatchResult struct {
	MessageID string
	Record    *models.DeliveryRecord
}

type Service interface {
	Dispatch(ctx context.Context, request *DispatchRequest) (*DispatchResult, error)
}

type dispatchService struct {
	log      logger.Logger
	profiles interfaces.SmtpProfileRepository
	records  interfaces.DeliveryRecordRepository
	clients  interfaces.SMTPClientFactory
}

func NewDispatchService(log logger.Logger, profiles interfaces.SmtpProfileRepository, records interfaces.DeliveryRecordRepository, clients interfaces.SMTPClientFactory) Service {
	return &dispatchService{
		log:      log,
		profiles: profiles,
		records:  records,
		clients:  clients,
	}
}

// Dispatch runs one send attempt through the tenant's profile. The sequence
// is strict: resolve profile, persist a pending record, attempt delivery,
// persist the terminal outcome. No record is written for a request that never
// reaches an attempt, and no attempt happens without its pending record.
func (s *dispatchService) Dispatch(ctx context.Context, request *DispatchRequest) (*DispatchResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "dispatchService.Dispatch")
	defer span.Finish()
	tracing.TagComponentService(span)

	tenant := utils.GetTenantFromContext(ctx)
	if tenant == "" {
		return nil, smtperrors.ErrTenantMissing
	}
	tracing.TagTenant(span, tenant)

	profile, err := s.profiles.GetActive(ctx, tenant, request.ProfileID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	to, cc, bcc, err := s.validateRecipients(ctx, request)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	record := &models.DeliveryRecord{
		Tenant:       tenant,
		ProfileID:    profile.ID,
		ToAddresses:  to,
		CcAddresses:  cc,
		BccAddresses: bcc,
		Subject:      request.Subject,
		Body:         request.Body,
		Attachments:  request.Attachments,
	}

	// The pending record is the durability guarantee: it must be on disk
	// before any network interaction.
	if err := s.records.Create(ctx, record); err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to persist pending delivery record")
	}
	tracing.TagEntity(span, record.ID)

	msg := &models.OutboundMessage{
		FromEmail:    profile.FromEmail,
		FromName:     profile.FromName,
		ToAddresses:  to,
		CcAddresses:  cc,
		BccAddresses: bcc,
		Subject:      request.Subject,
		BodyHTML:     request.Body,
		Attachments:  request.Attachments,
	}

	messageID, sendErr := s.attemptSend(ctx, s.clients.ClientFor(profile), msg)
	if sendErr != nil {
		return s.recordFailure(ctx, record, sendErr)
	}
	return s.recordSuccess(ctx, record, messageID)
}

func (s *dispatchService) validateRecipients(ctx context.Context, request *DispatchRequest) (to, cc, bcc []string, err error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "dispatchService.validateRecipients")
	defer span.Finish()
	tracing.TagComponentService(span)

	to, err = utils.CleanEmailAddresses("to", request.ToAddresses)
	if err != nil {
		return nil, nil, nil, errors.Wrap(smtperrors.ErrValidation, err.Error())
	}
	if len(to) == 0 {
		return nil, nil, nil, errors.Wrap(smtperrors.ErrValidation, "at least one recipient is required")
	}
	cc, err = utils.CleanEmailAddresses("cc", request.CcAddresses)
	if err != nil {
		return nil, nil, nil, errors.Wrap(smtperrors.ErrValidation, err.Error())
	}
	bcc, err = utils.CleanEmailAddresses("bcc", request.BccAddresses)
	if err != nil {
		return nil, nil, nil, errors.Wrap(smtperrors.ErrValidation, err.Error())
	}
	return to, cc, bcc, nil
}

// attemptSend isolates the transport call. A panicking client must not skip
// the terminal record write, so panics resolve to a rejection error.
func (s *dispatchService) attemptSend(ctx context.Context, client interfaces.SMTPClient, msg *models.OutboundMessage) (messageID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(smtperrors.ErrDeliveryRejected, fmt.Sprintf("transport panic: %v", r))
		}
	}()
	return client.Send(ctx, msg)
}

func (s *dispatchService) recordSuccess(ctx context.Context, record *models.DeliveryRecord, messageID string) (*DispatchResult, error) {
	// The terminal write proceeds even when the caller's context was
	// canceled during the attempt; a canceled request must not leave the
	// record pending.
	ctx = context.WithoutCancel(ctx)
	span, ctx := opentracing.StartSpanFromContext(ctx, "dispatchService.recordSuccess")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagEntity(span, record.ID)

	sentAt := utils.Now()
	if err := s.records.MarkSent(ctx, record.ID, messageID, sentAt); err != nil {
		tracing.TraceErr(span, err)
		// The message left the building; an unreliable record must be loud.
		s.log.Errorf("delivery record %s: message %s was sent but the outcome write failed: %v", record.ID, messageID, err)
		return &DispatchResult{MessageID: messageID, Record: record},
			errors.Wrapf(smtperrors.ErrOutcomeWriteFailed, "record %s: %v", record.ID, err)
	}

	record.Status = enum.DeliveryStatusSent
	record.MessageID = messageID
	record.SentAt = &sentAt

	s.log.Infof("delivery record %s sent with message id %s", record.ID, messageID)
	return &DispatchResult{MessageID: messageID, Record: record}, nil
}

func (s *dispatchService) recordFailure(ctx context.Context, record *models.DeliveryRecord, sendErr error) (*DispatchResult, error) {
	// Same cancellation detach as recordSuccess: a caller timeout firing
	// mid-attempt routes here and the record must still turn failed.
	ctx = context.WithoutCancel(ctx)
	span, ctx := opentracing.StartSpanFromContext(ctx, "dispatchService.recordFailure")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagEntity(span, record.ID)
	tracing.TraceErr(span, sendErr)

	reason := sendErr.Error()
	if err := s.records.MarkFailed(ctx, record.ID, reason); err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("delivery record %s: failed send could not be recorded: %v", record.ID, err)
	}

	record.Status = enum.DeliveryStatusFailed
	record.ErrorMessage = reason

	s.log.Warnf("delivery record %s failed: %s", record.ID, reason)
	return &DispatchResult{Record: record}, sendErr
}
