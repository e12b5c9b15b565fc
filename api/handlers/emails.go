package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	custom_err "github.com/rg345/smtp-ui/api/errors"
	smtperrors "github.com/rg345/smtp-ui/internal/errors"
	"github.com/rg345/smtp-ui/internal/models"
	"github.com/rg345/smtp-ui/internal/repository"
	"github.com/rg345/smtp-ui/internal/tracing"
	"github.com/rg345/smtp-ui/internal/utils"
	"github.com/rg345/smtp-ui/services/dispatch"
)

type EmailsHandler struct {
	repositories    *repository.Repositories
	dispatchService dispatch.Service
}

func NewEmailsHandler(repos *repository.Repositories, dispatchService dispatch.Service) *EmailsHandler {
	return &EmailsHandler{
		repositories:    repos,
		dispatchService: dispatchService,
	}
}

// SendEmailRequest represents the API request for sending an email
type SendEmailRequest struct {
	SmtpProfileID string              `json:"smtpProfileId"`
	To            []string            `json:"to"`
	Cc            []string            `json:"cc"`
	Bcc           []string            `json:"bcc"`
	Subject       string              `json:"subject"`
	Body          string              `json:"body"`
	Attachments   []models.Attachment `json:"attachments"`
}

func (r *SendEmailRequest) validate() *custom_err.MultiErrors {
	errs := custom_err.NewMultiErrors()

	if r.SmtpProfileID == "" {
		errs.Add("smtpProfileId", "please provide an SMTP profile id", errors.New("smtpProfileId is empty"))
	}
	if len(r.To) == 0 {
		errs.Add("to", "please provide at least one recipient address", errors.New("to is empty"))
	}
	if r.Subject == "" {
		errs.Add("subject", "please provide an email subject", errors.New("subject is empty"))
	}
	if r.Body == "" {
		errs.Add("body", "please provide an email body", errors.New("body is empty"))
	}

	return errs
}

// Send handles POST /v1/emails. A failed attempt still answers with the
// terminal delivery record so the caller can show what was attempted.
func (h *EmailsHandler) Send() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "EmailsHandler.Send", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tracing.TagTenant(span, utils.GetTenantFromContext(ctx))

		var request SendEmailRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			respondWithError(c, span, http.StatusBadRequest, "Invalid request format", err)
			return
		}

		if errs := request.validate(); errs.HasErrors() {
			tracing.TraceErr(span, errs)
			c.JSON(http.StatusBadRequest, errs)
			return
		}

		result, err := h.dispatchService.Dispatch(ctx, &dispatch.DispatchRequest{
			ProfileID:    request.SmtpProfileID,
			ToAddresses:  request.To,
			CcAddresses:  request.Cc,
			BccAddresses: request.Bcc,
			Subject:      request.Subject,
			Body:         request.Body,
			Attachments:  request.Attachments,
		})
		if err != nil {
			h.respondWithDispatchError(c, span, result, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":   "Email sent successfully",
			"messageId": result.MessageID,
			"record":    result.Record,
		})
	}
}

func (h *EmailsHandler) respondWithDispatchError(c *gin.Context, span opentracing.Span, result *dispatch.DispatchResult, err error) {
	tracing.TraceErr(span, err)

	switch {
	case errors.Is(err, repository.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "SMTP profile not found or inactive"})
	case errors.Is(err, smtperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email request", "details": err.Error()})
	case errors.Is(err, smtperrors.ErrOutcomeWriteFailed):
		// Message was sent but the record may still read pending.
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Email was sent but its delivery record could not be updated",
			"details": err.Error(),
			"record":  result.Record,
		})
	default:
		body := gin.H{"error": "Failed to send email", "details": err.Error()}
		if result != nil && result.Record != nil {
			body["record"] = result.Record
		}
		c.JSON(http.StatusBadRequest, body)
	}
}

// Get handles GET /v1/emails/:id. Returns a single delivery record, body included.
func (h *EmailsHandler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "EmailsHandler.Get", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tenant := utils.GetTenantFromContext(ctx)
		tracing.TagTenant(span, tenant)

		record, err := h.repositories.DeliveryRecordRepository.GetByID(ctx, tenant, c.Param("id"))
		if err != nil {
			if errors.Is(err, repository.ErrRecordNotFound) {
				respondWithError(c, span, http.StatusNotFound, "Email not found", err)
				return
			}
			respondWithError(c, span, http.StatusInternalServerError, "Failed to fetch email", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"email": record})
	}
}
