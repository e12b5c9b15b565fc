package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	custom_err "github.com/rg345/smtp-ui/api/errors"
	"github.com/rg345/smtp-ui/interfaces"
	"github.com/rg345/smtp-ui/internal/models"
	"github.com/rg345/smtp-ui/internal/repository"
	"github.com/rg345/smtp-ui/internal/tracing"
	"github.com/rg345/smtp-ui/internal/utils"
)

type SmtpProfilesHandler struct {
	repositories *repository.Repositories
	clients      interfaces.SMTPClientFactory
}

func NewSmtpProfilesHandler(repos *repository.Repositories, clients interfaces.SMTPClientFactory) *SmtpProfilesHandler {
	return &SmtpProfilesHandler{
		repositories: repos,
		clients:      clients,
	}
}

// CreateSmtpProfileRequest carries the writable profile fields.
type CreateSmtpProfileRequest struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Secure    bool   `json:"secure"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FromEmail string `json:"fromEmail"`
	FromName  string `json:"fromName"`
}

// TestSmtpProfileRequest tests either a saved profile (by id) or raw
// connection fields that have not been saved yet.
type TestSmtpProfileRequest struct {
	ProfileID string `json:"profileId"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Secure    bool   `json:"secure"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FromEmail string `json:"fromEmail"`
}

func (r *CreateSmtpProfileRequest) validate() *custom_err.MultiErrors {
	errs := custom_err.NewMultiErrors()

	if r.Name == "" {
		errs.Add("name", "please provide a profile name", errors.New("name is empty"))
	}
	if r.Host == "" {
		errs.Add("host", "please provide an SMTP host", errors.New("host is empty"))
	}
	if r.Port < 1 || r.Port > 65535 {
		errs.Add("port", "port must be between 1 and 65535", errors.Errorf("invalid port %d", r.Port))
	}
	if r.Username == "" {
		errs.Add("username", "please provide an SMTP username", errors.New("username is empty"))
	}
	if r.Password == "" {
		errs.Add("password", "please provide an SMTP password", errors.New("password is empty"))
	}
	if r.FromEmail == "" {
		errs.Add("fromEmail", "please provide a sender address", errors.New("fromEmail is empty"))
	} else if !utils.IsValidEmailSyntax(r.FromEmail) {
		errs.Add("fromEmail", "sender address is not a valid email", errors.Errorf("invalid email %s", r.FromEmail))
	}

	return errs
}

// Create handles POST /v1/smtp-profiles. The creator receives the full
// profile; every other read path gets the secret-free view.
func (h *SmtpProfilesHandler) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SmtpProfilesHandler.Create", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tenant := utils.GetTenantFromContext(ctx)
		tracing.TagTenant(span, tenant)

		var request CreateSmtpProfileRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			respondWithError(c, span, http.StatusBadRequest, "Invalid request format", err)
			return
		}

		if errs := request.validate(); errs.HasErrors() {
			tracing.TraceErr(span, errs)
			c.JSON(http.StatusBadRequest, errs)
			return
		}

		profile := &models.SmtpProfile{
			Tenant:    tenant,
			Name:      request.Name,
			Host:      request.Host,
			Port:      request.Port,
			Secure:    request.Secure,
			Username:  request.Username,
			Password:  request.Password,
			FromEmail: request.FromEmail,
			FromName:  request.FromName,
			IsActive:  true,
		}

		created, err := h.repositories.SmtpProfileRepository.Create(ctx, profile)
		if err != nil {
			if errors.Is(err, repository.ErrProfileNameExists) {
				respondWithError(c, span, http.StatusBadRequest, "SMTP profile with this name already exists", err)
				return
			}
			respondWithError(c, span, http.StatusInternalServerError, "Failed to create SMTP profile", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "SMTP profile created successfully",
			"profile": created,
		})
	}
}

func (h *SmtpProfilesHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SmtpProfilesHandler.List", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tenant := utils.GetTenantFromContext(ctx)
		tracing.TagTenant(span, tenant)

		profiles, err := h.repositories.SmtpProfileRepository.List(ctx, tenant)
		if err != nil {
			respondWithError(c, span, http.StatusInternalServerError, "Failed to list SMTP profiles", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"profiles": profiles})
	}
}

func (h *SmtpProfilesHandler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SmtpProfilesHandler.Get", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tenant := utils.GetTenantFromContext(ctx)
		tracing.TagTenant(span, tenant)

		profile, err := h.repositories.SmtpProfileRepository.GetByID(ctx, tenant, c.Param("id"))
		if err != nil {
			if errors.Is(err, repository.ErrProfileNotFound) {
				respondWithError(c, span, http.StatusNotFound, "SMTP profile not found", err)
				return
			}
			respondWithError(c, span, http.StatusInternalServerError, "Failed to fetch SMTP profile", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"profile": profile})
	}
}

func (h *SmtpProfilesHandler) Update() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SmtpProfilesHandler.Update", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tenant := utils.GetTenantFromContext(ctx)
		tracing.TagTenant(span, tenant)

		// Only the allow-listed fields exist on the update shape; anything
		// else in the payload is ignored, not an error.
		var update models.SmtpProfileUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			respondWithError(c, span, http.StatusBadRequest, "Invalid request format", err)
			return
		}

		if update.Port != nil && (*update.Port < 1 || *update.Port > 65535) {
			respondWithError(c, span, http.StatusBadRequest, "port must be between 1 and 65535", errors.Errorf("invalid port %d", *update.Port))
			return
		}
		if update.FromEmail != nil && !utils.IsValidEmailSyntax(*update.FromEmail) {
			respondWithError(c, span, http.StatusBadRequest, "sender address is not a valid email", errors.Errorf("invalid email %s", *update.FromEmail))
			return
		}

		profile, err := h.repositories.SmtpProfileRepository.Update(ctx, tenant, c.Param("id"), &update)
		if err != nil {
			if errors.Is(err, repository.ErrProfileNotFound) {
				respondWithError(c, span, http.StatusNotFound, "SMTP profile not found", err)
				return
			}
			respondWithError(c, span, http.StatusInternalServerError, "Failed to update SMTP profile", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "SMTP profile updated successfully",
			"profile": profile,
		})
	}
}

func (h *SmtpProfilesHandler) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SmtpProfilesHandler.Delete", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tenant := utils.GetTenantFromContext(ctx)
		tracing.TagTenant(span, tenant)

		err := h.repositories.SmtpProfileRepository.Delete(ctx, tenant, c.Param("id"))
		if err != nil {
			if errors.Is(err, repository.ErrProfileNotFound) {
				respondWithError(c, span, http.StatusNotFound, "SMTP profile not found", err)
				return
			}
			respondWithError(c, span, http.StatusInternalServerError, "Failed to delete SMTP profile", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "SMTP profile deleted successfully"})
	}
}

// Test handles POST /v1/smtp-profiles/test: verify the connection, then send
// a round-trip test message from the configured sender address to itself.
func (h *SmtpProfilesHandler) Test() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SmtpProfilesHandler.Test", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tenant := utils.GetTenantFromContext(ctx)
		tracing.TagTenant(span, tenant)

		var request TestSmtpProfileRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			respondWithError(c, span, http.StatusBadRequest, "Invalid request format", err)
			return
		}

		profile, err := h.resolveTestProfile(c, ctx, tenant, &request)
		if err != nil {
			if errors.Is(err, repository.ErrProfileNotFound) {
				respondWithError(c, span, http.StatusNotFound, "SMTP profile not found", err)
			} else if _, isValidation := err.(*custom_err.MultiErrors); !isValidation {
				respondWithError(c, span, http.StatusInternalServerError, "Failed to resolve SMTP profile", err)
			}
			tracing.TraceErr(span, err)
			return
		}

		client := h.clients.ClientFor(profile)
		if err := client.Verify(ctx); err != nil {
			respondWithError(c, span, http.StatusBadRequest, "SMTP profile test failed", err)
			return
		}

		messageID, err := client.Send(ctx, &models.OutboundMessage{
			FromEmail:   profile.FromEmail,
			FromName:    profile.FromName,
			ToAddresses: []string{profile.FromEmail},
			Subject:     "SMTP Configuration Test",
			BodyHTML:    "<p>This is a test email to verify your SMTP configuration is working correctly.</p>",
		})
		if err != nil {
			respondWithError(c, span, http.StatusBadRequest, "SMTP profile test failed", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":   "SMTP profile test successful",
			"messageId": messageID,
		})
	}
}

// resolveTestProfile builds the profile under test from a saved profile id or
// from the raw fields of the request. Validation errors are written to the
// response directly.
func (h *SmtpProfilesHandler) resolveTestProfile(c *gin.Context, ctx context.Context, tenant string, request *TestSmtpProfileRequest) (*models.SmtpProfile, error) {
	if request.ProfileID != "" {
		return h.repositories.SmtpProfileRepository.GetActive(ctx, tenant, request.ProfileID)
	}

	errs := custom_err.NewMultiErrors()
	if request.Host == "" {
		errs.Add("host", "please provide an SMTP host", errors.New("host is empty"))
	}
	if request.Port < 1 || request.Port > 65535 {
		errs.Add("port", "port must be between 1 and 65535", errors.Errorf("invalid port %d", request.Port))
	}
	if request.Username == "" {
		errs.Add("username", "please provide an SMTP username", errors.New("username is empty"))
	}
	if request.Password == "" {
		errs.Add("password", "please provide an SMTP password", errors.New("password is empty"))
	}
	if !utils.IsValidEmailSyntax(request.FromEmail) {
		errs.Add("fromEmail", "sender address is not a valid email", errors.Errorf("invalid email %s", request.FromEmail))
	}
	if errs.HasErrors() {
		c.JSON(http.StatusBadRequest, errs)
		return nil, errs
	}

	return &models.SmtpProfile{
		Tenant:    tenant,
		Host:      request.Host,
		Port:      request.Port,
		Secure:    request.Secure,
		Username:  request.Username,
		Password:  request.Password,
		FromEmail: request.FromEmail,
		IsActive:  true,
	}, nil
}
