package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/rg345/smtp-ui/api/handlers"
	"github.com/rg345/smtp-ui/api/middleware"
	"github.com/rg345/smtp-ui/internal/repository"
	"github.com/rg345/smtp-ui/internal/tracing"
	"github.com/rg345/smtp-ui/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, svcs *services.Services, repos *repository.Repositories, apiKey string) {
	if svcs == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	apiHandlers := handlers.InitHandlers(repos, svcs)

	// Health check endpoint (no tenant or api key needed)
	r.GET("/health", handlers.HealthCheck)

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-API-KEY",
		ValidAPIKey: apiKey,
	})

	// API group with version and custom context
	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.TenantValidationMiddleware())
	api.Use(middleware.CustomContextMiddleware("smtp-ui"))
	{
		profiles := api.Group("/smtp-profiles")
		{
			profiles.POST("", apiHandlers.SmtpProfiles.Create())
			profiles.GET("", apiHandlers.SmtpProfiles.List())
			profiles.GET("/:id", apiHandlers.SmtpProfiles.Get())
			profiles.PUT("/:id", apiHandlers.SmtpProfiles.Update())
			profiles.DELETE("/:id", apiHandlers.SmtpProfiles.Delete())
			profiles.POST("/test", apiHandlers.SmtpProfiles.Test())
		}

		emails := api.Group("/emails")
		{
			emails.POST("", apiHandlers.Emails.Send())
			emails.GET("/:id", apiHandlers.Emails.Get())
		}

		deliveries := api.Group("/deliveries")
		{
			deliveries.GET("", apiHandlers.Deliveries.List())
			deliveries.GET("/stats", apiHandlers.Deliveries.Stats())
		}
	}
}
