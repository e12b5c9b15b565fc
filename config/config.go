package config

import (
	"github.com/rg345/smtp-ui/internal/logger"
	"github.com/rg345/smtp-ui/internal/tracing"
)

type AppConfig struct {
	APIPort string `env:"PORT" envDefault:"12222"`
	APIKey  string `env:"API_KEY,required"`
	Logger  *logger.Config
	Tracing *tracing.JaegerConfig
}

type CronConfig struct {
	// Daily snapshot of per-tenant delivery counts.
	DeliveryStatsSchedule string `env:"CRON_SCHEDULE_DELIVERY_STATS" envDefault:"0 4 * * *"`
}
