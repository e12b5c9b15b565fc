package cron

import (
	"context"
	"sync"

	"github.com/opentracing/opentracing-go"
	cronv3 "github.com/robfig/cron/v3"

	"github.com/rg345/smtp-ui/config"
	"github.com/rg345/smtp-ui/internal/enum"
	"github.com/rg345/smtp-ui/internal/logger"
	"github.com/rg345/smtp-ui/internal/repository"
	"github.com/rg345/smtp-ui/internal/tracing"
)

// GroupDeliveries serializes jobs that scan the delivery records table.
const GroupDeliveries = "deliveries"

var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupDeliveries: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg    *config.Config
	log    logger.Logger
	repos  *repository.Repositories
	cron   *cronv3.Cron
	stopCh chan struct{}
	jobIDs map[string]cronv3.EntryID
}

func NewCronManager(cfg *config.Config, log logger.Logger, repos *repository.Repositories) *CronManager {
	return &CronManager{
		cfg:    cfg,
		log:    log,
		repos:  repos,
		stopCh: make(chan struct{}),
		jobIDs: make(map[string]cronv3.EntryID),
	}
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	cronOptions := []cronv3.Option{
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	schedule := cm.cfg.CronConfig.DeliveryStatsSchedule
	if schedule == "" {
		return
	}

	id, err := c.AddFunc(schedule, func() {
		defer tracing.RecoverAndLogToJaeger(cm.log)
		jobLocks.locks[GroupDeliveries].Lock()
		defer jobLocks.locks[GroupDeliveries].Unlock()
		cm.snapshotDeliveryStats()
	})
	if err != nil {
		cm.log.Fatalf("Could not add delivery stats cron job: %v", err)
	}
	cm.jobIDs["delivery_stats"] = id
	cm.log.Infof("Registered delivery stats job with schedule: %s", schedule)
}

// snapshotDeliveryStats logs a count-by-status breakdown per tenant. It is an
// operational signal, not a user-facing feature.
func (cm *CronManager) snapshotDeliveryStats() {
	ctx := context.Background()

	span, ctx := opentracing.StartSpanFromContext(ctx, "CronManager.snapshotDeliveryStats")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	tenants, err := cm.repos.DeliveryRecordRepository.Tenants(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to list tenants for delivery stats: %v", err)
		return
	}

	for _, tenant := range tenants {
		counts, err := cm.repos.DeliveryRecordRepository.CountByStatus(ctx, tenant, nil)
		if err != nil {
			tracing.TraceErr(span, err)
			cm.log.Errorf("Failed to count deliveries for tenant %s: %v", tenant, err)
			continue
		}
		cm.log.Infof("Delivery stats for tenant %s: sent=%d failed=%d pending=%d",
			tenant,
			counts[enum.DeliveryStatusSent],
			counts[enum.DeliveryStatusFailed],
			counts[enum.DeliveryStatusPending],
		)
	}

	cm.log.Info("Completed delivery stats snapshot")
}
