package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmstock/internal/config"
	"github.com/mamadbah2/farmstock/internal/domain/models"
	"github.com/mamadbah2/farmstock/internal/service/reporting"
)

const runTimeout = 2 * time.Minute

// DigestRunner produces and distributes an inventory digest.
type DigestRunner interface {
	Run(ctx context.Context, farmID models.ID, now time.Time) (*reporting.Digest, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	runner   DigestRunner
	cfg      config.ReportingConfig
	location *time.Location
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler running in the configured timezone.
func NewScheduler(cfg config.ReportingConfig, runner DigestRunner, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	// Standard 5-field cron expressions (min, hour, dom, month, dow).
	c := cron.New(cron.WithLocation(location))

	return &Scheduler{
		cron:     c,
		runner:   runner,
		cfg:      cfg,
		location: location,
		logger:   logger,
	}, nil
}

// Start registers the inventory digest job and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.sendInventoryDigest); err != nil {
		return fmt.Errorf("schedule inventory digest: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sendInventoryDigest() {
	s.logger.Info("generating inventory digest")
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	digest, err := s.runner.Run(ctx, models.ID(s.cfg.FarmID), time.Now().In(s.location))
	if err != nil {
		s.logger.Error("inventory digest failed", zap.Error(err))
		return
	}

	s.logger.Info("inventory digest sent", zap.String("farm_id", digest.FarmID.String()))
}
