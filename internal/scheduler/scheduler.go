package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/service"
	"github.com/noah-isme/uni-timetable-api/pkg/config"
	"github.com/noah-isme/uni-timetable-api/pkg/jobs"
)

// Job types dispatched through the background queue.
const (
	JobRefresh        = "timetable.refresh"
	JobExportsCleanup = "exports.cleanup"
)

// exportsCleanupSpec runs nightly, off-peak.
const exportsCleanupSpec = "0 3 * * *"

// Scheduler drives periodic cache refreshes through a cron plan and a
// retrying worker queue. The upstream feed republishes ahead of each
// teaching week, so the default plan fires on weekend nights.
type Scheduler struct {
	cron      *cron.Cron
	queue     *jobs.Queue
	refresher service.Refresher
	exports   *service.ExportService
	logger    *zap.Logger
	cfg       config.SchedulerConfig
}

// New constructs a scheduler. The exports service may be nil, which skips
// the cleanup job.
func New(refresher service.Refresher, exports *service.ExportService, cfg config.SchedulerConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		cron:      cron.New(),
		refresher: refresher,
		exports:   exports,
		logger:    logger,
		cfg:       cfg,
	}
	s.queue = jobs.NewQueue("scheduler", s.handle, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.RefreshRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start registers the cron plan and begins processing jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.queue.Start(ctx)

	if _, err := s.cron.AddFunc(s.cfg.RefreshSpec, func() {
		s.enqueue(JobRefresh)
	}); err != nil {
		return fmt.Errorf("register refresh schedule %q: %w", s.cfg.RefreshSpec, err)
	}

	if s.exports != nil {
		if _, err := s.cron.AddFunc(exportsCleanupSpec, func() {
			s.enqueue(JobExportsCleanup)
		}); err != nil {
			return fmt.Errorf("register exports cleanup schedule: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("refresh_spec", s.cfg.RefreshSpec))

	if s.cfg.RefreshOnStartup {
		s.enqueue(JobRefresh)
	}
	return nil
}

// Stop halts the cron plan and drains the worker queue.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.queue.Stop()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) enqueue(jobType string) {
	job := jobs.Job{ID: uuid.NewString(), Type: jobType}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue job", zap.String("type", jobType), zap.Error(err))
	}
}

func (s *Scheduler) handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case JobRefresh:
		gen, count, err := s.refresher.Refresh(ctx)
		if err != nil {
			return err
		}
		s.logger.Info("scheduled refresh completed",
			zap.String("generation_id", gen.ID),
			zap.Int("records", count))
		return nil
	case JobExportsCleanup:
		if s.exports != nil {
			s.exports.Cleanup()
		}
		return nil
	default:
		s.logger.Warn("unknown job type", zap.String("type", job.Type))
		return nil
	}
}
