package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bilgisen/newscurator/internal/logger"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is what the scheduler triggers, normally jobs.Runner.IngestThenPromote
type Job func(ctx context.Context) error

// Scheduler triggers a job on a standard five-field cron expression
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	job    Job
	log    *zerolog.Logger
}

// New validates spec and registers job. Runs that are still going when the
// next tick fires are skipped rather than queued.
func New(spec string, job Job, log *zerolog.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("job must not be nil")
	}
	if log == nil {
		log = logger.Get()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:    ctx,
		cancel: cancel,
		job:    job,
		log:    log,
	}

	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("add cron: %w", err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	s.log.Info().Msg("Scheduled run triggered")
	if err := s.job(s.ctx); err != nil {
		s.log.Error().Err(err).Msg("Scheduled run failed")
	}
}

// Start begins cron execution
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels a running job and waits for it to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	<-s.cron.Stop().Done()
}

// Next reports the next activation time, zero before Start
func (s *Scheduler) Next() string {
	entries := s.cron.Entries()
	if len(entries) == 0 || entries[0].Next.IsZero() {
		return ""
	}
	return entries[0].Next.Format("2006-01-02T15:04:05Z07:00")
}
