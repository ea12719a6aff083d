package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bilgisen/newscurator/internal/ingest"
	"github.com/bilgisen/newscurator/internal/logger"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrBusy is returned when another ingest or promote run holds the lock
var ErrBusy = errors.New("another run is in progress")

// Job names, used in logs and run records
const (
	JobIngest  = "ingest"
	JobPromote = "promote"
)

type Ingester interface {
	Run(ctx context.Context) (ingest.Summary, error)
}

type Promoter interface {
	PromoteAll(ctx context.Context) (int, error)
}

// Options wires a Runner. The factories receive the per-run logger so every
// line of a run carries its run_id.
type Options struct {
	Ingester func(log *zerolog.Logger) Ingester
	Promoter func(log *zerolog.Logger) Promoter
	// LockFile, when set, also excludes runs in other processes
	LockFile string
	Logger   *zerolog.Logger
}

// Run describes one finished run
type Run struct {
	Job        string          `json:"job"`
	ID         string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Error      string          `json:"error,omitempty"`
	Ingest     *ingest.Summary `json:"ingest,omitempty"`
	Promoted   *int            `json:"promoted,omitempty"`
}

// Runner serializes ingest and promote runs
type Runner struct {
	opts Options
	mu   sync.Mutex
	lock *flock.Flock

	lastMu sync.RWMutex
	last   map[string]Run
}

func NewRunner(opts Options) (*Runner, error) {
	if opts.Ingester == nil || opts.Promoter == nil {
		return nil, errors.New("jobs: ingester and promoter are required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Get()
	}

	r := &Runner{opts: opts, last: make(map[string]Run)}
	if opts.LockFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LockFile), 0755); err != nil {
			return nil, fmt.Errorf("create lock directory: %w", err)
		}
		r.lock = flock.New(opts.LockFile)
	}
	return r, nil
}

// Ingest runs the ingestion pipeline once
func (r *Runner) Ingest(ctx context.Context) (ingest.Summary, error) {
	var summary ingest.Summary
	err := r.exclusive(func() error {
		var err error
		summary, err = r.ingest(ctx)
		return err
	})
	return summary, err
}

// Promote runs the workflow mover once
func (r *Runner) Promote(ctx context.Context) (int, error) {
	var moved int
	err := r.exclusive(func() error {
		var err error
		moved, err = r.promote(ctx)
		return err
	})
	return moved, err
}

// IngestThenPromote holds the lock across both jobs. A failed ingest does
// not prevent promotion of rows reviewed earlier.
func (r *Runner) IngestThenPromote(ctx context.Context) error {
	return r.exclusive(func() error {
		_, ingestErr := r.ingest(ctx)
		_, promoteErr := r.promote(ctx)
		return errors.Join(ingestErr, promoteErr)
	})
}

// Last returns the most recent run of job, if any
func (r *Runner) Last(job string) (Run, bool) {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	run, ok := r.last[job]
	return run, ok
}

// Go starts job in the background under ctx. It returns ErrBusy without
// starting anything when another run holds the lock.
func (r *Runner) Go(ctx context.Context, job string) error {
	var fn func() error
	switch job {
	case JobIngest:
		fn = func() error { _, err := r.ingest(ctx); return err }
	case JobPromote:
		fn = func() error { _, err := r.promote(ctx); return err }
	default:
		return fmt.Errorf("jobs: unknown job %q", job)
	}

	release, err := r.acquire()
	if err != nil {
		return err
	}
	go func() {
		defer release()
		_ = fn()
	}()
	return nil
}

func (r *Runner) exclusive(fn func() error) error {
	release, err := r.acquire()
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (r *Runner) acquire() (func(), error) {
	if !r.mu.TryLock() {
		return nil, ErrBusy
	}

	if r.lock != nil {
		ok, err := r.lock.TryLock()
		if err != nil {
			r.mu.Unlock()
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			r.mu.Unlock()
			return nil, ErrBusy
		}
	}

	return func() {
		if r.lock != nil {
			if err := r.lock.Unlock(); err != nil {
				r.opts.Logger.Warn().Err(err).Msg("Failed to release run lock")
			}
		}
		r.mu.Unlock()
	}, nil
}

func (r *Runner) ingest(ctx context.Context) (ingest.Summary, error) {
	run, log := r.begin(JobIngest)
	log.Info().Msg("=== Ingestion started ===")

	summary, err := r.opts.Ingester(&log).Run(ctx)
	run.Ingest = &summary

	event := log.Info()
	if err != nil {
		event = log.Error().Err(err)
	}
	event.Int("added", summary.Added).Msg("=== Ingestion finished ===")

	r.finish(run, err)
	return summary, err
}

func (r *Runner) promote(ctx context.Context) (int, error) {
	run, log := r.begin(JobPromote)
	log.Info().Msg("=== Promotion started ===")

	moved, err := r.opts.Promoter(&log).PromoteAll(ctx)
	run.Promoted = &moved

	event := log.Info()
	if err != nil {
		event = log.Error().Err(err)
	}
	event.Int("moved", moved).Msg("=== Promotion finished ===")

	r.finish(run, err)
	return moved, err
}

func (r *Runner) begin(job string) (Run, zerolog.Logger) {
	run := Run{Job: job, ID: uuid.NewString(), StartedAt: time.Now()}
	return run, logger.WithRun(r.opts.Logger, job, run.ID)
}

func (r *Runner) finish(run Run, err error) {
	run.FinishedAt = time.Now()
	if err != nil {
		run.Error = err.Error()
	}
	r.lastMu.Lock()
	r.last[run.Job] = run
	r.lastMu.Unlock()
}
