package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bilgisen/newscurator/internal/cache"
	"github.com/bilgisen/newscurator/internal/logger"
	"github.com/bilgisen/newscurator/internal/models"
	"github.com/bilgisen/newscurator/internal/storage"
	"github.com/bilgisen/newscurator/internal/utils"
	"github.com/rs/zerolog"
)

// ErrRowVanished is returned when a row approved at the start of a pass can
// no longer be found with status ok right before it is marked done
var ErrRowVanished = errors.New("candidate row no longer ok")

// Deps wires a Mover
type Deps struct {
	Candidates storage.Table
	Approved   storage.Table
	MoveLog    cache.MoveLog
	Logger     *zerolog.Logger
}

// Mover promotes reviewed candidate rows into the approved queue
type Mover struct {
	deps Deps
	log  *zerolog.Logger
}

func NewMover(d Deps) *Mover {
	log := d.Logger
	if log == nil {
		log = logger.Get()
	}
	return &Mover{deps: d, log: log}
}

// PromoteAll copies every candidate with status ok into the approved store
// with status new, then marks the candidate done. It returns how many rows
// were promoted; a store failure stops the pass and is returned with the
// count so far.
func (m *Mover) PromoteAll(ctx context.Context) (int, error) {
	start := time.Now()

	statusCol, err := storage.Column(ctx, m.deps.Candidates, models.ColStatus)
	if err != nil {
		return 0, fmt.Errorf("error locating status column: %w", err)
	}

	rows, err := m.deps.Candidates.Rows(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading candidate store: %w", err)
	}

	var pending []models.CandidateRecord
	for _, row := range rows {
		status, err := models.ParseStatus(row.Get(models.ColStatus))
		if err != nil || status != models.StatusOK {
			continue
		}
		pending = append(pending, models.CandidateFromFields(row.Fields))
	}

	m.log.Info().
		Int("rows", len(rows)).
		Int("approved", len(pending)).
		Msg("Starting promotion")

	moved := 0
	for _, record := range pending {
		if err := ctx.Err(); err != nil {
			return moved, err
		}
		if err := models.Validate(record.Approve()); err != nil {
			m.log.Warn().
				Err(err).
				Str("title", utils.Prefix(record.Title, 60)).
				Msg("Skipping approved row that cannot be promoted")
			continue
		}
		if err := m.promote(ctx, record, statusCol); err != nil {
			if errors.Is(err, ErrRowVanished) {
				m.log.Warn().
					Err(err).
					Msg("Candidate changed during promotion, status left as is")
				continue
			}
			return moved, err
		}
		moved++
		m.log.Info().
			Str("title", utils.Prefix(record.Title, 60)).
			Str("url", utils.Prefix(record.URL, 50)).
			Msg("Promoted candidate")
	}

	m.log.Info().
		Int("moved", moved).
		Dur("duration", time.Since(start)).
		Msg("Finished promotion")
	return moved, nil
}

func (m *Mover) promote(ctx context.Context, record models.CandidateRecord, statusCol int) error {
	url := strings.TrimSpace(record.URL)

	done, err := m.alreadyPromoted(ctx, url)
	if err != nil {
		return err
	}

	if done {
		m.log.Warn().
			Str("url", utils.Prefix(url, 50)).
			Msg("Approved row already exists, only updating status")
	} else {
		if err := m.deps.Approved.AppendRow(ctx, record.Approve().Row()); err != nil {
			return fmt.Errorf("error appending to approved store: %w", err)
		}
		if m.deps.MoveLog != nil {
			if err := m.deps.MoveLog.MarkPromoted(ctx, url); err != nil {
				return fmt.Errorf("error recording promotion of %s: %w", url, err)
			}
		}
	}

	// Re-read so the row index reflects any rows appended since the pass began
	index, err := m.locate(ctx, url)
	if err != nil {
		return err
	}
	if err := m.deps.Candidates.UpdateCell(ctx, index, statusCol, string(models.StatusDone)); err != nil {
		return fmt.Errorf("error updating candidate status: %w", err)
	}
	return nil
}

func (m *Mover) alreadyPromoted(ctx context.Context, url string) (bool, error) {
	if m.deps.MoveLog == nil {
		return false, nil
	}
	done, err := m.deps.MoveLog.IsPromoted(ctx, url)
	if err != nil {
		return false, fmt.Errorf("error checking move-log for %s: %w", url, err)
	}
	return done, nil
}

// locate finds the current index of the ok row carrying url
func (m *Mover) locate(ctx context.Context, url string) (int, error) {
	rows, err := m.deps.Candidates.Rows(ctx)
	if err != nil {
		return 0, fmt.Errorf("error re-reading candidate store: %w", err)
	}
	for _, row := range rows {
		if strings.TrimSpace(row.Get(models.ColURL)) != url {
			continue
		}
		if status, err := models.ParseStatus(row.Get(models.ColStatus)); err == nil && status == models.StatusOK {
			return row.Index, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrRowVanished, url)
}
