package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bilgisen/newscurator/internal/config"
	"github.com/bilgisen/newscurator/internal/models"
)

// Stores groups the candidate and approved tables of one deployment
type Stores struct {
	Candidates Table
	Approved   Table

	db *sql.DB
}

// Close releases the backing database, if any
func (s *Stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Open builds both tables for the configured backend
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.StoreBackend {
	case config.BackendSheets:
		candidates, err := NewSheets(ctx, cfg.GoogleCreds, cfg.SpreadsheetID, cfg.CandidatesSheet)
		if err != nil {
			return nil, err
		}
		approved, err := NewSheets(ctx, cfg.GoogleCreds, cfg.SpreadsheetID, cfg.ApprovedSheet)
		if err != nil {
			return nil, err
		}
		return &Stores{Candidates: candidates, Approved: approved}, nil

	case config.BackendSQLite:
		db, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		candidates, err := NewSQLite(ctx, db, cfg.CandidatesSheet, models.CandidateColumns)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		approved, err := NewSQLite(ctx, db, cfg.ApprovedSheet, models.ApprovedColumns)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Stores{Candidates: candidates, Approved: approved, db: db}, nil

	case config.BackendMemory:
		return &Stores{
			Candidates: NewMemory(models.CandidateColumns),
			Approved:   NewMemory(models.ApprovedColumns),
		}, nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
