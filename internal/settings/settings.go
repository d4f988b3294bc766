// Package settings owns the admin/settings singleton and the kill switch gate
// that reads it.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"ringside/pkg/platform/sentinel"
)

// DocumentID is the primary key of the settings singleton.
const DocumentID = "settings"

// AdminSettings is the system-wide configuration document.
type AdminSettings struct {
	ProposalKillSwitch bool
	Version            int64
	UpdatedAt          time.Time
	UpdatedBy          string
}

// InMemoryStore holds the settings document in memory. A nil document means it
// was never written.
type InMemoryStore struct {
	mu      sync.Mutex
	doc     *AdminSettings
	readErr error
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

// FailReads makes Get return err. Tests only.
func (s *InMemoryStore) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

func (s *InMemoryStore) Get(_ context.Context) (*AdminSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	if s.doc == nil {
		return nil, sentinel.ErrNotFound
	}
	doc := *s.doc
	return &doc, nil
}

func (s *InMemoryStore) PutKillSwitch(_ context.Context, enabled bool, updatedBy string, now time.Time) (*AdminSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var version int64 = 1
	if s.doc != nil {
		version = s.doc.Version + 1
	}
	s.doc = &AdminSettings{
		ProposalKillSwitch: enabled,
		Version:            version,
		UpdatedAt:          now,
		UpdatedBy:          updatedBy,
	}
	doc := *s.doc
	return &doc, nil
}

// PostgresStore keeps the singleton in admin_settings.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context) (*AdminSettings, error) {
	var doc AdminSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT proposal_kill_switch, version, updated_at, updated_by
		FROM admin_settings WHERE id = $1`, DocumentID,
	).Scan(&doc.ProposalKillSwitch, &doc.Version, &doc.UpdatedAt, &doc.UpdatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select admin settings: %w", err)
	}
	return &doc, nil
}

// PutKillSwitch upserts the singleton and bumps its version.
func (s *PostgresStore) PutKillSwitch(ctx context.Context, enabled bool, updatedBy string, now time.Time) (*AdminSettings, error) {
	var doc AdminSettings
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO admin_settings (id, proposal_kill_switch, version, updated_at, updated_by)
		VALUES ($1, $2, 1, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			proposal_kill_switch = EXCLUDED.proposal_kill_switch,
			version = admin_settings.version + 1,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
		RETURNING proposal_kill_switch, version, updated_at, updated_by`,
		DocumentID, enabled, now, updatedBy,
	).Scan(&doc.ProposalKillSwitch, &doc.Version, &doc.UpdatedAt, &doc.UpdatedBy)
	if err != nil {
		return nil, fmt.Errorf("upsert admin settings: %w", err)
	}
	return &doc, nil
}
