// Package roster is a read-only view of registered boxers and their clubs.
// The roster is maintained elsewhere; matchmaking only validates against it.
package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	id "ringside/pkg/domain"
	"ringside/pkg/platform/sentinel"
	txcontext "ringside/pkg/platform/tx"
)

// Boxer is a registered athlete.
type Boxer struct {
	ID     id.BoxerID
	ClubID id.ClubID
	Name   string
	Active bool
}

// InMemoryStore is a roster for tests and local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	boxers map[id.BoxerID]Boxer
}

func NewInMemory(boxers ...Boxer) *InMemoryStore {
	s := &InMemoryStore{boxers: make(map[id.BoxerID]Boxer)}
	for _, b := range boxers {
		s.boxers[b.ID] = b
	}
	return s
}

func (s *InMemoryStore) Put(b Boxer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boxers[b.ID] = b
}

func (s *InMemoryStore) FindBoxer(_ context.Context, boxerID id.BoxerID) (*Boxer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boxers[boxerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &b, nil
}

// PostgresStore reads the boxers table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// FindBoxer joins the caller's transaction when ctx carries one.
func (s *PostgresStore) FindBoxer(ctx context.Context, boxerID id.BoxerID) (*Boxer, error) {
	var (
		b         Boxer
		raw, club uuid.UUID
	)
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, club_id, name, active FROM boxers WHERE id = $1`, uuid.UUID(boxerID),
	).Scan(&raw, &club, &b.Name, &b.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select boxer: %w", err)
	}
	b.ID = id.BoxerID(raw)
	b.ClubID = id.ClubID(club)
	return &b, nil
}

// Upsert writes a boxer. The roster owner normally does this; integration
// tests use it to stage fixtures.
func (s *PostgresStore) Upsert(ctx context.Context, b Boxer) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO boxers (id, club_id, name, active) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET club_id = EXCLUDED.club_id, name = EXCLUDED.name, active = EXCLUDED.active`,
		uuid.UUID(b.ID), uuid.UUID(b.ClubID), b.Name, b.Active)
	if err != nil {
		return fmt.Errorf("upsert boxer: %w", err)
	}
	return nil
}
