// Package identity stores identity records and their custom claims. The
// claim-mutation path in the admin service is the only writer of claims.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	id "ringside/pkg/domain"
	"ringside/pkg/platform/sentinel"
)

// User is an identity record. Records are never deleted; revoked identities
// are marked Disabled.
type User struct {
	UID       id.UserID
	ClubID    *id.ClubID
	Claims    id.Claims
	Disabled  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity returns the caller view of u.
func (u *User) Identity() *id.Identity {
	return &id.Identity{UID: u.UID, ClubID: u.ClubID, Claims: u.Claims}
}

// InMemoryStore holds identities for tests and local development.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]User
}

func NewInMemory(users ...User) *InMemoryStore {
	s := &InMemoryStore{users: make(map[id.UserID]User)}
	for _, u := range users {
		s.users[u.UID] = u
	}
	return s
}

func (s *InMemoryStore) Put(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.UID] = u
}

func (s *InMemoryStore) FindByUID(_ context.Context, uid id.UserID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[uid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &u, nil
}

func (s *InMemoryStore) SetClaims(_ context.Context, uid id.UserID, claims id.Claims, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.Claims = claims
	u.UpdatedAt = now
	s.users[uid] = u
	return nil
}

// PostgresStore persists identities in the identities table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByUID(ctx context.Context, uid id.UserID) (*User, error) {
	var (
		u    User
		raw  string
		club uuid.NullUUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT uid, club_id, is_platform_admin, disabled, created_at, updated_at
		FROM identities WHERE uid = $1`, string(uid),
	).Scan(&raw, &club, &u.Claims.IsPlatformAdmin, &u.Disabled, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select identity: %w", err)
	}
	u.UID = id.UserID(raw)
	if club.Valid {
		c := id.ClubID(club.UUID)
		u.ClubID = &c
	}
	return &u, nil
}

func (s *PostgresStore) SetClaims(ctx context.Context, uid id.UserID, claims id.Claims, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE identities SET is_platform_admin = $2, updated_at = $3 WHERE uid = $1`,
		string(uid), claims.IsPlatformAdmin, now)
	if err != nil {
		return fmt.Errorf("update identity claims: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Upsert creates or refreshes an identity on sign-in. Claims are left alone on
// existing rows.
func (s *PostgresStore) Upsert(ctx context.Context, u User) error {
	var club uuid.NullUUID
	if u.ClubID != nil {
		club = uuid.NullUUID{UUID: uuid.UUID(*u.ClubID), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (uid, club_id, is_platform_admin, disabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (uid) DO UPDATE SET club_id = EXCLUDED.club_id, updated_at = EXCLUDED.updated_at`,
		string(u.UID), club, u.Claims.IsPlatformAdmin, u.Disabled, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert identity: %w", err)
	}
	return nil
}
