package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	audit "ringside/pkg/platform/audit"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Store implements audit.Store over audit_log_entries with a transactional
// outbox. Each Append inserts the entry and its outbox row in one statement, so
// the relay can never publish an entry that was not persisted.
// UPDATE and DELETE on audit_log_entries are rejected by a trigger.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a PostgreSQL audit store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// OutboxRecord is an audit entry waiting to be relayed.
type OutboxRecord struct {
	Seq       int64
	LogID     string
	Action    string
	Payload   []byte
	CreatedAt time.Time
}

// payload is the JSON body stored in the outbox and published downstream.
type payload struct {
	LogID        string         `json:"logId"`
	Action       string         `json:"action"`
	ActorID      string         `json:"actorId"`
	ActorType    string         `json:"actorType"`
	TargetType   string         `json:"targetType"`
	TargetID     string         `json:"targetId"`
	TargetClubID *string        `json:"targetClubId"`
	Details      map[string]any `json:"details"`
	Timestamp    string         `json:"timestamp"`
	IPAddress    *string        `json:"ipAddress"`
}

func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	body, err := json.Marshal(payload{
		LogID:        entry.LogID,
		Action:       string(entry.Action),
		ActorID:      entry.ActorID,
		ActorType:    string(entry.ActorType),
		TargetType:   string(entry.TargetType),
		TargetID:     entry.TargetID,
		TargetClubID: entry.TargetClubID,
		Details:      entry.Details,
		Timestamp:    entry.Timestamp.Format(time.RFC3339Nano),
		IPAddress:    entry.IPAddress,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		WITH entry AS (
			INSERT INTO audit_log_entries (
				log_id, action, actor_id, actor_type, target_type, target_id,
				target_club_id, details, ts, ip_address
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING log_id, action
		)
		INSERT INTO audit_outbox (log_id, action, payload, created_at)
		SELECT log_id, action, $11, $9 FROM entry
	`
	_, err = s.pool.Exec(ctx, query,
		entry.LogID,
		string(entry.Action),
		entry.ActorID,
		string(entry.ActorType),
		string(entry.TargetType),
		entry.TargetID,
		entry.TargetClubID,
		details,
		entry.Timestamp,
		entry.IPAddress,
		body,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns matching entries newest first. Ties on timestamp are broken by
// insertion sequence.
func (s *Store) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	var (
		where []string
		args  []any
	)
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		where = append(where, "action = $"+strconv.Itoa(len(args)))
	}
	if filter.TargetType != "" {
		args = append(args, string(filter.TargetType))
		where = append(where, "target_type = $"+strconv.Itoa(len(args)))
	}
	if filter.TargetID != "" {
		args = append(args, filter.TargetID)
		where = append(where, "target_id = $"+strconv.Itoa(len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	args = append(args, limit)

	var b strings.Builder
	b.WriteString(`
		SELECT log_id, action, actor_id, actor_type, target_type, target_id,
			   target_club_id, details, ts, ip_address
		FROM audit_log_entries`)
	if len(where) > 0 {
		b.WriteString("\n\t\tWHERE " + strings.Join(where, " AND "))
	}
	b.WriteString("\n\t\tORDER BY ts DESC, seq DESC\n\t\tLIMIT $" + strconv.Itoa(len(args)))

	rows, err := s.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (audit.Entry, error) {
	var (
		entry      audit.Entry
		action     string
		actorType  string
		targetType string
		details    []byte
	)
	if err := row.Scan(
		&entry.LogID,
		&action,
		&entry.ActorID,
		&actorType,
		&targetType,
		&entry.TargetID,
		&entry.TargetClubID,
		&details,
		&entry.Timestamp,
		&entry.IPAddress,
	); err != nil {
		return audit.Entry{}, fmt.Errorf("scan audit entry: %w", err)
	}
	entry.Action = audit.Action(action)
	entry.ActorType = audit.ActorType(actorType)
	entry.TargetType = audit.TargetType(targetType)
	entry.Timestamp = entry.Timestamp.UTC()
	if len(details) > 0 {
		if err := json.Unmarshal(details, &entry.Details); err != nil {
			return audit.Entry{}, fmt.Errorf("decode audit details: %w", err)
		}
	}
	return entry, nil
}

// PendingOutbox returns up to limit unpublished outbox rows in write order.
// Rows are locked with SKIP LOCKED inside tx so concurrent relays split work.
func (s *Store) PendingOutbox(ctx context.Context, tx pgx.Tx, limit int) ([]OutboxRecord, error) {
	rows, err := tx.Query(ctx, `
		SELECT seq, log_id, action, payload, created_at
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY seq
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit outbox: %w", err)
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		if err := rows.Scan(&rec.Seq, &rec.LogID, &rec.Action, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit outbox: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit outbox: %w", err)
	}
	return records, nil
}

// MarkPublished stamps outbox rows as relayed.
func (s *Store) MarkPublished(ctx context.Context, tx pgx.Tx, seqs []int64, at time.Time) error {
	if len(seqs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `UPDATE audit_outbox SET published_at = $1 WHERE seq = ANY($2)`, at, seqs)
	if err != nil {
		return fmt.Errorf("mark audit outbox published: %w", err)
	}
	return nil
}

// RelayBatch runs fn over one batch of pending outbox rows and marks the
// batch published when fn succeeds. A failing fn leaves the rows pending.
func (s *Store) RelayBatch(ctx context.Context, limit int, now func() time.Time, fn func(context.Context, []OutboxRecord) error) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin relay batch: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := s.PendingOutbox(ctx, tx, limit)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := fn(ctx, records); err != nil {
		return 0, err
	}
	seqs := make([]int64, len(records))
	for i, rec := range records {
		seqs[i] = rec.Seq
	}
	if err := s.MarkPublished(ctx, tx, seqs, now()); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit relay batch: %w", err)
	}
	return len(records), nil
}
