package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ringside/internal/matchmaking/models"
	id "ringside/pkg/domain"
	"ringside/pkg/platform/sentinel"
	txcontext "ringside/pkg/platform/tx"
)

const (
	defaultTxTimeout = 5 * time.Second
	maxTxAttempts    = 5
	baseRetryBackoff = 10 * time.Millisecond

	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqUniqueViolation      = "23505"
)

// PostgresStore runs every transition at SERIALIZABLE isolation and retries
// serialization failures and deadlocks with jittered backoff.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, timeout: defaultTxTimeout}
}

// RunInTx executes fn in a serializable transaction. fn may run more than once
// and must not have side effects outside the Tx.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var lastErr error
	for attempt := range maxTxAttempts {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.runOnce(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		lastErr = err
		if attempt < maxTxAttempts-1 {
			if err := sleep(ctx, backoff(attempt)); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w: %w", sentinel.ErrRetryExhausted, lastErr)
}

func (s *PostgresStore) runOnce(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, sqlTx), &postgresTx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pqSerializationFailure || pqErr.Code == pqDeadlockDetected
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func backoff(attempt int) time.Duration {
	d := baseRetryBackoff << attempt
	return d/2 + rand.N(d/2+1)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *PostgresStore) ListLapsedProposals(ctx context.Context, cutoff time.Time, limit int) ([]id.ProposalID, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM proposals
		WHERE state = 'pending' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query lapsed proposals: %w", err)
	}
	defer rows.Close()

	var ids []id.ProposalID
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan lapsed proposal: %w", err)
		}
		ids = append(ids, id.ProposalID(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lapsed proposals: %w", err)
	}
	return ids, nil
}

type postgresTx struct {
	tx *sql.Tx
}

const proposalColumns = `id, proposing_club_id, responding_club_id, proposing_boxer_id, responding_boxer_id,
	window_start, window_end, show_id, state, created_by, created_at, updated_at, expires_at`

func (t *postgresTx) GetProposal(ctx context.Context, proposalID id.ProposalID) (*models.Proposal, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1 FOR UPDATE`, uuid.UUID(proposalID))
	var (
		p                                                     models.Proposal
		rawID, proposing, responding, proposingB, respondingB uuid.UUID
		show                                                  uuid.NullUUID
		state, createdBy                                      string
		expires                                               sql.NullTime
	)
	err := row.Scan(&rawID, &proposing, &responding, &proposingB, &respondingB,
		&p.Window.Start, &p.Window.End, &show, &state, &createdBy, &p.CreatedAt, &p.UpdatedAt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select proposal: %w", err)
	}
	p.ID = id.ProposalID(rawID)
	p.ProposingClubID = id.ClubID(proposing)
	p.RespondingClubID = id.ClubID(responding)
	p.ProposingBoxerID = id.BoxerID(proposingB)
	p.RespondingBoxerID = id.BoxerID(respondingB)
	p.State = models.ProposalState(state)
	p.CreatedBy = id.UserID(createdBy)
	if show.Valid {
		showID := id.ShowID(show.UUID)
		p.ShowID = &showID
	}
	if expires.Valid {
		p.ExpiresAt = &expires.Time
	}
	return &p, nil
}

func (t *postgresTx) InsertProposal(ctx context.Context, p *models.Proposal) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO proposals (`+proposalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		uuid.UUID(p.ID), uuid.UUID(p.ProposingClubID), uuid.UUID(p.RespondingClubID),
		uuid.UUID(p.ProposingBoxerID), uuid.UUID(p.RespondingBoxerID),
		p.Window.Start, p.Window.End, nullShow(p.ShowID), string(p.State), string(p.CreatedBy),
		p.CreatedAt, p.UpdatedAt, p.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("proposal %s: %w", p.ID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}
	return nil
}

func (t *postgresTx) UpdateProposal(ctx context.Context, p *models.Proposal) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE proposals SET state = $2, show_id = $3, updated_at = $4, expires_at = $5
		WHERE id = $1`,
		uuid.UUID(p.ID), string(p.State), nullShow(p.ShowID), p.UpdatedAt, p.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("update proposal: %w", err)
	}
	return requireRow(res)
}

func (t *postgresTx) HasPendingConflict(ctx context.Context, boxers []id.BoxerID, window models.Window, exclude id.ProposalID) (bool, error) {
	ids := make([]string, len(boxers))
	for i, b := range boxers {
		ids[i] = b.String()
	}
	var exists bool
	err := t.tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM proposals
			WHERE state = 'pending'
			  AND id <> $1
			  AND window_start <= $3
			  AND window_end >= $2
			  AND (proposing_boxer_id = ANY($4::uuid[]) OR responding_boxer_id = ANY($4::uuid[]))
		)`,
		uuid.UUID(exclude), window.Start, window.End, pq.Array(ids),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending conflicts: %w", err)
	}
	return exists, nil
}

const boutColumns = `id, proposal_id, red_club_id, blue_club_id, red_boxer_id, blue_boxer_id,
	show_id, state, void_reason, created_at, updated_at`

func (t *postgresTx) GetBout(ctx context.Context, boutID id.BoutID) (*models.Bout, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+boutColumns+` FROM bouts WHERE id = $1 FOR UPDATE`, uuid.UUID(boutID))
	var (
		b                                                uuid.UUID
		proposal, redClub, blueClub, redBoxer, blueBoxer uuid.UUID
		show                                             uuid.NullUUID
		state, reason                                    string
		bout                                             models.Bout
	)
	err := row.Scan(&b, &proposal, &redClub, &blueClub, &redBoxer, &blueBoxer,
		&show, &state, &reason, &bout.CreatedAt, &bout.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select bout: %w", err)
	}
	bout.ID = id.BoutID(b)
	bout.ProposalID = id.ProposalID(proposal)
	bout.RedClubID = id.ClubID(redClub)
	bout.BlueClubID = id.ClubID(blueClub)
	bout.RedBoxerID = id.BoxerID(redBoxer)
	bout.BlueBoxerID = id.BoxerID(blueBoxer)
	bout.State = models.BoutState(state)
	bout.VoidReason = reason
	if show.Valid {
		showID := id.ShowID(show.UUID)
		bout.ShowID = &showID
	}
	return &bout, nil
}

func (t *postgresTx) InsertBout(ctx context.Context, b *models.Bout) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO bouts (`+boutColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(b.ID), uuid.UUID(b.ProposalID), uuid.UUID(b.RedClubID), uuid.UUID(b.BlueClubID),
		uuid.UUID(b.RedBoxerID), uuid.UUID(b.BlueBoxerID), nullShow(b.ShowID), string(b.State),
		b.VoidReason, b.CreatedAt, b.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("bout for proposal %s: %w", b.ProposalID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert bout: %w", err)
	}
	return nil
}

func (t *postgresTx) UpdateBout(ctx context.Context, b *models.Bout) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE bouts SET state = $2, void_reason = $3, updated_at = $4 WHERE id = $1`,
		uuid.UUID(b.ID), string(b.State), b.VoidReason, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update bout: %w", err)
	}
	return requireRow(res)
}

func (t *postgresTx) GetSlotByBout(ctx context.Context, boutID id.BoutID) (*models.Slot, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, show_id, bout_id, state, created_at, updated_at
		FROM slots WHERE bout_id = $1 AND state = 'filled'
		FOR UPDATE`, uuid.UUID(boutID))
	var (
		slot      models.Slot
		raw, show uuid.UUID
		bout      uuid.NullUUID
		state     string
	)
	err := row.Scan(&raw, &show, &bout, &state, &slot.CreatedAt, &slot.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select slot: %w", err)
	}
	slot.ID = id.SlotID(raw)
	slot.ShowID = id.ShowID(show)
	slot.State = models.SlotState(state)
	if bout.Valid {
		b := id.BoutID(bout.UUID)
		slot.BoutID = &b
	}
	return &slot, nil
}

func (t *postgresTx) InsertSlot(ctx context.Context, s *models.Slot) error {
	var bout uuid.NullUUID
	if s.BoutID != nil {
		bout = uuid.NullUUID{UUID: uuid.UUID(*s.BoutID), Valid: true}
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO slots (id, show_id, bout_id, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(s.ID), uuid.UUID(s.ShowID), bout, string(s.State), s.CreatedAt, s.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("slot %s: %w", s.ID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	return nil
}

func (t *postgresTx) UpdateSlot(ctx context.Context, s *models.Slot) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE slots SET state = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(s.ID), string(s.State), s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	return requireRow(res)
}

func (t *postgresTx) GetToken(ctx context.Context, tokenID id.TokenID) (*models.DeepLinkToken, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, target_type, target_id, issued_by, issued_at, expires_at,
		       consumed, state, consumed_at, consumed_by
		FROM deep_link_tokens WHERE id = $1
		FOR UPDATE`, uuid.UUID(tokenID))
	var (
		tok                  models.DeepLinkToken
		raw                  uuid.UUID
		targetType, issuedBy string
		state                string
		consumedAt           sql.NullTime
		consumedBy           sql.NullString
	)
	err := row.Scan(&raw, &targetType, &tok.Target.ID, &issuedBy, &tok.IssuedAt, &tok.ExpiresAt,
		&tok.Consumed, &state, &consumedAt, &consumedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select token: %w", err)
	}
	tok.ID = id.TokenID(raw)
	tok.Target.Type = models.TargetType(targetType)
	tok.IssuedBy = id.UserID(issuedBy)
	tok.State = models.TokenState(state)
	if consumedAt.Valid {
		tok.ConsumedAt = &consumedAt.Time
	}
	if consumedBy.Valid {
		by := id.UserID(consumedBy.String)
		tok.ConsumedBy = &by
	}
	return &tok, nil
}

func (t *postgresTx) InsertToken(ctx context.Context, tok *models.DeepLinkToken) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO deep_link_tokens (id, target_type, target_id, issued_by, issued_at, expires_at, consumed, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(tok.ID), string(tok.Target.Type), tok.Target.ID, string(tok.IssuedBy),
		tok.IssuedAt, tok.ExpiresAt, tok.Consumed, string(tok.State),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("token %s: %w", tok.ID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (t *postgresTx) UpdateToken(ctx context.Context, tok *models.DeepLinkToken) error {
	var consumedBy *string
	if tok.ConsumedBy != nil {
		by := string(*tok.ConsumedBy)
		consumedBy = &by
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE deep_link_tokens SET consumed = $2, state = $3, consumed_at = $4, consumed_by = $5
		WHERE id = $1`,
		uuid.UUID(tok.ID), tok.Consumed, string(tok.State), tok.ConsumedAt, consumedBy,
	)
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	return requireRow(res)
}

func nullShow(show *id.ShowID) uuid.NullUUID {
	if show == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*show), Valid: true}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
