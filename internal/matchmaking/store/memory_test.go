package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringside/internal/matchmaking/models"
	id "ringside/pkg/domain"
	"ringside/pkg/platform/sentinel"
)

var testNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func pendingProposal(t *testing.T, boxer id.BoxerID, start time.Time) *models.Proposal {
	t.Helper()
	p, err := models.NewProposal(id.ProposalID(uuid.New()),
		id.ClubID(uuid.New()), id.ClubID(uuid.New()),
		boxer, id.BoxerID(uuid.New()),
		models.Window{Start: start, End: start.Add(48 * time.Hour)},
		nil, "coach", testNow)
	require.NoError(t, err)
	p.ApplySubmission(testNow)
	return p
}

func TestInMemoryRunInTxRestoresOnFailure(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	p := pendingProposal(t, id.BoxerID(uuid.New()), testNow)

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		require.NoError(t, tx.InsertProposal(ctx, p))
		bout := models.NewBoutFromProposal(id.BoutID(uuid.New()), p, nil, testNow)
		require.NoError(t, tx.InsertBout(ctx, bout))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetProposal(ctx, p.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.Equal(t, 0, s.CountBouts())
}

func TestInMemoryRunInTxHonoursCancellation(t *testing.T) {
	s := NewInMemory()
	ctx, cancel := context.WithCancel(context.Background())
	p := pendingProposal(t, id.BoxerID(uuid.New()), testNow)

	err := s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		require.NoError(t, tx.InsertProposal(ctx, p))
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	_, err = s.GetProposal(context.Background(), p.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryReturnsCopies(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	p := pendingProposal(t, id.BoxerID(uuid.New()), testNow)
	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertProposal(ctx, p)
	}))

	p.State = models.ProposalAccepted
	stored, err := s.GetProposal(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalPending, stored.State)
}

func TestInMemoryBoutUniquePerProposal(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	p := pendingProposal(t, id.BoxerID(uuid.New()), testNow)

	err := s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		require.NoError(t, tx.InsertBout(ctx, models.NewBoutFromProposal(id.BoutID(uuid.New()), p, nil, testNow)))
		return tx.InsertBout(ctx, models.NewBoutFromProposal(id.BoutID(uuid.New()), p, nil, testNow))
	})
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestInMemoryPendingConflict(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	boxer := id.BoxerID(uuid.New())
	existing := pendingProposal(t, boxer, testNow)
	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertProposal(ctx, existing)
	}))

	check := func(boxers []id.BoxerID, w models.Window, exclude id.ProposalID) bool {
		var found bool
		require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
			var err error
			found, err = tx.HasPendingConflict(ctx, boxers, w, exclude)
			return err
		}))
		return found
	}

	overlapping := models.Window{Start: testNow.Add(24 * time.Hour), End: testNow.Add(72 * time.Hour)}
	disjoint := models.Window{Start: testNow.Add(96 * time.Hour), End: testNow.Add(120 * time.Hour)}

	assert.True(t, check([]id.BoxerID{boxer}, overlapping, id.ProposalID{}))
	assert.False(t, check([]id.BoxerID{boxer}, disjoint, id.ProposalID{}))
	assert.False(t, check([]id.BoxerID{id.BoxerID(uuid.New())}, overlapping, id.ProposalID{}))
	assert.False(t, check([]id.BoxerID{boxer}, overlapping, existing.ID), "own proposal is excluded")
}

func TestInMemoryListLapsedProposals(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	p := pendingProposal(t, id.BoxerID(uuid.New()), testNow)
	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertProposal(ctx, p)
	}))

	ids, err := s.ListLapsedProposals(ctx, testNow.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = s.ListLapsedProposals(ctx, testNow.Add(models.ProposalTTL), 10)
	require.NoError(t, err)
	assert.Equal(t, []id.ProposalID{p.ID}, ids)
}
