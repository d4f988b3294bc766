//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ringside/internal/matchmaking/models"
	"ringside/internal/matchmaking/store"
	id "ringside/pkg/domain"
	"ringside/pkg/platform/sentinel"
	"ringside/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background()))
}

func (s *PostgresStoreSuite) newPending(boxer id.BoxerID, start time.Time) *models.Proposal {
	p, err := models.NewProposal(id.ProposalID(uuid.New()),
		id.ClubID(uuid.New()), id.ClubID(uuid.New()),
		boxer, id.BoxerID(uuid.New()),
		models.Window{Start: start, End: start.Add(48 * time.Hour)},
		nil, "coach-1", s.now)
	s.Require().NoError(err)
	p.ApplySubmission(s.now)
	return p
}

func (s *PostgresStoreSuite) insert(p *models.Proposal) {
	s.Require().NoError(s.store.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertProposal(ctx, p)
	}))
}

func (s *PostgresStoreSuite) load(proposalID id.ProposalID) (*models.Proposal, error) {
	var got *models.Proposal
	err := s.store.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		got, err = tx.GetProposal(ctx, proposalID)
		return err
	})
	return got, err
}

func (s *PostgresStoreSuite) TestProposalRoundTrip() {
	show := id.ShowID(uuid.New())
	p := s.newPending(id.BoxerID(uuid.New()), s.now.Add(24*time.Hour))
	p.ShowID = &show
	s.insert(p)

	got, err := s.load(p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
	s.Equal(p.ProposingClubID, got.ProposingClubID)
	s.Equal(p.RespondingBoxerID, got.RespondingBoxerID)
	s.Equal(models.ProposalPending, got.State)
	s.True(p.Window.Start.Equal(got.Window.Start))
	s.True(p.Window.End.Equal(got.Window.End))
	s.Require().NotNil(got.ShowID)
	s.Equal(show, *got.ShowID)
	s.Require().NotNil(got.ExpiresAt)
	s.True(p.ExpiresAt.Equal(*got.ExpiresAt))
}

func (s *PostgresStoreSuite) TestGetProposalNotFound() {
	_, err := s.load(id.ProposalID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDuplicateProposalIsConflict() {
	p := s.newPending(id.BoxerID(uuid.New()), s.now)
	s.insert(p)

	err := s.store.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertProposal(ctx, p)
	})
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestHasPendingConflict() {
	boxer := id.BoxerID(uuid.New())
	existing := s.newPending(boxer, s.now.Add(24*time.Hour))
	s.insert(existing)

	check := func(boxers []id.BoxerID, window models.Window, exclude id.ProposalID) bool {
		var conflict bool
		s.Require().NoError(s.store.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			var err error
			conflict, err = tx.HasPendingConflict(ctx, boxers, window, exclude)
			return err
		}))
		return conflict
	}

	s.Run("overlapping window for the same boxer conflicts", func() {
		w := models.Window{Start: existing.Window.End, End: existing.Window.End.Add(24 * time.Hour)}
		s.True(check([]id.BoxerID{boxer}, w, id.ProposalID(uuid.New())))
	})

	s.Run("disjoint window does not conflict", func() {
		start := existing.Window.End.Add(time.Second)
		w := models.Window{Start: start, End: start.Add(time.Hour)}
		s.False(check([]id.BoxerID{boxer}, w, id.ProposalID(uuid.New())))
	})

	s.Run("the proposal itself is excluded", func() {
		s.False(check([]id.BoxerID{boxer}, existing.Window, existing.ID))
	})

	s.Run("other boxers do not conflict", func() {
		s.False(check([]id.BoxerID{id.BoxerID(uuid.New())}, existing.Window, id.ProposalID(uuid.New())))
	})
}

func (s *PostgresStoreSuite) TestFailedCallbackRollsBack() {
	p := s.newPending(id.BoxerID(uuid.New()), s.now)
	boom := errors.New("boom")

	err := s.store.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertProposal(ctx, p); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.load(p.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestAcceptCreatesBoutAndSlot() {
	show := id.ShowID(uuid.New())
	p := s.newPending(id.BoxerID(uuid.New()), s.now)
	p.ShowID = &show
	s.insert(p)

	boutID := id.BoutID(uuid.New())
	err := s.store.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		loaded, err := tx.GetProposal(ctx, p.ID)
		if err != nil {
			return err
		}
		loaded.ApplyAcceptance(s.now)
		if err := tx.UpdateProposal(ctx, loaded); err != nil {
			return err
		}
		bout := models.NewBoutFromProposal(boutID, loaded, loaded.ShowID, s.now)
		if err := tx.InsertBout(ctx, bout); err != nil {
			return err
		}
		return tx.InsertSlot(ctx, models.NewFilledSlot(id.SlotID(uuid.New()), show, boutID, s.now))
	})
	s.Require().NoError(err)

	err = s.store.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		bout, err := tx.GetBout(ctx, boutID)
		if err != nil {
			return err
		}
		s.Equal(p.ID, bout.ProposalID)
		s.Equal(models.BoutConfirmed, bout.State)

		slot, err := tx.GetSlotByBout(ctx, boutID)
		if err != nil {
			return err
		}
		s.Equal(models.SlotFilled, slot.State)
		s.Equal(show, slot.ShowID)
		return nil
	})
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestSecondBoutForProposalIsConflict() {
	p := s.newPending(id.BoxerID(uuid.New()), s.now)
	s.insert(p)

	insertBout := func() error {
		return s.store.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			return tx.InsertBout(ctx, models.NewBoutFromProposal(id.BoutID(uuid.New()), p, nil, s.now))
		})
	}
	s.Require().NoError(insertBout())
	s.ErrorIs(insertBout(), sentinel.ErrConflict)
}

// Concurrent responders race on the same pending proposal; exactly one may
// produce a bout.
func (s *PostgresStoreSuite) TestConcurrentAcceptYieldsSingleBout() {
	p := s.newPending(id.BoxerID(uuid.New()), s.now)
	s.insert(p)

	const workers = 8
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
				loaded, err := tx.GetProposal(ctx, p.ID)
				if err != nil {
					return err
				}
				if err := loaded.CanRespond(s.now); err != nil {
					return err
				}
				loaded.ApplyAcceptance(s.now)
				if err := tx.UpdateProposal(ctx, loaded); err != nil {
					return err
				}
				return tx.InsertBout(ctx, models.NewBoutFromProposal(id.BoutID(uuid.New()), loaded, nil, s.now))
			})
			if err == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), accepted.Load())
	var bouts int
	s.Require().NoError(s.postgres.DB.QueryRowContext(context.Background(),
		`SELECT count(*) FROM bouts WHERE proposal_id = $1`, uuid.UUID(p.ID)).Scan(&bouts))
	s.Equal(1, bouts)
}

func (s *PostgresStoreSuite) TestListLapsedProposals() {
	lapsed := s.newPending(id.BoxerID(uuid.New()), s.now)
	fresh := s.newPending(id.BoxerID(uuid.New()), s.now)
	later := s.now.Add(models.ProposalTTL * 2)
	fresh.ExpiresAt = &later
	s.insert(lapsed)
	s.insert(fresh)

	cutoff := s.now.Add(models.ProposalTTL)
	ids, err := s.store.ListLapsedProposals(context.Background(), cutoff, 10)
	s.Require().NoError(err)
	s.Equal([]id.ProposalID{lapsed.ID}, ids)
}

func (s *PostgresStoreSuite) TestTokenRoundTrip() {
	tok := models.NewDeepLinkToken(id.TokenID(uuid.New()),
		models.TargetRef{Type: models.TargetProposal, ID: uuid.NewString()}, "coach-1", s.now)

	s.Require().NoError(s.store.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertToken(ctx, tok)
	}))

	err := s.store.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		loaded, err := tx.GetToken(ctx, tok.ID)
		if err != nil {
			return err
		}
		s.Equal(models.TokenIssued, loaded.State)
		s.False(loaded.Consumed)
		loaded.ApplyRedemption("coach-2", s.now.Add(time.Hour))
		return tx.UpdateToken(ctx, loaded)
	})
	s.Require().NoError(err)

	err = s.store.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		loaded, err := tx.GetToken(ctx, tok.ID)
		if err != nil {
			return err
		}
		s.True(loaded.Consumed)
		s.Equal(models.TokenConsumed, loaded.State)
		s.Require().NotNil(loaded.ConsumedBy)
		s.Equal(id.UserID("coach-2"), *loaded.ConsumedBy)
		return nil
	})
	s.Require().NoError(err)
}
