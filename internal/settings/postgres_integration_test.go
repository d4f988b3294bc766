//go:build integration

package settings_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ringside/internal/settings"
	audit "ringside/pkg/platform/audit"
	auditmemory "ringside/pkg/platform/audit/store/memory"
	"ringside/pkg/platform/sentinel"
	"ringside/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *settings.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = settings.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background()))
}

func (s *PostgresStoreSuite) TestMissingDocumentIsNotFound() {
	_, err := s.store.Get(context.Background())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestPutBumpsVersion() {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	first, err := s.store.PutKillSwitch(ctx, true, "seed", now)
	s.Require().NoError(err)
	s.Equal(int64(1), first.Version)

	second, err := s.store.PutKillSwitch(ctx, false, "admin-1", now.Add(time.Minute))
	s.Require().NoError(err)
	s.Equal(int64(2), second.Version)
	s.False(second.ProposalKillSwitch)

	got, err := s.store.Get(ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), got.Version)
	s.Equal("admin-1", got.UpdatedBy)
	s.True(now.Add(time.Minute).Equal(got.UpdatedAt))
}

func (s *PostgresStoreSuite) TestSeedEngagesKillSwitch() {
	ctx := context.Background()
	_, err := s.store.PutKillSwitch(ctx, false, "admin-1", time.Now())
	s.Require().NoError(err)

	doc, err := settings.Seed(ctx, s.store, audit.NewWriter(auditmemory.NewInMemoryStore()), "staging", "development", time.Now())
	s.Require().NoError(err)
	s.True(doc.ProposalKillSwitch)
	s.Equal(settings.SeedActor, doc.UpdatedBy)

	gate := settings.NewGate(s.store, nil)
	blocked, err := gate.IsProposalCreationBlocked(ctx)
	s.Require().NoError(err)
	s.True(blocked)
}

func (s *PostgresStoreSuite) TestSeedRefusesProduction() {
	_, err := settings.Seed(context.Background(), s.store, audit.NewWriter(auditmemory.NewInMemoryStore()), "production", "development", time.Now())
	s.Require().Error(err)

	_, err = s.store.Get(context.Background())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
