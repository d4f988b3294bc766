//go:build integration

package roster_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ringside/internal/roster"
	id "ringside/pkg/domain"
	"ringside/pkg/platform/sentinel"
	txcontext "ringside/pkg/platform/tx"
	"ringside/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *roster.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = roster.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background()))
}

func (s *PostgresStoreSuite) TestFindBoxer() {
	ctx := context.Background()
	b := roster.Boxer{ID: id.BoxerID(uuid.New()), ClubID: id.ClubID(uuid.New()), Name: "A. Boxer", Active: true}
	s.Require().NoError(s.store.Upsert(ctx, b))

	got, err := s.store.FindBoxer(ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(b, *got)

	b.Active = false
	s.Require().NoError(s.store.Upsert(ctx, b))
	got, err = s.store.FindBoxer(ctx, b.ID)
	s.Require().NoError(err)
	s.False(got.Active)
}

func (s *PostgresStoreSuite) TestFindBoxerNotFound() {
	_, err := s.store.FindBoxer(context.Background(), id.BoxerID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestJoinsContextTransaction() {
	ctx := context.Background()
	sqlTx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	defer func() { _ = sqlTx.Rollback() }()

	txCtx := txcontext.WithTx(ctx, sqlTx)
	b := roster.Boxer{ID: id.BoxerID(uuid.New()), ClubID: id.ClubID(uuid.New()), Name: "Uncommitted", Active: true}
	s.Require().NoError(s.store.Upsert(txCtx, b))

	got, err := s.store.FindBoxer(txCtx, b.ID)
	s.Require().NoError(err)
	s.Equal(b.Name, got.Name)

	_, err = s.store.FindBoxer(ctx, b.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(sqlTx.Rollback())
	_, err = s.store.FindBoxer(ctx, b.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
