//go:build integration

package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ringside/internal/scheduler"
	"ringside/pkg/testutil/containers"
)

type RedisLockerSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisLockerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockerSuite))
}

func (s *RedisLockerSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisLockerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLockerSuite) TestSingleHolder() {
	ctx := context.Background()
	first := scheduler.NewRedisLocker(s.redis.Client, "")
	second := scheduler.NewRedisLocker(s.redis.Client, "")

	ok, err := first.Acquire(ctx, time.Minute)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = second.Acquire(ctx, time.Minute)
	s.Require().NoError(err)
	s.False(ok, "second replica must not take a held lease")

	s.Require().NoError(first.Release(ctx))
	ok, err = second.Acquire(ctx, time.Minute)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *RedisLockerSuite) TestReleaseIgnoresForeignLease() {
	ctx := context.Background()
	owner := scheduler.NewRedisLocker(s.redis.Client, "lease")
	other := scheduler.NewRedisLocker(s.redis.Client, "lease")

	ok, err := owner.Acquire(ctx, time.Minute)
	s.Require().NoError(err)
	s.Require().True(ok)

	s.Require().NoError(other.Release(ctx))
	exists, err := s.redis.Client.Exists(ctx, "lease").Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists)
}

func (s *RedisLockerSuite) TestLeaseExpires() {
	ctx := context.Background()
	first := scheduler.NewRedisLocker(s.redis.Client, "short")
	second := scheduler.NewRedisLocker(s.redis.Client, "short")

	ok, err := first.Acquire(ctx, 200*time.Millisecond)
	s.Require().NoError(err)
	s.Require().True(ok)

	s.Eventually(func() bool {
		ok, err := second.Acquire(ctx, time.Minute)
		return err == nil && ok
	}, 3*time.Second, 50*time.Millisecond)
}
