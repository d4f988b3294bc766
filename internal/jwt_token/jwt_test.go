package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "ringside/pkg/domain"
	dErrors "ringside/pkg/domain-errors"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)

var club = id.ClubID(uuid.New())

func coach() id.Identity {
	c := club
	return id.Identity{UID: "coach-1", ClubID: &c}
}

func Test_GenerateAccessToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(coach(), time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "coach-1", claims.UserID)
	assert.Equal(t, club.String(), claims.ClubID)
	assert.False(t, claims.IsPlatformAdmin)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeUnauthenticated, dErrors.CodeOf(err))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(coach(), -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, "token has expired", dErrors.MessageOf(err))
}

func Test_ValidateToken_WrongAudience(t *testing.T) {
	other := NewJWTService("test-signing-key", "test-issuer", "another-audience")
	token, err := other.GenerateAccessToken(coach(), time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.Equal(t, dErrors.CodeUnauthenticated, dErrors.CodeOf(err))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewJWTService("another-key", "test-issuer", "test-audience")
	token, err := other.GenerateAccessToken(coach(), time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.Equal(t, dErrors.CodeUnauthenticated, dErrors.CodeOf(err))
}

func TestIdentityVerifier(t *testing.T) {
	verifier := NewIdentityVerifier(jwtService)

	t.Run("club member", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(coach(), time.Hour)
		require.NoError(t, err)

		identity, err := verifier.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, id.UserID("coach-1"), identity.UID)
		require.NotNil(t, identity.ClubID)
		assert.Equal(t, club, *identity.ClubID)
	})

	t.Run("admin without club", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(id.Identity{
			UID: "ops-1", Claims: id.Claims{IsPlatformAdmin: true},
		}, time.Hour)
		require.NoError(t, err)

		identity, err := verifier.Verify(token)
		require.NoError(t, err)
		assert.Nil(t, identity.ClubID)
		assert.True(t, identity.IsPlatformAdmin())
	})

	t.Run("malformed club claim", func(t *testing.T) {
		_, err := ToIdentity(&Claims{UserID: "coach-1", ClubID: "not-a-uuid"})
		assert.Equal(t, dErrors.CodeUnauthenticated, dErrors.CodeOf(err))
	})

	t.Run("missing subject", func(t *testing.T) {
		_, err := ToIdentity(&Claims{})
		assert.Equal(t, dErrors.CodeUnauthenticated, dErrors.CodeOf(err))
	})
}
