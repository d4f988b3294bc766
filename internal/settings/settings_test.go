package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ringside/pkg/domain-errors"
	audit "ringside/pkg/platform/audit"
	auditmemory "ringside/pkg/platform/audit/store/memory"
)

func TestGate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("missing document blocks", func(t *testing.T) {
		gate := NewGate(NewInMemory(), nil)
		blocked, err := gate.IsProposalCreationBlocked(ctx)
		require.NoError(t, err)
		assert.True(t, blocked)
	})

	t.Run("read failure blocks with internal error", func(t *testing.T) {
		store := NewInMemory()
		store.FailReads(errors.New("connection refused"))
		blocked, err := NewGate(store, nil).IsProposalCreationBlocked(ctx)
		assert.True(t, blocked)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	t.Run("flip takes effect on next call", func(t *testing.T) {
		store := NewInMemory()
		gate := NewGate(store, nil)

		_, err := store.PutKillSwitch(ctx, false, "admin", now)
		require.NoError(t, err)
		blocked, err := gate.IsProposalCreationBlocked(ctx)
		require.NoError(t, err)
		assert.False(t, blocked)

		_, err = store.PutKillSwitch(ctx, true, "admin", now)
		require.NoError(t, err)
		blocked, err = gate.IsProposalCreationBlocked(ctx)
		require.NoError(t, err)
		assert.True(t, blocked)
	})
}

func TestPutKillSwitchBumpsVersion(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	first, err := store.PutKillSwitch(ctx, true, "a", time.Now())
	require.NoError(t, err)
	second, err := store.PutKillSwitch(ctx, false, "b", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)
	assert.Equal(t, int64(2), second.Version)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name       string
		target     string
		runtimeEnv string
		wantErr    bool
	}{
		{"development", "development", "", false},
		{"emulator is case insensitive", "Emulator", "development", false},
		{"staging", "staging", "staging", false},
		{"missing target", "", "", true},
		{"production target", "production", "", true},
		{"unknown target", "qa-cluster", "", true},
		{"running in production", "staging", "production", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewInMemory()
			auditStore := auditmemory.NewInMemoryStore()
			doc, err := Seed(ctx, store, audit.NewWriter(auditStore), tt.target, tt.runtimeEnv, now)
			entries, listErr := auditStore.List(ctx, audit.Filter{})
			require.NoError(t, listErr)
			if tt.wantErr {
				require.Error(t, err)
				_, getErr := store.Get(ctx)
				assert.Error(t, getErr, "nothing written on refusal")
				assert.Empty(t, entries)
				return
			}
			require.NoError(t, err)
			assert.True(t, doc.ProposalKillSwitch)
			assert.Equal(t, SeedActor, doc.UpdatedBy)

			require.Len(t, entries, 1)
			assert.Equal(t, audit.ActionSettingsUpdated, entries[0].Action)
			assert.Equal(t, audit.ActorSystem, entries[0].ActorType)
			assert.Equal(t, SeedActor, entries[0].ActorID)
			assert.Equal(t, DocumentID, entries[0].TargetID)
			assert.Equal(t, true, entries[0].Details["proposalKillSwitch"])
		})
	}

	t.Run("audit failure fails the seed", func(t *testing.T) {
		broken := audit.NewWriter(failingAuditStore{})
		_, err := Seed(ctx, NewInMemory(), broken, "test", "", now)
		require.ErrorContains(t, err, "audit seeded admin settings")
	})
}

type failingAuditStore struct{}

func (failingAuditStore) Append(context.Context, audit.Entry) error {
	return errors.New("disk full")
}

func (failingAuditStore) List(context.Context, audit.Filter) ([]audit.Entry, error) {
	return nil, nil
}
