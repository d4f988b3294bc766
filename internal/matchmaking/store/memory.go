package store

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"ringside/internal/matchmaking/models"
	id "ringside/pkg/domain"
	"ringside/pkg/platform/sentinel"
)

type memoryData struct {
	proposals       map[id.ProposalID]*models.Proposal
	bouts           map[id.BoutID]*models.Bout
	boutsByProposal map[id.ProposalID]id.BoutID
	slots           map[id.SlotID]*models.Slot
	tokens          map[id.TokenID]*models.DeepLinkToken
}

func newMemoryData() *memoryData {
	return &memoryData{
		proposals:       make(map[id.ProposalID]*models.Proposal),
		bouts:           make(map[id.BoutID]*models.Bout),
		boutsByProposal: make(map[id.ProposalID]id.BoutID),
		slots:           make(map[id.SlotID]*models.Slot),
		tokens:          make(map[id.TokenID]*models.DeepLinkToken),
	}
}

// snapshot copies the maps. Stored values are never mutated in place, so a
// shallow copy of each map is a consistent snapshot.
func (d *memoryData) snapshot() *memoryData {
	return &memoryData{
		proposals:       maps.Clone(d.proposals),
		bouts:           maps.Clone(d.bouts),
		boutsByProposal: maps.Clone(d.boutsByProposal),
		slots:           maps.Clone(d.slots),
		tokens:          maps.Clone(d.tokens),
	}
}

// InMemoryStore serializes transactions under one mutex and restores a
// snapshot when the callback fails, so a failed transition leaves no trace.
type InMemoryStore struct {
	mu   sync.Mutex
	data *memoryData
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{data: newMemoryData()}
}

func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.data.snapshot()
	if err := fn(ctx, &memoryTx{data: s.data}); err != nil {
		s.data = snapshot
		return err
	}
	// A cancelled caller must not observe a commit it gave up on.
	if err := ctx.Err(); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *InMemoryStore) ListLapsedProposals(_ context.Context, cutoff time.Time, limit int) ([]id.ProposalID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lapsed []*models.Proposal
	for _, p := range s.data.proposals {
		if p.IsLapsed(cutoff) {
			lapsed = append(lapsed, p)
		}
	}
	sort.Slice(lapsed, func(i, j int) bool {
		return lapsed[i].ExpiresAt.Before(*lapsed[j].ExpiresAt)
	})
	if limit > 0 && len(lapsed) > limit {
		lapsed = lapsed[:limit]
	}
	ids := make([]id.ProposalID, len(lapsed))
	for i, p := range lapsed {
		ids[i] = p.ID
	}
	return ids, nil
}

// GetProposal reads outside a transaction. Tests only.
func (s *InMemoryStore) GetProposal(_ context.Context, proposalID id.ProposalID) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.proposals[proposalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

// BoutForProposal returns the bout created from proposalID. Tests only.
func (s *InMemoryStore) BoutForProposal(_ context.Context, proposalID id.ProposalID) (*models.Bout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	boutID, ok := s.data.boutsByProposal[proposalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.data.bouts[boutID].Clone(), nil
}

// GetToken reads outside a transaction. Tests only.
func (s *InMemoryStore) GetToken(_ context.Context, tokenID id.TokenID) (*models.DeepLinkToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.data.tokens[tokenID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return t.Clone(), nil
}

// CountBouts returns the number of stored bouts. Tests only.
func (s *InMemoryStore) CountBouts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.bouts)
}

type memoryTx struct {
	data *memoryData
}

func (t *memoryTx) GetProposal(_ context.Context, proposalID id.ProposalID) (*models.Proposal, error) {
	p, ok := t.data.proposals[proposalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

func (t *memoryTx) InsertProposal(_ context.Context, p *models.Proposal) error {
	if _, ok := t.data.proposals[p.ID]; ok {
		return fmt.Errorf("proposal %s: %w", p.ID, sentinel.ErrConflict)
	}
	t.data.proposals[p.ID] = p.Clone()
	return nil
}

func (t *memoryTx) UpdateProposal(_ context.Context, p *models.Proposal) error {
	if _, ok := t.data.proposals[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	t.data.proposals[p.ID] = p.Clone()
	return nil
}

func (t *memoryTx) HasPendingConflict(_ context.Context, boxers []id.BoxerID, window models.Window, exclude id.ProposalID) (bool, error) {
	for _, p := range t.data.proposals {
		if p.ID == exclude || p.State != models.ProposalPending {
			continue
		}
		if !p.Window.Overlaps(window) {
			continue
		}
		for _, b := range p.Boxers() {
			for _, want := range boxers {
				if b == want {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

func (t *memoryTx) GetBout(_ context.Context, boutID id.BoutID) (*models.Bout, error) {
	b, ok := t.data.bouts[boutID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return b.Clone(), nil
}

func (t *memoryTx) InsertBout(_ context.Context, b *models.Bout) error {
	if _, ok := t.data.boutsByProposal[b.ProposalID]; ok {
		return fmt.Errorf("bout for proposal %s: %w", b.ProposalID, sentinel.ErrConflict)
	}
	t.data.bouts[b.ID] = b.Clone()
	t.data.boutsByProposal[b.ProposalID] = b.ID
	return nil
}

func (t *memoryTx) UpdateBout(_ context.Context, b *models.Bout) error {
	if _, ok := t.data.bouts[b.ID]; !ok {
		return sentinel.ErrNotFound
	}
	t.data.bouts[b.ID] = b.Clone()
	return nil
}

func (t *memoryTx) GetSlotByBout(_ context.Context, boutID id.BoutID) (*models.Slot, error) {
	for _, s := range t.data.slots {
		if s.BoutID != nil && *s.BoutID == boutID && s.State == models.SlotFilled {
			return s.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (t *memoryTx) InsertSlot(_ context.Context, s *models.Slot) error {
	if _, ok := t.data.slots[s.ID]; ok {
		return fmt.Errorf("slot %s: %w", s.ID, sentinel.ErrConflict)
	}
	t.data.slots[s.ID] = s.Clone()
	return nil
}

func (t *memoryTx) UpdateSlot(_ context.Context, s *models.Slot) error {
	if _, ok := t.data.slots[s.ID]; !ok {
		return sentinel.ErrNotFound
	}
	t.data.slots[s.ID] = s.Clone()
	return nil
}

func (t *memoryTx) GetToken(_ context.Context, tokenID id.TokenID) (*models.DeepLinkToken, error) {
	tok, ok := t.data.tokens[tokenID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return tok.Clone(), nil
}

func (t *memoryTx) InsertToken(_ context.Context, tok *models.DeepLinkToken) error {
	if _, ok := t.data.tokens[tok.ID]; ok {
		return fmt.Errorf("token %s: %w", tok.ID, sentinel.ErrConflict)
	}
	t.data.tokens[tok.ID] = tok.Clone()
	return nil
}

func (t *memoryTx) UpdateToken(_ context.Context, tok *models.DeepLinkToken) error {
	if _, ok := t.data.tokens[tok.ID]; !ok {
		return sentinel.ErrNotFound
	}
	t.data.tokens[tok.ID] = tok.Clone()
	return nil
}
