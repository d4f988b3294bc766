package service

import (
	"context"
	"errors"
	"strings"

	"ringside/internal/access"
	"ringside/internal/matchmaking/models"
	"ringside/internal/matchmaking/store"
	id "ringside/pkg/domain"
	dErrors "ringside/pkg/domain-errors"
	audit "ringside/pkg/platform/audit"
	"ringside/pkg/platform/sentinel"
	"ringside/pkg/requestcontext"
)

// VoidBout cancels a confirmed bout on behalf of either club. A filled slot
// holding the bout is released in the same transaction.
func (s *Service) VoidBout(ctx context.Context, rawID, reason string) (_ *models.Bout, err error) {
	ctx, end := s.startSpan(ctx, "void_bout")
	defer end(&err)

	identity, err := requireIdentity(ctx, access.ActionVoidBout)
	if err != nil {
		return nil, err
	}
	boutID, err := id.ParseBoutID(rawID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "void reason is required")
	}

	now := requestcontext.Now(ctx).UTC()
	var (
		bout     *models.Bout
		released *models.Slot
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		released = nil
		b, err := tx.GetBout(ctx, boutID)
		if err != nil {
			return err
		}
		if err := access.Authorize(identity, access.ActionVoidBout, access.ClubTarget(b.Clubs()...)).Err(); err != nil {
			return err
		}
		if err := b.CanVoid(reason); err != nil {
			return err
		}
		b.ApplyVoid(reason, now)
		if err := tx.UpdateBout(ctx, b); err != nil {
			return err
		}
		bout = b

		slot, err := tx.GetSlotByBout(ctx, b.ID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := slot.CanRelease(); err != nil {
			return err
		}
		slot.ApplyRelease(now)
		released = slot
		return tx.UpdateSlot(ctx, slot)
	})
	if err != nil {
		return nil, translate(err, "bout not found", "void bout")
	}

	s.countTransition("bout", string(bout.State))
	details := map[string]any{"reason": bout.VoidReason}
	if released != nil {
		s.countTransition("slot", string(released.State))
		details["releasedSlotId"] = released.ID.String()
	}
	actorID, actorType := audit.ActorFor(identity)
	s.audit.Record(ctx, audit.Entry{
		Action:       audit.ActionBoutVoided,
		ActorID:      actorID,
		ActorType:    actorType,
		TargetType:   audit.TargetBout,
		TargetID:     bout.ID.String(),
		TargetClubID: audit.ClubRef(bout.RedClubID),
		Details:      details,
	})
	return bout, nil
}
