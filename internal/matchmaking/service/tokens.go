package service

import (
	"context"
	"errors"
	"time"

	"ringside/internal/access"
	"ringside/internal/matchmaking/models"
	"ringside/internal/matchmaking/store"
	id "ringside/pkg/domain"
	dErrors "ringside/pkg/domain-errors"
	audit "ringside/pkg/platform/audit"
	"ringside/pkg/platform/sentinel"
	"ringside/pkg/requestcontext"
)

// IssueToken mints a single-use deep link to a proposal or bout for a caller
// affiliated with one of its clubs.
func (s *Service) IssueToken(ctx context.Context, targetType models.TargetType, rawTargetID string) (_ *models.DeepLinkToken, err error) {
	ctx, end := s.startSpan(ctx, "issue_token")
	defer end(&err)

	identity, err := requireIdentity(ctx, access.ActionIssueToken)
	if err != nil {
		return nil, err
	}
	if !targetType.Valid() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "target type must be proposal or bout")
	}

	now := requestcontext.Now(ctx).UTC()
	var (
		token *models.DeepLinkToken
		club  id.ClubID
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		clubs, targetID, err := resolveTarget(ctx, tx, targetType, rawTargetID)
		if err != nil {
			return err
		}
		if err := access.Authorize(identity, access.ActionIssueToken, access.ClubTarget(clubs...)).Err(); err != nil {
			return err
		}
		club = clubs[0]
		token = models.NewDeepLinkToken(id.TokenID(s.newID()), models.TargetRef{Type: targetType, ID: targetID}, identity.UID, now)
		return tx.InsertToken(ctx, token)
	})
	if err != nil {
		return nil, translate(err, string(targetType)+" not found", "issue token")
	}

	s.countTransition("token", string(token.State))
	actorID, actorType := audit.ActorFor(identity)
	s.audit.Record(ctx, audit.Entry{
		Action:       audit.ActionTokenIssued,
		ActorID:      actorID,
		ActorType:    actorType,
		TargetType:   audit.TargetToken,
		TargetID:     token.ID.String(),
		TargetClubID: audit.ClubRef(club),
		Details: map[string]any{
			"targetType": string(token.Target.Type),
			"targetId":   token.Target.ID,
			"expiresAt":  token.ExpiresAt,
		},
	})
	return token, nil
}

func resolveTarget(ctx context.Context, tx store.Tx, targetType models.TargetType, raw string) ([]id.ClubID, string, error) {
	switch targetType {
	case models.TargetProposal:
		proposalID, err := id.ParseProposalID(raw)
		if err != nil {
			return nil, "", err
		}
		p, err := tx.GetProposal(ctx, proposalID)
		if err != nil {
			return nil, "", err
		}
		return []id.ClubID{p.ProposingClubID, p.RespondingClubID}, p.ID.String(), nil
	default:
		boutID, err := id.ParseBoutID(raw)
		if err != nil {
			return nil, "", err
		}
		b, err := tx.GetBout(ctx, boutID)
		if err != nil {
			return nil, "", err
		}
		return b.Clubs(), b.ID.String(), nil
	}
}

// RedeemToken resolves a deep link exactly once. The check and the consume
// flip happen under one row lock, so of two concurrent redemptions one wins
// and the other sees failed-precondition. A lapsed token is persisted as
// expired before the failure is returned.
func (s *Service) RedeemToken(ctx context.Context, rawID string) (_ *models.TargetRef, err error) {
	ctx, end := s.startSpan(ctx, "redeem_token")
	defer end(&err)

	tokenID, err := id.ParseTokenID(rawID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "token not found")
	}

	identity := requestcontext.Identity(ctx)
	now := requestcontext.Now(ctx).UTC()
	var (
		token  *models.DeepLinkToken
		denied error
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		token, denied = nil, nil
		tok, err := tx.GetToken(ctx, tokenID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}

		status := tokenStatus(tok, now)
		decision := access.Authorize(identity, access.ActionRedeemToken, access.TokenTarget(status))
		if decision.Allowed {
			var redeemer id.UserID
			if identity != nil {
				redeemer = identity.UID
			}
			tok.ApplyRedemption(redeemer, now)
			token = tok
			return tx.UpdateToken(ctx, tok)
		}

		// Persist lazy expiry, then report the denial after commit.
		if tok != nil && tok.IsLapsed(now) {
			tok.ApplyExpiry()
			denied = decision.Err()
			return tx.UpdateToken(ctx, tok)
		}
		return decision.Err()
	})
	if err != nil {
		return nil, translate(err, "token not found", "redeem token")
	}
	if denied != nil {
		s.countTransition("token", string(models.TokenExpired))
		return nil, denied
	}

	s.countTransition("token", string(token.State))
	actorID, actorType := audit.ActorFor(identity)
	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionTokenRedeemed,
		ActorID:    actorID,
		ActorType:  actorType,
		TargetType: audit.TargetToken,
		TargetID:   token.ID.String(),
		Details: map[string]any{
			"targetType": string(token.Target.Type),
			"targetId":   token.Target.ID,
		},
	})
	target := token.Target
	return &target, nil
}

func tokenStatus(tok *models.DeepLinkToken, now time.Time) access.TokenStatus {
	switch {
	case tok == nil:
		return access.TokenUnresolved
	case tok.Consumed || tok.State == models.TokenConsumed:
		return access.TokenConsumed
	case tok.State == models.TokenExpired || tok.IsLapsed(now):
		return access.TokenExpired
	default:
		return access.TokenLive
	}
}
