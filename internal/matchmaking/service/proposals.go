package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"ringside/internal/access"
	"ringside/internal/matchmaking/models"
	"ringside/internal/matchmaking/store"
	id "ringside/pkg/domain"
	dErrors "ringside/pkg/domain-errors"
	audit "ringside/pkg/platform/audit"
	"ringside/pkg/platform/sentinel"
	"ringside/pkg/requestcontext"
)

// Decision is a responding club's answer to a proposal.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// CreateProposalInput carries raw caller input; ids are validated here.
type CreateProposalInput struct {
	ProposingClubID   string
	RespondingClubID  string
	ProposingBoxerID  string
	RespondingBoxerID string
	WindowStart       time.Time
	WindowEnd         time.Time
	ShowID            string
	Draft             bool
	// BodyErr is set when the request body could not be decoded. It is
	// reported only after the kill switch has been consulted.
	BodyErr error
}

type parsedProposal struct {
	proposingClub   id.ClubID
	respondingClub  id.ClubID
	proposingBoxer  id.BoxerID
	respondingBoxer id.BoxerID
	showID          *id.ShowID
}

func parseProposalInput(in CreateProposalInput) (parsedProposal, error) {
	var (
		out parsedProposal
		err error
	)
	if out.proposingClub, err = id.ParseClubID(in.ProposingClubID); err != nil {
		return out, err
	}
	if out.respondingClub, err = id.ParseClubID(in.RespondingClubID); err != nil {
		return out, err
	}
	if out.proposingBoxer, err = id.ParseBoxerID(in.ProposingBoxerID); err != nil {
		return out, err
	}
	if out.respondingBoxer, err = id.ParseBoxerID(in.RespondingBoxerID); err != nil {
		return out, err
	}
	if out.showID, err = parseOptionalShow(in.ShowID); err != nil {
		return out, err
	}
	return out, nil
}

func parseOptionalShow(raw string) (*id.ShowID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	show, err := id.ParseShowID(raw)
	if err != nil {
		return nil, err
	}
	return &show, nil
}

// CreateProposal records a match offer from the caller's club. A non-draft
// proposal enters Pending immediately with a 14 day response window.
func (s *Service) CreateProposal(ctx context.Context, in CreateProposalInput) (_ *models.Proposal, err error) {
	ctx, end := s.startSpan(ctx, "create_proposal", attribute.Bool("draft", in.Draft))
	defer end(&err)

	if err := s.checkKillSwitch(ctx); err != nil {
		return nil, err
	}
	identity := requestcontext.Identity(ctx)
	if identity == nil {
		return nil, access.Authorize(nil, access.ActionCreateProposal, access.Target{}).Err()
	}
	if in.BodyErr != nil {
		return nil, dErrors.Wrap(in.BodyErr, dErrors.CodeInvalidArgument, "request body must be a JSON object with known fields")
	}
	parsed, err := parseProposalInput(in)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(identity, access.ActionCreateProposal, access.ClubTarget(parsed.proposingClub)).Err(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx).UTC()
	proposal, err := models.NewProposal(
		id.ProposalID(s.newID()),
		parsed.proposingClub, parsed.respondingClub,
		parsed.proposingBoxer, parsed.respondingBoxer,
		models.Window{Start: in.WindowStart, End: in.WindowEnd},
		parsed.showID, identity.UID, now,
	)
	if err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := s.checkBoxer(ctx, parsed.proposingBoxer, parsed.proposingClub); err != nil {
			return err
		}
		if err := s.checkBoxer(ctx, parsed.respondingBoxer, parsed.respondingClub); err != nil {
			return err
		}
		if !in.Draft {
			if err := checkConflict(ctx, tx, proposal); err != nil {
				return err
			}
			proposal.ApplySubmission(now)
		}
		return tx.InsertProposal(ctx, proposal)
	})
	if err != nil {
		return nil, translate(err, "proposal not found", "create proposal")
	}

	action := audit.ActionProposalCreated
	if in.Draft {
		action = audit.ActionProposalDrafted
	}
	s.countTransition("proposal", string(proposal.State))
	s.recordProposal(ctx, action, proposal, map[string]any{
		"respondingClubId": proposal.RespondingClubID.String(),
		"state":            string(proposal.State),
	})
	return proposal, nil
}

// SubmitProposal moves a draft to Pending. The kill switch and the conflict
// check apply as for a direct creation.
func (s *Service) SubmitProposal(ctx context.Context, rawID string) (_ *models.Proposal, err error) {
	ctx, end := s.startSpan(ctx, "submit_proposal")
	defer end(&err)

	if err := s.checkKillSwitch(ctx); err != nil {
		return nil, err
	}
	identity, err := requireIdentity(ctx, access.ActionSubmitProposal)
	if err != nil {
		return nil, err
	}
	proposalID, err := id.ParseProposalID(rawID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx).UTC()
	var proposal *models.Proposal
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.GetProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if err := access.Authorize(identity, access.ActionSubmitProposal, access.ClubTarget(p.ProposingClubID)).Err(); err != nil {
			return err
		}
		if err := p.CanSubmit(); err != nil {
			return err
		}
		if err := checkConflict(ctx, tx, p); err != nil {
			return err
		}
		p.ApplySubmission(now)
		proposal = p
		return tx.UpdateProposal(ctx, p)
	})
	if err != nil {
		return nil, translate(err, "proposal not found", "submit proposal")
	}

	s.countTransition("proposal", string(proposal.State))
	s.recordProposal(ctx, audit.ActionProposalSubmitted, proposal, nil)
	return proposal, nil
}

// RespondResult is the outcome of a response. BoutID and SlotID are set on
// acceptance; SlotID only when a show was supplied.
type RespondResult struct {
	Status models.ProposalState
	BoutID *id.BoutID
	SlotID *id.SlotID
}

// RespondToProposal applies the responding club's decision. Acceptance marks
// the proposal, creates its bout and, given a show, a filled slot, all in one
// transaction.
func (s *Service) RespondToProposal(ctx context.Context, rawID string, decision Decision, rawShowID string) (_ *RespondResult, err error) {
	ctx, end := s.startSpan(ctx, "respond_to_proposal", attribute.String("decision", string(decision)))
	defer end(&err)

	identity, err := requireIdentity(ctx, access.ActionRespondToProposal)
	if err != nil {
		return nil, err
	}
	proposalID, err := id.ParseProposalID(rawID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx).UTC()
	var (
		proposal *models.Proposal
		result   RespondResult
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		result = RespondResult{}
		p, err := tx.GetProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if err := access.Authorize(identity, access.ActionRespondToProposal, access.ClubTarget(p.RespondingClubID)).Err(); err != nil {
			return err
		}
		if decision != DecisionAccept && decision != DecisionReject {
			return dErrors.New(dErrors.CodeInvalidArgument, "decision must be accept or reject")
		}
		requestedShow, err := parseOptionalShow(rawShowID)
		if err != nil {
			return err
		}
		if err := p.CanRespond(now); err != nil {
			return err
		}

		if decision == DecisionReject {
			p.ApplyRejection(now)
			proposal = p
			return tx.UpdateProposal(ctx, p)
		}

		show := requestedShow
		if show == nil {
			show = p.ShowID
		} else {
			p.ShowID = show
		}
		p.ApplyAcceptance(now)
		if err := tx.UpdateProposal(ctx, p); err != nil {
			return err
		}
		bout := models.NewBoutFromProposal(id.BoutID(s.newID()), p, show, now)
		if err := tx.InsertBout(ctx, bout); err != nil {
			return err
		}
		result.BoutID = &bout.ID
		if show != nil {
			slot := models.NewFilledSlot(id.SlotID(s.newID()), *show, bout.ID, now)
			if err := tx.InsertSlot(ctx, slot); err != nil {
				return err
			}
			result.SlotID = &slot.ID
		}
		proposal = p
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeFailedPrecondition, "proposal already has a bout")
		}
		return nil, translate(err, "proposal not found", "respond to proposal")
	}
	result.Status = proposal.State

	s.countTransition("proposal", string(proposal.State))
	details := map[string]any{"decision": string(decision)}
	action := audit.ActionProposalRejected
	if decision == DecisionAccept {
		action = audit.ActionProposalAccepted
		details["boutId"] = result.BoutID.String()
		if result.SlotID != nil {
			details["slotId"] = result.SlotID.String()
		}
	}
	s.recordProposal(ctx, action, proposal, details)
	return &result, nil
}

// WithdrawProposal lets the proposing club pull a draft or pending proposal.
func (s *Service) WithdrawProposal(ctx context.Context, rawID string) (_ models.ProposalState, err error) {
	ctx, end := s.startSpan(ctx, "withdraw_proposal")
	defer end(&err)

	identity, err := requireIdentity(ctx, access.ActionWithdrawProposal)
	if err != nil {
		return "", err
	}
	proposalID, err := id.ParseProposalID(rawID)
	if err != nil {
		return "", err
	}

	now := requestcontext.Now(ctx).UTC()
	var proposal *models.Proposal
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.GetProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if err := access.Authorize(identity, access.ActionWithdrawProposal, access.ClubTarget(p.ProposingClubID)).Err(); err != nil {
			return err
		}
		if err := p.CanWithdraw(); err != nil {
			return err
		}
		p.ApplyWithdrawal(now)
		proposal = p
		return tx.UpdateProposal(ctx, p)
	})
	if err != nil {
		return "", translate(err, "proposal not found", "withdraw proposal")
	}

	s.countTransition("proposal", string(proposal.State))
	s.recordProposal(ctx, audit.ActionProposalWithdrawn, proposal, nil)
	return proposal.State, nil
}

// SweepResult reports one expiry sweep. Skipped proposals changed state between
// listing and locking; they are not failures.
type SweepResult struct {
	Expired []id.ProposalID
	Skipped []id.ProposalID
	Failed  map[id.ProposalID]error
}

// ExpireProposals expires every pending proposal whose expiry has passed. Each
// proposal is expired in its own transaction that re-checks state, so a sweep
// run twice expires nothing the second time and one failure never aborts the
// rest. Only the scheduler calls this.
func (s *Service) ExpireProposals(ctx context.Context) (_ *SweepResult, err error) {
	ctx, end := s.startSpan(ctx, "expire_proposals")
	defer end(&err)

	started := time.Now()
	cutoff := requestcontext.Now(ctx).UTC()
	ids, err := s.store.ListLapsedProposals(ctx, cutoff, s.sweepBatch)
	if err != nil {
		return nil, translate(err, "proposal not found", "list lapsed proposals")
	}

	result := &SweepResult{Failed: make(map[id.ProposalID]error)}
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(sweepParallelism)
	for _, proposalID := range ids {
		g.Go(func() error {
			expired, err := s.expireOne(ctx, proposalID, cutoff)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed[proposalID] = err
				s.logger.ErrorContext(ctx, "failed to expire proposal",
					"proposal_id", proposalID.String(),
					"error", err,
				)
			case expired:
				result.Expired = append(result.Expired, proposalID)
			default:
				result.Skipped = append(result.Skipped, proposalID)
			}
			return nil
		})
	}
	_ = g.Wait()

	if s.metrics != nil {
		s.metrics.ObserveSweep(len(result.Expired), len(result.Skipped), len(result.Failed), time.Since(started).Seconds())
	}
	s.logger.InfoContext(ctx, "expiry sweep complete",
		"expired", len(result.Expired),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
	)
	return result, nil
}

func (s *Service) expireOne(ctx context.Context, proposalID id.ProposalID, cutoff time.Time) (bool, error) {
	var proposal *models.Proposal
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		proposal = nil
		p, err := tx.GetProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if p.CanExpire(cutoff) != nil {
			return nil
		}
		p.ApplyExpiry(cutoff)
		proposal = p
		return tx.UpdateProposal(ctx, p)
	})
	if err != nil {
		return false, translate(err, "proposal not found", "expire proposal")
	}
	if proposal == nil {
		return false, nil
	}

	s.countTransition("proposal", string(proposal.State))
	s.audit.Record(ctx, audit.Entry{
		Action:       audit.ActionProposalExpired,
		ActorID:      audit.SystemActorID,
		ActorType:    audit.ActorSystem,
		TargetType:   audit.TargetProposal,
		TargetID:     proposal.ID.String(),
		TargetClubID: audit.ClubRef(proposal.ProposingClubID),
		Details:      map[string]any{"expiresAt": proposal.ExpiresAt.Format(time.RFC3339)},
	})
	return true, nil
}

func (s *Service) checkKillSwitch(ctx context.Context) error {
	blocked, err := s.killSwitch.IsProposalCreationBlocked(ctx)
	if err != nil {
		return err
	}
	if blocked {
		if s.metrics != nil {
			s.metrics.IncKillSwitchBlock()
		}
		return dErrors.New(dErrors.CodeFailedPrecondition, "proposal creation is currently disabled")
	}
	return nil
}

// checkBoxer confirms the boxer exists and belongs to club.
func (s *Service) checkBoxer(ctx context.Context, boxerID id.BoxerID, club id.ClubID) error {
	boxer, err := s.roster.FindBoxer(ctx, boxerID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeInvalidArgument, "boxer "+boxerID.String()+" is not on the roster")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read roster")
	}
	if boxer.ClubID != club {
		return dErrors.New(dErrors.CodeInvalidArgument, "boxer "+boxerID.String()+" does not belong to club "+club.String())
	}
	return nil
}

func checkConflict(ctx context.Context, tx store.Tx, p *models.Proposal) error {
	conflict, err := tx.HasPendingConflict(ctx, p.Boxers(), p.Window, p.ID)
	if err != nil {
		return err
	}
	if conflict {
		return dErrors.New(dErrors.CodeAlreadyExists, "a pending proposal already covers one of these boxers in an overlapping window")
	}
	return nil
}

func (s *Service) recordProposal(ctx context.Context, action audit.Action, p *models.Proposal, details map[string]any) {
	actorID, actorType := audit.ActorFor(requestcontext.Identity(ctx))
	s.audit.Record(ctx, audit.Entry{
		Action:       action,
		ActorID:      actorID,
		ActorType:    actorType,
		TargetType:   audit.TargetProposal,
		TargetID:     p.ID.String(),
		TargetClubID: audit.ClubRef(p.ProposingClubID),
		Details:      details,
	})
}
