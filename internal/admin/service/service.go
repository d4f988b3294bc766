// Package service implements the platform-admin operations: claim mutation,
// the proposal kill switch, and audit log reads.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ringside/internal/access"
	"ringside/internal/identity"
	"ringside/internal/settings"
	id "ringside/pkg/domain"
	dErrors "ringside/pkg/domain-errors"
	audit "ringside/pkg/platform/audit"
	"ringside/pkg/platform/sentinel"
	"ringside/pkg/requestcontext"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// IdentityStore reads identities and writes their claims.
type IdentityStore interface {
	FindByUID(ctx context.Context, uid id.UserID) (*identity.User, error)
	SetClaims(ctx context.Context, uid id.UserID, claims id.Claims, now time.Time) error
}

// SettingsStore writes the settings singleton.
type SettingsStore interface {
	PutKillSwitch(ctx context.Context, enabled bool, updatedBy string, now time.Time) (*settings.AdminSettings, error)
}

// AuditLog records and lists audit entries.
type AuditLog interface {
	Record(ctx context.Context, entry audit.Entry) string
	List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error)
}

// Service performs admin-only operations.
type Service struct {
	identities IdentityStore
	settings   SettingsStore
	auditLog   AuditLog
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(identities IdentityStore, settingsStore SettingsStore, auditLog AuditLog, opts ...Option) (*Service, error) {
	if identities == nil {
		return nil, errors.New("identity store is required")
	}
	if settingsStore == nil {
		return nil, errors.New("settings store is required")
	}
	if auditLog == nil {
		return nil, errors.New("audit log is required")
	}
	s := &Service{
		identities: identities,
		settings:   settingsStore,
		auditLog:   auditLog,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SetAdminClaimResult is returned to the caller on success.
type SetAdminClaimResult struct {
	Success bool
	Message string
}

// SetAdminClaim grants or revokes the platform admin claim on targetUID.
// isAdmin is nil when the caller omitted it. The audit entry is written only
// after the claim write succeeds.
func (s *Service) SetAdminClaim(ctx context.Context, rawUID string, isAdmin *bool) (*SetAdminClaimResult, error) {
	caller := requestcontext.Identity(ctx)
	action := access.ActionGrantAdminClaim
	if isAdmin != nil && !*isAdmin {
		action = access.ActionRevokeAdminClaim
	}
	if err := access.Authorize(caller, action, access.Target{}).Err(); err != nil {
		return nil, err
	}
	targetUID, err := id.ParseUserID(rawUID)
	if err != nil {
		return nil, err
	}
	if isAdmin == nil {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "isAdmin must be a boolean")
	}

	user, err := s.identities.FindByUID(ctx, targetUID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	claims := user.Claims
	claims.IsPlatformAdmin = *isAdmin
	now := requestcontext.Now(ctx).UTC()
	if err := s.identities.SetClaims(ctx, targetUID, claims, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		s.logger.ErrorContext(ctx, "failed to write admin claim",
			"target_uid", targetUID.String(),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update claims")
	}

	auditAction := audit.ActionAdminClaimGranted
	message := fmt.Sprintf("Admin claim granted to user %s", targetUID)
	if !*isAdmin {
		auditAction = audit.ActionAdminClaimRevoked
		message = fmt.Sprintf("Admin claim revoked from user %s", targetUID)
	}
	actorID, actorType := audit.ActorFor(caller)
	s.auditLog.Record(ctx, audit.Entry{
		Action:     auditAction,
		ActorID:    actorID,
		ActorType:  actorType,
		TargetType: audit.TargetIdentity,
		TargetID:   targetUID.String(),
		Details: map[string]any{
			"isAdmin":  *isAdmin,
			"previous": user.Claims.IsPlatformAdmin,
		},
	})
	return &SetAdminClaimResult{Success: true, Message: message}, nil
}

// SetKillSwitch flips the proposal kill switch. enabled is nil when omitted.
func (s *Service) SetKillSwitch(ctx context.Context, enabled *bool) (*settings.AdminSettings, error) {
	caller := requestcontext.Identity(ctx)
	if err := access.Authorize(caller, access.ActionUpdateKillSwitch, access.Target{}).Err(); err != nil {
		return nil, err
	}
	if enabled == nil {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "enabled must be a boolean")
	}

	doc, err := s.settings.PutKillSwitch(ctx, *enabled, caller.UID.String(), requestcontext.Now(ctx).UTC())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update admin settings")
	}

	actorID, actorType := audit.ActorFor(caller)
	s.auditLog.Record(ctx, audit.Entry{
		Action:     audit.ActionSettingsUpdated,
		ActorID:    actorID,
		ActorType:  actorType,
		TargetType: audit.TargetSettings,
		TargetID:   settings.DocumentID,
		Details: map[string]any{
			"proposalKillSwitch": doc.ProposalKillSwitch,
			"version":            doc.Version,
		},
	})
	return doc, nil
}

// AuditQuery filters ListAuditLogs. Limit 0 means the default page size.
type AuditQuery struct {
	Action     string
	TargetType string
	TargetID   string
	Limit      int
}

// ListAuditLogs returns audit entries newest first.
func (s *Service) ListAuditLogs(ctx context.Context, q AuditQuery) ([]audit.Entry, error) {
	if err := access.Authorize(requestcontext.Identity(ctx), access.ActionReadAuditLog, access.Target{}).Err(); err != nil {
		return nil, err
	}
	if q.Action != "" && !audit.Action(q.Action).Known() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "unknown audit action")
	}
	if q.Limit < 0 || q.Limit > maxAuditLimit {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, fmt.Sprintf("limit must be between 1 and %d", maxAuditLimit))
	}
	limit := q.Limit
	if limit == 0 {
		limit = defaultAuditLimit
	}

	entries, err := s.auditLog.List(ctx, audit.Filter{
		Action:     audit.Action(q.Action),
		TargetType: audit.TargetType(q.TargetType),
		TargetID:   q.TargetID,
		Limit:      limit,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit logs")
	}
	return entries, nil
}
