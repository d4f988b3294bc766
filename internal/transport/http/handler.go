// Package httptransport exposes each control-plane operation as a JSON
// callable. Handlers decode input, delegate to a service, and encode the result;
// authorization and validation live in the services.
package httptransport

import (
	"context"
	"log/slog"
	"time"

	adminsvc "ringside/internal/admin/service"
	"ringside/internal/matchmaking/models"
	matchsvc "ringside/internal/matchmaking/service"
	"ringside/internal/settings"
	audit "ringside/pkg/platform/audit"
)

// MatchmakingService is the proposal, bout, and token lifecycle.
type MatchmakingService interface {
	CreateProposal(ctx context.Context, in matchsvc.CreateProposalInput) (*models.Proposal, error)
	SubmitProposal(ctx context.Context, rawID string) (*models.Proposal, error)
	RespondToProposal(ctx context.Context, rawID string, decision matchsvc.Decision, rawShowID string) (*matchsvc.RespondResult, error)
	WithdrawProposal(ctx context.Context, rawID string) (models.ProposalState, error)
	VoidBout(ctx context.Context, rawID, reason string) (*models.Bout, error)
	IssueToken(ctx context.Context, targetType models.TargetType, rawTargetID string) (*models.DeepLinkToken, error)
	RedeemToken(ctx context.Context, rawID string) (*models.TargetRef, error)
}

// AdminService is the platform-admin surface.
type AdminService interface {
	SetAdminClaim(ctx context.Context, rawUID string, isAdmin *bool) (*adminsvc.SetAdminClaimResult, error)
	SetKillSwitch(ctx context.Context, enabled *bool) (*settings.AdminSettings, error)
	ListAuditLogs(ctx context.Context, q adminsvc.AuditQuery) ([]audit.Entry, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Handler serves every callable.
type Handler struct {
	matchmaking MatchmakingService
	admin       AdminService
	checks      map[string]HealthCheck
	logger      *slog.Logger
	checkWait   time.Duration
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithHealthCheck adds a named dependency probe to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *Handler) {
		h.checks[name] = check
	}
}

func NewHandler(matchmaking MatchmakingService, admin AdminService, opts ...Option) *Handler {
	h := &Handler{
		matchmaking: matchmaking,
		admin:       admin,
		checks:      map[string]HealthCheck{},
		logger:      slog.Default(),
		checkWait:   2 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
