package httptransport

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks MatchmakingService,AdminService

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	adminsvc "ringside/internal/admin/service"
	"ringside/internal/matchmaking/models"
	matchsvc "ringside/internal/matchmaking/service"
	"ringside/internal/platform/metrics"
	ratelimit "ringside/internal/ratelimit/middleware"
	rlmodels "ringside/internal/ratelimit/models"
	"ringside/internal/settings"
	"ringside/internal/transport/http/mocks"
	id "ringside/pkg/domain"
	dErrors "ringside/pkg/domain-errors"
	audit "ringside/pkg/platform/audit"
	"ringside/pkg/requestcontext"
	"ringside/pkg/testutil"
)

// tokenVerifier maps fixed bearer strings to identities.
type tokenVerifier map[string]*id.Identity

func (v tokenVerifier) Verify(token string) (*id.Identity, error) {
	if identity, ok := v[token]; ok {
		return identity, nil
	}
	return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid token")
}

type HandlerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	matchmaking *mocks.MockMatchmakingService
	admin       *mocks.MockAdminService
	registry    *prometheus.Registry
	router      http.Handler
	coach       *id.Identity
	ops         *id.Identity
	healthErr   error
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.matchmaking = mocks.NewMockMatchmakingService(s.ctrl)
	s.admin = mocks.NewMockAdminService(s.ctrl)
	s.registry = prometheus.NewRegistry()
	s.healthErr = nil

	club := id.ClubID(uuid.New())
	s.coach = &id.Identity{UID: "coach-1", ClubID: &club}
	s.ops = &id.Identity{UID: "ops-1", Claims: id.Claims{IsPlatformAdmin: true}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(s.matchmaking, s.admin,
		WithLogger(logger),
		WithHealthCheck("postgres", func(context.Context) error { return s.healthErr }),
	)
	s.router = NewRouter(h, RouterDeps{
		Verifier: tokenVerifier{"coach-token": s.coach, "ops-token": s.ops},
		Gatherer: s.registry,
		Metrics:  metrics.New(s.registry),
		Logger:   logger,
	})
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) TestCreateProposal() {
	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	expires := start.Add(-24 * time.Hour)
	proposalID := id.ProposalID(uuid.New())

	s.Run("maps body and caller into the service", func() {
		s.matchmaking.EXPECT().CreateProposal(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, in matchsvc.CreateProposalInput) (*models.Proposal, error) {
				s.Equal("club-a", in.ProposingClubID)
				s.Equal("club-b", in.RespondingClubID)
				s.Equal("boxer-a", in.ProposingBoxerID)
				s.Equal("boxer-b", in.RespondingBoxerID)
				s.True(in.WindowStart.Equal(start))
				s.True(in.Draft)
				s.Equal(s.coach, requestcontext.Identity(ctx))
				s.NotEmpty(requestcontext.RequestID(ctx))
				s.Equal("203.0.113.9", requestcontext.ClientIP(ctx))
				return &models.Proposal{ID: proposalID, State: models.ProposalPending, ExpiresAt: &expires}, nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/proposals", map[string]any{
			"proposingClubId":   "club-a",
			"respondingClubId":  "club-b",
			"proposingBoxerId":  "boxer-a",
			"respondingBoxerId": "boxer-b",
			"windowStart":       start,
			"windowEnd":         start.Add(2 * time.Hour),
			"draft":             true,
		})
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "coach-token"))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[proposalResponse](s.T(), rr)
		s.Equal(proposalID.String(), resp.ProposalID)
		s.Equal("pending", resp.Status)
		s.Require().NotNil(resp.ExpiresAt)
	})

	s.Run("malformed body still reaches the kill switch", func() {
		s.matchmaking.EXPECT().CreateProposal(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, in matchsvc.CreateProposalInput) (*models.Proposal, error) {
				s.Error(in.BodyErr)
				s.Empty(in.ProposingClubID)
				return nil, dErrors.New(dErrors.CodeFailedPrecondition, "proposal creation is currently disabled")
			})
		req := testutil.NewRequest(s.T(), http.MethodPost, "/v1/proposals")
		req.Body = io.NopCloser(strings.NewReader(`{"windowStart":"yesterday"}`))
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "coach-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusPreconditionFailed, "failed-precondition")
	})

	s.Run("malformed body is invalid-argument once the gate passes", func() {
		s.matchmaking.EXPECT().CreateProposal(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, in matchsvc.CreateProposalInput) (*models.Proposal, error) {
				return nil, dErrors.Wrap(in.BodyErr, dErrors.CodeInvalidArgument, "request body must be a JSON object with known fields")
			})
		req := testutil.NewRequest(s.T(), http.MethodPost, "/v1/proposals")
		req.Body = io.NopCloser(strings.NewReader(`{"unexpected":1}`))
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "coach-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid-argument")
	})

	s.Run("kill switch surfaces as failed-precondition", func() {
		s.matchmaking.EXPECT().CreateProposal(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeFailedPrecondition, "proposal creation is disabled"))
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/proposals", map[string]any{})
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "coach-token"))
		testutil.AssertStatus(s.T(), rr, http.StatusPreconditionFailed)
		body := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Equal("failed-precondition", body["error"])
		s.Equal("proposal creation is disabled", body["error_description"])
	})
}

func (s *HandlerSuite) TestAuthentication() {
	s.Run("invalid bearer is rejected before the service", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/proposals", map[string]any{})
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "forged"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthenticated")
	})

	s.Run("anonymous caller reaches the service without identity", func() {
		s.matchmaking.EXPECT().WithdrawProposal(gomock.Any(), "p-1").DoAndReturn(
			func(ctx context.Context, _ string) (models.ProposalState, error) {
				s.Nil(requestcontext.Identity(ctx))
				return "", dErrors.New(dErrors.CodeUnauthenticated, "authentication required")
			})
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/v1/proposals/p-1/withdraw"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthenticated")
	})
}

func (s *HandlerSuite) TestProposalTransitions() {
	boutID := id.BoutID(uuid.New())
	slotID := id.SlotID(uuid.New())

	s.Run("respond accept returns bout and slot", func() {
		s.matchmaking.EXPECT().RespondToProposal(gomock.Any(), "p-1", matchsvc.DecisionAccept, "show-9").
			Return(&matchsvc.RespondResult{Status: models.ProposalAccepted, BoutID: &boutID, SlotID: &slotID}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/proposals/p-1/respond", map[string]string{
			"decision": "accept", "showId": "show-9",
		})
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "coach-token"))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[respondResponse](s.T(), rr)
		s.Equal("accepted", resp.Status)
		s.Equal(boutID.String(), resp.BoutID)
		s.Equal(slotID.String(), resp.SlotID)
	})

	s.Run("respond by the wrong club", func() {
		s.matchmaking.EXPECT().RespondToProposal(gomock.Any(), "p-1", matchsvc.DecisionReject, "").
			Return(nil, dErrors.New(dErrors.CodePermissionDenied, "caller is not the responding club"))
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/proposals/p-1/respond", map[string]string{"decision": "reject"})
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "coach-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "permission-denied")
	})

	s.Run("submit", func() {
		s.matchmaking.EXPECT().SubmitProposal(gomock.Any(), "p-2").
			Return(&models.Proposal{State: models.ProposalPending}, nil)
		rr := testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewRequest(s.T(), http.MethodPost, "/v1/proposals/p-2/submit"), "coach-token"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		testutil.AssertJSONContains(s.T(), rr, "status", "pending")
	})

	s.Run("withdraw", func() {
		s.matchmaking.EXPECT().WithdrawProposal(gomock.Any(), "p-3").Return(models.ProposalWithdrawn, nil)
		rr := testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewRequest(s.T(), http.MethodPost, "/v1/proposals/p-3/withdraw"), "coach-token"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		testutil.AssertJSONContains(s.T(), rr, "status", "withdrawn")
	})

	s.Run("void bout", func() {
		s.matchmaking.EXPECT().VoidBout(gomock.Any(), "b-1", "medical withdrawal").
			Return(&models.Bout{State: models.BoutVoided}, nil)
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/bouts/b-1/void", map[string]string{"reason": "medical withdrawal"})
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "coach-token"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		testutil.AssertJSONContains(s.T(), rr, "status", "voided")
	})
}

func (s *HandlerSuite) TestTokens() {
	tokenID := id.TokenID(uuid.New())
	expires := time.Date(2026, 5, 8, 0, 0, 0, 0, time.UTC)

	s.Run("issue", func() {
		s.matchmaking.EXPECT().IssueToken(gomock.Any(), models.TargetProposal, "p-1").
			Return(&models.DeepLinkToken{ID: tokenID, ExpiresAt: expires}, nil)
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/tokens", map[string]string{
			"targetType": "proposal", "targetId": "p-1",
		})
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "coach-token"))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[issueTokenResponse](s.T(), rr)
		s.Equal(tokenID.String(), resp.TokenID)
		s.True(expires.Equal(resp.ExpiresAt))
	})

	s.Run("redeem without a bearer", func() {
		s.matchmaking.EXPECT().RedeemToken(gomock.Any(), tokenID.String()).
			Return(&models.TargetRef{Type: models.TargetBout, ID: "b-1"}, nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/v1/tokens/"+tokenID.String()+"/redeem"))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[redeemTokenResponse](s.T(), rr)
		s.Equal(models.TargetRef{Type: models.TargetBout, ID: "b-1"}, resp.ResolvedTarget)
	})

	s.Run("redeem consumed", func() {
		s.matchmaking.EXPECT().RedeemToken(gomock.Any(), "t-1").
			Return(nil, dErrors.New(dErrors.CodeFailedPrecondition, "token already redeemed"))
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/v1/tokens/t-1/redeem"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusPreconditionFailed, "failed-precondition")
	})

	s.Run("store failure hides the cause", func() {
		s.matchmaking.EXPECT().RedeemToken(gomock.Any(), "t-2").
			Return(nil, dErrors.Wrap(errors.New("pq: could not serialize access"), dErrors.CodeInternal, "failed to redeem token"))
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/v1/tokens/t-2/redeem"))
		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
		body := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Equal("internal", body["error"])
		s.NotContains(body, "error_description")
	})
}

func (s *HandlerSuite) TestSetAdminClaim() {
	tests := []struct {
		name string
		body string
		want *bool
	}{
		{name: "grant", body: `{"targetUid":"user-7","isAdmin":true}`, want: boolPtr(true)},
		{name: "revoke", body: `{"targetUid":"user-7","isAdmin":false}`, want: boolPtr(false)},
		{name: "string flag is treated as missing", body: `{"targetUid":"user-7","isAdmin":"yes"}`},
		{name: "missing flag", body: `{"targetUid":"user-7"}`},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.admin.EXPECT().SetAdminClaim(gomock.Any(), "user-7", gomock.Any()).DoAndReturn(
				func(_ context.Context, _ string, isAdmin *bool) (*adminsvc.SetAdminClaimResult, error) {
					s.Equal(tt.want, isAdmin)
					return &adminsvc.SetAdminClaimResult{Success: true, Message: "ok"}, nil
				})
			req := testutil.NewRequest(s.T(), http.MethodPost, "/v1/admin/claims")
			req.Body = io.NopCloser(strings.NewReader(tt.body))
			rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "ops-token"))
			testutil.AssertStatus(s.T(), rr, http.StatusOK)
			testutil.AssertJSONContains(s.T(), rr, "success", true)
		})
	}

	s.Run("undecodable body from a non-admin is still permission-denied", func() {
		s.admin.EXPECT().SetAdminClaim(gomock.Any(), "", nil).
			Return(nil, dErrors.New(dErrors.CodePermissionDenied, "platform admin required"))
		req := testutil.NewRequest(s.T(), http.MethodPost, "/v1/admin/claims")
		req.Body = io.NopCloser(strings.NewReader(`not json`))
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "coach-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "permission-denied")
	})
}

func (s *HandlerSuite) TestKillSwitch() {
	updated := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	s.admin.EXPECT().SetKillSwitch(gomock.Any(), boolPtr(false)).Return(&settings.AdminSettings{
		ProposalKillSwitch: false, Version: 3, UpdatedAt: updated, UpdatedBy: "ops-1",
	}, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/v1/admin/settings/kill-switch", map[string]bool{"enabled": false})
	rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "ops-token"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[killSwitchResponse](s.T(), rr)
	s.False(resp.ProposalKillSwitch)
	s.Equal(int64(3), resp.Version)
}

func (s *HandlerSuite) TestListAuditLogs() {
	s.Run("passes query through", func() {
		s.admin.EXPECT().ListAuditLogs(gomock.Any(), adminsvc.AuditQuery{
			Action: "proposal.expired", TargetID: "p-1", Limit: 20,
		}).Return([]audit.Entry{{
			LogID: "log-1", Action: audit.ActionProposalExpired, ActorID: audit.SystemActorID,
			ActorType: audit.ActorSystem, TargetType: audit.TargetProposal, TargetID: "p-1",
		}}, nil)

		rr := testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewRequest(s.T(), http.MethodGet, "/v1/admin/audit-logs?action=proposal.expired&targetId=p-1&limit=20"), "ops-token"))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[auditLogsResponse](s.T(), rr)
		s.Require().Len(resp.Entries, 1)
		s.Equal("system", resp.Entries[0].ActorType)
		s.NotNil(resp.Entries[0].Details)
	})

	s.Run("non-numeric limit is left to the service", func() {
		s.admin.EXPECT().ListAuditLogs(gomock.Any(), adminsvc.AuditQuery{Limit: -1}).
			Return(nil, dErrors.New(dErrors.CodeInvalidArgument, "limit must be between 1 and 500"))
		rr := testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewRequest(s.T(), http.MethodGet, "/v1/admin/audit-logs?limit=lots"), "ops-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid-argument")
	})
}

func (s *HandlerSuite) TestRateLimitedRedeem() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := ratelimit.New(nil, ratelimit.WithLimit(rlmodels.ClassRedeem, rlmodels.Limit{RequestsPerWindow: 1, Window: time.Minute}))
	router := NewRouter(NewHandler(s.matchmaking, s.admin, WithLogger(logger)), RouterDeps{
		Verifier:  tokenVerifier{},
		Gatherer:  s.registry,
		Metrics:   metrics.New(prometheus.NewRegistry()),
		Logger:    logger,
		RateLimit: limiter,
	})

	s.matchmaking.EXPECT().RedeemToken(gomock.Any(), "t-1").
		Return(&models.TargetRef{Type: models.TargetBout, ID: "b-1"}, nil).Times(1)

	redeem := func(ip string) *httptest.ResponseRecorder {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/v1/tokens/t-1/redeem")
		req.Header.Set("X-Forwarded-For", ip)
		return testutil.DoRequest(router, req)
	}

	testutil.AssertStatus(s.T(), redeem("198.51.100.7"), http.StatusOK)

	rr := redeem("198.51.100.7")
	testutil.AssertStatusAndError(s.T(), rr, http.StatusTooManyRequests, "rate-limited")
	s.NotEmpty(rr.Header().Get("Retry-After"))
}

func (s *HandlerSuite) TestHealthAndMetrics() {
	s.Run("healthy", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		testutil.AssertJSONContains(s.T(), rr, "status", "ok")
	})

	s.Run("degraded", func() {
		s.healthErr = errors.New("connection refused")
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
		testutil.AssertStatus(s.T(), rr, http.StatusServiceUnavailable)
		testutil.AssertJSONContains(s.T(), rr, "status", "degraded")
	})

	s.Run("callable latency is exported by route pattern", func() {
		s.matchmaking.EXPECT().WithdrawProposal(gomock.Any(), "p-9").Return(models.ProposalWithdrawn, nil)
		testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewRequest(s.T(), http.MethodPost, "/v1/proposals/p-9/withdraw"), "coach-token"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		body := string(testutil.ReadBody(s.T(), rr))
		s.Contains(body, `ringside_http_request_duration_seconds_count{method="POST",route="/v1/proposals/{id}/withdraw",status="200"} 1`)
	})
}

func boolPtr(b bool) *bool { return &b }
