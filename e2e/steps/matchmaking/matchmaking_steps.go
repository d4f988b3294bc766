package matchmaking

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cucumber/godog"

	"ringside/internal/roster"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	PUT(path string, body any) error
	GET(path string) error
	Boxer(name string) (roster.Boxer, error)
	GetLastResponseStatus() int
	GetResponseField(field string) (any, error)
	Save(key, value string)
	Saved(key string) (string, error)
	BoutCount() (int, error)
}

// RegisterSteps registers proposal, bout, token, and admin step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &matchmakingSteps{tc: tc}

	// Admin
	ctx.Step(`^I turn the proposal kill switch (on|off)$`, steps.setKillSwitch)
	ctx.Step(`^I set "([^"]*)" as platform admin to (true|false)$`, steps.setAdminClaim)
	ctx.Step(`^I list the audit log$`, steps.listAuditLog)

	// Proposals
	ctx.Step(`^I propose "([^"]*)" against "([^"]*)" in (\d+) days$`, steps.propose)
	ctx.Step(`^I draft "([^"]*)" against "([^"]*)" in (\d+) days$`, steps.draft)
	ctx.Step(`^I submit the proposal$`, steps.submit)
	ctx.Step(`^I (accept|reject) the proposal$`, steps.respond)
	ctx.Step(`^I withdraw the proposal$`, steps.withdraw)

	// Bouts and tokens
	ctx.Step(`^I void the bout because "([^"]*)"$`, steps.voidBout)
	ctx.Step(`^I issue a deep link to the bout$`, steps.issueBoutToken)
	ctx.Step(`^I redeem the deep link$`, steps.redeemToken)
	ctx.Step(`^(\d+) bouts? should exist$`, steps.boutsShouldExist)
}

type matchmakingSteps struct {
	tc TestContext
}

func (s *matchmakingSteps) setKillSwitch(ctx context.Context, state string) error {
	return s.tc.PUT("/v1/admin/settings/kill-switch", map[string]any{"enabled": state == "on"})
}

func (s *matchmakingSteps) setAdminClaim(ctx context.Context, uid, value string) error {
	isAdmin, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	return s.tc.POST("/v1/admin/claims", map[string]any{"targetUid": uid, "isAdmin": isAdmin})
}

func (s *matchmakingSteps) listAuditLog(ctx context.Context) error {
	return s.tc.GET("/v1/admin/audit-logs?limit=100")
}

func (s *matchmakingSteps) propose(ctx context.Context, red, blue string, days int) error {
	return s.create(red, blue, days, false)
}

func (s *matchmakingSteps) draft(ctx context.Context, red, blue string, days int) error {
	return s.create(red, blue, days, true)
}

func (s *matchmakingSteps) create(red, blue string, days int, draft bool) error {
	redBoxer, err := s.tc.Boxer(red)
	if err != nil {
		return err
	}
	blueBoxer, err := s.tc.Boxer(blue)
	if err != nil {
		return err
	}
	start := time.Now().UTC().Add(time.Duration(days) * 24 * time.Hour).Truncate(time.Second)
	body := map[string]any{
		"proposingClubId":   redBoxer.ClubID.String(),
		"respondingClubId":  blueBoxer.ClubID.String(),
		"proposingBoxerId":  redBoxer.ID.String(),
		"respondingBoxerId": blueBoxer.ID.String(),
		"windowStart":       start,
		"windowEnd":         start.Add(2 * time.Hour),
		"draft":             draft,
	}
	if err := s.tc.POST("/v1/proposals", body); err != nil {
		return err
	}
	return s.remember("proposalId", "proposal")
}

func (s *matchmakingSteps) submit(ctx context.Context) error {
	return s.onProposal("submit", nil)
}

func (s *matchmakingSteps) respond(ctx context.Context, decision string) error {
	if err := s.onProposal("respond", map[string]any{"decision": decision}); err != nil {
		return err
	}
	return s.remember("boutId", "bout")
}

func (s *matchmakingSteps) withdraw(ctx context.Context) error {
	return s.onProposal("withdraw", nil)
}

func (s *matchmakingSteps) voidBout(ctx context.Context, reason string) error {
	boutID, err := s.tc.Saved("bout")
	if err != nil {
		return err
	}
	return s.tc.POST("/v1/bouts/"+boutID+"/void", map[string]any{"reason": reason})
}

func (s *matchmakingSteps) issueBoutToken(ctx context.Context) error {
	boutID, err := s.tc.Saved("bout")
	if err != nil {
		return err
	}
	if err := s.tc.POST("/v1/tokens", map[string]any{"targetType": "bout", "targetId": boutID}); err != nil {
		return err
	}
	return s.remember("tokenId", "token")
}

func (s *matchmakingSteps) redeemToken(ctx context.Context) error {
	tokenID, err := s.tc.Saved("token")
	if err != nil {
		return err
	}
	return s.tc.POST("/v1/tokens/"+tokenID+"/redeem", nil)
}

func (s *matchmakingSteps) boutsShouldExist(ctx context.Context, want int) error {
	got, err := s.tc.BoutCount()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected %d bouts, got %d", want, got)
	}
	return nil
}

func (s *matchmakingSteps) onProposal(action string, body any) error {
	proposalID, err := s.tc.Saved("proposal")
	if err != nil {
		return err
	}
	return s.tc.POST("/v1/proposals/"+proposalID+"/"+action, body)
}

// remember saves a response field for later steps when the call succeeded.
func (s *matchmakingSteps) remember(field, key string) error {
	if status := s.tc.GetLastResponseStatus(); status < 200 || status > 299 {
		return nil
	}
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return nil
	}
	if str, ok := v.(string); ok && str != "" {
		s.tc.Save(key, str)
	}
	return nil
}
