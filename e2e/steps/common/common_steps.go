package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	AddBoxer(name, club string) error
	AddUser(name, club string, admin bool) error
	ActAs(name string) error
	FromIP(ip string)
	GetLastResponseStatus() int
	GetResponseField(field string) (any, error)
	AuditCount(action string) (int, error)
}

// RegisterSteps registers background, caller, and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Background
	ctx.Step(`^boxer "([^"]*)" trains at club "([^"]*)"$`, steps.boxerAtClub)
	ctx.Step(`^"([^"]*)" coaches club "([^"]*)"$`, steps.coachOfClub)
	ctx.Step(`^"([^"]*)" is a platform admin$`, steps.platformAdmin)
	ctx.Step(`^"([^"]*)" is an unaffiliated user$`, steps.unaffiliatedUser)

	// Callers
	ctx.Step(`^I am "([^"]*)"$`, steps.actAs)
	ctx.Step(`^I am anonymous$`, steps.anonymous)
	ctx.Step(`^my IP address is "([^"]*)"$`, steps.fromIP)

	// Assertions
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^the response error should be "([^"]*)"$`, steps.errorShouldBe)
	ctx.Step(`^the audit log should hold (\d+) "([^"]*)" entr(?:y|ies)$`, steps.auditShouldHold)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) boxerAtClub(ctx context.Context, boxer, club string) error {
	return s.tc.AddBoxer(boxer, club)
}

func (s *commonSteps) coachOfClub(ctx context.Context, user, club string) error {
	return s.tc.AddUser(user, club, false)
}

func (s *commonSteps) platformAdmin(ctx context.Context, user string) error {
	return s.tc.AddUser(user, "", true)
}

func (s *commonSteps) unaffiliatedUser(ctx context.Context, user string) error {
	return s.tc.AddUser(user, "", false)
}

func (s *commonSteps) actAs(ctx context.Context, user string) error {
	return s.tc.ActAs(user)
}

func (s *commonSteps) anonymous(ctx context.Context) error {
	return s.tc.ActAs("")
}

func (s *commonSteps) fromIP(ctx context.Context, ip string) error {
	s.tc.FromIP(ip)
	return nil
}

func (s *commonSteps) statusShouldBe(ctx context.Context, want int) error {
	if got := s.tc.GetLastResponseStatus(); got != want {
		return fmt.Errorf("expected status %d, got %d", want, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(ctx context.Context, field, want string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s=%q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) errorShouldBe(ctx context.Context, want string) error {
	return s.fieldShouldBe(ctx, "error", want)
}

func (s *commonSteps) auditShouldHold(ctx context.Context, want int, action string) error {
	got, err := s.tc.AuditCount(action)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected %d %q audit entries, got %d", want, action, got)
	}
	return nil
}
