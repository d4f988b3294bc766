package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cucumber/godog"

	"ringside/internal/ratelimit/models"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	SetLimit(class models.EndpointClass, limit models.Limit) error
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
}

// RegisterSteps registers rate-limiting step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^(redeem|write) requests are limited to (\d+) per minute$`, steps.limitPerMinute)
	ctx.Step(`^I redeem deep link "([^"]*)" (\d+) times$`, steps.redeemNTimes)
	ctx.Step(`^the last (\d+) responses? should have been (\d+)$`, steps.lastNShouldBe)
	ctx.Step(`^the response should ask me to retry later$`, steps.shouldCarryRetryAfter)
}

type ratelimitSteps struct {
	tc       TestContext
	statuses []int
}

func (s *ratelimitSteps) limitPerMinute(ctx context.Context, class string, n int) error {
	return s.tc.SetLimit(models.EndpointClass(class), models.Limit{RequestsPerWindow: n, Window: time.Minute})
}

func (s *ratelimitSteps) redeemNTimes(ctx context.Context, tokenID string, n int) error {
	s.statuses = s.statuses[:0]
	for range n {
		if err := s.tc.POST("/v1/tokens/"+tokenID+"/redeem", nil); err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *ratelimitSteps) lastNShouldBe(ctx context.Context, n, want int) error {
	if n > len(s.statuses) {
		return fmt.Errorf("only %d responses recorded", len(s.statuses))
	}
	for i, got := range s.statuses[len(s.statuses)-n:] {
		if got != want {
			return fmt.Errorf("response %d: expected %d, got %d", len(s.statuses)-n+i+1, want, got)
		}
	}
	return nil
}

func (s *ratelimitSteps) shouldCarryRetryAfter(ctx context.Context) error {
	raw := s.tc.GetLastResponseHeader("Retry-After")
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 1 {
		return fmt.Errorf("expected a positive Retry-After, got %q", raw)
	}
	return nil
}
