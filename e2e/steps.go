package e2e

import (
	"github.com/cucumber/godog"

	"ringside/e2e/steps/common"
	"ringside/e2e/steps/matchmaking"
	"ringside/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (background, callers, assertions)
	common.RegisterSteps(ctx, tc)

	// Register proposal, bout, token, and admin steps
	matchmaking.RegisterSteps(ctx, tc)

	// Register rate limit steps
	ratelimit.RegisterSteps(ctx, tc)
}
