package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	audit "ringside/pkg/platform/audit"
)

// Writer updates the settings document.
type Writer interface {
	PutKillSwitch(ctx context.Context, enabled bool, updatedBy string, now time.Time) (*AdminSettings, error)
}

// SeedActor is recorded as UpdatedBy for bootstrap writes.
const SeedActor = "seed"

var seedableEnvs = map[string]bool{
	"development": true,
	"test":        true,
	"staging":     true,
	"emulator":    true,
}

// CheckSeedTarget refuses to seed unless targetEnv is explicitly a
// non-production environment and the running environment is not production.
func CheckSeedTarget(targetEnv, runtimeEnv string) error {
	target := strings.ToLower(strings.TrimSpace(targetEnv))
	if target == "" {
		return fmt.Errorf("target environment is required")
	}
	if !seedableEnvs[target] {
		return fmt.Errorf("refusing to seed environment %q", targetEnv)
	}
	runtime := strings.ToLower(strings.TrimSpace(runtimeEnv))
	if runtime == "production" || runtime == "prod" {
		return fmt.Errorf("refusing to seed while running in production")
	}
	return nil
}

// Seed writes the initial settings document with the kill switch engaged, so
// a fresh deployment accepts no proposals until an admin opens it. The write
// is audited as a system action by SeedActor; a failed audit append fails the
// seed.
func Seed(ctx context.Context, store Writer, auditLog *audit.Writer, targetEnv, runtimeEnv string, now time.Time) (*AdminSettings, error) {
	if err := CheckSeedTarget(targetEnv, runtimeEnv); err != nil {
		return nil, err
	}
	doc, err := store.PutKillSwitch(ctx, true, SeedActor, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("seed admin settings: %w", err)
	}
	_, err = auditLog.Write(ctx, audit.Entry{
		Action:     audit.ActionSettingsUpdated,
		ActorID:    SeedActor,
		ActorType:  audit.ActorSystem,
		TargetType: audit.TargetSettings,
		TargetID:   DocumentID,
		Details: map[string]any{
			"proposalKillSwitch": doc.ProposalKillSwitch,
			"version":            doc.Version,
			"targetEnv":          strings.ToLower(strings.TrimSpace(targetEnv)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("audit seeded admin settings: %w", err)
	}
	return doc, nil
}
