package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ringside/internal/platform/config"
	"ringside/internal/settings"
	audit "ringside/pkg/platform/audit"
)

// seedBackend is what the seed command writes to.
type seedBackend struct {
	settings settings.Writer
	audit    audit.Store
}

type settingsOpener func(ctx context.Context, cfg config.Server) (*seedBackend, func(), error)

func seedCommand(open settingsOpener) *cobra.Command {
	var targetEnv string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the initial admin settings with the proposal kill switch engaged",
		Long: "Upserts admin_settings with proposalKillSwitch=true. Refuses unless --target-env is\n" +
			"one of development, test, staging, emulator and RINGSIDE_ENV is not production.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			if err := settings.CheckSeedTarget(targetEnv, cfg.Env); err != nil {
				return err
			}

			backend, closeFn, err := open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			auditLog := audit.NewWriter(backend.audit, audit.WithLogger(cmdLogger(cmd)))
			doc, err := settings.Seed(cmd.Context(), backend.settings, auditLog, targetEnv, cfg.Env, time.Now())
			if err != nil {
				return err
			}
			cmdLogger(cmd).InfoContext(cmd.Context(), "admin settings seeded",
				"target_env", targetEnv,
				"version", doc.Version,
			)
			fmt.Fprintf(cmd.OutOrStdout(), "seeded admin settings for %s (version %d, proposalKillSwitch=%t)\n",
				targetEnv, doc.Version, doc.ProposalKillSwitch)
			return nil
		},
	}
	cmd.Flags().StringVar(&targetEnv, "target-env", "", "environment to seed (development|test|staging|emulator)")
	_ = cmd.MarkFlagRequired("target-env")
	return cmd
}
