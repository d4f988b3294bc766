package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "ringside/internal/jwt_token"
	id "ringside/pkg/domain"
)

// tokenCommand mints a bearer token for local testing. It is refused in
// production, where tokens come from the identity provider.
func tokenCommand() *cobra.Command {
	var (
		uid   string
		club  string
		admin bool
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			if cfg.IsProduction() {
				return errors.New("refusing to mint tokens in production")
			}
			userID, err := id.ParseUserID(uid)
			if err != nil {
				return err
			}
			identity := id.Identity{UID: userID, Claims: id.Claims{IsPlatformAdmin: admin}}
			if club != "" {
				clubID, err := id.ParseClubID(club)
				if err != nil {
					return err
				}
				identity.ClubID = &clubID
			}

			svc := jwttoken.NewJWTService(cfg.JWTSigningKey, jwttoken.DefaultIssuer, jwttoken.DefaultAudience)
			token, err := svc.GenerateAccessToken(identity, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "identity uid")
	cmd.Flags().StringVar(&club, "club", "", "club id the identity is affiliated with")
	cmd.Flags().BoolVar(&admin, "admin", false, "include the platform admin claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}
