package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"spotifly/internal/config"
	"spotifly/internal/identity"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Issue a session token for local testing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(true)
		if err != nil {
			return err
		}
		token, err := identity.NewJWTProvider(cfg.Security.JWTSecret, cfg.Security.JWTIssuer).Issue(args[0], tokenTTL)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
