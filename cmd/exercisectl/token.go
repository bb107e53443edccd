package main

import (
	"fmt"
	"time"

	"github.com/cuentos-signos/backend/internal/auth"
	"github.com/cuentos-signos/backend/internal/config"
	"github.com/spf13/cobra"
)

var (
	tokenSubjectFlag string
	tokenTTLFlag     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token",
	Long:  `Sign a token with JWT_SECRET (read from the environment or .env).`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is not set")
		}
		tok, err := auth.IssueToken([]byte(cfg.JWTSecret), tokenSubjectFlag, tokenTTLFlag)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubjectFlag, "subject", "story-service", "Caller name embedded in the token")
	tokenCmd.Flags().DurationVar(&tokenTTLFlag, "ttl", 30*24*time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
