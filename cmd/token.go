package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/coderunner.net/internal/adapter/crypto"
	"gitlab.com/coderunner.net/internal/config"
)

var tokenFlags struct {
	subject string
	ttl     time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a service token signed with JWT_SECRET",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		jwtCfg := config.NewJwtConfig()
		if jwtCfg.Secret == "" {
			return fmt.Errorf("JWT_SECRET is not set")
		}
		token, err := crypto.NewJWTService(jwtCfg).GenerateTokenHMAC(cmd.Context(), "HS256", map[string]interface{}{
			"sub": tokenFlags.subject,
			"iat": time.Now().Unix(),
			"exp": time.Now().Add(tokenFlags.ttl).Unix(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenFlags.subject, "sub", "submissions", "subject claim")
	tokenCmd.Flags().DurationVar(&tokenFlags.ttl, "ttl", time.Hour, "token lifetime")
}
