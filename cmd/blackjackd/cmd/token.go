package cmd

import (
	"fmt"
	"time"

	"blackjack-lite/internal/auth"
	"blackjack-lite/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTokenCmd(v *viper.Viper) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <identity>",
		Short: "Mint a signed credential for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			secret := v.GetString(config.KeyAuthJWTSecret)
			if secret == "" {
				return fmt.Errorf("%s_%s must be set", config.EnvPrefix, "AUTH_JWT_SECRET")
			}
			issuer := auth.NewIssuer(secret, v.GetString(config.KeyAuthJWTIssuer), v.GetString(config.KeyAuthIdentityClaim))
			tok, err := issuer.Issue(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "credential lifetime")
	return cmd
}
