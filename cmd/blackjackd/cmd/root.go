package cmd

import (
	"strings"

	"blackjack-lite/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// NewRootCmd creates the root command for blackjackd. It is called once in main.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	rootCmd := &cobra.Command{
		Use:           "blackjackd",
		Short:         "Authoritative multiplayer blackjack server",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SetOut(cmd.OutOrStdout())
			cmd.SetErr(cmd.ErrOrStderr())
			// A missing .env file is fine.
			_ = godotenv.Load()
			return nil
		},
	}

	rootCmd.AddCommand(newServeCmd(v), newTokenCmd(v))
	return rootCmd
}

// bindFlags maps kebab-case flags onto the snake_case config keys.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	return err
}
