package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"enclave/internal/domain"
	"enclave/internal/prompt"
	"enclave/internal/services/registration"
	"enclave/internal/tui"
)

func registerCmd() *cobra.Command {
	var (
		discard bool
		theme   string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account with the registration wizard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var profile domain.AccountProfile
			ctrl, err := wire.Registration.Start(registration.StartOptions{
				Discard:    discard,
				OnComplete: func(p domain.AccountProfile) { profile = p },
			})
			if errors.Is(err, registration.ErrIncomplete) {
				return fmt.Errorf("%w; rerun with --discard to start over", err)
			}
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			plain := viper.GetBool("ui.plain") || !prompt.IsTerminal(os.Stdin, os.Stdout)
			if plain {
				err = prompt.New(cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx, ctrl, wire.Registration.Cities)
			} else {
				err = tui.Run(ctx, ctrl, wire.Registration.Cities, tui.DetectTheme(theme))
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (user id %s) on %s\n",
				profile.Username, profile.UserID, profile.ServerURL)
			return nil
		},
	}

	cmd.Flags().Bool("plain", false, "use line prompts instead of the full-screen wizard")
	cmd.Flags().BoolVar(&discard, "discard", false, "throw away tokens left by an unfinished registration")
	cmd.Flags().StringVar(&theme, "theme", "", "colour theme: dark or light (default detected)")
	bindFlag(cmd.Flags().Lookup("plain"), "ui.plain")
	return cmd
}
