package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"enclave/internal/services/session"
)

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account and session held for the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := wire.Session.Status()
			if errors.Is(err, session.ErrNotRegistered) {
				fmt.Fprintf(cmd.OutOrStdout(), "Not registered on %s\n", wire.ServerURL)
				return nil
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p := st.Profile
			if p.Username == "" {
				fmt.Fprintln(out, "Registration not finished; run register --discard to start over")
			}
			fmt.Fprintf(out, "Server:    %s\n", wire.ServerURL)
			fmt.Fprintf(out, "User id:   %s\n", p.UserID)
			if p.Username != "" {
				fmt.Fprintf(out, "Username:  %s\n", p.Username)
				fmt.Fprintf(out, "Email:     %s\n", p.Email)
				fmt.Fprintf(out, "City:      %s\n", p.CityID)
			}
			if !st.HasTokens {
				fmt.Fprintln(out, "Session:   none")
				return nil
			}
			fmt.Fprintf(out, "Session:   %s\n", st.TokenFingerprint)
			switch {
			case st.ExpiresAt.IsZero():
			case st.Expired:
				fmt.Fprintf(out, "Expired:   %s\n", st.ExpiresAt.Local().Format(time.RFC1123))
			default:
				fmt.Fprintf(out, "Expires:   %s\n", st.ExpiresAt.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}
