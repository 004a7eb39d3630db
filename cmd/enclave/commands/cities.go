package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func citiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cities",
		Short: "List the cities the identity service offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cities, err := wire.Gateway.ListCities(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cities {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", c.ID, c.Name)
			}
			return nil
		},
	}
}
