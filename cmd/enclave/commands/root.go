package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"enclave/internal/app"
	"enclave/internal/config"
)

var (
	cfgFile string
	wire    *app.Wire
)

// Execute runs the CLI under ctx.
func Execute(ctx context.Context) error {
	return execute(ctx, newRootCmd())
}

// execute runs root and releases the wiring however the command ended.
func execute(ctx context.Context, root *cobra.Command) error {
	defer closeWire()
	return root.ExecuteContext(ctx)
}

func closeWire() {
	if wire == nil {
		return
	}
	if err := wire.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "enclave: close log:", err)
	}
	wire = nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "enclave",
		Short:        "Register and manage an account with an identity service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(cfgFile); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			wire, err = app.NewWire(app.Config{Settings: cfg})
			return err
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default "+config.ConfigFile()+")")
	flags.String("home", "", "state directory (default ~/.enclave)")
	flags.String("server", "", "identity service base URL")
	flags.String("log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")
	flags.String("log-dir", "", "write logs to this directory instead of stderr")
	bindFlag(flags.Lookup("home"), "storage.home")
	bindFlag(flags.Lookup("server"), "gateway.base_url")
	bindFlag(flags.Lookup("log-level"), "logging.level")
	bindFlag(flags.Lookup("log-dir"), "logging.dir")

	root.AddCommand(registerCmd(), whoamiCmd(), logoutCmd(), citiesCmd())
	return root
}
