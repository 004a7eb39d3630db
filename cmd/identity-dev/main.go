package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"enclave/internal/devidentity"
	"enclave/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:           "identity-dev",
		Short:         "In-memory identity service for local development",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", ":8080", "listen address")
	flags.StringSlice("activation-code", []string{"ABC123"}, "seeded single-use activation code (repeatable)")
	flags.String("signing-key", "", "HMAC key for session tokens (random when empty)")
	flags.Int("send-limit", 3, "verification codes per address per window")
	flags.Duration("send-window", 10*time.Minute, "rate limit window for verification codes")
	flags.String("log-level", logging.LevelInfo, "log level (DEBUG, INFO, WARN, ERROR)")
	_ = v.BindPFlags(flags)

	v.SetEnvPrefix("ENCLAVE_DEV")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return cmd
}

func run(ctx context.Context, v *viper.Viper) error {
	log := logging.New(os.Stderr, v.GetString("log-level"))

	srv, err := devidentity.New(devidentity.Options{
		ActivationCodes: v.GetStringSlice("activation-code"),
		SigningKey:      []byte(v.GetString("signing-key")),
		SendLimit:       v.GetInt("send-limit"),
		SendWindow:      v.GetDuration("send-window"),
		Logger:          log,
	})
	if err != nil {
		return err
	}

	hs := &http.Server{
		Addr:              v.GetString("addr"),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("identity service listening", "addr", hs.Addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("shutting down")
	return hs.Shutdown(shutdownCtx)
}
