// Package vaultops implements the vaultops command line.
package vaultops

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sc1-labs/vaultops/config"
	"github.com/sc1-labs/vaultops/sdk"
)

type rootOptions struct {
	envFile     string
	verbose     bool
	metricsAddr string
}

// BuildRootCmd returns the vaultops command with every subcommand attached.
func BuildRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "vaultops",
		Short:         "Submit privileged transactions and migrate vault strategies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env", config.DefaultEnvFile, "Path of the .env file to load")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level")
	cmd.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	cmd.AddCommand(buildGasPriceCmd(opts))
	cmd.AddCommand(buildSendCmd(opts))
	cmd.AddCommand(buildMigrateCmd(opts))
	cmd.AddCommand(buildExecuteScheduledCmd(opts))
	cmd.AddCommand(buildUpgradeVaultsCmd(opts))

	return cmd
}

// setup loads the configuration and returns a context carrying the logger. The returned
// function releases what setup started.
func (o *rootOptions) setup(cmd *cobra.Command) (context.Context, *config.Config, func(), error) {
	logger, err := o.logger()
	if err != nil {
		return nil, nil, nil, err
	}
	ctx := sdk.WithLogger(cmd.Context(), logger.Sugar())

	cfg, err := config.Load(o.envFile)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}

	srv := o.serveMetrics(ctx)
	cleanup := func() {
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}
		_ = logger.Sync()
	}

	return ctx, cfg, cleanup, nil
}

func (o *rootOptions) logger() (*zap.Logger, error) {
	if o.verbose {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

func (o *rootOptions) serveMetrics(ctx context.Context) *http.Server {
	if o.metricsAddr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: o.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sdk.LoggerFrom(ctx).Warnf("metrics server: %v", err)
		}
	}()

	return srv
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
