package main

import (
	"context"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pure-golang/mailrelay/api"
	"github.com/pure-golang/mailrelay/config"
	"github.com/pure-golang/mailrelay/httpserver"
	"github.com/pure-golang/mailrelay/logger"
	"github.com/pure-golang/mailrelay/metrics"
	"github.com/pure-golang/mailrelay/tracing"
)

func newServeCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*envFiles...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logger.InitDefault(cfg.Logger)

	closers := make([]io.Closer, 0, 3)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.WithErr(err).Warn("shutdown step failed")
			}
		}
	}()

	if cfg.Tracing.Enabled() {
		provider, err := tracing.Init(tracing.NewOTLPBuilder(cfg.Tracing))
		if err != nil {
			logger.WithErr(err).Warn("tracing disabled")
		}
		closers = append(closers, provider)
	}

	if cfg.Metrics.Enabled {
		m, err := metrics.InitDefault(cfg.Metrics)
		if err != nil {
			return err
		}
		closers = append(closers, m)
	}

	svc, sender, err := newRelay(cfg)
	if err != nil {
		return err
	}
	closers = append(closers, sender)

	if !svc.Configured() {
		log.Warn("sender credentials are missing, every send will fail",
			slog.String("provider", string(cfg.Mail.Provider)))
	}

	srv := httpserver.NewDefault(cfg.Server, api.NewRouter(svc, cfg.API))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server stopped")
	case <-ctx.Done():
		log.Info("shutting down")
	}

	if err := srv.Close(); err != nil {
		return err
	}
	return <-errCh
}
