package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirehook/internal/app"
	"github.com/vovakirdan/wirehook/internal/config"
	"github.com/vovakirdan/wirehook/internal/log"
	"github.com/vovakirdan/wirehook/internal/signature"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		logLevel   string
	)

	serve := func(cmd *cobra.Command, _ []string) error {
		bootLogger := log.New("info", "json")
		cfg, path, err := config.Load(bootLogger, configPath)
		if err != nil {
			return err
		}
		cfg.UpdateFrom(config.Config{Addr: addr, LogLevel: logLevel})

		logger := log.New(cfg.LogLevel, cfg.LogFormat)
		logger.Info().Str("config", path).Msg("configuration loaded")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(ctx, &cfg, logger)
		if err != nil {
			logger.Error().Err(err).Msg("failed to start")
			return err
		}

		logger.Info().Str("addr", cfg.Addr).Msg("starting wirehook server")
		if err := application.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("server exited with error")
			return err
		}
		logger.Info().Msg("server stopped")
		return nil
	}

	root := &cobra.Command{
		Use:          "wirehook",
		Short:        "Signed webhook message ingestion and query server",
		SilenceUsage: true,
		RunE:         serve,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&addr, "addr", "", "HTTP listen address, overrides config")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error), overrides config")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})
	root.AddCommand(newSignCmd())

	root.SetContext(context.Background())
	return root
}

func newSignCmd() *cobra.Command {
	var (
		secret string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the X-Signature value for a request body",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv("WEBHOOK_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("secret is required (--secret or WEBHOOK_SECRET)")
			}

			var body []byte
			var err error
			if file == "" || file == "-" {
				body, err = io.ReadAll(cmd.InOrStdin())
			} else {
				body, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), signature.Sign([]byte(secret), body))
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "shared webhook secret (default $WEBHOOK_SECRET)")
	cmd.Flags().StringVar(&file, "file", "-", "file holding the exact request body, - for stdin")
	return cmd
}
