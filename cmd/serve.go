package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"chatai-router/internal/config"
	providerfactory "chatai-router/internal/provider/factory"
	"chatai-router/internal/router"
	"chatai-router/internal/server"
)

const serveUsage = `Usage:
  chatai-router serve [--config <path>] [--port <port>] [--env <file>]

Flags:
  --config string   Path to YAML configuration file (defaults are used when omitted)
  --port   int      Override server port from configuration
  --env    string   Dotenv file with provider API keys (default ".env")`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var cfgPath, envFile string
	var overridePort int
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.StringVar(&envFile, "env", ".env", "dotenv file with provider credentials")
	fs.IntVar(&overridePort, "port", 0, "override server port")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	cfg, err := config.Load(cfgPath, envFile)
	if err != nil {
		return err
	}

	if overridePort != 0 {
		if overridePort < 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}

	logger := newLogger(os.Stderr, cfg.Logging.Level)
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	registry, err := providerfactory.NewRegistry(cfg, logger)
	if err != nil {
		return err
	}

	rt, err := router.New(registry)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, rt, server.WithLogger(logger))
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
