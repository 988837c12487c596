package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/andrebq/authbox/cmd/authbox/serve"
	"github.com/andrebq/authbox/cmd/authbox/users"
	"github.com/andrebq/authbox/internal/logutil"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	logLevel := "info"
	logFormat := "json"
	app := &cli.App{
		Name:  "authbox",
		Usage: "Authentication layer for web APIs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Minimum level of log messages (trace, debug, info, warn, error)",
				EnvVars:     []string{"AUTHBOX_LOG_LEVEL"},
				Value:       logLevel,
				Destination: &logLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "Log output format: json or console",
				EnvVars:     []string{"AUTHBOX_LOG_FORMAT"},
				Value:       logFormat,
				Destination: &logFormat,
			},
		},
		Before: func(ctx *cli.Context) error {
			return logutil.Configure(os.Stderr, logLevel, logFormat)
		},
		Commands: []*cli.Command{
			serve.Cmd(),
			users.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}
