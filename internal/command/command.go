// Package command is the biathlon command line: cumulation tables, single
// race and relay tables, season listings and the runs server.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"biathlonstats/internal/config"
	"biathlonstats/internal/ibu"
	"biathlonstats/internal/pipeline"
	"biathlonstats/internal/scope"
	"biathlonstats/internal/server"
)

// App holds what the commands share. Source and Now are nil in production:
// the results service and the wall clock are used.
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	Source scope.Source
	Now    func() time.Time
}

func New(stdout, stderr io.Writer) *App {
	return &App{Stdout: stdout, Stderr: stderr}
}

// Run executes the command line in args with the process streams.
func Run(args []string) error {
	return New(os.Stdout, os.Stderr).CLI().Run(args)
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// CLI builds the urfave/cli application.
func (a *App) CLI() *cli.App {
	return &cli.App{
		Name:      "biathlon",
		Usage:     "cumulative biathlon statistics from the IBU results service",
		Writer:    a.Stdout,
		ErrWriter: a.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML configuration `FILE`", EnvVars: []string{"BIATHLON_CONFIG"}},
			&cli.BoolFlag{Name: "debug", Usage: "log at debug level"},
		},
		Commands: []*cli.Command{
			a.cumulateCommand(),
			a.resultsCommand(),
			a.relayCommand(),
			a.standingsCommand(),
			a.eventsCommand(),
			a.seasonsCommand(),
			a.serveCommand(),
		},
	}
}

// setup loads the configuration and builds the logger and runner of one
// invocation.
func (a *App) setup(c *cli.Context) (config.Config, *slog.Logger, *pipeline.Runner, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, nil, nil, cli.Exit(fmt.Sprintf("loading config: %v", err), 2)
	}
	logger := cfg.Logger(a.Stderr, c.Bool("debug"))

	src := a.Source
	if src == nil {
		client, err := ibu.New(ibu.Options{
			BaseURL:           cfg.API.BaseURL,
			Timeout:           cfg.API.Timeout,
			RequestsPerSecond: cfg.API.RequestsPerSecond,
			Burst:             cfg.API.Burst,
			Logger:            logger,
		})
		if err != nil {
			return cfg, nil, nil, fmt.Errorf("creating results client: %w", err)
		}
		src = client
	}
	return cfg, logger, pipeline.NewRunner(src, logger, nil), nil
}

// exit maps pipeline errors to exit codes: 2 for rejected arguments, 1 for
// empty results and failures.
func exit(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pipeline.ErrInvalidArgument):
		return cli.Exit(err.Error(), 2)
	default:
		return cli.Exit(err.Error(), 1)
	}
}

func (a *App) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the runs API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Usage: "listen port, overrides the configuration"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("loading config: %v", err), 2)
			}
			if p := c.String("port"); p != "" {
				cfg.Server.Port = strings.TrimPrefix(p, ":")
			}
			logger := cfg.Logger(a.Stderr, c.Bool("debug"))

			ctx, stop := signal.NotifyContext(contextOf(c), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Run(ctx, cfg, logger)
		},
	}
}

func contextOf(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}
