package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/backoffice/internal/commands"
	"github.com/colonyops/backoffice/internal/core/config"
	"github.com/colonyops/backoffice/internal/core/logging"
	"github.com/colonyops/backoffice/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		app       = &commands.App{}
	)

	flags := &commands.Flags{}

	root := &cli.Command{
		Name:      "backoffice",
		Usage:     "Review merchants and business reports from the terminal",
		UsageText: "backoffice [global options] command [command options]",
		Description: `backoffice talks to the compliance back-office API.

Every read and write reports its outcome as a toast on stderr. Reads are
retried before a failure is shown; writes are sent once.

Run 'backoffice report list' to see recent business reports.
Run 'backoffice notifications ls' to see past toasts.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("BACKOFFICE_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file",
				Sources:     cli.EnvVars("BACKOFFICE_LOG_FILE"),
				Value:       commands.DefaultLogFile(),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("BACKOFFICE_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("BACKOFFICE_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "api-url",
				Usage:       "back-office API base URL (overrides config)",
				Sources:     cli.EnvVars("BACKOFFICE_API_URL"),
				Destination: &flags.APIURL,
			},
			&cli.StringFlag{
				Name:        "api-token",
				Usage:       "bearer token for the API (overrides config)",
				Sources:     cli.EnvVars("BACKOFFICE_API_TOKEN"),
				Destination: &flags.APIToken,
			},
			&cli.StringFlag{
				Name:        "locale",
				Usage:       "locale for toast messages (overrides config)",
				Sources:     cli.EnvVars("BACKOFFICE_LOCALE", "LANG"),
				Destination: &flags.Locale,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile, logging.ContextHook{})
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			// config validate reports problems itself instead of failing here
			if c.Args().First() == "config" {
				return ctx, nil
			}

			cfg, err := config.Read(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Apply(cfg)
			if err := cfg.Validate(); err != nil {
				return ctx, fmt.Errorf("invalid config: %w", err)
			}
			flags.Config = cfg

			a, err := commands.NewApp(cfg, os.Stderr)
			if err != nil {
				return ctx, err
			}

			// Populate the pre-allocated App (commands already hold a pointer to it)
			*app = *a
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			var err error
			if app != nil {
				if err = app.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close app")
				}
			}

			if logCloser != nil {
				logCloser()
			}
			return err
		},
	}

	root = commands.NewMerchantCmd(flags, app).Register(root)
	root = commands.NewReportCmd(flags, app).Register(root)
	root = commands.NewCaseCmd(flags, app).Register(root)
	root = commands.NewNotificationsCmd(flags, app).Register(root)
	root = commands.NewConfigValidateCmd(flags).Register(root)

	exitCode := 0
	runErr := root.Run(ctx, os.Args)
	if runErr != nil {
		if !commands.IsShown(runErr) {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, runErr.Error())
		}
		exitCode = 1
	}

	os.Exit(exitCode)
}
