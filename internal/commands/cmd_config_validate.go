package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/colonyops/backoffice/internal/core/config"
	"github.com/colonyops/backoffice/internal/toast"
	"github.com/colonyops/backoffice/pkg/iojson"
	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "backoffice config validate [options]",
				Description: "Validates the configuration file, flag overrides, and data directory.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

// validationResult is the JSON output of config validate.
type validationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []fieldError               `json:"errors,omitempty"`
	Warnings []config.ValidationWarning `json:"warnings,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	cfg, err := config.Read(cmd.flags.ConfigPath, cmd.flags.DataDir)
	if err != nil {
		return err
	}
	cmd.flags.Apply(cfg)

	result := validationResult{Valid: true}
	if err := cfg.ValidateDeep(cmd.flags.ConfigPath); err != nil {
		result.Valid = false
		result.Errors = toFieldErrors(err)
	}
	result.Warnings = cfg.Warnings(toast.ThemeNames())

	out := c.Root().Writer
	if cmd.format == "json" {
		if err := iojson.WriteWith(out, c.Root().ErrWriter, result); err != nil {
			return err
		}
	} else {
		printValidation(out, cmd.flags.ConfigPath, result)
	}

	if !result.Valid {
		return fmt.Errorf("config has %d error(s)", len(result.Errors))
	}
	return nil
}

func toFieldErrors(err error) []fieldError {
	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return []fieldError{{Field: "config", Message: err.Error()}}
	}

	out := make([]fieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, fieldError{Field: fe.Field, Message: fe.Err.Error()})
	}
	return out
}

func printValidation(w io.Writer, path string, result validationResult) {
	if result.Valid {
		_, _ = fmt.Fprintf(w, "✔ %s is valid\n", path)
	}
	for _, e := range result.Errors {
		_, _ = fmt.Fprintf(w, "✖ %s: %s\n", e.Field, e.Message)
	}
	for _, warn := range result.Warnings {
		if warn.Item != "" {
			_, _ = fmt.Fprintf(w, "! %s (%s): %s\n", warn.Category, warn.Item, warn.Message)
			continue
		}
		_, _ = fmt.Fprintf(w, "! %s: %s\n", warn.Category, warn.Message)
	}
}
