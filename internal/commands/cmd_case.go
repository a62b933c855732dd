package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/backoffice/internal/backoffice"
	"github.com/urfave/cli/v3"
)

type CaseCmd struct {
	flags *Flags
	app   *App

	// flags
	reason string
}

// NewCaseCmd creates a new case command
func NewCaseCmd(flags *Flags, app *App) *CaseCmd {
	return &CaseCmd{flags: flags, app: app}
}

// Register adds the case command to the application
func (cmd *CaseCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "case",
		Usage: "Record decisions on review cases",
		Commands: []*cli.Command{
			{
				Name:      "approve",
				Usage:     "Approve a case",
				UsageText: "backoffice case approve <id>",
				Action: cmd.decide(func(ctx context.Context, id string) (backoffice.Case, error) {
					return cmd.app.Service.ApproveCase(ctx, id)
				}),
			},
			{
				Name:      "reject",
				Usage:     "Reject a case",
				UsageText: "backoffice case reject <id>",
				Action: cmd.decide(func(ctx context.Context, id string) (backoffice.Case, error) {
					return cmd.app.Service.RejectCase(ctx, id)
				}),
			},
			{
				Name:      "revision",
				Usage:     "Ask for a revision of a case",
				UsageText: "backoffice case revision <id> --reason TEXT",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "reason",
						Usage:       "what needs to change",
						Destination: &cmd.reason,
					},
				},
				Action: cmd.decide(func(ctx context.Context, id string) (backoffice.Case, error) {
					return cmd.app.Service.AskRevision(ctx, id, cmd.reason)
				}),
			},
		},
	})

	return app
}

func (cmd *CaseCmd) decide(fn func(ctx context.Context, id string) (backoffice.Case, error)) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		id, err := requireArg(c, "case id")
		if err != nil {
			return err
		}

		cs, err := fn(ctx, id)
		if err != nil {
			return requestErr(err)
		}

		_, _ = fmt.Fprintf(c.Root().Writer, "%s\t%s\n", cs.ID, cs.Status)
		return nil
	}
}
