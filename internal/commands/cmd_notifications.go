package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/colonyops/backoffice/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type NotificationsCmd struct {
	flags *Flags
	app   *App

	// flags
	jsonOutput bool
	limit      int
}

// NewNotificationsCmd creates a new notifications command
func NewNotificationsCmd(flags *Flags, app *App) *NotificationsCmd {
	return &NotificationsCmd{flags: flags, app: app}
}

// Register adds the notifications command to the application
func (cmd *NotificationsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:    "notifications",
		Aliases: []string{"notif"},
		Usage:   "Show or clear the toast history",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List past toasts, newest first",
				UsageText: "backoffice notifications ls [--limit N] [--json]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        "limit",
						Usage:       "maximum number of entries (0 = all)",
						Value:       20,
						Destination: &cmd.limit,
					},
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON lines",
						Destination: &cmd.jsonOutput,
					},
				},
				Action: cmd.runList,
			},
			{
				Name:      "clear",
				Usage:     "Delete the toast history",
				UsageText: "backoffice notifications clear",
				Action:    cmd.runClear,
			},
		},
	})

	return app
}

func (cmd *NotificationsCmd) runList(ctx context.Context, c *cli.Command) error {
	items, err := cmd.app.Bus.History(ctx, cmd.limit)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		for _, n := range items {
			if err := iojson.WriteLine(out, n); err != nil {
				return fmt.Errorf("encode notification: %w", err)
			}
		}
		return nil
	}

	if len(items) == 0 {
		_, _ = fmt.Fprintln(c.Root().ErrWriter, "No notifications")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tLEVEL\tMESSAGE")
	for _, n := range items {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", n.CreatedAt.Format(time.DateTime), n.Level, n.Message)
	}
	return w.Flush()
}

func (cmd *NotificationsCmd) runClear(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.Bus.Clear(ctx); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	_, _ = fmt.Fprintln(c.Root().ErrWriter, "Notification history cleared")
	return nil
}
