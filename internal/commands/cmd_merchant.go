package commands

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/colonyops/backoffice/internal/backoffice"
	"github.com/colonyops/backoffice/internal/core/query"
	"github.com/colonyops/backoffice/internal/core/report"
	"github.com/colonyops/backoffice/pkg/iojson"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

type MerchantCmd struct {
	flags *Flags
	app   *App

	// flags
	jsonOutput bool
	interval   time.Duration
	count      int
}

// NewMerchantCmd creates a new merchant command
func NewMerchantCmd(flags *Flags, app *App) *MerchantCmd {
	return &MerchantCmd{flags: flags, app: app}
}

// Register adds the merchant command to the application
func (cmd *MerchantCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "merchant",
		Usage: "Inspect merchants",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show a merchant",
				UsageText: "backoffice merchant get <id> [--json]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON",
						Destination: &cmd.jsonOutput,
					},
				},
				Action: cmd.runGet,
			},
			{
				Name:      "watch",
				Usage:     "Poll a merchant until interrupted",
				UsageText: "backoffice merchant watch <id> [--interval 10s] [--count N]",
				Description: `Fetches the merchant every interval and prints a line per poll.

Failed polls are reported as toasts. Identical error toasts are shown once
while they are still on screen.`,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:        "interval",
						Usage:       "time between polls",
						Value:       10 * time.Second,
						Destination: &cmd.interval,
					},
					&cli.IntFlag{
						Name:        "count",
						Usage:       "stop after N polls (0 = until interrupted)",
						Destination: &cmd.count,
					},
				},
				Action: cmd.runWatch,
			},
		},
	})

	return app
}

func (cmd *MerchantCmd) runGet(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, "merchant id")
	if err != nil {
		return err
	}

	m, err := cmd.app.Service.Merchant(ctx, id)
	if err != nil {
		return requestErr(err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteWith(out, c.Root().ErrWriter, m)
	}

	printMerchant(out, m)
	return nil
}

func (cmd *MerchantCmd) runWatch(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, "merchant id")
	if err != nil {
		return err
	}
	if cmd.interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cmd.interval)
	defer ticker.Stop()

	out := c.Root().Writer
	for polls := 1; ; polls++ {
		// always refetch regardless of configured stale time
		m, err := cmd.app.Service.Merchant(ctx, id, query.WithStaleTime(0))
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			log.Debug().Err(err).Str("merchant_id", id).Msg("poll failed")
		default:
			_, _ = fmt.Fprintf(out, "%s  %s  %s  risk=%s\n",
				time.Now().Format(time.TimeOnly), m.Name, m.Status, riskLabel(m.RiskScore))
		}

		if cmd.count > 0 && polls >= cmd.count {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func printMerchant(w io.Writer, m backoffice.Merchant) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ID\t%s\n", m.ID)
	_, _ = fmt.Fprintf(tw, "NAME\t%s\n", m.Name)
	_, _ = fmt.Fprintf(tw, "STATUS\t%s\n", m.Status)
	_, _ = fmt.Fprintf(tw, "WEBSITE\t%s\n", orDash(m.Website))
	_, _ = fmt.Fprintf(tw, "COUNTRY\t%s\n", orDash(m.Country))
	_, _ = fmt.Fprintf(tw, "RISK\t%s\n", riskLabel(m.RiskScore))
	_ = tw.Flush()
}

func riskLabel(score *int) string {
	if score == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d (%s)", *score, report.SeverityFromRiskScore(score))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func requireArg(c *cli.Command, name string) (string, error) {
	if c.Args().Len() != 1 {
		return "", fmt.Errorf("expected exactly one argument: %s", name)
	}
	return c.Args().First(), nil
}
