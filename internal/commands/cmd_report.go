package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/colonyops/backoffice/internal/backoffice"
	"github.com/colonyops/backoffice/internal/core/report"
	"github.com/colonyops/backoffice/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type ReportCmd struct {
	flags *Flags
	app   *App

	// flags
	jsonOutput  bool
	list        backoffice.ListParams
	input       report.CreateInput
	interactive bool
	file        iojson.FileReader[report.CreateInput]
}

// NewReportCmd creates a new report command
func NewReportCmd(flags *Flags, app *App) *ReportCmd {
	return &ReportCmd{flags: flags, app: app}
}

// Register adds the report command to the application
func (cmd *ReportCmd) Register(app *cli.Command) *cli.Command {
	jsonFlag := func() cli.Flag {
		return &cli.BoolFlag{
			Name:        "json",
			Usage:       "output as JSON",
			Destination: &cmd.jsonOutput,
		}
	}

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "report",
		Usage: "Manage business reports",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List business reports",
				UsageText: "backoffice report list [--page N] [--limit N] [--search TEXT] [--json]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Value: 1, Usage: "page number", Destination: &cmd.list.Page},
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "reports per page", Destination: &cmd.list.Limit},
					&cli.StringFlag{Name: "search", Usage: "filter by website or company", Destination: &cmd.list.Search},
					jsonFlag(),
				},
				Action: cmd.runList,
			},
			{
				Name:      "get",
				Usage:     "Show a business report",
				UsageText: "backoffice report get <id> [--json]",
				Flags:     []cli.Flag{jsonFlag()},
				Action:    cmd.runGet,
			},
			{
				Name:      "create",
				Usage:     "Request a new business report",
				UsageText: "backoffice report create --website URL [--company NAME] [--country CC] [--business-id ID]",
				Description: `Requests a report for a merchant website.

Either a company name or a business correlation id is required. Use
--interactive to fill the fields in a form, or --file to read them as JSON.`,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "website", Usage: "merchant website URL", Destination: &cmd.input.WebsiteURL},
					&cli.StringFlag{Name: "company", Usage: "company name", Destination: &cmd.input.CompanyName},
					&cli.StringFlag{Name: "country", Usage: "operating country (ISO 3166-1 alpha-2)", Destination: &cmd.input.OperatingCountry},
					&cli.StringFlag{Name: "business-id", Usage: "business correlation id", Destination: &cmd.input.BusinessCorrelationID},
					&cli.BoolFlag{Name: "interactive", Aliases: []string{"i"}, Usage: "fill fields in a form", Destination: &cmd.interactive},
					cmd.file.Flag(),
					jsonFlag(),
				},
				Action: cmd.runCreate,
			},
		},
	})

	return app
}

func (cmd *ReportCmd) runList(ctx context.Context, c *cli.Command) error {
	page, err := cmd.app.Service.Reports(ctx, cmd.list)
	if err != nil {
		return requestErr(err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteWith(out, c.Root().ErrWriter, page)
	}

	if len(page.Data) == 0 {
		_, _ = fmt.Fprintln(c.Root().ErrWriter, "No reports found")
		return nil
	}

	printReports(out, page.Data)
	_, _ = fmt.Fprintf(out, "\npage %d of %d (%d reports)\n", max(cmd.list.Page, 1), page.TotalPages, page.TotalItems)
	return nil
}

func (cmd *ReportCmd) runGet(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, "report id")
	if err != nil {
		return err
	}

	r, err := cmd.app.Service.Report(ctx, id)
	if err != nil {
		return requestErr(err)
	}

	return cmd.print(c, r)
}

func (cmd *ReportCmd) runCreate(ctx context.Context, c *cli.Command) error {
	in := cmd.input

	switch {
	case cmd.file.Set():
		fromFile, err := cmd.file.Read()
		if err != nil {
			return err
		}
		in = fromFile
	case cmd.interactive:
		if err := runReportForm(ctx, &in); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
	}

	r, err := cmd.app.Service.CreateReport(ctx, in)
	if err != nil {
		return requestErr(err)
	}

	return cmd.print(c, r)
}

func (cmd *ReportCmd) print(c *cli.Command, r report.BusinessReport) error {
	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteWith(out, c.Root().ErrWriter, r)
	}
	printReports(out, []report.BusinessReport{r})
	return nil
}

func runReportForm(ctx context.Context, in *report.CreateInput) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Website URL").
				Description("Absolute http(s) URL of the merchant website").
				Validate(func(s string) error { return report.WebsiteURL(strings.TrimSpace(s)) }).
				Value(&in.WebsiteURL),
			huh.NewInput().
				Title("Company name").
				Value(&in.CompanyName),
			huh.NewInput().
				Title("Operating country").
				Description("Two-letter code, e.g. DE").
				Validate(func(s string) error { return report.Country(strings.ToUpper(strings.TrimSpace(s))) }).
				Value(&in.OperatingCountry),
			huh.NewInput().
				Title("Business correlation ID").
				Value(&in.BusinessCorrelationID),
		),
	).RunWithContext(ctx)
}

func printReports(w io.Writer, reports []report.BusinessReport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tRISK\tWEBSITE\tCOMPANY\tCREATED")
	for _, r := range reports {
		created := "-"
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Status, riskLabel(r.RiskScore), r.Business.Website, orDash(r.Business.CompanyName), created)
	}
	_ = tw.Flush()
}
