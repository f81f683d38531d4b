package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kflex/dashboard/internal/admin/analytics"
	"github.com/kflex/dashboard/internal/admin/app"
	"github.com/kflex/dashboard/internal/admin/orders"
	"github.com/kflex/dashboard/internal/platform/config"
	"github.com/kflex/dashboard/internal/platform/observability"
	"github.com/kflex/dashboard/internal/platform/secrets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "kflexctl:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "kflexctl",
		Usage: "inspect and manage dashboard orders from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Value:   ".env",
				Usage:   "dotenv file with admin configuration",
				EnvVars: []string{"KFLEXCTL_ENV_FILE"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "log level for diagnostic output on stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "summary",
				Usage: "print the dashboard summary",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print the full summary as JSON"},
				},
				Action: withApp(runSummary),
			},
			{
				Name:  "orders",
				Usage: "list, export and update orders",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "print one page of orders",
						Flags: append(criteriaFlags(),
							&cli.IntFlag{Name: "page", Value: 1, Usage: "page number"},
						),
						Action: withApp(runOrdersList),
					},
					{
						Name:  "export",
						Usage: "write matching orders as CSV",
						Flags: append(criteriaFlags(),
							&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file; stdout when empty"},
						),
						Action: withApp(runOrdersExport),
					},
					{
						Name:  "set-status",
						Usage: "move an order to another status",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "id", Required: true, Usage: "order id"},
							&cli.StringFlag{Name: "status", Required: true, Usage: "Pending, Completed or Cancelled"},
							&cli.StringFlag{Name: "note", Usage: "audit note"},
							&cli.StringFlag{Name: "actor", Value: "kflexctl", EnvVars: []string{"USER"}, Usage: "actor recorded in the audit log"},
						},
						Action: withApp(runSetStatus),
					},
				},
			},
		},
	}
}

func criteriaFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "status", Value: string(orders.StatusFilterAll), Usage: "All, Pending, Completed or Cancelled"},
		&cli.StringFlag{Name: "q", Usage: "case-insensitive customer name search"},
	}
}

func withApp(run func(*cli.Context, *app.App) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		logger, err := observability.NewLogger(c.String("log-level"))
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()

		fetcher, err := secrets.NewFetcher(c.Context,
			secrets.WithLogger(logger.Named("secrets")),
			secrets.WithProject(os.Getenv("ADMIN_SECRETS_PROJECT_ID")),
			secrets.WithFallbackFile(".secrets.local"),
		)
		if err != nil {
			return err
		}
		defer fetcher.Close()

		cfg, err := config.Load(c.Context,
			config.WithEnvFile(c.String("env-file")),
			config.WithSecretResolver(fetcher),
		)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		services, err := app.Build(c.Context, cfg, logger.Named("kflexctl"))
		if err != nil {
			return err
		}
		defer func() {
			if err := services.Close(); err != nil {
				logger.Warn("close services", zap.Error(err))
			}
		}()
		return run(c, services)
	}
}

func parseCriteria(c *cli.Context) (orders.Criteria, error) {
	filter, err := orders.ParseStatusFilter(c.String("status"))
	if err != nil {
		return orders.Criteria{}, err
	}
	return orders.Criteria{Status: filter, Query: c.String("q")}, nil
}

func runSummary(c *cli.Context, a *app.App) error {
	summary, err := a.Analytics.Dashboard(c.Context)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Total earnings\t%s\n", summary.Display.TotalEarnings)
	fmt.Fprintf(w, "Gross amount\t%s\n", summary.Display.GrossAmount)
	fmt.Fprintf(w, "Orders\t%d\n", summary.TotalOrders)
	fmt.Fprintf(w, "Completed / Pending / Cancelled\t%d / %d / %d\n",
		summary.CompletedCount, summary.PendingCount, summary.CancelledCount)
	fmt.Fprintf(w, "Products\t%d\n", summary.ProductCount)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "MONTH\tEARNINGS")
	for _, month := range summary.EarningsByMonth {
		fmt.Fprintf(w, "%s\t%s\n", month.Month, analytics.FormatAmount(month.Earnings))
	}
	if len(summary.LowStock) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "LOW STOCK\tQTY")
		for _, item := range summary.LowStock {
			fmt.Fprintf(w, "%s\t%d\n", item.Name, item.Stock)
		}
	}
	return w.Flush()
}

func runOrdersList(c *cli.Context, a *app.App) error {
	criteria, err := parseCriteria(c)
	if err != nil {
		return err
	}
	result, err := a.Orders.List(c.Context, orders.Query{
		Status: criteria.Status,
		Search: criteria.Query,
		Page:   c.Int("page"),
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCUSTOMER\tSTATUS\tTOTAL\tCREATED")
	for _, order := range result.Orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			analytics.ShortID(order.ID),
			order.CustomerName,
			order.Status,
			analytics.FormatAmount(order.TotalAmount),
			analytics.FormatDate(order.CreatedAt),
		)
	}
	p := result.Pagination
	fmt.Fprintf(w, "\npage %d of %d (%d orders)\n", p.Page, p.TotalPages, p.TotalItems)
	return w.Flush()
}

func runOrdersExport(c *cli.Context, a *app.App) error {
	criteria, err := parseCriteria(c)
	if err != nil {
		return err
	}

	var out io.Writer = c.App.Writer
	if path := c.String("out"); path != "" {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	count, err := a.Orders.Export(c.Context, criteria, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "exported %d orders\n", count)
	return nil
}

func runSetStatus(c *cli.Context, a *app.App) error {
	target, ok := orders.ParseStatus(c.String("status"))
	if !ok {
		return fmt.Errorf("unknown status %q", c.String("status"))
	}
	result, err := a.Orders.UpdateStatus(c.Context, c.String("id"), orders.StatusUpdateRequest{
		Status: target,
		Note:   c.String("note"),
		Actor:  orders.Actor{ID: c.String("actor")},
	})
	if err != nil {
		return err
	}
	if !result.Changed {
		fmt.Fprintf(c.App.Writer, "order %s already %s\n", result.Order.ID, result.Order.Status)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "order %s: %s -> %s\n", result.Order.ID, result.Previous, result.Order.Status)
	return nil
}
