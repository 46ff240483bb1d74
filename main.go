package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/judyrop/sil-crm/app"
	"github.com/judyrop/sil-crm/jobs"
)

var (
	configPath string
	seedReset  bool
)

var (
	rootCmd = &cobra.Command{
		Use:           "crm",
		Short:         "CRM backend: GraphQL API, seeding and scheduled jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the job scheduler",
		RunE:  runServe,
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE:  runMigrate,
	}
	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Load sample customers, products and an order",
		RunE:  runSeed,
	}
	jobCmds = []*cobra.Command{
		jobCommand(jobs.HeartbeatJob, "heartbeat", "Record a heartbeat and check the GraphQL endpoint"),
		jobCommand(jobs.RestockJob, "restock", "Restock low-stock products and log their new levels"),
		jobCommand(jobs.ReportJob, "report", "Log the customer, order and revenue summary"),
		jobCommand(jobs.ReminderJob, "remind", "Log reminders for recent orders"),
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CRM_CONFIG"), "path to a YAML config file")
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "delete existing records before seeding")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
	rootCmd.AddCommand(jobCmds...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Close(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, a)
}

func runServe(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		return a.Serve(ctx)
	})
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	return withApp(func(_ context.Context, a *app.App) error {
		fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date (%s)\n", a.Config.DB.Driver)
		return nil
	})
}

func runSeed(cmd *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		res, err := app.Seed(ctx, a.Store, a.Services, a.Logger, seedReset)
		if errors.Is(err, app.ErrNotEmpty) {
			return fmt.Errorf("%w (use --reset)", err)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d customers, %d products, %d orders\n", res.Customers, res.Products, res.Orders)
		return nil
	})
}

func jobCommand(job, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := a.RunJob(ctx, job); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s job finished, see %s\n", job, a.Config.Jobs.LogDir)
				return nil
			})
		},
	}
}
