package cli

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/godilite/catsurvey/internal/app"
	"github.com/godilite/catsurvey/internal/service"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Perform one survey run and exit",
		Long:  `Run the survey sampler once over every configured category and print what was created. Exits non-zero if any category failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			report, err := application.RunOnce(ctx)
			printReport(cmd.OutOrStdout(), report)
			return err
		},
	}
}

func printReport(w io.Writer, report service.RunReport) {
	if report.RunID == "" {
		return
	}
	fmt.Fprintf(w, "run %s\n", report.RunID)
	for _, c := range report.Categories {
		if c.Skipped {
			continue
		}
		name := c.CategoryName
		if name == "" {
			name = fmt.Sprintf("category %d", c.CategoryID)
		}
		fmt.Fprintf(w, "  %s: %d created, %d considered", name, c.Created, c.Considered)
		if c.Failed > 0 {
			fmt.Fprintf(w, ", %d failed", c.Failed)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "total: %d surveys\n", report.Created)
}
