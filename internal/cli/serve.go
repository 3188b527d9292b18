package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/godilite/catsurvey/internal/app"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the survey scheduler and the admin server",
		Long:  `Start the periodic survey run, the admin gRPC service and the metrics endpoint. Blocks until SIGINT or SIGTERM.`,
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
				logger.Error("Failed to initialize application", zap.Error(err))
				return err
			}
			defer func() {
				if err := application.Close(); err != nil {
					logger.Error("shutdown error", zap.Error(err))
				}
			}()

			return application.Serve(ctx)
		},
	}
}
