package cli

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/godilite/catsurvey/internal/config"
)

// NewRootCommand builds the catsurvey command tree.
func NewRootCommand() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "catsurvey",
		Short: "Per-category satisfaction survey sampler",
		Long: `catsurvey periodically selects closed tickets, per ITIL category, for a
satisfaction survey according to each category's sample rate and delay.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile == "" {
				return nil
			}
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")

	cmd.AddCommand(
		newServeCommand(),
		newRunCommand(),
		newMigrateCommand(),
	)
	return cmd
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg := config.LoadFromEnv()
	logger, err := config.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
