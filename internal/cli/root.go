package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"drivepower/console/internal/app"
	"drivepower/console/internal/config"
	"drivepower/console/libs/logging"
)

type rootOptions struct {
	configPath string
	jsonOutput bool
}

// NewRootCmd creates the admin-console command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "admin-console",
		Short:         "Administrative console for the DrivePower charging station management system",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file (defaults to $CONFIG_FILE)")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		newServeCommand(opts),
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newRefreshCommand(opts),
		newWhoamiCommand(opts),
		newStationsCommand(opts),
		newTransactionsCommand(opts),
		newStatsCommand(opts),
	)

	return rootCmd
}

// withApp loads configuration, builds the logger and the application and
// hands them to fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to init admin console", zap.Error(err))
		return err
	}
	defer application.Close()

	return fn(ctx, application)
}
