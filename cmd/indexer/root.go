package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/bootstrap"
	"github.com/MasterGowen/open-discussions/internal/config"
)

const (
	defaultConfigPath = "config.yml"

	keyConfig = "config"
	keyDebug  = "debug"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "indexer",
	Short:         "Search indexer for discussions and the course catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String(keyConfig, defaultConfigPath, "config file")
	rootCmd.PersistentFlags().Bool(keyDebug, false, "enable debug logging")

	cobra.CheckErr(viper.BindPFlag(keyConfig, rootCmd.PersistentFlags().Lookup(keyConfig)))
	cobra.CheckErr(viper.BindPFlag(keyDebug, rootCmd.PersistentFlags().Lookup(keyDebug)))
	cobra.CheckErr(viper.BindEnv(keyConfig, "CONFIG_PATH"))
	cobra.CheckErr(viper.BindEnv(keyDebug, "APP_DEBUG"))

	rootCmd.AddCommand(
		workerCommand(),
		rebuildCommand(),
		statusCommand(),
		serveCommand(),
		versionCommand(),
	)
}

// loadRuntime loads configuration and creates the logger for a subcommand.
func loadRuntime() (*config.Config, logger.Logger, error) {
	cfg, err := bootstrap.LoadConfig(viper.GetString(keyConfig), viper.GetBool(keyDebug))
	if err != nil {
		return nil, nil, err
	}
	if version != "dev" {
		cfg.Service.Version = version
	}

	log, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "indexer version %s\n", version)
		},
	}
}
