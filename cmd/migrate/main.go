package main

import (
	"fmt"
	"os"

	"wallet-service/config"
	pgStorage "wallet-service/internal/adapter/storage/postgres"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the wallet service database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(
		newMigrateCmd(&configPath, pgStorage.MigrateUp, "Apply all pending migrations"),
		newMigrateCmd(&configPath, pgStorage.MigrateDown, "Roll back the latest migration"),
		newMigrateCmd(&configPath, pgStorage.MigrateStatus, "Print the state of every migration"),
		newMigrateCmd(&configPath, pgStorage.MigrateReset, "Roll back all migrations"),
	)
	return root
}

func newMigrateCmd(configPath *string, command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   command,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := pgStorage.RunMigrations(cmd.Context(), cfg.Database.DSN(), command); err != nil {
				return fmt.Errorf("migrate %s: %w", command, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: ok\n", command)
			return nil
		},
	}
}
