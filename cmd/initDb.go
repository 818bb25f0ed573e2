/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"leadrouter/internal/bootstrap"
	"leadrouter/internal/bootstrap/logging"
	"leadrouter/internal/errs"
	"leadrouter/internal/usecase/allocation"
)

// initDbCmd represents the initDb command
var initDbCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Initialize database schema and optionally seed routing setup",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, service *allocation.Service, _ *allocation.Runner) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		logging.Info(ctx, "start init-db")

		if err := app.InitSchema(ctx); err != nil {
			logging.Error(ctx, "initialize schema failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "initialize schema")
		}

		logging.Info(ctx, "init-db finished", slog.String("database_dsn", app.Config.Database.DSN))
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "database schema initialized: %s\n", app.Config.Database.DSN); err != nil {
			return errs.Wrap(err, "write init-db output")
		}

		seedFile, _ := cmd.Flags().GetString("seed")
		if seedFile == "" {
			return nil
		}

		profile, err := allocation.LoadSeedProfile(seedFile)
		if err != nil {
			return errs.Wrap(err, "load seed profile")
		}
		result, err := service.ApplySeed(ctx, profile)
		if err != nil {
			logging.Error(ctx, "apply seed failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "apply seed")
		}

		logging.Info(ctx, "seed applied",
			slog.Int("operators", result.Operators),
			slog.Int("lead_sources", result.LeadSources),
			slog.Int("bindings", result.Bindings))
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "seeded %d operators, %d lead sources, %d bindings\n",
			result.Operators, result.LeadSources, result.Bindings); err != nil {
			return errs.Wrap(err, "write seed output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(initDbCmd)

	initDbCmd.Flags().String("seed", "", "Optional TOML seed profile with operators and lead sources")
}
