package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"leadrouter/internal/bootstrap"
	"leadrouter/internal/bootstrap/logging"
	"leadrouter/internal/errs"
	"leadrouter/internal/usecase/allocation"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the allocation worker pool until interrupted",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, _ *allocation.Service, runner *allocation.Runner) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logging.Info(ctx, "worker pool starting")
		if err := runner.Run(ctx); err != nil {
			return errs.Wrap(err, "run worker pool")
		}

		if _, err := fmt.Fprintln(cmd.OutOrStdout(), "worker pool stopped"); err != nil {
			return errs.Wrap(err, "write worker output")
		}
		return nil
	}),
}

func init() {
	workerCmd.AddCommand(runCmd)
}
