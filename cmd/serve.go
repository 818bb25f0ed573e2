package cmd

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"leadrouter/internal/bootstrap"
	"leadrouter/internal/bootstrap/logging"
	"leadrouter/internal/errs"
	"leadrouter/internal/transport/rest"
	"leadrouter/internal/usecase/allocation"
)

// serveCmd starts the HTTP API together with the allocation worker pool, so
// a single process can accept appeals and drain its own queue. With the nats
// queue driver the worker pool can also run in separate processes.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and the allocation worker pool",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, service *allocation.Service, runner *allocation.Runner) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		server := rest.NewServer(service, app.Config.HTTP.Addr)

		group, groupCtx := errgroup.WithContext(ctx)
		group.Go(func() error {
			return server.Run(groupCtx)
		})
		group.Go(func() error {
			return runner.Run(groupCtx)
		})

		if err := group.Wait(); err != nil {
			return errs.Wrap(err, "serve")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
