package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"leadrouter/internal/bootstrap"
	"leadrouter/internal/bootstrap/logging"
	"leadrouter/internal/errs"
	"leadrouter/internal/usecase/allocation"
	"leadrouter/internal/usecase/loadconsole"
)

var consoleLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Start operator load console",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, service *allocation.Service, _ *allocation.Runner) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")
		if refreshInterval <= 0 {
			refreshInterval = 2 * time.Second
		}

		model := loadconsole.NewLoadModel(ctx, service, loadconsole.Options{
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run load console")
		}
		return nil
	}),
}

func init() {
	consoleCmd.AddCommand(consoleLoadCmd)
	consoleLoadCmd.Flags().Duration("refresh-interval", 2*time.Second, "Auto refresh interval")
}
