package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"leadrouter/internal/bootstrap"
	"leadrouter/internal/bootstrap/logging"
	"leadrouter/internal/domain/routing"
	"leadrouter/internal/errs"
	"leadrouter/internal/usecase/allocation"
)

var appealCmd = &cobra.Command{
	Use:   "appeal",
	Short: "Appeal lifecycle commands",
}

var appealCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an appeal and enqueue its allocation",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, service *allocation.Service, _ *allocation.Runner) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		leadID, _ := cmd.Flags().GetUint64("lead")
		leadSourceID, _ := cmd.Flags().GetUint64("source")

		appeal, err := service.CreateAppeal(ctx, allocation.CreateAppealInput{
			LeadID:       leadID,
			LeadSourceID: leadSourceID,
		})
		if err != nil {
			return errs.Wrap(err, "create appeal")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "appeal %d created for lead %d, allocation enqueued\n",
			appeal.AppealID, appeal.LeadID); err != nil {
			return errs.Wrap(err, "write appeal output")
		}
		return nil
	}),
}

var appealResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve an appeal and release its operator slot",
	RunE:  changeStatusRunE(routing.AppealResolved),
}

var appealReopenCmd = &cobra.Command{
	Use:   "reopen",
	Short: "Reopen a resolved appeal and reclaim its operator slot",
	RunE:  changeStatusRunE(routing.AppealActive),
}

func changeStatusRunE(status routing.AppealStatus) func(cmd *cobra.Command, args []string) error {
	return withApp(func(cmd *cobra.Command, _ *bootstrap.App, service *allocation.Service, _ *allocation.Runner) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		appealID, _ := cmd.Flags().GetUint64("id")
		appeal, err := service.ChangeStatus(ctx, appealID, status)
		if err != nil {
			return errs.Wrap(err, "change appeal status")
		}

		operator := "unassigned"
		if appeal.AssignedOperatorID != nil {
			operator = fmt.Sprintf("operator %d", *appeal.AssignedOperatorID)
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "appeal %d is now %s (%s)\n",
			appeal.AppealID, appeal.Status, operator); err != nil {
			return errs.Wrap(err, "write appeal output")
		}
		return nil
	})
}

func init() {
	rootCmd.AddCommand(appealCmd)
	appealCmd.AddCommand(appealCreateCmd)
	appealCmd.AddCommand(appealResolveCmd)
	appealCmd.AddCommand(appealReopenCmd)

	appealCreateCmd.Flags().Uint64("lead", 0, "Lead ID the appeal belongs to")
	appealCreateCmd.Flags().Uint64("source", 0, "Lead source ID the appeal arrived through")
	_ = appealCreateCmd.MarkFlagRequired("lead")
	_ = appealCreateCmd.MarkFlagRequired("source")

	for _, command := range []*cobra.Command{appealResolveCmd, appealReopenCmd} {
		command.Flags().Uint64("id", 0, "Appeal ID")
		_ = command.MarkFlagRequired("id")
	}
}
