package main

import (
	"fmt"

	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/notifications"
	"github.com/spf13/cobra"
)

var (
	notifyFrom    string
	notifyTo      []string
	notifyContent string
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send notifications by hand",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Example: `  feedora notify test --from 0190... --to 0190... --content "hello"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := notifications.NewService(db).Notify(cmd.Context(), notifications.Event{
			Sender:     notifyFrom,
			Recipients: notifyTo,
			Type:       models.NotificationTest,
			Content:    notifyContent,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created=%d skipped_self=%d skipped_duplicate=%d failed=%d\n",
			res.Created, res.SkippedSelf, res.SkippedDuplicate, res.Failed)
		return nil
	},
}

func init() {
	notifyTestCmd.Flags().StringVar(&notifyFrom, "from", "", "Sender user ID")
	notifyTestCmd.Flags().StringSliceVar(&notifyTo, "to", nil, "Recipient user IDs")
	notifyTestCmd.Flags().StringVar(&notifyContent, "content", "This is a test notification", "Notification text")
	_ = notifyTestCmd.MarkFlagRequired("from")
	_ = notifyTestCmd.MarkFlagRequired("to")
	notifyCmd.AddCommand(notifyTestCmd)
}
