package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"labmaint/internal/external"
	"labmaint/internal/notifications"
)

func newNotifyCommand(e *env) *cobra.Command {
	var title, body, topic string
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send one push notification to the maintenance topic",
		Long:  "notify sends a notification synchronously through the configured push provider and reports the provider's answer. Use it to check FCM credentials.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(title) == "" {
				return errors.New("--title is required")
			}
			clients, err := external.NewClientRegistry(cmd.Context(), e.opts.ServiceConfig(true), e.logger)
			if err != nil {
				return err
			}
			d := notifications.NewDispatcher(clients.Push, e.opts.Push, notifications.WithLogger(e.logger))
			if topic == "" {
				topic = d.Topic()
			}
			if err := d.Send(cmd.Context(), topic, title, body); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "notificación enviada a %s\n", topic)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Notification title")
	cmd.Flags().StringVar(&body, "body", "", "Notification body")
	cmd.Flags().StringVar(&topic, "topic", "", "Topic (defaults to PUSH_TOPIC)")
	return cmd
}
