package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yonetim/opsdesk/internal/config"
	"github.com/yonetim/opsdesk/internal/notify"
	"github.com/yonetim/opsdesk/internal/store"
)

func newNotifyCmd() *cobra.Command {
	var (
		configPath string
		evtType    string
		sessionID  string
		requestID  string
		body       string
		name       string
		email      string
		phone      string
		attachment string
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a notification through the configured channel",
		Long:  "Formats and dispatches one notification event to every recipient. Useful for verifying channel configuration.",
		RunE: func(cmd *cobra.Command, args []string) error {
			evt := notify.Event{
				Type:       evtType,
				SessionID:  sessionID,
				RequestID:  requestID,
				Body:       body,
				Client:     notify.ClientInfo{Name: name, Email: email, Phone: phone},
				Attachment: attachment,
			}
			return runNotify(cmd, configPath, evt)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "opsdesk.yaml", "path to opsdesk config file")
	cmd.Flags().StringVarP(&evtType, "type", "t", notify.TypeGeneralInquiry, "event type")
	cmd.Flags().StringVar(&sessionID, "session", "", "chat session ID")
	cmd.Flags().StringVar(&requestID, "request", "", "service request ID")
	cmd.Flags().StringVarP(&body, "body", "b", "", "request details text")
	cmd.Flags().StringVar(&name, "name", "", "client name")
	cmd.Flags().StringVar(&email, "email", "", "client email")
	cmd.Flags().StringVar(&phone, "phone", "", "client phone")
	cmd.Flags().StringVar(&attachment, "attachment", "", "attachment reference (base64://<id> or object path)")
	return cmd
}

func runNotify(cmd *cobra.Command, configPath string, evt notify.Event) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := store.Connect(cfg.Store)
	if err != nil {
		return err
	}
	if err := store.AutoMigrate(db); err != nil {
		return err
	}
	gateway, err := store.NewGateway(db)
	if err != nil {
		return err
	}

	ctx := context.Background()
	dispatcher, err := buildDispatcher(ctx, cfg, gateway)
	if err != nil {
		return err
	}

	result, err := dispatcher.Dispatch(ctx, evt)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Delivered to %d of %d recipients\n", result.Succeeded, result.Attempted)
	for _, f := range result.Failures {
		fmt.Fprintf(out, "  failed %s: %s\n", f.Recipient, f.Reason)
	}
	return nil
}
