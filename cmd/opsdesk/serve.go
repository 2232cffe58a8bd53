package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/yonetim/opsdesk/internal/chat"
	"github.com/yonetim/opsdesk/internal/config"
	"github.com/yonetim/opsdesk/internal/dashboard"
	"github.com/yonetim/opsdesk/internal/feed"
	"github.com/yonetim/opsdesk/internal/notify"
	"github.com/yonetim/opsdesk/internal/notify/discord"
	"github.com/yonetim/opsdesk/internal/notify/slack"
	"github.com/yonetim/opsdesk/internal/notify/telegram"
	"github.com/yonetim/opsdesk/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin console",
		Long:  "Starts the live chat listener, the notification channel, and the console HTTP API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "opsdesk.yaml", "path to opsdesk config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "API port (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port <= 0 {
		port = cfg.Dashboard.Port
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	// Change feed: remote websocket when configured, in-process otherwise.
	var liveFeed feed.Feed
	var broker *feed.Broker
	if cfg.Chat.FeedURL != "" {
		liveFeed, err = feed.NewWSFeed(cfg.Chat.FeedURL)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Change feed: %s\n", cfg.Chat.FeedURL)
	} else {
		broker = feed.NewBroker()
		liveFeed = broker
		fmt.Fprintln(out, "Change feed: in-process")
	}

	agg := chat.NewAggregator()
	claims, err := chat.NewClaimTracker(gateway, cfg.Chat.ClaimFile)
	if err != nil {
		return err
	}

	listener, err := chat.NewListener(chat.ListenerOpts{
		Gateway:           gateway,
		Agg:               agg,
		Feed:              liveFeed,
		Claims:            claims,
		PollInterval:      time.Duration(cfg.Chat.PollIntervalSec) * time.Second,
		SessionRefresh:    time.Duration(cfg.Chat.SessionRefreshSec) * time.Second,
		ReconcileInterval: time.Duration(cfg.Chat.ReconcileIntervalSec) * time.Second,
		BannerTTL:         time.Duration(cfg.Chat.BannerTTLSec) * time.Second,
	})
	if err != nil {
		return err
	}
	go listener.Run(ctx)

	if cfg.Channel.Enabled {
		dispatcher, err := buildDispatcher(ctx, cfg, gateway)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Notification channel: %s\n", cfg.Channel.Platform)

		go notifyOnBanners(ctx, dispatcher, listener, claims, agg)

		if cfg.Digest.Enabled {
			go dispatcher.RunDigest(ctx, cfg.Digest.Cron)
			fmt.Fprintf(out, "Daily digest: %s\n", cfg.Digest.Cron)
		}
	} else {
		fmt.Fprintln(out, "Notification channel: disabled")
	}

	return dashboard.Start(ctx, dashboard.StartOpts{
		Gateway:  gateway,
		Agg:      agg,
		Claims:   claims,
		Listener: listener,
		Broker:   broker,
		Port:     port,
		Out:      out,
	})
}

// buildDispatcher connects the configured channel adapter and assembles
// the dispatcher, including the object-storage attachment fallback.
func buildDispatcher(ctx context.Context, cfg *config.Config, gateway *store.Gateway) (*notify.Dispatcher, error) {
	adapter, err := buildAdapter(cfg.Channel)
	if err != nil {
		return nil, err
	}
	if err := adapter.Connect(ctx); err != nil {
		return nil, err
	}

	var objects store.ObjectStore
	if cfg.Storage.Bucket != "" {
		gcs, err := store.NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile)
		if err != nil {
			return nil, err
		}
		objects = gcs
	}

	return notify.NewDispatcher(notify.DispatcherOpts{
		Gateway: gateway,
		Adapter: adapter,
		Objects: objects,
		Channel: cfg.Channel,
	})
}

// buildAdapter creates the platform adapter named in the config.
func buildAdapter(cfg config.ChannelConfig) (notify.Adapter, error) {
	switch cfg.Platform {
	case "telegram":
		return telegram.New(telegram.AdapterOpts{BotToken: cfg.BotToken})
	case "slack":
		return slack.New(slack.AdapterOpts{BotToken: cfg.BotToken})
	case "discord":
		return discord.New(discord.AdapterOpts{BotToken: cfg.BotToken})
	default:
		return nil, fmt.Errorf("unsupported channel platform %q", cfg.Platform)
	}
}

// notifyOnBanners turns new-message banners into chat support alerts for
// sessions no admin has claimed yet.
func notifyOnBanners(ctx context.Context, d *notify.Dispatcher, listener *chat.Listener, claims *chat.ClaimTracker, agg *chat.Aggregator) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-listener.Banners():
			if claims.IsClaimed(ctx, b.SessionID) {
				continue
			}
			if _, err := d.Dispatch(ctx, bannerEvent(agg, b)); err != nil {
				log.Printf("serve: notify session %s: %v", b.SessionID, err)
			}
		}
	}
}

// bannerEvent builds the chat support alert for one banner, enriched with
// the session's message count and latest message when the session is known.
func bannerEvent(agg *chat.Aggregator, b chat.Banner) notify.Event {
	evt := notify.Event{
		Type:      notify.TypeChatSupport,
		SessionID: b.SessionID,
		Body:      b.Text,
	}
	if s, ok := agg.Session(b.SessionID); ok {
		evt.Details.MessageCount = s.MessageCount
		if s.LastMessage != nil {
			evt.Body = s.LastMessage.Content
		}
	}
	return evt
}
