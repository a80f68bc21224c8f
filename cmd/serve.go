package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"flowbot/pkg/agent"
	"flowbot/pkg/channel"
	"flowbot/pkg/channel/messenger"
	"flowbot/pkg/channel/telegram"
	"flowbot/pkg/config"
	"flowbot/pkg/gateway"
	"flowbot/pkg/intent"
	"flowbot/pkg/logger"
	"flowbot/pkg/model"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook gateway and enabled channels",
	Long:  "Loads configuration, compiles the intent rule table, and serves the Messenger webhook plus any polling channels.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.serve")

		// The built-in store keeps records in memory; a deployment wires
		// its own Store implementation here.
		store := model.NewMemStore()

		matcher, err := intent.DefaultMatcher()
		if err != nil {
			log.Error("Failed to compile intent rules", "error", err)
			return
		}

		dispatcher, err := agent.NewDispatcher(agent.Options{
			Store:       store,
			Logger:      appLogger,
			LinkBaseURL: cfg.Links.BaseURL,
			Journal: agent.JournalWindow{
				StartHour: cfg.Journal.StartHour,
				EndHour:   cfg.Journal.EndHour,
			},
		})
		if err != nil {
			log.Error("Failed to initialize dispatcher", "error", err)
			return
		}

		engine := &channel.Engine{Matcher: matcher, Dispatcher: dispatcher}

		var messengerAdapter *messenger.Adapter
		if cfg.Channels.Messenger.Enabled {
			messengerAdapter, err = messenger.NewAdapterFromConfig(cfg.Channels.Messenger, engine, store, appLogger)
			if err != nil {
				log.Error("Failed to configure messenger channel", "error", err)
				return
			}
		}

		var pollers []channel.Poller
		if cfg.Channels.Telegram.Enabled {
			adapter, err := telegram.NewAdapter(cfg.Channels.Telegram, engine, store, appLogger)
			if err != nil {
				log.Error("Failed to configure telegram channel", "error", err)
				return
			}
			pollers = append(pollers, adapter)
		}

		svc, err := gateway.NewService(cfg, messengerAdapter, pollers, appLogger)
		if err != nil {
			log.Error("Failed to initialize gateway service", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("Gateway started", "channels", enabledChannelNames(cfg))
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Gateway runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func enabledChannelNames(cfg *config.Config) string {
	var names []string
	if cfg.Channels.Messenger.Enabled {
		names = append(names, channel.Messenger)
	}
	if cfg.Channels.Telegram.Enabled {
		names = append(names, channel.Telegram)
	}

	return strings.Join(names, ",")
}
