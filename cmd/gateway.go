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

	"guardian/pkg/assistant"
	"guardian/pkg/channel"
	"guardian/pkg/channel/web"
	"guardian/pkg/config"
	"guardian/pkg/gateway"
	"guardian/pkg/logger"
	"guardian/pkg/registry"
	"guardian/pkg/session"

	"github.com/spf13/cobra"
)

const webChannelName = "web"

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the chat API and event dashboard API",
	Long:  "Runs Simhastha Guardian as a gateway: the web chat channel, health and readiness endpoints, the admin API and the simulated bin telemetry.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, closer, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		defer closer.Close()
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.gateway")

		rulebook, err := loadRulebook(cfg)
		if err != nil {
			log.Error("Rulebook invalid", "error", err)
			return
		}

		// Adapters serve history from the service created right after them.
		var svc *gateway.Service
		history := func(sessionKey string) ([]session.ChatMessage, bool) {
			return svc.History(sessionKey)
		}

		adapters, err := enabledAdapters(cfg, rulebook, log, history)
		if err != nil {
			log.Error("Gateway configuration invalid", "error", err)
			return
		}

		svc, err = gateway.NewService(cfg, rulebook, registry.New(), adapters, log)
		if err != nil {
			log.Error("Failed to initialize gateway service", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("Gateway started",
			"channels", enabledChannelNames(adapters),
			"rules", rulebook.Len(),
			"language", cfg.Assistant.Language,
			"telemetry", cfg.Admin.AutoRefresh,
		)
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Gateway runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

func enabledAdapters(cfg *config.Config, rulebook *assistant.Rulebook, log *slog.Logger, history web.HistoryFunc) ([]channel.Adapter, error) {
	adapters := make([]channel.Adapter, 0, 1)

	if cfg.Channels.Web.Enabled {
		adapter, err := web.NewAdapter(cfg.Channels.Web, rulebook, log, web.WithHistory(history))
		if err != nil {
			return nil, fmt.Errorf("configure %s channel: %w", webChannelName, err)
		}
		adapters = append(adapters, adapter)
	}

	if len(adapters) == 0 {
		return nil, errors.New("no channels are enabled")
	}

	return adapters, nil
}

func enabledChannelNames(adapters []channel.Adapter) string {
	names := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		names = append(names, adapter.Name())
	}

	return strings.Join(names, ",")
}
