package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"guardian/pkg/assistant"
	"guardian/pkg/bus"
	"guardian/pkg/channel"
	"guardian/pkg/config"
	"guardian/pkg/httpserver"
	"guardian/pkg/registry"
	"guardian/pkg/session"
	"guardian/pkg/session/runtime"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultStatusHost = "0.0.0.0"
	defaultStatusPort = 18790
)

// Service runs the channel adapters, the status and admin API and the bin
// telemetry loop until its context ends.
type Service struct {
	cfg        *config.Config
	log        *slog.Logger
	rulebook   *assistant.Rulebook
	registry   *registry.Registry
	messageBus *bus.MessageBus
	manager    *sessionManager
	channels   []channel.Adapter

	mu              sync.RWMutex
	startedAt       time.Time
	lastTelemetryAt time.Time
	channelStates   map[string]channelState
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status          string                  `json:"status"`
	UptimeSeconds   int64                   `json:"uptime_seconds"`
	Rules           int                     `json:"rules"`
	Sessions        int                     `json:"sessions"`
	LastTelemetryAt string                  `json:"last_telemetry_at,omitempty"`
	Channels        map[string]channelState `json:"channels"`
}

func NewService(cfg *config.Config, rulebook *assistant.Rulebook, reg *registry.Registry, adapters []channel.Adapter, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if len(adapters) == 0 {
		return nil, errors.New("at least one channel adapter is required")
	}
	if log == nil {
		log = slog.Default()
	}
	if rulebook == nil {
		rulebook = assistant.Default()
	}
	if reg == nil {
		reg = registry.New()
	}

	messageBus := bus.NewMessageBus()
	channelStates := make(map[string]channelState, len(adapters))
	for _, adapter := range adapters {
		channelStates[adapter.Name()] = channelState{}
	}

	return &Service{
		cfg:           cfg,
		log:           log.With("component", "gateway.service"),
		rulebook:      rulebook,
		registry:      reg,
		messageBus:    messageBus,
		manager:       newSessionManager(rulebook, cfg.Assistant, messageBus, log),
		channels:      adapters,
		channelStates: channelStates,
	}, nil
}

// History exposes stored conversations to adapters that serve them.
func (s *Service) History(sessionKey string) ([]session.ChatMessage, bool) {
	return s.manager.History(sessionKey)
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		s.messageBus.Close()
		s.manager.Close()
	}()

	ln, err := net.Listen("tcp", s.statusAddr())
	if err != nil {
		return fmt.Errorf("start status server: %w", err)
	}

	serverErrors := make(chan error, 1)
	wg.Go(func() {
		if err := httpserver.ServeListener(ctx, s.App(), ln, s.log); err != nil {
			serverErrors <- err
		}
	})

	wg.Go(func() {
		runtime.ObserveEvents(ctx, s.messageBus, s.log)
	})

	if s.cfg.Admin.AutoRefresh {
		wg.Go(func() {
			_ = s.registry.RunTelemetry(ctx, s.cfg.Admin.RefreshInterval(), nil, s.markTelemetry)
		})
	}

	errCh := make(chan error, len(s.channels))
	for _, adapter := range s.channels {
		s.setChannelState(adapter.Name(), channelState{Running: true})

		wg.Go(func() {
			err := adapter.Run(ctx, s.handleInbound)
			s.setChannelState(adapter.Name(), channelState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			}
		})
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErrors:
		return err
	case err := <-errCh:
		return err
	}
}

func (s *Service) handleInbound(ctx context.Context, inbound bus.InboundMessage) (bus.OutboundMessage, error) {
	requestID := inbound.Metadata[bus.RequestIDKey]

	reply, err := s.manager.Send(ctx, inbound)
	if err != nil {
		return bus.OutboundMessage{
			Channel:    inbound.Channel,
			ChatID:     inbound.ChatID,
			SessionKey: inbound.SessionKey,
			Error:      err.Error(),
			Metadata:   runtime.ReplyMetadata(requestID, session.ChatMessage{}),
		}, err
	}

	return bus.OutboundMessage{
		Channel:    inbound.Channel,
		ChatID:     inbound.ChatID,
		SessionKey: inbound.SessionKey,
		MessageID:  reply.ID,
		Content:    reply.Text,
		Language:   string(reply.Language),
		Metadata:   runtime.ReplyMetadata(requestID, reply),
	}, nil
}

func (s *Service) statusAddr() string {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = defaultStatusHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = defaultStatusPort
	}

	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (s *Service) handleHealth(c *fiber.Ctx) error {
	return c.JSON(s.currentStatus("ok"))
}

func (s *Service) handleReady(c *fiber.Ctx) error {
	if !s.isReady() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(s.currentStatus("not_ready"))
	}

	return c.JSON(s.currentStatus("ready"))
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	lastTelemetry := ""
	if !s.lastTelemetryAt.IsZero() {
		lastTelemetry = s.lastTelemetryAt.Format(time.RFC3339)
	}

	return statusResponse{
		Status:          status,
		UptimeSeconds:   uptime,
		Rules:           s.rulebook.Len(),
		Sessions:        s.manager.Len(),
		LastTelemetryAt: lastTelemetry,
		Channels:        maps.Clone(s.channelStates),
	}
}

// isReady reports whether a rulebook is loaded and at least one channel
// is serving.
func (s *Service) isReady() bool {
	if s.rulebook.Len() == 0 {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, state := range s.channelStates {
		if state.Running {
			return true
		}
	}

	return false
}

func (s *Service) markTelemetry() {
	s.mu.Lock()
	s.lastTelemetryAt = time.Now().UTC()
	s.mu.Unlock()
}

func (s *Service) setChannelState(name string, state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
