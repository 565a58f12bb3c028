package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"guardian/pkg/assistant"
	"guardian/pkg/bus"
	"guardian/pkg/channel"
	"guardian/pkg/config"
	"guardian/pkg/registry"

	"github.com/stretchr/testify/require"
)

type scriptedAdapter struct {
	name    string
	inbound []bus.InboundMessage

	continueOnHandlerError bool

	mu       sync.Mutex
	outbound []bus.OutboundMessage
	done     chan struct{}
}

func (a *scriptedAdapter) Name() string {
	return a.name
}

func (a *scriptedAdapter) Run(ctx context.Context, handler channel.Handler) error {
	for _, inbound := range a.inbound {
		outbound, err := handler(ctx, inbound)
		if err != nil && !a.continueOnHandlerError {
			return err
		}

		a.mu.Lock()
		a.outbound = append(a.outbound, outbound)
		a.mu.Unlock()
	}

	close(a.done)

	<-ctx.Done()
	return nil
}

func (a *scriptedAdapter) outbounds() []bus.OutboundMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	outbound := make([]bus.OutboundMessage, len(a.outbound))
	copy(outbound, a.outbound)
	return outbound
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Assistant.TypingDelayMinMS = 0
	cfg.Assistant.TypingDelayMaxMS = 0
	cfg.Admin.AutoRefresh = false
	cfg.Gateway.Host = "127.0.0.1"
	cfg.Gateway.Port = freeTCPPort(t)
	return cfg
}

func startService(t *testing.T, ctx context.Context, svc *Service) <-chan error {
	t.Helper()

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()
	return errCh
}

func waitAdapter(t *testing.T, adapter *scriptedAdapter) {
	t.Helper()

	select {
	case <-adapter.done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for adapter scripted messages")
	}
}

func waitExit(t *testing.T, errCh <-chan error) {
	t.Helper()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for service run to exit")
	}
}

func TestGatewayServiceRunE2ESessionContinuity(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter := &scriptedAdapter{
		name: "web",
		inbound: []bus.InboundMessage{
			{Channel: "web", ChatID: "a", SessionKey: "web:a", Content: "crowd", Metadata: map[string]string{bus.RequestIDKey: "r1"}},
			{Channel: "web", ChatID: "a", SessionKey: "web:a", Content: "food"},
			{Channel: "web", ChatID: "b", SessionKey: "web:b", Content: "xyz"},
		},
		done: make(chan struct{}),
	}

	svc, err := NewService(testConfig(t), nil, nil, []channel.Adapter{adapter}, slog.Default())
	require.NoError(t, err)

	errCh := startService(t, ctx, svc)
	waitAdapter(t, adapter)

	historyA, ok := svc.History("web:a")
	require.True(t, ok)
	require.Len(t, historyA, 5)
	historyB, ok := svc.History("web:b")
	require.True(t, ok)
	require.Len(t, historyB, 3)

	cancel()
	waitExit(t, errCh)

	rulebook := assistant.Default()
	outbounds := adapter.outbounds()
	require.Len(t, outbounds, 3)
	require.Equal(t, rulebook.Rules()[4].Response.In(assistant.English), outbounds[0].Content)
	require.Equal(t, rulebook.Rules()[5].Response.In(assistant.English), outbounds[1].Content)
	require.Equal(t, rulebook.Fallback(assistant.English), outbounds[2].Content)
	require.Equal(t, "r1", outbounds[0].Metadata[bus.RequestIDKey])
	require.NotEmpty(t, outbounds[0].MessageID)
	require.Equal(t, "en", outbounds[0].Language)
	require.Equal(t, "web:b", outbounds[2].SessionKey)
}

func TestGatewayServiceRunE2ERequestedLanguageSwitchesSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	requested := map[string]string{bus.LanguageSourceKey: bus.LanguageFromRequest}
	detected := map[string]string{bus.LanguageSourceKey: bus.LanguageDetected}
	adapter := &scriptedAdapter{
		name: "web",
		inbound: []bus.InboundMessage{
			{Channel: "web", ChatID: "a", SessionKey: "web:a", Content: "crowd", Language: "en", Metadata: requested},
			{Channel: "web", ChatID: "a", SessionKey: "web:a", Content: "crowd", Language: "hi", Metadata: detected},
			{Channel: "web", ChatID: "a", SessionKey: "web:a", Content: "crowd", Language: "hi", Metadata: requested},
		},
		done: make(chan struct{}),
	}

	svc, err := NewService(testConfig(t), nil, nil, []channel.Adapter{adapter}, slog.Default())
	require.NoError(t, err)

	events, unsubscribe := svc.messageBus.SubscribeEvents(ctx, 32)
	defer unsubscribe()

	errCh := startService(t, ctx, svc)
	waitAdapter(t, adapter)

	outbounds := adapter.outbounds()
	require.Len(t, outbounds, 3)
	require.Equal(t, "en", outbounds[0].Language)
	require.Equal(t, "en", outbounds[1].Language)
	require.Equal(t, "hi", outbounds[2].Language)

	// The explicit switch reseeds the conversation before the reply.
	history, ok := svc.History("web:a")
	require.True(t, ok)
	require.Len(t, history, 3)

	switched := false
	deadline := time.After(2 * time.Second)
	for !switched {
		select {
		case event := <-events:
			if event.Type == bus.EventLanguageSwitched {
				require.Equal(t, "en", event.Payload["from"])
				require.Equal(t, "hi", event.Payload["to"])
				switched = true
			}
		case <-deadline:
			t.Fatal("language switch event was not published")
		}
	}

	cancel()
	waitExit(t, errCh)
}

func TestGatewayServiceRunE2EBlankMessageReturnsOutboundError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter := &scriptedAdapter{
		name:                   "web",
		continueOnHandlerError: true,
		inbound: []bus.InboundMessage{
			{Channel: "web", ChatID: "a", SessionKey: "web:a", Content: "   "},
		},
		done: make(chan struct{}),
	}

	svc, err := NewService(testConfig(t), nil, nil, []channel.Adapter{adapter}, slog.Default())
	require.NoError(t, err)

	errCh := startService(t, ctx, svc)
	waitAdapter(t, adapter)
	cancel()
	waitExit(t, errCh)

	outbounds := adapter.outbounds()
	require.Len(t, outbounds, 1)
	require.Empty(t, outbounds[0].Content)
	require.Contains(t, outbounds[0].Error, "empty")
	require.Equal(t, "web:a", outbounds[0].SessionKey)
}

func TestGatewayServiceReadyzReflectsChannelState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(t)
	adapter := &scriptedAdapter{name: "web", done: make(chan struct{})}

	svc, err := NewService(cfg, nil, nil, []channel.Adapter{adapter}, slog.Default())
	require.NoError(t, err)

	errCh := startService(t, ctx, svc)

	readyURL := fmt.Sprintf("http://127.0.0.1:%d/readyz", cfg.Gateway.Port)
	requireHTTPStatus(t, readyURL, http.StatusOK)

	svc.setChannelState("web", channelState{Running: false, Error: "stopped"})
	requireHTTPStatus(t, readyURL, http.StatusServiceUnavailable)

	svc.setChannelState("web", channelState{Running: true})
	requireHTTPStatus(t, readyURL, http.StatusOK)

	cancel()
	waitExit(t, errCh)
}

func TestGatewayServiceTelemetryLoopMarksStatus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(t)
	cfg.Admin.AutoRefresh = true
	cfg.Admin.RefreshSeconds = 1

	reg := registry.New()
	before := reg.Bins()
	adapter := &scriptedAdapter{name: "web", done: make(chan struct{})}

	svc, err := NewService(cfg, nil, reg, []channel.Adapter{adapter}, slog.Default())
	require.NoError(t, err)

	errCh := startService(t, ctx, svc)

	healthURL := fmt.Sprintf("http://127.0.0.1:%d/healthz", cfg.Gateway.Port)
	require.Eventually(t, func() bool {
		response, err := http.Get(healthURL)
		if err != nil {
			return false
		}
		defer response.Body.Close()

		var status statusResponse
		if err := json.NewDecoder(response.Body).Decode(&status); err != nil {
			return false
		}
		return status.LastTelemetryAt != ""
	}, 4*time.Second, 50*time.Millisecond)

	after := reg.Bins()
	require.Len(t, after, len(before))
	for i := range after {
		require.GreaterOrEqual(t, after[i].FillLevel, before[i].FillLevel)
		require.LessOrEqual(t, after[i].BatteryLevel, before[i].BatteryLevel)
	}

	cancel()
	waitExit(t, errCh)
}

func TestGatewayServiceRunFailsWhenStatusPortBusy(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	cfg := testConfig(t)
	cfg.Gateway.Port = listener.Addr().(*net.TCPAddr).Port
	adapter := &scriptedAdapter{name: "web", done: make(chan struct{})}

	svc, err := NewService(cfg, nil, nil, []channel.Adapter{adapter}, slog.Default())
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "status server"))
}

func TestNewServiceValidatesInputs(t *testing.T) {
	_, err := NewService(nil, nil, nil, []channel.Adapter{&scriptedAdapter{name: "web"}}, nil)
	require.Error(t, err)

	_, err = NewService(config.Default(), nil, nil, nil, nil)
	require.Error(t, err)
}

func requireHTTPStatus(t *testing.T, url string, want int) {
	t.Helper()

	require.Eventually(t, func() bool {
		response, err := http.Get(url)
		if err != nil {
			return false
		}
		defer response.Body.Close()
		return response.StatusCode == want
	}, 2*time.Second, 25*time.Millisecond, "waiting for %d from %s", want, url)
}

func freeTCPPort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	addr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return addr.Port
}
