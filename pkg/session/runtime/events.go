package runtime

import (
	"context"
	"log/slog"
	"time"

	"guardian/pkg/bus"
)

// ObserveEvents logs bus lifecycle events until ctx ends or the bus closes.
func ObserveEvents(ctx context.Context, messageBus *bus.MessageBus, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "bus.events")

	events, unsubscribe := messageBus.SubscribeEvents(ctx, 32)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			logEvent(log, event)
		}
	}
}

func logEvent(log *slog.Logger, event bus.Event) {
	attrs := []any{
		"event_type", event.Type,
		"request_id", event.RequestID,
		"channel", event.Channel,
		"chat_id", event.ChatID,
		"session_key", event.SessionKey,
		"timestamp", event.At.UTC().Format(time.RFC3339Nano),
	}
	if len(event.Payload) > 0 {
		attrs = append(attrs, "payload", event.Payload)
	}

	switch event.Type {
	case bus.EventReplyFailed:
		log.Error("Chat event", append(attrs, "error", event.Error)...)
	case bus.EventMessageReceived, bus.EventReplySent, bus.EventLanguageSwitched:
		log.Info("Chat event", attrs...)
	default:
		log.Debug("Chat event", attrs...)
	}
}
