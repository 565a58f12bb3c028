package runtime

import (
	"strings"
	"time"

	"guardian/pkg/assistant"
	"guardian/pkg/bus"
	"guardian/pkg/session"
)

const SentAtKey = "sent_at"

// ReplyMetadata carries the reply timestamp and request id on an outbound message.
func ReplyMetadata(requestID string, reply session.ChatMessage) map[string]string {
	metadata := map[string]string{}
	if requestID != "" {
		metadata[bus.RequestIDKey] = requestID
	}
	if !reply.SentAt.IsZero() {
		metadata[SentAtKey] = reply.SentAt.UTC().Format(time.RFC3339Nano)
	}

	return metadata
}

// MessageFromOutbound rebuilds the assistant message carried by a bus reply.
func MessageFromOutbound(outbound bus.OutboundMessage) session.ChatMessage {
	msg := session.ChatMessage{
		ID:       outbound.MessageID,
		Text:     outbound.Content,
		Language: assistant.Language(outbound.Language),
	}

	if raw := strings.TrimSpace(outbound.Metadata[SentAtKey]); raw != "" {
		if at, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			msg.SentAt = at
		}
	}

	return msg
}
