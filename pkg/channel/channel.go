package channel

import (
	"context"

	"guardian/pkg/bus"
)

// Handler processes one inbound channel message and returns an outbound reply.
type Handler func(context.Context, bus.InboundMessage) (bus.OutboundMessage, error)

// Adapter bridges one transport (for example the HTTP chat API) into the
// assistant.
type Adapter interface {
	Name() string
	Run(context.Context, Handler) error
}
