package bus

import (
	"context"
	"errors"
	"sync"
)

const defaultBufferSize = 100

const (
	// RequestIDKey is the metadata key correlating an inbound message with its reply.
	RequestIDKey = "request_id"

	// LanguageSourceKey records whether an inbound language was picked by the
	// sender (LanguageFromRequest) or guessed from the text (LanguageDetected).
	LanguageSourceKey   = "language_source"
	LanguageFromRequest = "request"
	LanguageDetected    = "detected"
)

var (
	ErrClosed           = errors.New("message bus is closed")
	ErrMissingRequestID = errors.New("message has no request id")
	ErrDuplicateRequest = errors.New("request id is already pending")
)

// MessageBus carries inbound chat messages to a session worker and routes
// each reply back to the caller waiting on the same request id.
type MessageBus struct {
	inbound chan InboundMessage
	pending map[string]chan OutboundMessage

	eventSubscribers      map[uint64]chan Event
	nextEventSubscriberID uint64

	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:          make(chan InboundMessage, defaultBufferSize),
		pending:          make(map[string]chan OutboundMessage),
		eventSubscribers: make(map[uint64]chan Event),
		done:             make(chan struct{}),
	}
}

func (mb *MessageBus) PublishInbound(ctx context.Context, msg InboundMessage) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return false
	case <-mb.done:
		return false
	default:
	}

	select {
	case <-ctx.Done():
		return false
	case <-mb.done:
		return false
	case mb.inbound <- msg:
		return true
	}
}

func (mb *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return InboundMessage{}, false
	case <-mb.done:
		return InboundMessage{}, false
	case msg := <-mb.inbound:
		return msg, true
	}
}

// Request publishes msg and blocks until the reply carrying the same request
// id arrives, ctx ends or the bus closes.
func (mb *MessageBus) Request(ctx context.Context, msg InboundMessage) (OutboundMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	requestID := msg.Metadata[RequestIDKey]
	if requestID == "" {
		return OutboundMessage{}, ErrMissingRequestID
	}

	replyCh := make(chan OutboundMessage, 1)
	mb.mu.Lock()
	select {
	case <-mb.done:
		mb.mu.Unlock()
		return OutboundMessage{}, ErrClosed
	default:
	}
	if _, exists := mb.pending[requestID]; exists {
		mb.mu.Unlock()
		return OutboundMessage{}, ErrDuplicateRequest
	}
	mb.pending[requestID] = replyCh
	mb.mu.Unlock()

	defer func() {
		mb.mu.Lock()
		delete(mb.pending, requestID)
		mb.mu.Unlock()
	}()

	if ok := mb.PublishInbound(ctx, msg); !ok {
		if err := ctx.Err(); err != nil {
			return OutboundMessage{}, err
		}
		return OutboundMessage{}, ErrClosed
	}

	select {
	case <-ctx.Done():
		return OutboundMessage{}, ctx.Err()
	case <-mb.done:
		return OutboundMessage{}, ErrClosed
	case reply := <-replyCh:
		return reply, nil
	}
}

// Reply delivers msg to the caller waiting on its request id. It reports
// false when nobody waits anymore.
func (mb *MessageBus) Reply(msg OutboundMessage) bool {
	requestID := msg.Metadata[RequestIDKey]
	if requestID == "" {
		return false
	}

	mb.mu.RLock()
	replyCh, ok := mb.pending[requestID]
	mb.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case replyCh <- msg:
		return true
	default:
		return false
	}
}

// Pending returns the number of requests still waiting for a reply.
func (mb *MessageBus) Pending() int {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	return len(mb.pending)
}

func (mb *MessageBus) Close() {
	mb.closeOnce.Do(func() {
		close(mb.done)

		mb.mu.Lock()
		for id, ch := range mb.eventSubscribers {
			close(ch)
			delete(mb.eventSubscribers, id)
		}
		mb.mu.Unlock()
	})
}
