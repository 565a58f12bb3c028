package runtime

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"guardian/pkg/assistant"
	"guardian/pkg/bus"
	"guardian/pkg/session"
)

const (
	cliChannelName = "cli"
	cliChatID      = "local"
)

// LocalSession drives one terminal conversation.
//
// Prompts travel through an in-process message bus to a single worker
// goroutine, the same path gateway channels use, so the terminal and the
// web surface share event semantics.
type LocalSession struct {
	session    *session.Session
	messageBus *bus.MessageBus
	log        *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	requestCounter atomic.Uint64
}

func StartLocalSession(ctx context.Context, chat *session.Session, log *slog.Logger, observeEvents bool) (*LocalSession, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if chat == nil {
		return nil, errors.New("chat session is required")
	}
	if log == nil {
		log = slog.Default()
	}

	workerCtx, cancel := context.WithCancel(ctx)
	local := &LocalSession{
		session:    chat,
		messageBus: bus.NewMessageBus(),
		log:        log,
		cancel:     cancel,
	}

	local.wg.Add(1)
	go func() {
		defer local.wg.Done()
		RunWorker(workerCtx, chat, local.messageBus)
	}()

	if observeEvents {
		local.wg.Add(1)
		go func() {
			defer local.wg.Done()
			ObserveEvents(workerCtx, local.messageBus, log)
		}()
	}

	return local, nil
}

func (l *LocalSession) Session() *session.Session {
	return l.session
}

// Prompt sends text through the bus and waits for the assistant reply.
func (l *LocalSession) Prompt(ctx context.Context, text string) (session.ChatMessage, error) {
	if l == nil {
		return session.ChatMessage{}, errors.New("local session is nil")
	}
	if strings.TrimSpace(text) == "" {
		return session.ChatMessage{}, session.ErrEmptyMessage
	}

	requestID := strconv.FormatUint(l.requestCounter.Add(1), 10)
	outbound, err := l.messageBus.Request(ctx, bus.InboundMessage{
		Channel:    cliChannelName,
		ChatID:     cliChatID,
		SessionKey: l.session.Key(),
		Content:    text,
		Language:   l.session.Language().String(),
		Metadata:   map[string]string{bus.RequestIDKey: requestID},
	})
	if err != nil {
		return session.ChatMessage{}, err
	}
	if outbound.Error != "" {
		return session.ChatMessage{}, errors.New(outbound.Error)
	}

	return MessageFromOutbound(outbound), nil
}

// SetLanguage switches the conversation language and announces it on the bus.
func (l *LocalSession) SetLanguage(ctx context.Context, lang assistant.Language) error {
	previous := l.session.Language()
	if err := l.session.SetLanguage(lang); err != nil {
		return err
	}
	if previous != lang {
		PublishLanguageSwitched(ctx, l.messageBus, cliChannelName, cliChatID, l.session.Key(), previous, lang)
	}

	return nil
}

// Close stops the worker and observer and waits for them to exit.
func (l *LocalSession) Close() {
	if l == nil {
		return
	}

	l.cancel()
	l.messageBus.Close()
	l.wg.Wait()
}

// RunWorker answers inbound messages with chat until ctx ends or the bus closes.
func RunWorker(ctx context.Context, chat *session.Session, messageBus *bus.MessageBus) {
	for {
		inbound, ok := messageBus.ConsumeInbound(ctx)
		if !ok {
			return
		}

		requestID := inbound.Metadata[bus.RequestIDKey]
		_ = messageBus.PublishEvent(ctx, bus.Event{
			Type:       bus.EventMessageReceived,
			Channel:    inbound.Channel,
			ChatID:     inbound.ChatID,
			SessionKey: inbound.SessionKey,
			RequestID:  requestID,
			Payload: map[string]string{
				"message_length": strconv.Itoa(len(inbound.Content)),
				"language":       chat.Language().String(),
			},
		})

		reply, err := chat.Send(ctx, inbound.Content)
		outbound := bus.OutboundMessage{
			Channel:    inbound.Channel,
			ChatID:     inbound.ChatID,
			SessionKey: inbound.SessionKey,
			MessageID:  reply.ID,
			Content:    reply.Text,
			Language:   reply.Language.String(),
			Metadata:   ReplyMetadata(requestID, reply),
		}
		if err != nil {
			outbound.Error = err.Error()
			_ = messageBus.PublishEvent(ctx, bus.Event{
				Type:       bus.EventReplyFailed,
				Channel:    inbound.Channel,
				ChatID:     inbound.ChatID,
				SessionKey: inbound.SessionKey,
				RequestID:  requestID,
				Error:      err.Error(),
			})
		} else {
			_ = messageBus.PublishEvent(ctx, bus.Event{
				Type:       bus.EventReplySent,
				Channel:    inbound.Channel,
				ChatID:     inbound.ChatID,
				SessionKey: inbound.SessionKey,
				RequestID:  requestID,
				Payload: map[string]string{
					"message_id":     reply.ID,
					"reply_length":   strconv.Itoa(len(reply.Text)),
					"history_length": strconv.Itoa(len(chat.History())),
				},
			})
		}

		messageBus.Reply(outbound)
	}
}

func PublishLanguageSwitched(ctx context.Context, messageBus *bus.MessageBus, channel, chatID, sessionKey string, from, to assistant.Language) {
	_ = messageBus.PublishEvent(ctx, bus.Event{
		Type:       bus.EventLanguageSwitched,
		Channel:    channel,
		ChatID:     chatID,
		SessionKey: sessionKey,
		Payload: map[string]string{
			"from": from.String(),
			"to":   to.String(),
		},
	})
}
