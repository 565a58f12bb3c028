package gateway

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"guardian/pkg/assistant"
	"guardian/pkg/bus"
	"guardian/pkg/config"
	"guardian/pkg/session"
	"guardian/pkg/session/runtime"
)

// sessionManager owns one chat session per session key for the process
// lifetime. Nothing is evicted or persisted.
type sessionManager struct {
	rulebook    *assistant.Rulebook
	defaultLang assistant.Language
	options     []session.Option
	messageBus  *bus.MessageBus
	log         *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func newSessionManager(rulebook *assistant.Rulebook, cfg config.AssistantConfig, messageBus *bus.MessageBus, log *slog.Logger) *sessionManager {
	if log == nil {
		log = slog.Default()
	}

	defaultLang, err := assistant.ParseLanguage(cfg.Language)
	if err != nil {
		defaultLang = assistant.English
	}

	minDelay, maxDelay := cfg.TypingDelay()
	return &sessionManager{
		rulebook:    rulebook,
		defaultLang: defaultLang,
		options: []session.Option{
			session.WithTypingDelay(minDelay, maxDelay),
			session.WithLogger(log),
		},
		messageBus: messageBus,
		log:        log.With("component", "gateway.session_manager"),
		sessions:   make(map[string]*session.Session),
	}
}

// Send routes one inbound message to its session. A language chosen by the
// sender switches an existing session; a detected language only seeds new
// sessions.
func (m *sessionManager) Send(ctx context.Context, inbound bus.InboundMessage) (session.ChatMessage, error) {
	requestID := inbound.Metadata[bus.RequestIDKey]
	m.publish(ctx, bus.Event{
		Type:       bus.EventMessageReceived,
		Channel:    inbound.Channel,
		ChatID:     inbound.ChatID,
		SessionKey: inbound.SessionKey,
		RequestID:  requestID,
		Payload: map[string]string{
			"message_length": strconv.Itoa(len(inbound.Content)),
			"language":       inbound.Language,
		},
	})

	lang, err := assistant.ParseLanguage(inbound.Language)
	if err != nil {
		lang = ""
	}

	chat, created := m.sessionFor(inbound.SessionKey, lang)
	if !created && lang != "" && inbound.Metadata[bus.LanguageSourceKey] == bus.LanguageFromRequest {
		if previous := chat.Language(); previous != lang {
			if err := chat.SetLanguage(lang); err == nil && m.messageBus != nil {
				runtime.PublishLanguageSwitched(ctx, m.messageBus, inbound.Channel, inbound.ChatID, inbound.SessionKey, previous, lang)
			}
		}
	}

	reply, err := chat.Send(ctx, inbound.Content)
	if err != nil {
		m.publish(ctx, bus.Event{
			Type:       bus.EventReplyFailed,
			Channel:    inbound.Channel,
			ChatID:     inbound.ChatID,
			SessionKey: inbound.SessionKey,
			RequestID:  requestID,
			Error:      err.Error(),
		})
		return session.ChatMessage{}, err
	}

	m.publish(ctx, bus.Event{
		Type:       bus.EventReplySent,
		Channel:    inbound.Channel,
		ChatID:     inbound.ChatID,
		SessionKey: inbound.SessionKey,
		RequestID:  requestID,
		Payload: map[string]string{
			"message_id":   reply.ID,
			"reply_length": strconv.Itoa(len(reply.Text)),
		},
	})

	return reply, nil
}

// History returns a copy of the conversation stored under sessionKey.
func (m *sessionManager) History(sessionKey string) ([]session.ChatMessage, bool) {
	m.mu.RLock()
	chat, ok := m.sessions[sessionKey]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	return chat.History(), true
}

func (m *sessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

// sessionFor returns an existing session or lazily creates one in lang, or
// the configured default when lang is empty.
func (m *sessionManager) sessionFor(sessionKey string, lang assistant.Language) (*session.Session, bool) {
	m.mu.RLock()
	chat, ok := m.sessions[sessionKey]
	m.mu.RUnlock()
	if ok {
		return chat, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if chat, ok = m.sessions[sessionKey]; ok {
		return chat, false
	}

	if lang == "" {
		lang = m.defaultLang
	}
	opts := append(slices.Clone(m.options), session.WithLanguage(lang))
	chat = session.New(sessionKey, m.rulebook, opts...)
	m.sessions[sessionKey] = chat
	m.log.Debug("Session created", "session_key", sessionKey, "language", lang)

	return chat, true
}

func (m *sessionManager) publish(ctx context.Context, event bus.Event) {
	if m.messageBus == nil {
		return
	}
	_ = m.messageBus.PublishEvent(ctx, event)
}

// Close drops all tracked sessions.
func (m *sessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.sessions)
}
