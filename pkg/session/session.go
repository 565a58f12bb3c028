package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"guardian/pkg/assistant"
)

const (
	DefaultTypingDelayMin = 1000 * time.Millisecond
	DefaultTypingDelayMax = 2000 * time.Millisecond
)

var ErrEmptyMessage = errors.New("message cannot be empty")

// Session is a single bilingual conversation with the rule based assistant.
type Session struct {
	key      string
	rulebook *assistant.Rulebook
	history  *History
	log      *slog.Logger

	delayMin time.Duration
	delayMax time.Duration
	now      func() time.Time

	sendMu sync.Mutex

	mu       sync.RWMutex
	language assistant.Language
}

type Option func(*Session)

func WithLanguage(lang assistant.Language) Option {
	return func(s *Session) {
		if lang.Valid() {
			s.language = lang
		}
	}
}

// WithTypingDelay sets the simulated reply delay range. A zero range
// answers immediately.
func WithTypingDelay(minDelay, maxDelay time.Duration) Option {
	return func(s *Session) {
		if minDelay < 0 {
			minDelay = 0
		}
		if maxDelay < minDelay {
			maxDelay = minDelay
		}
		s.delayMin = minDelay
		s.delayMax = maxDelay
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// New starts a conversation seeded with the welcome message. A nil rulebook
// uses the embedded default.
func New(key string, rulebook *assistant.Rulebook, opts ...Option) *Session {
	if rulebook == nil {
		rulebook = assistant.Default()
	}

	s := &Session{
		key:      strings.TrimSpace(key),
		rulebook: rulebook,
		history:  NewHistory(),
		log:      slog.Default(),
		delayMin: DefaultTypingDelayMin,
		delayMax: DefaultTypingDelayMax,
		now:      time.Now,
		language: assistant.English,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "session", "session_key", s.key)

	s.history.Reset(s.welcomeMessage(s.language))
	return s
}

func (s *Session) Key() string {
	return s.key
}

func (s *Session) Language() assistant.Language {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.language
}

func (s *Session) History() []ChatMessage {
	return s.history.List()
}

// QuickQuestions lists the suggested prompts while the conversation holds
// nothing but the welcome message.
func (s *Session) QuickQuestions() []string {
	if s.history.Len() > 1 {
		return nil
	}

	return s.rulebook.QuickQuestions(s.Language())
}

// SetLanguage switches the display language and restarts the conversation
// with the welcome message in that language.
func (s *Session) SetLanguage(lang assistant.Language) error {
	if !lang.Valid() {
		return fmt.Errorf("unsupported language %q", lang)
	}

	s.mu.Lock()
	if s.language == lang {
		s.mu.Unlock()
		return nil
	}
	s.language = lang
	s.mu.Unlock()

	s.history.Reset(s.welcomeMessage(lang))
	s.log.Info("Language switched", "language", lang)
	return nil
}

// Send records the user message, waits the typing delay and records the
// matched reply in the language active when the message was sent. Sends on
// one session run one at a time.
func (s *Session) Send(ctx context.Context, text string) (ChatMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(text) == "" {
		return ChatMessage{}, ErrEmptyMessage
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	lang := s.Language()
	s.history.Append(s.newMessage(text, true, lang))

	if err := s.wait(ctx); err != nil {
		s.log.Debug("Reply canceled", "error", err)
		return ChatMessage{}, err
	}

	reply := s.newMessage(s.rulebook.Match(text, lang), false, lang)
	s.history.Append(reply)

	return reply, nil
}

func (s *Session) wait(ctx context.Context) error {
	delay := s.typingDelay()
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Session) typingDelay() time.Duration {
	if s.delayMax <= s.delayMin {
		return s.delayMin
	}

	return s.delayMin + rand.N(s.delayMax-s.delayMin+1)
}

func (s *Session) welcomeMessage(lang assistant.Language) ChatMessage {
	return s.newMessage(s.rulebook.Welcome(lang), false, lang)
}

func (s *Session) newMessage(text string, fromUser bool, lang assistant.Language) ChatMessage {
	at := s.now().UTC()
	return ChatMessage{
		ID:       ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		Text:     text,
		FromUser: fromUser,
		SentAt:   at,
		Language: lang,
	}
}
