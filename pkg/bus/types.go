package bus

// InboundMessage is one user message travelling from a channel to a session.
type InboundMessage struct {
	Channel    string            `json:"channel"`
	SenderID   string            `json:"sender_id,omitempty"`
	ChatID     string            `json:"chat_id"`
	SessionKey string            `json:"session_key"`
	Content    string            `json:"content"`
	Language   string            `json:"language,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// OutboundMessage is the assistant reply routed back to the channel.
type OutboundMessage struct {
	Channel    string            `json:"channel"`
	ChatID     string            `json:"chat_id"`
	SessionKey string            `json:"session_key,omitempty"`
	MessageID  string            `json:"message_id,omitempty"`
	Content    string            `json:"content"`
	Language   string            `json:"language,omitempty"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
