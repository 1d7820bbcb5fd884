package chatbots

import "time"

// Chatbot is a client-owned chat endpoint backed by a workflow webhook
type Chatbot struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	WebhookURL string `json:"webhook_url,omitempty"`
	ClientID   string `json:"client_id"`
	IsActive   bool   `json:"is_active"`
}

// MessageRole identifies the author of a chat message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one line of a chat transcript
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
	SentAt  time.Time   `json:"sent_at"`
}

// SendRequest is the payload for sending a chat message
type SendRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Reply is the chatbot's answer to a message
type Reply struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
	LatencyMs int64  `json:"latency_ms"`
}
