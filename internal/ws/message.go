package ws

import "time"

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageEntryAppended      MessageType = "trainlog.entry_appended"
	MessageReadinessEvaluated MessageType = "readiness.evaluated"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}
